package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"appforge/internal/domain/services"
	"appforge/internal/httputil"
	"appforge/internal/service/codegen"
)

// AppHandler handles app HTTP requests
type AppHandler struct {
	appService services.AppService
	deployer   *codegen.Deployer
	logger     *slog.Logger
}

// NewAppHandler creates a new app handler
func NewAppHandler(appService services.AppService, deployer *codegen.Deployer, logger *slog.Logger) *AppHandler {
	return &AppHandler{
		appService: appService,
		deployer:   deployer,
		logger:     logger,
	}
}

// CreateApp creates a new app, routing the prompt to a generation layout
// POST /api/apps
func (h *AppHandler) CreateApp(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req services.CreateAppRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	app, err := h.appService.CreateApp(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, app)
}

// GetApp retrieves an app by ID
// GET /api/apps/{id}
func (h *AppHandler) GetApp(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "app ID is required")
		return
	}

	app, err := h.appService.GetApp(r.Context(), id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, app)
}

// ListApps lists the caller's apps, newest first
// GET /api/apps
func (h *AppHandler) ListApps(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	apps, err := h.appService.ListApps(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, apps)
}

// DeleteApp deletes an app and its chat history
// DELETE /api/apps/{id}
func (h *AppHandler) DeleteApp(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "app ID is required")
		return
	}

	if err := h.appService.DeleteApp(r.Context(), id, userID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Deploy publishes the app's generated output and returns its public URL
// POST /api/apps/{id}/deploy
func (h *AppHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "app ID is required")
		return
	}

	url, err := h.deployer.Deploy(r.Context(), id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// History returns one cursor page of the app's chat history, newest first.
// Cursor is the created_at of the oldest message on the previous page.
// GET /api/apps/{id}/history?before=<RFC3339>&limit=<n>
func (h *AppHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "app ID is required")
		return
	}

	req := &services.ListHistoryRequest{AppID: id, UserID: userID}

	if before := r.URL.Query().Get("before"); before != "" {
		cursor, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid before cursor, expected RFC3339 timestamp")
			return
		}
		req.Before = cursor
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = n
	}

	page, err := h.appService.ListHistory(r.Context(), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *AppHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now(),
	})
}
