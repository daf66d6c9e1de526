package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"appforge/internal/config"
	"appforge/internal/domain"
	"appforge/internal/handler/sse"
	"appforge/internal/httputil"
	"appforge/internal/service/codegen"
)

// ChatHandler streams code generation over SSE
type ChatHandler struct {
	orchestrator *codegen.Orchestrator
	sseConfig    *sse.Config
	logger       *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orchestrator *codegen.Orchestrator, sseConfig *sse.Config, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		sseConfig:    sseConfig,
		logger:       logger,
	}
}

// chatRequest is the chat message payload
type chatRequest struct {
	Message string `json:"message"`
}

func (req *chatRequest) validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Message,
			validation.Required,
			validation.Length(1, config.MaxChatMessageLength),
		),
	)
}

// Chat runs one generation request and streams its events over SSE.
// Precondition failures (bad message, unknown app, wrong owner) surface
// as regular JSON errors because SSE headers are committed lazily on the
// first streamed event.
// POST /api/apps/{id}/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appID := r.PathValue("id")
	if appID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "app ID is required")
		return
	}

	var req chatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		handleError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	writer, err := sse.NewEventWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	err = h.orchestrator.ChatToGenCode(r.Context(), appID, userID, req.Message, func(ev codegen.StreamEvent) error {
		return writer.WriteEvent(string(ev.Kind), ev)
	})
	if err != nil {
		// Once streaming began the terminal error event was already
		// emitted; only a pre-stream failure gets a JSON response.
		if !writer.Started() {
			handleError(w, h.logger, err)
			return
		}
		h.logger.Debug("generation stream ended with error",
			"app_id", appID,
			"error", err,
		)
	}
}
