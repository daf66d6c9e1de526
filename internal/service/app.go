package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"appforge/internal/config"
	"appforge/internal/domain"
	"appforge/internal/domain/models"
	"appforge/internal/domain/repositories"
	"appforge/internal/domain/services"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 50
)

// appService implements the AppService interface
type appService struct {
	apps       repositories.AppRepository
	history    repositories.ChatHistoryRepository
	txManager  repositories.TransactionManager
	classifier services.LayoutClassifier
	logger     *slog.Logger
}

// NewAppService creates a new app service
func NewAppService(
	apps repositories.AppRepository,
	history repositories.ChatHistoryRepository,
	txManager repositories.TransactionManager,
	classifier services.LayoutClassifier,
	logger *slog.Logger,
) services.AppService {
	return &appService{
		apps:       apps,
		history:    history,
		txManager:  txManager,
		classifier: classifier,
		logger:     logger,
	}
}

// CreateApp validates the prompt, classifies the layout exactly once and
// persists the app. Classification failure fails the whole creation;
// there is no fallback layout.
func (s *appService) CreateApp(ctx context.Context, req *services.CreateAppRequest) (*models.App, error) {
	req.InitPrompt = strings.TrimSpace(req.InitPrompt)

	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	layout, err := s.classifier.Classify(ctx, req.InitPrompt)
	if err != nil {
		return nil, err
	}

	app := &models.App{
		UserID:      req.UserID,
		Name:        appNameFromPrompt(req.InitPrompt),
		InitPrompt:  req.InitPrompt,
		CodeGenType: layout,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.apps.CreateApp(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info("app created",
		"id", app.ID,
		"user_id", app.UserID,
		"layout", app.CodeGenType,
	)

	return app, nil
}

// GetApp retrieves an app, enforcing ownership
func (s *appService) GetApp(ctx context.Context, id, userID string) (*models.App, error) {
	app, err := s.apps.GetApp(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, &domain.ForbiddenError{Message: "app belongs to another user"}
	}
	return app, nil
}

// ListApps lists the user's apps, newest first
func (s *appService) ListApps(ctx context.Context, userID string) ([]models.App, error) {
	return s.apps.ListAppsByUser(ctx, userID)
}

// DeleteApp removes the app and its chat history in one transaction.
func (s *appService) DeleteApp(ctx context.Context, id, userID string) error {
	app, err := s.apps.GetApp(ctx, id)
	if err != nil {
		return err
	}
	if app.UserID != userID {
		return &domain.ForbiddenError{Message: "app belongs to another user"}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.history.DeleteByApp(txCtx, id); err != nil {
			return fmt.Errorf("delete chat history: %w", err)
		}
		return s.apps.DeleteApp(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("app deleted",
		"id", id,
		"user_id", userID,
	)

	return nil
}

// ListHistory returns one cursor page of the app's chat history, newest
// first. The cursor is the created_at of the oldest message on the
// previous page; a zero cursor starts from the top.
func (s *appService) ListHistory(ctx context.Context, req *services.ListHistoryRequest) (*services.HistoryPage, error) {
	app, err := s.apps.GetApp(ctx, req.AppID)
	if err != nil {
		return nil, err
	}
	if app.UserID != req.UserID {
		return nil, &domain.ForbiddenError{Message: "app belongs to another user"}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	if limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}

	rows, err := s.history.ListBefore(ctx, req.AppID, req.Before, limit)
	if err != nil {
		return nil, err
	}

	page := &services.HistoryPage{Messages: rows}
	if len(rows) == limit {
		cursor := rows[len(rows)-1].CreatedAt
		page.NextBefore = &cursor
	}

	return page, nil
}

// validateCreateRequest validates an app creation request
func (s *appService) validateCreateRequest(req *services.CreateAppRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.InitPrompt,
			validation.Required,
			validation.Length(1, config.MaxInitPromptLength),
		),
	)
}

// appNameFromPrompt derives the display name from the prompt prefix.
func appNameFromPrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= config.AppNameFromPromptLength {
		return prompt
	}
	return string(runes[:config.AppNameFromPromptLength])
}
