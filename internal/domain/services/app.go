package services

import (
	"context"
	"time"

	"appforge/internal/domain/models"
)

// AppService handles app lifecycle business logic.
type AppService interface {
	// CreateApp validates the initial prompt, classifies it into a
	// generation layout and persists the app.
	CreateApp(ctx context.Context, req *CreateAppRequest) (*models.App, error)

	// GetApp retrieves an app owned by the given user.
	GetApp(ctx context.Context, id, userID string) (*models.App, error)

	// ListApps lists the user's apps, newest first.
	ListApps(ctx context.Context, userID string) ([]models.App, error)

	// DeleteApp removes an app and its chat history atomically.
	DeleteApp(ctx context.Context, id, userID string) error

	// ListHistory returns a page of the app's chat history, newest first.
	ListHistory(ctx context.Context, req *ListHistoryRequest) (*HistoryPage, error)
}

// LayoutClassifier routes an initial prompt to a code generation layout.
type LayoutClassifier interface {
	Classify(ctx context.Context, initPrompt string) (models.CodeGenType, error)
}

// CreateAppRequest represents an app creation request.
type CreateAppRequest struct {
	UserID     string `json:"-"`
	InitPrompt string `json:"init_prompt"`
}

// ListHistoryRequest represents a chat history page request.
type ListHistoryRequest struct {
	AppID  string
	UserID string
	Before time.Time
	Limit  int
}

// HistoryPage is one page of chat history, newest first. NextBefore is
// the cursor for the following page, nil when this page is the last.
type HistoryPage struct {
	Messages   []models.ChatMessage `json:"messages"`
	NextBefore *time.Time           `json:"next_before,omitempty"`
}
