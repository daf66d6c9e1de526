package repositories

import (
	"context"
	"time"

	"appforge/internal/domain/models"
)

// AppRepository persists generation targets.
type AppRepository interface {
	// CreateApp inserts a new app and fills in its generated ID and timestamps.
	CreateApp(ctx context.Context, app *models.App) error

	// GetApp retrieves an app by ID regardless of owner. Callers enforce
	// ownership; ErrNotFound is wrapped when the row does not exist.
	GetApp(ctx context.Context, appID string) (*models.App, error)

	// ListAppsByUser retrieves all apps owned by a user, newest first.
	ListAppsByUser(ctx context.Context, userID string) ([]models.App, error)

	// UpdateDeployment records the deploy key and deploy timestamp.
	UpdateDeployment(ctx context.Context, appID, deployKey string, deployedAt time.Time) error

	// UpdateCover records the screenshot URL captured after a deploy.
	UpdateCover(ctx context.Context, appID, coverURL string) error

	// DeleteApp removes the app row. History cleanup is the caller's
	// responsibility (done in the same transaction by the app service).
	DeleteApp(ctx context.Context, appID string) error
}
