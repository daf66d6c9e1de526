package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
	"appforge/internal/domain/repositories"
)

// PostgresAppRepository implements the AppRepository interface using PostgreSQL
type PostgresAppRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAppRepository creates a new PostgresAppRepository
func NewAppRepository(config *RepositoryConfig) repositories.AppRepository {
	return &PostgresAppRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateApp inserts a new app row
func (r *PostgresAppRepository) CreateApp(ctx context.Context, app *models.App) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, name, init_prompt, code_gen_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Apps)

	now := time.Now()
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		app.UserID,
		app.Name,
		app.InitPrompt,
		string(app.CodeGenType),
		now,
		now,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	return nil
}

// GetApp retrieves an app by ID
func (r *PostgresAppRepository) GetApp(ctx context.Context, appID string) (*models.App, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, init_prompt, code_gen_type, deploy_key, deployed_at, cover_url, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Apps)

	var app models.App
	var codeGenType string
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, appID).Scan(
		&app.ID,
		&app.UserID,
		&app.Name,
		&app.InitPrompt,
		&codeGenType,
		&app.DeployKey,
		&app.DeployedAt,
		&app.CoverURL,
		&app.CreatedAt,
		&app.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("app %s: %w", appID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get app: %w", err)
	}

	app.CodeGenType = models.CodeGenType(codeGenType)
	return &app, nil
}

// ListAppsByUser retrieves all apps owned by a user, newest first
func (r *PostgresAppRepository) ListAppsByUser(ctx context.Context, userID string) ([]models.App, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, init_prompt, code_gen_type, deploy_key, deployed_at, cover_url, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Apps)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	var apps []models.App
	for rows.Next() {
		var app models.App
		var codeGenType string
		err := rows.Scan(
			&app.ID,
			&app.UserID,
			&app.Name,
			&app.InitPrompt,
			&codeGenType,
			&app.DeployKey,
			&app.DeployedAt,
			&app.CoverURL,
			&app.CreatedAt,
			&app.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		app.CodeGenType = models.CodeGenType(codeGenType)
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apps: %w", err)
	}

	// Return empty slice instead of nil
	if apps == nil {
		apps = []models.App{}
	}

	return apps, nil
}

// UpdateDeployment records the deploy key and deploy timestamp
func (r *PostgresAppRepository) UpdateDeployment(ctx context.Context, appID, deployKey string, deployedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deploy_key = $1, deployed_at = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Apps)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, deployKey, deployedAt, time.Now(), appID)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("app %s: %w", appID, domain.ErrNotFound)
	}

	return nil
}

// UpdateCover records the screenshot URL captured after a deploy
func (r *PostgresAppRepository) UpdateCover(ctx context.Context, appID, coverURL string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET cover_url = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.Apps)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, coverURL, time.Now(), appID)
	if err != nil {
		return fmt.Errorf("update cover: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("app %s: %w", appID, domain.ErrNotFound)
	}

	return nil
}

// DeleteApp removes the app row
func (r *PostgresAppRepository) DeleteApp(ctx context.Context, appID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Apps)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, appID)
	if err != nil {
		return fmt.Errorf("delete app: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("app %s: %w", appID, domain.ErrNotFound)
	}

	return nil
}
