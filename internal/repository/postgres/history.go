package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appforge/internal/domain/models"
	"appforge/internal/domain/repositories"
)

// PostgresChatHistoryRepository implements ChatHistoryRepository using PostgreSQL
type PostgresChatHistoryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChatHistoryRepository creates a new PostgresChatHistoryRepository
func NewChatHistoryRepository(config *RepositoryConfig) repositories.ChatHistoryRepository {
	return &PostgresChatHistoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append inserts a single chat message
func (r *PostgresChatHistoryRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (app_id, user_id, message_type, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, r.tables.ChatMessages)

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.AppID,
		msg.UserID,
		string(msg.MessageType),
		msg.Content,
		createdAt,
	).Scan(&msg.ID, &msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}

	return nil
}

// ListRecent returns up to limit messages newest first, skipping the offset newest rows
func (r *PostgresChatHistoryRepository) ListRecent(ctx context.Context, appID string, offset, limit int) ([]models.ChatMessage, error) {
	query := fmt.Sprintf(`
		SELECT id, app_id, user_id, message_type, content, created_at
		FROM %s
		WHERE app_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, r.tables.ChatMessages)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, appID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListBefore returns up to limit messages created strictly before the cursor, newest first
func (r *PostgresChatHistoryRepository) ListBefore(ctx context.Context, appID string, before time.Time, limit int) ([]models.ChatMessage, error) {
	var (
		rows pgx.Rows
		err  error
	)
	executor := GetExecutor(ctx, r.pool)

	if before.IsZero() {
		query := fmt.Sprintf(`
			SELECT id, app_id, user_id, message_type, content, created_at
			FROM %s
			WHERE app_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, r.tables.ChatMessages)
		rows, err = executor.Query(ctx, query, appID, limit)
	} else {
		query := fmt.Sprintf(`
			SELECT id, app_id, user_id, message_type, content, created_at
			FROM %s
			WHERE app_id = $1 AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3
		`, r.tables.ChatMessages)
		rows, err = executor.Query(ctx, query, appID, before, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("list messages before cursor: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// DeleteByApp bulk-deletes all messages for an app
func (r *PostgresChatHistoryRepository) DeleteByApp(ctx context.Context, appID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE app_id = $1`, r.tables.ChatMessages)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, appID); err != nil {
		return fmt.Errorf("delete chat history: %w", err)
	}

	return nil
}

func scanMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var messageType string
		err := rows.Scan(
			&msg.ID,
			&msg.AppID,
			&msg.UserID,
			&messageType,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.MessageType = models.MessageType(messageType)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}

	return messages, nil
}
