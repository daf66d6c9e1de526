package repositories

import (
	"context"
	"time"

	"appforge/internal/domain/models"
)

// ChatHistoryRepository persists the append-only conversation record.
type ChatHistoryRepository interface {
	// Append inserts a single message. Messages are immutable once written.
	Append(ctx context.Context, msg *models.ChatMessage) error

	// ListRecent returns up to limit messages for an app ordered newest
	// first, skipping the offset newest rows. Used both for session memory
	// replay (offset 1 to skip the just-appended user message) and for
	// history pagination.
	ListRecent(ctx context.Context, appID string, offset, limit int) ([]models.ChatMessage, error)

	// ListBefore returns up to limit messages created strictly before the
	// cursor timestamp, newest first. A zero cursor means "from the top".
	ListBefore(ctx context.Context, appID string, before time.Time, limit int) ([]models.ChatMessage, error)

	// DeleteByApp bulk-deletes all messages for an app. Only invoked when
	// the owning app is deleted.
	DeleteByApp(ctx context.Context, appID string) error
}
