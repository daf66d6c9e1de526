package models

import "time"

// MessageType tags a chat history entry with its author role.
// Error entries are written by the orchestrator when a generation fails,
// so the conversation record reflects the failure distinctly from normal
// assistant output.
type MessageType string

const (
	MessageTypeUser  MessageType = "user"
	MessageTypeAI    MessageType = "ai"
	MessageTypeError MessageType = "error"
)

// ChatMessage is an immutable, append-only history record. Messages are
// never updated or deleted individually; they are bulk-deleted only when
// the owning app is deleted.
type ChatMessage struct {
	ID          string      `json:"id"`
	AppID       string      `json:"app_id"`
	UserID      string      `json:"user_id"`
	MessageType MessageType `json:"message_type"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"created_at"`
}
