package config

const (
	// MaxAppNameLength is the maximum length for app names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxAppNameLength = 255

	// AppNameFromPromptLength is how many characters of the init prompt
	// become the default app name.
	AppNameFromPromptLength = 12

	// MaxInitPromptLength bounds the initial prompt accepted at app creation.
	MaxInitPromptLength = 8000

	// MaxChatMessageLength bounds a single user chat message.
	MaxChatMessageLength = 8000

	// MemoryWindowSize is the maximum number of messages held in a
	// generation session's conversation memory.
	MemoryWindowSize = 20

	// HistoryReplayLimit is the maximum number of persisted history rows
	// replayed into a freshly constructed session.
	HistoryReplayLimit = 20

	// MaxProjectRounds bounds the tool-call loop for project generation.
	// Each round is one model turn that may emit several file writes.
	MaxProjectRounds = 8

	// DeployKeyLength is the length of the generated deploy slot key.
	DeployKeyLength = 6
)
