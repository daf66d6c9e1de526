package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"appforge/internal/config"
	"appforge/internal/domain/models"
	"appforge/internal/domain/repositories"
	domainllm "appforge/internal/domain/services/llm"
)

// Session holds the bounded conversation memory for one (target, layout)
// pair. The window caps at the configured maximum; older entries fall off
// the front. Sessions are created lazily and destroyed only by cache
// eviction, which never deletes persisted history.
type Session struct {
	AppID  string
	Layout models.CodeGenType

	mu     sync.Mutex
	window []domainllm.Message
	max    int

	// genMu serializes whole generation requests against this session
	// when the serialize policy is enabled.
	genMu sync.Mutex
}

// Append adds a message to the memory window, evicting the oldest entries
// beyond the window size.
func (s *Session) Append(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window = append(s.window, domainllm.TextMessage(role, text))
	if overflow := len(s.window) - s.max; overflow > 0 {
		s.window = append([]domainllm.Message(nil), s.window[overflow:]...)
	}
}

// Clear empties the memory window.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = nil
}

// Snapshot returns a copy of the current memory window, oldest first.
func (s *Session) Snapshot() []domainllm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domainllm.Message(nil), s.window...)
}

// Len returns the number of messages currently in the window.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.window)
}

// LockGeneration acquires the per-session generation lock.
func (s *Session) LockGeneration() { s.genMu.Lock() }

// UnlockGeneration releases the per-session generation lock.
func (s *Session) UnlockGeneration() { s.genMu.Unlock() }

// SessionStore is a keyed cache of generation sessions. Lookup-or-create
// is atomic per cache key: concurrent callers for the same (target,
// layout) observe exactly one constructed session. Eviction is
// notification-only and invisible to in-flight holders of a reference.
type SessionStore struct {
	cache       *expirable.LRU[string, *Session]
	group       singleflight.Group
	history     repositories.ChatHistoryRepository
	windowSize  int
	replayLimit int
	logger      *slog.Logger

	constructed atomic.Int64
}

// NewSessionStore creates a store bounded by capacity and TTL since last
// write; LRU ordering covers the recency dimension.
func NewSessionStore(
	history repositories.ChatHistoryRepository,
	capacity int,
	ttl time.Duration,
	logger *slog.Logger,
) *SessionStore {
	store := &SessionStore{
		history:     history,
		windowSize:  config.MemoryWindowSize,
		replayLimit: config.HistoryReplayLimit,
		logger:      logger,
	}

	store.cache = expirable.NewLRU(capacity, func(key string, _ *Session) {
		logger.Info("generation session evicted", "key", key)
	}, ttl)

	return store
}

// Acquire returns the session for (appID, layout), constructing it at most
// once across concurrent callers. Construction replays persisted history
// into the fresh memory window before the session becomes visible.
func (st *SessionStore) Acquire(ctx context.Context, appID string, layout models.CodeGenType) (*Session, error) {
	key := sessionKey(appID, layout)

	if sess, ok := st.cache.Get(key); ok {
		return sess, nil
	}

	value, err, _ := st.group.Do(key, func() (interface{}, error) {
		// Re-check under singleflight: another caller may have finished
		// construction between our miss and this callback.
		if sess, ok := st.cache.Get(key); ok {
			return sess, nil
		}

		sess := &Session{
			AppID:  appID,
			Layout: layout,
			max:    st.windowSize,
		}
		st.replayHistory(ctx, sess)
		st.cache.Add(key, sess)
		st.constructed.Add(1)

		st.logger.Info("generation session created",
			"app_id", appID,
			"layout", layout,
		)

		return sess, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*Session), nil
}

// replayHistory loads up to replayLimit persisted entries into the memory
// window, oldest first, clearing any stale in-memory state first. The
// newest row is skipped: it is the user message just appended for the
// request that triggered construction, which the orchestrator adds to the
// window itself. Replay failure is non-fatal; the session simply starts
// with empty memory.
func (st *SessionStore) replayHistory(ctx context.Context, sess *Session) {
	rows, err := st.history.ListRecent(ctx, sess.AppID, 1, st.replayLimit)
	if err != nil {
		st.logger.Warn("history replay failed",
			"app_id", sess.AppID,
			"error", err,
		)
		return
	}

	sess.Clear()

	// Rows arrive newest first; walk backwards to replay oldest first.
	loaded := 0
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		role := domainllm.RoleAssistant
		if row.MessageType == models.MessageTypeUser {
			role = domainllm.RoleUser
		}
		sess.Append(role, row.Content)
		loaded++
	}

	if loaded > 0 {
		st.logger.Info("history replayed into session",
			"app_id", sess.AppID,
			"messages", loaded,
		)
	}
}

// Constructed reports how many sessions this store has built.
func (st *SessionStore) Constructed() int64 {
	return st.constructed.Load()
}

func sessionKey(appID string, layout models.CodeGenType) string {
	return fmt.Sprintf("%s_%s", appID, layout)
}
