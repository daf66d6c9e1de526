package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// EventWriter writes server-sent events. Headers are committed lazily on
// the first write so precondition failures can still produce a regular
// JSON error response. Writes are serialized: the generation goroutine
// and the keep-alive ticker share one connection.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu      sync.Mutex
	started bool
}

// NewEventWriter wraps a response writer for SSE output. Fails when the
// underlying writer cannot flush, which rules out streaming entirely.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &EventWriter{w: w, flusher: flusher}, nil
}

// Started reports whether the SSE headers have been committed.
func (ew *EventWriter) Started() bool {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	return ew.started
}

// WriteEvent marshals data and writes one named SSE event, flushing
// immediately so chunks reach the client as they are produced.
func (ew *EventWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event, err)
	}

	ew.mu.Lock()
	defer ew.mu.Unlock()

	ew.start()

	if _, err := fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write event failed: %w", err)
	}
	ew.flusher.Flush()

	return nil
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes.
// Returns error if connection is closed or write fails.
func (ew *EventWriter) WriteKeepAlive() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	ew.start()

	// SSE spec: lines starting with : are comments (ignored by client)
	if _, err := fmt.Fprintf(ew.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	ew.flusher.Flush()

	// Zero-byte write to detect closed connections
	if _, err := ew.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}

	return nil
}

// start commits the SSE headers. Caller must hold mu.
func (ew *EventWriter) start() {
	if ew.started {
		return
	}
	ew.started = true

	h := ew.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	ew.w.WriteHeader(http.StatusOK)
}
