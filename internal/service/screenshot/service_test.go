package screenshot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type coverRecorder struct {
	mu     sync.Mutex
	covers map[string]string
	done   chan struct{}
}

func newCoverRecorder() *coverRecorder {
	return &coverRecorder{covers: make(map[string]string), done: make(chan struct{}, 1)}
}

func (r *coverRecorder) CreateApp(context.Context, *models.App) error { return nil }
func (r *coverRecorder) GetApp(context.Context, string) (*models.App, error) {
	return nil, &domain.NotFoundError{Message: "not found"}
}
func (r *coverRecorder) ListAppsByUser(context.Context, string) ([]models.App, error) {
	return nil, nil
}
func (r *coverRecorder) UpdateDeployment(context.Context, string, string, time.Time) error {
	return nil
}
func (r *coverRecorder) DeleteApp(context.Context, string) error { return nil }

func (r *coverRecorder) UpdateCover(_ context.Context, appID, coverURL string) error {
	r.mu.Lock()
	r.covers[appID] = coverURL
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestTriggerCaptureUploadsAndRecordsCover(t *testing.T) {
	apps := newCoverRecorder()
	store := NewLocalObjectStore(t.TempDir(), "http://covers.local")

	capture := func(_ context.Context, url string) ([]byte, error) {
		return []byte("png-bytes-for-" + url), nil
	}

	svc := NewService(capture, store, apps, testLogger())
	svc.TriggerCapture("42", "http://localhost:8081/abc123/")

	select {
	case <-apps.done:
	case <-time.After(5 * time.Second):
		t.Fatal("cover was never recorded")
	}

	apps.mu.Lock()
	cover := apps.covers["42"]
	apps.mu.Unlock()

	if !strings.HasPrefix(cover, "http://covers.local/screenshots/") {
		t.Errorf("cover url = %q", cover)
	}
	if !strings.HasSuffix(cover, ".png") {
		t.Errorf("cover url should end in .png, got %q", cover)
	}
}

func TestTriggerCaptureFailureIsSwallowed(t *testing.T) {
	apps := newCoverRecorder()
	store := NewLocalObjectStore(t.TempDir(), "http://covers.local")

	capture := func(context.Context, string) ([]byte, error) {
		return nil, errors.New("renderer crashed")
	}

	svc := NewService(capture, store, apps, testLogger())
	svc.TriggerCapture("42", "http://x/")

	select {
	case <-apps.done:
		t.Fatal("cover must not be recorded when capture fails")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTriggerCaptureDisabledWithoutCommand(t *testing.T) {
	apps := newCoverRecorder()
	svc := NewService(nil, NewLocalObjectStore(t.TempDir(), "http://x"), apps, testLogger())

	// Must be a no-op, not a panic
	svc.TriggerCapture("42", "http://x/")
}

func TestLocalObjectStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewLocalObjectStore(root, "http://covers.local/")

	url, err := store.Upload(context.Background(), "screenshots/2026/08/29/abcd1234.png", []byte("data"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if url != "http://covers.local/screenshots/2026/08/29/abcd1234.png" {
		t.Errorf("url = %q", url)
	}

	got, err := os.ReadFile(filepath.Join(root, "screenshots", "2026", "08", "29", "abcd1234.png"))
	if err != nil {
		t.Fatalf("object not written: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("object content = %q", got)
	}
}

func TestCommandCaptureEmptyCommandDisables(t *testing.T) {
	if fn := CommandCapture("", testLogger()); fn != nil {
		t.Error("empty command should disable capture")
	}
	if fn := CommandCapture("   ", testLogger()); fn != nil {
		t.Error("blank command should disable capture")
	}
}
