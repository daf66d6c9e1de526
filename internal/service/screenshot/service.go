package screenshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"appforge/internal/domain/repositories"
	"appforge/internal/domain/services"
)

// captureTimeout bounds one capture run including the upload.
const captureTimeout = 60 * time.Second

// CaptureFunc renders the page at url and returns PNG bytes.
type CaptureFunc func(ctx context.Context, url string) ([]byte, error)

// Service captures a screenshot of a freshly deployed app, uploads it to
// object storage and records the resulting URL as the app's cover image.
// The whole pipeline is fire-and-forget; failures are logged only and
// never affect the deploy that triggered them.
type Service struct {
	capture CaptureFunc
	store   services.ObjectStore
	apps    repositories.AppRepository
	logger  *slog.Logger
}

// NewService creates a screenshot service. capture may be nil, in which
// case TriggerCapture logs and returns without doing anything.
func NewService(
	capture CaptureFunc,
	store services.ObjectStore,
	apps repositories.AppRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		capture: capture,
		store:   store,
		apps:    apps,
		logger:  logger,
	}
}

// TriggerCapture starts an asynchronous capture of the deployed URL.
func (s *Service) TriggerCapture(appID, url string) {
	if s.capture == nil {
		s.logger.Debug("screenshot capture disabled", "app_id", appID)
		return
	}

	go s.run(appID, url)
}

func (s *Service) run(appID, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	data, err := s.capture(ctx, url)
	if err != nil {
		s.logger.Warn("screenshot capture failed",
			"app_id", appID,
			"url", url,
			"error", err,
		)
		return
	}

	key := coverKey()
	coverURL, err := s.store.Upload(ctx, key, data)
	if err != nil {
		s.logger.Warn("screenshot upload failed",
			"app_id", appID,
			"key", key,
			"error", err,
		)
		return
	}

	if err := s.apps.UpdateCover(ctx, appID, coverURL); err != nil {
		s.logger.Warn("failed to record cover url",
			"app_id", appID,
			"cover_url", coverURL,
			"error", err,
		)
		return
	}

	s.logger.Info("app cover updated",
		"app_id", appID,
		"cover_url", coverURL,
	)
}

// coverKey builds a date-partitioned object key with a random suffix.
func coverKey() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("screenshots/%s/%s.png", time.Now().Format("2006/01/02"), suffix)
}

// CommandCapture builds a CaptureFunc that shells out to an external
// renderer. The command is split on whitespace and invoked with the page
// URL and an output file path appended as its final two arguments.
func CommandCapture(command string, logger *slog.Logger) CaptureFunc {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil
	}

	return func(ctx context.Context, url string) ([]byte, error) {
		outFile, err := os.CreateTemp("", "cover-*.png")
		if err != nil {
			return nil, fmt.Errorf("create capture file: %w", err)
		}
		outPath := outFile.Name()
		outFile.Close()
		defer os.Remove(outPath)

		args := append(append([]string(nil), parts[1:]...), url, outPath)
		cmd := exec.CommandContext(ctx, parts[0], args...)

		if out, err := cmd.CombinedOutput(); err != nil {
			logger.Debug("capture command output", "output", string(out))
			return nil, fmt.Errorf("capture command failed: %w", err)
		}

		return os.ReadFile(outPath)
	}
}

// LocalObjectStore stores uploads on the local filesystem beneath root
// and addresses them under baseURL. It stands in for a cloud object
// store in single-node deployments.
type LocalObjectStore struct {
	root    string
	baseURL string
}

// NewLocalObjectStore creates a filesystem-backed object store.
func NewLocalObjectStore(root, baseURL string) *LocalObjectStore {
	return &LocalObjectStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload writes data under key and returns its public URL.
func (s *LocalObjectStore) Upload(_ context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.baseURL + "/" + key, nil
}
