package codegen

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
)

// namedFile is one logical file of a materialized artifact.
type namedFile struct {
	name    string
	content string
}

// saveStrategy holds the per-layout validate and file-listing behavior.
// A lookup table of small strategy records replaces subtype dispatch.
type saveStrategy struct {
	validate func(artifact models.CodeArtifact) error
	files    func(artifact models.CodeArtifact) []namedFile
}

var saveStrategies = map[models.CodeGenType]saveStrategy{
	models.CodeGenHTML: {
		validate: func(artifact models.CodeArtifact) error {
			a := artifact.(*models.HTMLArtifact)
			if strings.TrimSpace(a.HTML) == "" {
				return &domain.ValidationError{Message: "html code must not be empty"}
			}
			return nil
		},
		files: func(artifact models.CodeArtifact) []namedFile {
			a := artifact.(*models.HTMLArtifact)
			return []namedFile{{"index.html", a.HTML}}
		},
	},
	models.CodeGenMultiFile: {
		validate: func(artifact models.CodeArtifact) error {
			a := artifact.(*models.MultiFileArtifact)
			if strings.TrimSpace(a.HTML) == "" {
				return &domain.ValidationError{Message: "html code must not be empty"}
			}
			if strings.TrimSpace(a.CSS) == "" {
				return &domain.ValidationError{Message: "css code must not be empty"}
			}
			if strings.TrimSpace(a.JS) == "" {
				return &domain.ValidationError{Message: "js code must not be empty"}
			}
			return nil
		},
		files: func(artifact models.CodeArtifact) []namedFile {
			a := artifact.(*models.MultiFileArtifact)
			return []namedFile{
				{"index.html", a.HTML},
				{"style.css", a.CSS},
				{"script.js", a.JS},
			}
		},
	},
}

// FileSaver materializes structured artifacts to durable local storage.
// Each target gets one directory per layout; re-materialization overwrites
// in place.
type FileSaver struct {
	outputRoot string
	logger     *slog.Logger
}

// NewFileSaver creates a FileSaver rooted at outputRoot.
func NewFileSaver(outputRoot string, logger *slog.Logger) *FileSaver {
	return &FileSaver{
		outputRoot: outputRoot,
		logger:     logger,
	}
}

// OutputDir returns the deterministic output directory for a target and
// layout: <outputRoot>/<layout>_<appID>.
func (s *FileSaver) OutputDir(layout models.CodeGenType, appID string) string {
	return filepath.Join(s.outputRoot, fmt.Sprintf("%s_%s", layout, appID))
}

// Save materializes an artifact in three ordered steps: validate, allocate
// path, write. Validation happens before any write, so a rejected artifact
// leaves the filesystem untouched.
func (s *FileSaver) Save(artifact models.CodeArtifact, appID string) (string, error) {
	strategy, ok := saveStrategies[artifact.Layout()]
	if !ok {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("no save strategy for layout %q", artifact.Layout()),
		}
	}

	if err := strategy.validate(artifact); err != nil {
		return "", err
	}

	dir := s.OutputDir(artifact.Layout(), appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output directory: %v", domain.ErrIO, err)
	}

	for _, file := range strategy.files(artifact) {
		if err := writeFileAtomic(filepath.Join(dir, file.name), file.content); err != nil {
			return "", fmt.Errorf("%w: write %s: %v", domain.ErrIO, file.name, err)
		}
	}

	s.logger.Info("artifact materialized",
		"app_id", appID,
		"layout", artifact.Layout(),
		"dir", dir,
	)

	return dir, nil
}

// WriteProjectFile writes one file of a tool-driven project generation
// into the target's project root. Writes happen incrementally, one per
// tool invocation, with no upfront whole-artifact validation. The relative
// path is confined to the project root.
func (s *FileSaver) WriteProjectFile(appID, relPath, content string) (string, error) {
	cleaned, err := sanitizeProjectPath(relPath)
	if err != nil {
		return "", err
	}

	root := s.OutputDir(models.CodeGenVueProject, appID)
	fullPath := filepath.Join(root, cleaned)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: create project directory: %v", domain.ErrIO, err)
	}

	if err := writeFileAtomic(fullPath, content); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrIO, cleaned, err)
	}

	s.logger.Debug("project file written",
		"app_id", appID,
		"path", cleaned,
		"bytes", len(content),
	)

	return cleaned, nil
}

// sanitizeProjectPath rejects absolute paths and traversal outside the
// project root, returning the cleaned slash path.
func sanitizeProjectPath(relPath string) (string, error) {
	if relPath == "" {
		return "", &domain.ValidationError{Message: "file path must not be empty"}
	}
	if filepath.IsAbs(relPath) || strings.HasPrefix(relPath, "/") {
		return "", &domain.ValidationError{Message: fmt.Sprintf("file path %q must be relative", relPath)}
	}

	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", &domain.ValidationError{Message: fmt.Sprintf("file path %q escapes the project root", relPath)}
	}

	return cleaned, nil
}

// writeFileAtomic fully replaces the file at path via a temp file and
// rename, so readers never observe a half-written file.
func writeFileAtomic(path, content string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}
