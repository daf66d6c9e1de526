package codegen

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSaveHTMLArtifactWriteBack(t *testing.T) {
	saver := NewFileSaver(t.TempDir(), testLogger())

	content := "<html>\n<body>unicode: héllo ✓</body>\n</html>"
	dir, err := saver.Save(&models.HTMLArtifact{HTML: content}, "42")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if base := filepath.Base(dir); base != "html_42" {
		t.Errorf("output dir = %q, want html_42", base)
	}

	got, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("read back content differs from written content")
	}
}

func TestSaveMultiFileArtifact(t *testing.T) {
	saver := NewFileSaver(t.TempDir(), testLogger())

	artifact := &models.MultiFileArtifact{
		HTML: "<div></div>",
		CSS:  "div{}",
		JS:   "void 0;",
	}
	dir, err := saver.Save(artifact, "7")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for name, want := range map[string]string{
		"index.html": artifact.HTML,
		"style.css":  artifact.CSS,
		"script.js":  artifact.JS,
	} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestSaveValidationRejectsBeforeWrite(t *testing.T) {
	tests := []struct {
		name     string
		artifact models.CodeArtifact
		wantMsg  string
	}{
		{
			name:     "empty html single file",
			artifact: &models.HTMLArtifact{HTML: "   "},
			wantMsg:  "html",
		},
		{
			name:     "missing css region",
			artifact: &models.MultiFileArtifact{HTML: "<p></p>", JS: "x()"},
			wantMsg:  "css",
		},
		{
			name:     "missing js region",
			artifact: &models.MultiFileArtifact{HTML: "<p></p>", CSS: "p{}"},
			wantMsg:  "js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			saver := NewFileSaver(root, testLogger())

			_, err := saver.Save(tt.artifact, "9")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should name the missing field %q", err, tt.wantMsg)
			}

			// Rejected artifacts must leave the filesystem untouched
			entries, err := os.ReadDir(root)
			if err != nil {
				t.Fatalf("read root: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("output root should be empty after rejection, found %d entries", len(entries))
			}
		})
	}
}

func TestSaveOverwritesInPlace(t *testing.T) {
	saver := NewFileSaver(t.TempDir(), testLogger())

	if _, err := saver.Save(&models.HTMLArtifact{HTML: "first"}, "1"); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	dir, err := saver.Save(&models.HTMLArtifact{HTML: "second"}, "1")
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("index.html = %q, want full replacement", got)
	}
}

func TestWriteProjectFile(t *testing.T) {
	saver := NewFileSaver(t.TempDir(), testLogger())

	rel, err := saver.WriteProjectFile("5", "src/components/App.vue", "<template/>")
	if err != nil {
		t.Fatalf("WriteProjectFile failed: %v", err)
	}

	full := filepath.Join(saver.OutputDir(models.CodeGenVueProject, "5"), rel)
	got, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(got) != "<template/>" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteProjectFileRejectsEscapes(t *testing.T) {
	saver := NewFileSaver(t.TempDir(), testLogger())

	tests := []struct {
		name string
		path string
	}{
		{"absolute path", "/etc/passwd"},
		{"parent traversal", "../outside.txt"},
		{"nested traversal", "src/../../outside.txt"},
		{"empty path", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := saver.WriteProjectFile("5", tt.path, "x"); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("path %q: expected validation error, got %v", tt.path, err)
			}
		})
	}
}
