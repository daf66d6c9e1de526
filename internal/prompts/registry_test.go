package prompts

import (
	"strings"
	"testing"

	"appforge/internal/domain/models"
)

func TestNewRegistryLoadsAllLayouts(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for _, layout := range []models.CodeGenType{
		models.CodeGenHTML,
		models.CodeGenMultiFile,
		models.CodeGenVueProject,
	} {
		prompt, err := registry.SystemPrompt(layout)
		if err != nil {
			t.Errorf("SystemPrompt(%s) failed: %v", layout, err)
			continue
		}
		if strings.TrimSpace(prompt) == "" {
			t.Errorf("SystemPrompt(%s) is empty", layout)
		}
	}
}

func TestRoutingPromptLoaded(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := registry.RoutingPrompt()
	if err != nil {
		t.Fatalf("RoutingPrompt failed: %v", err)
	}
	if strings.TrimSpace(prompt) == "" {
		t.Error("routing prompt is empty")
	}
}

func TestSystemPromptUnknownLayout(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := registry.SystemPrompt(models.CodeGenType("spreadsheet")); err == nil {
		t.Error("expected error for unknown layout")
	}
}
