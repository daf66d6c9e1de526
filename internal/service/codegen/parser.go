package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
)

// Fence patterns for the language-tagged code regions produced by the
// generation backend. (?s) lets the body span newlines.
var (
	htmlFencePattern = regexp.MustCompile("(?s)```html\\s*(.*?)```")
	cssFencePattern  = regexp.MustCompile("(?s)```css\\s*(.*?)```")
	jsFencePattern   = regexp.MustCompile("(?s)```(?:js|javascript)\\s*(.*?)```")
)

// ParseArtifact converts raw accumulated generation text into a structured
// artifact for the given layout. Parsing is a pure function over text: it
// never touches the filesystem and produces no side effects. Missing
// regions yield empty fields here and are rejected at save time, where the
// error can name the missing field.
//
// The tool-driven project layout bypasses textual parsing entirely; asking
// for it here is a programming error surfaced as a validation failure.
func ParseArtifact(rawText string, layout models.CodeGenType) (models.CodeArtifact, error) {
	switch layout {
	case models.CodeGenHTML:
		return parseHTML(rawText), nil
	case models.CodeGenMultiFile:
		return parseMultiFile(rawText), nil
	default:
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("layout %q has no textual parser", layout),
		}
	}
}

// parseHTML extracts the single fenced html region, or falls back to the
// entire text when no fence is present (models sometimes answer with bare
// markup).
func parseHTML(rawText string) *models.HTMLArtifact {
	if match := htmlFencePattern.FindStringSubmatch(rawText); match != nil {
		return &models.HTMLArtifact{HTML: strings.TrimSpace(match[1])}
	}
	return &models.HTMLArtifact{HTML: strings.TrimSpace(rawText)}
}

// parseMultiFile extracts the three independently delimited regions. A
// missing region yields an empty string for that field.
func parseMultiFile(rawText string) *models.MultiFileArtifact {
	artifact := &models.MultiFileArtifact{}

	if match := htmlFencePattern.FindStringSubmatch(rawText); match != nil {
		artifact.HTML = strings.TrimSpace(match[1])
	}
	if match := cssFencePattern.FindStringSubmatch(rawText); match != nil {
		artifact.CSS = strings.TrimSpace(match[1])
	}
	if match := jsFencePattern.FindStringSubmatch(rawText); match != nil {
		artifact.JS = strings.TrimSpace(match[1])
	}

	return artifact
}
