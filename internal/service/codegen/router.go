package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
	domainllm "appforge/internal/domain/services/llm"
	"appforge/internal/prompts"
)

// TypeRouter performs one-shot classification of an initial prompt into a
// code generation layout. It is consulted only at app creation time; the
// result is persisted as the app's immutable layout selector.
type TypeRouter struct {
	provider domainllm.Provider
	prompts  *prompts.Registry
	model    string
	logger   *slog.Logger
}

// NewTypeRouter creates a router backed by the generation provider.
func NewTypeRouter(provider domainllm.Provider, registry *prompts.Registry, model string, logger *slog.Logger) *TypeRouter {
	return &TypeRouter{
		provider: provider,
		prompts:  registry,
		model:    model,
		logger:   logger,
	}
}

// Classify routes the initial prompt to a layout. Backend failure fails
// the whole creation operation; there is no silent default layout.
func (r *TypeRouter) Classify(ctx context.Context, initPrompt string) (models.CodeGenType, error) {
	system, err := r.prompts.RoutingPrompt()
	if err != nil {
		return "", fmt.Errorf("routing prompt: %w", err)
	}

	resp, err := r.provider.Generate(ctx, &domainllm.GenerateRequest{
		Model:     r.model,
		System:    system,
		Messages:  []domainllm.Message{domainllm.TextMessage(domainllm.RoleUser, initPrompt)},
		MaxTokens: 16,
	})
	if err != nil {
		return "", &domain.BackendError{Message: fmt.Sprintf("layout classification failed: %v", err)}
	}

	layout, err := parseClassification(resp.Text)
	if err != nil {
		return "", &domain.BackendError{Message: err.Error()}
	}

	r.logger.Info("prompt classified",
		"layout", layout,
		"model", resp.Model,
	)

	return layout, nil
}

// parseClassification extracts the layout from the model's answer. Exact
// match is preferred; substring matching tolerates chatty answers, checked
// most-specific first.
func parseClassification(answer string) (models.CodeGenType, error) {
	normalized := strings.ToLower(strings.TrimSpace(answer))

	if layout, err := models.ParseCodeGenType(normalized); err == nil {
		return layout, nil
	}

	for _, layout := range []models.CodeGenType{
		models.CodeGenVueProject,
		models.CodeGenMultiFile,
		models.CodeGenHTML,
	} {
		if strings.Contains(normalized, string(layout)) {
			return layout, nil
		}
	}

	return "", fmt.Errorf("unrecognized layout classification %q", answer)
}
