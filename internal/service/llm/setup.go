package llm

import (
	"fmt"
	"log/slog"

	"appforge/internal/config"
	domainllm "appforge/internal/domain/services/llm"
	"appforge/internal/service/llm/providers/anthropic"
	"appforge/internal/service/llm/providers/lorem"
)

// SetupProvider selects the generation backend from configuration.
// Production requires a real API key; dev and test fall back to the lorem
// mock provider so the full pipeline runs without credentials.
func SetupProvider(cfg *config.Config, logger *slog.Logger) (domainllm.Provider, error) {
	if cfg.AnthropicAPIKey != "" {
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("setup anthropic provider: %w", err)
		}
		logger.Info("generation backend configured", "provider", provider.Name())
		return provider, nil
	}

	if cfg.Environment == "prod" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required in prod")
	}

	logger.Warn("no API key configured, using lorem mock provider")
	return lorem.NewProvider(), nil
}
