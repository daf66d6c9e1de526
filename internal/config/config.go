package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string
	// LLM Configuration
	AnthropicAPIKey string
	DefaultModel    string
	RoutingModel    string
	// Code generation output
	OutputRoot string
	DeployRoot string
	DeployHost string
	// Project build
	BuildCommand string
	BuildTimeout time.Duration
	// Generation sessions
	SessionCapacity  int
	SessionTTL       time.Duration
	SessionSerialize bool
	// Screenshot capture after deploy (empty command disables capture)
	ScreenshotCommand string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: tablePrefix,
		// LLM Configuration
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", "claude-haiku-4-5-20251001"),
		RoutingModel:    getEnv("ROUTING_MODEL", "claude-haiku-4-5-20251001"),
		// Code generation output
		OutputRoot: getEnv("CODE_OUTPUT_ROOT", "tmp/code_output"),
		DeployRoot: getEnv("CODE_DEPLOY_ROOT", "tmp/code_deploy"),
		DeployHost: getEnv("CODE_DEPLOY_HOST", "http://localhost:8081"),
		// Project build
		BuildCommand: getEnv("BUILD_COMMAND", "npm run build"),
		BuildTimeout: getDuration("BUILD_TIMEOUT", 3*time.Minute),
		// Generation sessions
		SessionCapacity:  getInt("SESSION_CAPACITY", 1000),
		SessionTTL:       getDuration("SESSION_TTL", 30*time.Minute),
		SessionSerialize: getEnv("SESSION_SERIALIZE", "true") == "true",
		// Screenshot capture
		ScreenshotCommand: getEnv("SCREENSHOT_COMMAND", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
