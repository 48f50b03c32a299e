package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverlay lists the environment variables that fill values the TOML file
// left empty.
type envOverlay struct {
	LLMAPIKey        string `env:"SHEETLINGO_LLM_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	LLMModel         string `env:"SHEETLINGO_LLM_MODEL"`
	APIToken         string `env:"SHEETLINGO_API_TOKEN"`
	DataDir          string `env:"SHEETLINGO_DATA_DIR"`
	NtfyTopic        string `env:"SHEETLINGO_NTFY_TOPIC"`
	LogLevel         string `env:"SHEETLINGO_LOG_LEVEL"`
	LogFormat        string `env:"SHEETLINGO_LOG_FORMAT"`
}

func (c *Config) applyEnv() error {
	var overlay envOverlay
	if err := env.Parse(&overlay); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if strings.TrimSpace(c.LLM.APIKey) == "" {
		c.LLM.APIKey = firstNonEmpty(overlay.LLMAPIKey, overlay.OpenRouterAPIKey)
	}
	if value := strings.TrimSpace(overlay.LLMModel); value != "" {
		c.LLM.Model = value
	}
	if strings.TrimSpace(c.Paths.APIToken) == "" {
		c.Paths.APIToken = strings.TrimSpace(overlay.APIToken)
	}
	if value := strings.TrimSpace(overlay.DataDir); value != "" {
		c.Paths.DataDir = value
	}
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(overlay.NtfyTopic)
	}
	if value := strings.TrimSpace(overlay.LogLevel); value != "" {
		c.Logging.Level = value
	}
	if value := strings.TrimSpace(overlay.LogFormat); value != "" {
		c.Logging.Format = value
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
