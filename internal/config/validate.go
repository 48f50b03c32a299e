package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateCredits(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireLLM reports whether translation calls can be made. Commands that
// only read the store do not need an API key, so Validate leaves it out.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set SHEETLINGO_LLM_API_KEY or OPENROUTER_API_KEY, or edit %s (create with 'sheetlingo config init')", defaultPath)
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.Concurrency > maxConcurrency {
		return fmt.Errorf("translation.concurrency must be at most %d", maxConcurrency)
	}
	if strings.ContainsAny(c.Translation.SourceLanguage, " ,") {
		return errors.New("translation.source_language must be a single language tag")
	}
	return nil
}

func (c *Config) validateCredits() error {
	if c.Credits.InitialGrant < 0 {
		return errors.New("credits.initial_grant must be non-negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "sqlite", "file", "memory":
		return nil
	default:
		return fmt.Errorf("cache.backend must be sqlite, file or memory, got %q", c.Cache.Backend)
	}
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}
