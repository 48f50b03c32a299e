package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sheetlingo/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHEETLINGO_LLM_API_KEY",
		"OPENROUTER_API_KEY",
		"SHEETLINGO_LLM_MODEL",
		"SHEETLINGO_API_TOKEN",
		"SHEETLINGO_DATA_DIR",
		"SHEETLINGO_NTFY_TOPIC",
		"SHEETLINGO_LOG_LEVEL",
		"SHEETLINGO_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sheetlingo")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "sheetlingo.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7491" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Translation.SourceLanguage != "en" {
		t.Fatalf("unexpected source language: %q", cfg.Translation.SourceLanguage)
	}
	if cfg.Translation.DefaultTone != "neutral" {
		t.Fatalf("unexpected default tone: %q", cfg.Translation.DefaultTone)
	}
	if cfg.CallTimeout() != 60*time.Second {
		t.Fatalf("unexpected call timeout: %s", cfg.CallTimeout())
	}
	if cfg.Credits.Enabled {
		t.Fatal("expected credits disabled by default")
	}
	if cfg.Cache.Backend != "sqlite" || !cfg.Cache.Enabled {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if err := cfg.RequireLLM(); err == nil {
		t.Fatal("expected RequireLLM to fail without an API key")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.UploadDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sheetlingo.toml")

	type payload struct {
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		Translation struct {
			Concurrency int    `toml:"concurrency"`
			DefaultTone string `toml:"default_tone"`
		} `toml:"translation"`
		Cache struct {
			Backend string `toml:"backend"`
		} `toml:"cache"`
	}
	custom := payload{}
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "vendor/model"
	custom.Translation.Concurrency = 3
	custom.Translation.DefaultTone = "Marketing"
	custom.Cache.Backend = "FILE"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected LLM key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "vendor/model" {
		t.Fatalf("expected model override, got %q", cfg.LLM.Model)
	}
	if cfg.Translation.Concurrency != 3 {
		t.Fatalf("expected concurrency 3, got %d", cfg.Translation.Concurrency)
	}
	if cfg.Translation.DefaultTone != "Marketing" {
		t.Fatalf("tone should be kept verbatim, got %q", cfg.Translation.DefaultTone)
	}
	if cfg.Cache.Backend != "file" {
		t.Fatalf("expected lowercased backend, got %q", cfg.Cache.Backend)
	}
	if err := cfg.RequireLLM(); err != nil {
		t.Fatalf("RequireLLM: %v", err)
	}
}

func TestEnvFillsEmptySecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "env-openrouter")
	t.Setenv("SHEETLINGO_API_TOKEN", "env-token")
	t.Setenv("SHEETLINGO_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-openrouter" {
		t.Errorf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level from env, got %q", cfg.Logging.Level)
	}
}

func TestEnvDoesNotReplaceFileSecrets(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "sheetlingo.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHEETLINGO_LLM_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("expected file key to win, got %q", cfg.LLM.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "sheetlingo") {
		t.Fatalf("expected data dir to contain sheetlingo, got %q", cfg.Paths.DataDir)
	}
	defaults := config.Default()
	if cfg.Translation != defaults.Translation {
		t.Fatalf("sample translation section drifted from defaults: %+v vs %+v", cfg.Translation, defaults.Translation)
	}
	if cfg.Workflow != defaults.Workflow {
		t.Fatalf("sample workflow section drifted from defaults: %+v vs %+v", cfg.Workflow, defaults.Workflow)
	}
	if cfg.Notifications != defaults.Notifications {
		t.Fatalf("sample notifications section drifted from defaults: %+v vs %+v", cfg.Notifications, defaults.Notifications)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown cache backend", func(c *config.Config) { c.Cache.Backend = "redis" }},
		{"negative grant", func(c *config.Config) { c.Credits.InitialGrant = -1 }},
		{"too much concurrency", func(c *config.Config) { c.Translation.Concurrency = 1000 }},
		{"multiple source languages", func(c *config.Config) { c.Translation.SourceLanguage = "en,fr" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRequireLLMRejectsNonHTTPBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	cfg.LLM.BaseURL = "ftp://example.com"
	if err := cfg.RequireLLM(); err == nil {
		t.Fatal("expected error for non-http base url")
	}
}

func TestEnvFillsNtfyTopic(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHEETLINGO_NTFY_TOPIC", "https://ntfy.example/catalogs")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/catalogs" {
		t.Fatalf("ntfy topic = %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.NotificationTimeout() != 10*time.Second {
		t.Fatalf("notification timeout = %s", cfg.NotificationTimeout())
	}
}
