package config

const (
	defaultConfigPath         = "~/.config/sheetlingo/config.toml"
	defaultDataDir            = "~/.local/share/sheetlingo"
	defaultUploadDir          = "~/.local/share/sheetlingo/uploads"
	defaultOutputDir          = "~/.local/share/sheetlingo/output"
	defaultLogDir             = "~/.local/share/sheetlingo/logs"
	defaultAPIBind            = "127.0.0.1:7491"
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/sheetlingo/sheetlingo"
	defaultLLMTitle           = "sheetlingo"
	defaultLLMTimeoutSeconds  = 60
	defaultSourceLanguage     = "en"
	defaultTone               = "neutral"
	defaultConcurrency        = 8
	defaultCallTimeoutSeconds = 60
	defaultProgressEvery      = 25
	defaultInitialGrant       = 10000
	defaultCacheBackend       = "sqlite"
	defaultFileCachePath      = "~/.cache/sheetlingo/translations.json"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	maxConcurrency = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Translation: Translation{
			SourceLanguage:     defaultSourceLanguage,
			DefaultTone:        defaultTone,
			Concurrency:        defaultConcurrency,
			CallTimeoutSeconds: defaultCallTimeoutSeconds,
			ProgressEvery:      defaultProgressEvery,
		},
		Credits: Credits{
			Enabled:      false,
			InitialGrant: defaultInitialGrant,
		},
		Cache: Cache{
			Enabled: true,
			Backend: defaultCacheBackend,
			Path:    defaultFileCachePath,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			NotifyPartial:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
