package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"sheetlingo/internal/config"
	"sheetlingo/internal/daemon"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/notifications"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/preflight"
	"sheetlingo/internal/store"
	"sheetlingo/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Translator replaces the configured LLM client when set.
	Translator pipeline.Translator
	// Ready is called with the daemon once it is serving.
	Ready func(*daemon.Daemon)
}

// Run starts the sheetlingo daemon and blocks until ctx is canceled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "sheetlingo.log")
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	translator := opts.Translator
	if translator == nil {
		translator, err = workflow.NewTranslator(cfg)
		if err != nil {
			return err
		}
	}
	logConfigSnapshot(logger, cfg)
	logPreflight(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "sheetlingo.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	mgr := workflow.NewManager(cfg, st, translator, logger,
		workflow.WithNotifier(notifications.NewService(cfg)),
	)
	d, err := daemon.New(cfg, st, logger, mgr)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, api_bind and database access"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d)
	}

	<-signalCtx.Done()
	logger.Info("sheetlingo daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logPreflight reports unusable directories. The LLM probe is left to
// `sheetlingo config validate --check` so startup never spends credits.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg, preflight.Options{SkipLLM: true})) {
		logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("llm_key_present", cfg.GetLLM().APIKey != ""),
		logging.String("llm_model", cfg.GetLLM().Model),
		logging.String("source_language", cfg.Translation.SourceLanguage),
		logging.Int("concurrency", cfg.Translation.Concurrency),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
		logging.String("cache_backend", cfg.Cache.Backend),
		logging.Bool("credits_enabled", cfg.Credits.Enabled),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
	)
}
