package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sheetlingo/internal/api"
	"sheetlingo/internal/config"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/store"
	"sheetlingo/internal/workflow"
)

// newTranslator builds the translation backend for translate and serve.
// Tests replace it with a scripted translator.
var newTranslator = workflow.NewTranslator

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withStore opens the job database for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

// logger writes warnings and errors to stderr and the log file; --verbose
// restores the configured level.
func (c *commandContext) logger(cfg *config.Config) *slog.Logger {
	local := *cfg
	if c.verbose == nil || !*c.verbose {
		local.Logging.Level = "warn"
	}
	logger, err := logging.NewFromConfig(&local)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// apiClient returns a client for the daemon API, or an error when the API
// is disabled.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return nil, fmt.Errorf("daemon api address: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("paths.api_bind is empty; the daemon API is disabled")
	}
	return client, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
