package workflow

import (
	"log/slog"

	"sheetlingo/internal/cache"
	"sheetlingo/internal/config"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services/llm"
	"sheetlingo/internal/store"
)

// Cache backends accepted in cache.backend.
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendFile   = "file"
	CacheBackendMemory = "memory"
)

// CacheStore returns the translation cache selected by cfg. A disabled
// cache never hits.
func CacheStore(cfg *config.Config, st *store.Store, logger *slog.Logger) cache.Store {
	if !cfg.Cache.Enabled {
		return cache.Nop{}
	}
	switch cfg.Cache.Backend {
	case CacheBackendFile:
		return cache.NewFile(cfg.Cache.Path, logger)
	case CacheBackendMemory:
		return cache.NewMemory()
	default:
		return st.TranslationCache()
	}
}

// Ledger returns the store-backed credit ledger when credits are enabled,
// and an unlimited ledger otherwise.
func Ledger(cfg *config.Config, st *store.Store) pipeline.CreditLedger {
	if !cfg.Credits.Enabled {
		return pipeline.UnlimitedCredits{}
	}
	return st.Credits(cfg.Credits.InitialGrant)
}

// NewRunner builds a pipeline runner from cfg, backed by st for glossary
// terms, credits and (by default) cached translations. Extra options are
// applied last and override the configured ones.
func NewRunner(cfg *config.Config, st *store.Store, translator pipeline.Translator, logger *slog.Logger, extra ...pipeline.Option) *pipeline.Runner {
	opts := []pipeline.Option{
		pipeline.WithCache(CacheStore(cfg, st, logger)),
		pipeline.WithLedger(Ledger(cfg, st)),
		pipeline.WithGlossary(st.Glossary()),
		pipeline.WithConcurrency(cfg.Translation.Concurrency),
		pipeline.WithCallTimeout(cfg.CallTimeout()),
		pipeline.WithProgressEvery(cfg.Translation.ProgressEvery),
		pipeline.WithLogger(logger),
	}
	opts = append(opts, extra...)
	return pipeline.New(translator, opts...)
}

// NewTranslator returns the LLM translation client configured in cfg. It
// fails when no API key is available.
func NewTranslator(cfg *config.Config) (pipeline.Translator, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	c := cfg.GetLLM()
	return llm.NewClient(llm.Config{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Model:          c.Model,
		Referer:        c.Referer,
		Title:          c.Title,
		TimeoutSeconds: c.TimeoutSeconds,
	}), nil
}
