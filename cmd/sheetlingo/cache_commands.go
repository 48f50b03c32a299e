package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sheetlingo/internal/cache"
	"sheetlingo/internal/config"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/store"
	"sheetlingo/internal/workflow"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the translation cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

// withCacheMaintainer resolves the configured backend. The memory backend
// lives inside the daemon process and cannot be reached from the CLI.
func withCacheMaintainer(ctx *commandContext, fn func(*config.Config, *store.Store, cache.Maintainer) error) error {
	return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
		if !cfg.Cache.Enabled {
			return fmt.Errorf("translation cache is disabled (cache.enabled = false)")
		}
		backend := workflow.CacheStore(cfg, st, logging.NewNop())
		maintainer, ok := backend.(cache.Maintainer)
		if !ok || cfg.Cache.Backend == workflow.CacheBackendMemory {
			return fmt.Errorf("cache backend %q is held in daemon memory; restart the daemon to clear it", cfg.Cache.Backend)
		}
		return fn(cfg, st, maintainer)
	})
}

func cacheLocation(cfg *config.Config, st *store.Store) string {
	if cfg.Cache.Backend == workflow.CacheBackendFile {
		return cfg.Cache.Path
	}
	return st.Path()
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache backend and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCacheMaintainer(ctx, func(cfg *config.Config, st *store.Store, m cache.Maintainer) error {
				count, err := m.Count(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, cfg.Cache.Backend, colorize))
				fmt.Fprintln(out, renderStatusLine("Location", statusInfo, cacheLocation(cfg, st), colorize))
				fmt.Fprintln(out, renderStatusLine("Entries", statusOK, humanize.Comma(int64(count)), colorize))
				return nil
			})
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var target string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently cached translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCacheMaintainer(ctx, func(cfg *config.Config, st *store.Store, m cache.Maintainer) error {
				entries, err := listCacheEntries(cmd, st, m, strings.TrimSpace(target), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.source + "->" + e.target, truncate(e.text, 40), truncate(e.translation, 40), formatAge(e.at)})
				}
				fmt.Fprintln(out, renderTable([]string{"Pair", "Source", "Translation", "Cached"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&target, "lang", "", "Only show one target language")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCacheMaintainer(ctx, func(cfg *config.Config, st *store.Store, m cache.Maintainer) error {
				count, err := m.Count(cmd.Context())
				if err != nil {
					return err
				}
				if err := m.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cached translation(s)\n", humanize.Comma(int64(count)))
				return nil
			})
		},
	}
}

type cacheRow struct {
	text        string
	source      string
	target      string
	translation string
	at          time.Time
}

func listCacheEntries(cmd *cobra.Command, st *store.Store, m cache.Maintainer, target string, limit int) ([]cacheRow, error) {
	var rows []cacheRow
	if file, ok := m.(*cache.File); ok {
		for _, e := range file.List() {
			if target != "" && e.Target != target {
				continue
			}
			rows = append(rows, cacheRow{text: e.Text, source: e.Source, target: e.Target, translation: e.Translation, at: e.CachedAt})
			if limit > 0 && len(rows) >= limit {
				break
			}
		}
		return rows, nil
	}
	entries, err := st.TranslationCache().Entries(cmd.Context(), target, limit)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		rows = append(rows, cacheRow{text: e.SourceText, source: e.SourceLanguage, target: e.TargetLanguage, translation: e.Translation, at: e.UpdatedAt})
	}
	return rows, nil
}

func truncate(value string, limit int) string {
	runes := []rune(strings.ReplaceAll(value, "\n", " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
