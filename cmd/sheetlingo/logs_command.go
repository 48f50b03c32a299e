package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sheetlingo/internal/config"
	"sheetlingo/internal/logs"
	"sheetlingo/internal/store"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if cfg.Paths.LogDir == "" {
				return fmt.Errorf("paths.log_dir is empty; the daemon is not writing a log file")
			}
			path := filepath.Join(cfg.Paths.LogDir, "sheetlingo.log")

			var filter func(string) bool
			if jobID != "" {
				err := ctx.withStore(func(_ *config.Config, st *store.Store) error {
					job, err := findJob(cmd, st, jobID)
					if err != nil {
						return err
					}
					filter = logs.JobFilter(job.ID)
					return nil
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			printed, err := logs.Stream(cmd.Context(), path, lines, follow, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
			if err != nil {
				return err
			}
			if !printed && !follow {
				fmt.Fprintf(out, "No log entries in %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines for this job (id or prefix)")
	return cmd
}
