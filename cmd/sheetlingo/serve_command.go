package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sheetlingo/internal/daemon"
	"sheetlingo/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var diagnostic bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: HTTP API plus the job queue worker",
		Long: `Run the sheetlingo daemon in the foreground.

The daemon accepts uploads on the HTTP API (paths.api_bind), processes
queued jobs one at a time and keeps their files in paths.output_dir. It
stops on SIGINT or SIGTERM; a job interrupted mid-run is saved as partial.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			translator, err := newTranslator(cfg)
			if err != nil {
				return err
			}
			stderr := cmd.ErrOrStderr()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: diagnostic,
				Translator:  translator,
				Ready: func(d *daemon.Daemon) {
					if addr := d.APIAddress(); addr != "" {
						fmt.Fprintf(stderr, "sheetlingo daemon listening on http://%s\n", addr)
					} else {
						fmt.Fprintln(stderr, "sheetlingo daemon running with the HTTP API disabled")
					}
				},
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Include source locations in log lines")
	return cmd
}
