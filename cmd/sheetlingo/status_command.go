package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sheetlingo/internal/api"
	"sheetlingo/internal/config"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/store"
)

const statusTimeout = 3 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and job queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, reachable, err := fetchStatus(cmd, ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd.OutOrStdout(), status, reachable, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// fetchStatus asks the daemon first and falls back to reading job counts
// from the database when no daemon answers.
func fetchStatus(cmd *cobra.Command, ctx *commandContext) (api.DaemonStatus, bool, error) {
	if client, err := ctx.apiClient(); err == nil {
		reqCtx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		status, err := client.Status(reqCtx)
		cancel()
		if err == nil {
			return status, true, nil
		}
		if !api.IsUnavailable(err) && !errors.Is(err, context.DeadlineExceeded) {
			return api.DaemonStatus{}, false, err
		}
	}

	var status api.DaemonStatus
	err := ctx.withStore(func(cfg *config.Config, st *store.Store) error {
		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}
		status.DatabasePath = st.Path()
		status.LockFilePath = cfg.LockPath()
		status.Workflow.JobStats = make(map[string]int, len(pipeline.Statuses()))
		for _, s := range pipeline.Statuses() {
			status.Workflow.JobStats[string(s)] = stats[s]
		}
		status.Workflow.Health = []api.Health{}
		return nil
	})
	return status, false, err
}

func renderDaemonStatus(w io.Writer, status api.DaemonStatus, reachable bool, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	if reachable && status.Running {
		fmt.Fprintln(w, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(status.PID)+")", colorize))
		fmt.Fprintln(w, renderStatusLine("API", statusInfo, status.APIAddress, colorize))
	} else {
		fmt.Fprintln(w, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))

	wf := status.Workflow
	if reachable {
		active := "idle"
		if wf.ActiveJob != "" {
			active = "job " + shortID(wf.ActiveJob)
		}
		fmt.Fprintln(w, renderStatusLine("Worker", statusInfo, active, colorize))
		if wf.LastError != "" {
			fmt.Fprintln(w, renderStatusLine("Last error", statusError, wf.LastError, colorize))
		}
		for _, h := range wf.Health {
			kind, msg := statusOK, "ready"
			if !h.Ready {
				kind, msg = statusError, h.Detail
			}
			fmt.Fprintln(w, renderStatusLine(h.Name, kind, msg, colorize))
		}
	}

	fmt.Fprintln(w)
	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(w, line)
	}
	rows := jobStatRows(wf.JobStats)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No jobs recorded")
		return
	}
	fmt.Fprintln(w, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// jobStatRows lists non-zero counts in lifecycle order.
func jobStatRows(stats map[string]int) [][]string {
	order := make(map[string]int, len(pipeline.Statuses()))
	for i, s := range pipeline.Statuses() {
		order[string(s)] = i
	}
	var names []string
	for name, count := range stats {
		if count > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return order[names[i]] < order[names[j]] })
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(stats[name])})
	}
	return rows
}
