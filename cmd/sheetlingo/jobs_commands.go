package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sheetlingo/internal/api"
	"sheetlingo/internal/config"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage translation jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				jobs, err := st.ListJobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobListResponse{Jobs: api.FromJobs(jobs)})
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						job.SourceName,
						string(job.Status),
						strings.Join(job.TargetLanguages, ","),
						formatPercent(job.ProgressPercent),
						humanize.Comma(int64(job.TotalWordsEstimated)),
						strconv.Itoa(job.ErrorCount),
						formatAge(job.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Source", "Status", "Languages", "Progress", "Words", "Errors", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, processing, partial, completed, failed)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job with its errors and output files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				job, err := findJob(cmd, st, args[0])
				if err != nil {
					return err
				}
				jobErrors, err := st.JobErrors(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				artifacts, err := st.JobArtifacts(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, jobResponse(job, jobErrors, artifacts))
				}
				renderJobDetail(cmd.OutOrStdout(), job, jobErrors, artifacts, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Queue a failed or partial job again for the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				job, err := findJob(cmd, st, args[0])
				if err != nil {
					return err
				}
				reset, err := st.RetryJob(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if !reset {
					return fmt.Errorf("job %s is %s; only failed or partial jobs can be retried", shortID(job.ID), job.Status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued for retry\n", shortID(job.ID))
				return nil
			})
		},
	}
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Mark a pending job failed so the daemon skips it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				job, err := findJob(cmd, st, args[0])
				if err != nil {
					return err
				}
				if job.Status != pipeline.StatusPending {
					return fmt.Errorf("job %s is %s; only pending jobs can be canceled", shortID(job.ID), job.Status)
				}
				if err := st.FailJob(cmd.Context(), job.ID, "canceled by operator"); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s canceled\n", shortID(job.ID))
				return nil
			})
		},
	}
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a job and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				job, err := findJob(cmd, st, args[0])
				if err != nil {
					return err
				}
				if job.Status == pipeline.StatusProcessing {
					return fmt.Errorf("job %s is processing; wait for it to finish", shortID(job.ID))
				}
				if _, err := st.RemoveJob(cmd.Context(), job.ID); err != nil {
					return err
				}
				removeJobFiles(cfg, job)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s\n", shortID(job.ID))
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var completed, failed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete finished jobs and their files",
		Long: `Delete finished jobs. Without flags every completed, partial and
failed job is removed; pending and processing jobs are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []pipeline.Status
			if completed {
				statuses = append(statuses, pipeline.StatusCompleted)
			}
			if failed {
				statuses = append(statuses, pipeline.StatusFailed)
			}
			if len(statuses) == 0 {
				statuses = []pipeline.Status{pipeline.StatusCompleted, pipeline.StatusPartial, pipeline.StatusFailed}
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				jobs, err := st.ListJobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				removed, err := st.ClearJobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				for _, job := range jobs {
					removeJobFiles(cfg, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d job(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completed, "completed", false, "Only clear completed jobs")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only clear failed jobs")
	return cmd
}

func findJob(cmd *cobra.Command, st *store.Store, idOrPrefix string) (*store.Job, error) {
	job, err := st.FindJob(cmd.Context(), idOrPrefix)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", idOrPrefix)
	}
	return job, nil
}

// removeJobFiles deletes the upload and output directories of job. Paths
// outside the configured directories are left alone.
func removeJobFiles(cfg *config.Config, job *store.Job) {
	for _, root := range []string{cfg.Paths.UploadDir, cfg.Paths.OutputDir} {
		if root == "" || job.ID == "" {
			continue
		}
		_ = os.RemoveAll(filepath.Join(root, job.ID))
	}
}

func parseStatusFilters(values []string) ([]pipeline.Status, error) {
	var out []pipeline.Status
	for _, value := range values {
		status := pipeline.Status(strings.ToLower(strings.TrimSpace(value)))
		if status == "" {
			continue
		}
		known := false
		for _, candidate := range pipeline.Statuses() {
			if candidate == status {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		out = append(out, status)
	}
	return out, nil
}
