package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sheetlingo/internal/api"
	"sheetlingo/internal/config"
	"sheetlingo/internal/fileutil"
	"sheetlingo/internal/pipeline"
)

type submitOptions struct {
	to     []string
	from   string
	tone   string
	user   string
	terms  []string
	wait   bool
	poll   time.Duration
	output string
	json   bool
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Queue a catalog on the running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			resp, err := client.Submit(cmd.Context(), api.Submission{
				FileName: filepath.Base(args[0]),
				Data:     data,
				To:       opts.to,
				From:     opts.from,
				Tone:     opts.tone,
				User:     opts.user,
				Terms:    opts.terms,
			})
			if err != nil {
				if api.IsUnavailable(err) {
					return fmt.Errorf("daemon is not reachable at %s; start it with `sheetlingo serve`: %w", ctx.configValue().Paths.APIBind, err)
				}
				return err
			}

			if opts.wait {
				if resp, err = waitForJob(cmd.Context(), client, resp.Job.ID, opts.poll); err != nil {
					return err
				}
				if opts.output != "" {
					if err := downloadArtifacts(cmd.Context(), client, resp, opts.output); err != nil {
						return err
					}
				}
			}

			if opts.json {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			job := resp.Job
			fmt.Fprintln(out, renderStatusLine("Job", statusInfo, job.ID, colorize))
			msg := job.Status
			if job.ErrorMessage != "" {
				msg += ": " + job.ErrorMessage
			}
			fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(pipeline.Status(job.Status)), msg, colorize))
			for _, a := range resp.Artifacts {
				fmt.Fprintln(out, renderStatusLine("Artifact", statusInfo, a.Name, colorize))
			}
			if job.Status == string(pipeline.StatusFailed) {
				return fmt.Errorf("job %s failed: %s", shortID(job.ID), job.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.to, "to", "t", nil, "Target languages, comma separated (required)")
	cmd.Flags().StringVarP(&opts.from, "from", "f", "", "Source language (default from daemon config)")
	cmd.Flags().StringVar(&opts.tone, "tone", "", "Tone preset or free-text style instruction")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "User whose glossary and credits apply")
	cmd.Flags().StringArrayVar(&opts.terms, "term", nil, "Brand term to keep untranslated (repeatable)")
	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for the job to finish")
	cmd.Flags().DurationVar(&opts.poll, "poll", time.Second, "Polling interval while waiting")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Download the translated files here (requires --wait)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func waitForJob(ctx context.Context, client *api.Client, id string, poll time.Duration) (api.JobResponse, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		resp, err := client.GetJob(ctx, id)
		if err != nil {
			return api.JobResponse{}, err
		}
		if pipeline.Status(resp.Job.Status).Terminal() {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return api.JobResponse{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func downloadArtifacts(ctx context.Context, client *api.Client, resp api.JobResponse, dir string) error {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	for _, a := range resp.Artifacts {
		dst := filepath.Join(expanded, filepath.Base(a.Name))
		err := fileutil.WriteFileAtomic(dst, 0o644, func(w io.Writer) error {
			return client.DownloadArtifact(ctx, resp.Job.ID, a.Name, w)
		})
		if err != nil {
			return fmt.Errorf("download %s: %w", a.Name, err)
		}
	}
	return nil
}
