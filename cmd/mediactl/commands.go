package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/almensu/yanghooAI/internal/api/dto"
	"github.com/almensu/yanghooAI/internal/bootstrap"
	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/processor"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <url> [url...]",
		Short: "Download and process one or more URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				results := app.Processor.SubmitBatch(cmd.Context(), args)
				if jsonOutput {
					return writeJSON(cmd, batchView(results))
				}

				out := cmd.OutOrStdout()
				failed := 0
				for _, r := range results {
					if r.Err != nil {
						failed++
						fmt.Fprintf(out, "FAIL %s: %v\n", r.URL, r.Err)
						continue
					}
					fmt.Fprintf(out, "OK   %s -> %s (%s)\n", r.URL, r.Job.HashName, stageLabel(processor.DeriveStatus(r.Job).String()))
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d submissions failed", failed, len(results))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Process a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			f, err := os.Open(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			if strings.TrimSpace(title) == "" {
				title = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
			}

			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				job, err := app.Processor.SubmitUpload(cmd.Context(), processor.UploadRequest{
					Filename: filepath.Base(absPath),
					Title:    title,
					Content:  f,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored upload as %s\n", job.HashName)
				return advance(cmd, app, job.HashName)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title (defaults to the file name)")
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <hash>",
		Short: "Continue processing a job from its first missing artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				if _, err := app.Processor.GetByHash(cmd.Context(), args[0]); err != nil {
					return err
				}
				return advance(cmd, app, args[0])
			})
		},
	}
}

// advance hands the job to the worker service when a broker is configured and runs it in
// the foreground otherwise.
func advance(cmd *cobra.Command, app *bootstrap.App, hashName string) error {
	out := cmd.OutOrStdout()
	if app.Rabbit != nil {
		if err := app.Processor.Resume(cmd.Context(), hashName); err != nil {
			return err
		}
		fmt.Fprintf(out, "Queued %s for the worker service\n", hashName)
		return nil
	}

	if err := app.Processor.Advance(cmd.Context(), hashName); err != nil {
		return err
	}
	fmt.Fprintf(out, "Completed %s\n", hashName)
	return nil
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <hash>",
		Short: "Show a job and which artifacts exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				job, err := app.Processor.GetByHash(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, dto.NewVideoDTO(job))
				}

				out := cmd.OutOrStdout()
				for _, line := range renderJobStatus(job, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		offset     int
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				jobs, err := app.Processor.List(cmd.Context(), offset, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobViews(jobs))
				}

				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No videos")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Hash", "Title", "Status", "Created"},
					jobRows(jobs),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of jobs to skip")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of jobs (up to 100)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <hash>",
		Short: "Delete a job and every file it produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				deleted, err := app.Processor.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("%s: %w", args[0], domain.ErrJobNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <hash>",
		Short: "Burn the subtitle track into a copy of the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				output, err := app.Processor.RenderHardSubtitles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			})
		},
	}
}
