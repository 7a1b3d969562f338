package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/clipdesk/clipdesk/internal/backend"
	"github.com/clipdesk/clipdesk/internal/clip"
	"github.com/clipdesk/clipdesk/internal/config"
	"github.com/clipdesk/clipdesk/internal/dataset"
	"github.com/clipdesk/clipdesk/internal/processor"
	"github.com/clipdesk/clipdesk/internal/store"
)

func newActionCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newPurgeCommand(ctx),
		newProcessCommand(ctx),
		newJSONExportCommand(ctx),
	}
}

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	var localRun bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored export",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !localRun {
				return triggerRemote(cmd.Context(), ctx, backend.ActionPurge, out)
			}

			l, err := ctx.openLocal(false)
			if err != nil {
				return err
			}
			defer l.Close()

			n, err := l.repo.PurgeExports(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge exports: %w", err)
			}
			fmt.Fprintf(out, "Purged %d export(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&localRun, "local", false, "Run against the local database instead of the backend")
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var localRun, dryRun bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Download source audio and cut the exported clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !localRun && !dryRun {
				return triggerRemote(cmd.Context(), ctx, backend.ActionProcess, out)
			}

			l, err := ctx.openLocal(dryRun)
			if err != nil {
				return err
			}
			defer l.Close()

			result, err := l.processor.Run(cmd.Context())
			if err != nil {
				if errors.Is(err, processor.ErrBusy) {
					return fmt.Errorf("another process run holds the lock in %s", ctx.config.DataDir())
				}
				return err
			}
			printProcessResult(out, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&localRun, "local", false, "Run against the local database instead of the backend")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Create empty placeholder files instead of running yt-dlp and ffmpeg (implies --local)")
	return cmd
}

func newJSONExportCommand(ctx *commandContext) *cobra.Command {
	var localRun bool
	var outDir string

	cmd := &cobra.Command{
		Use:   "jsonexport",
		Short: "Process pending clips and write training.json and eval.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !localRun && outDir == "" {
				return triggerRemote(cmd.Context(), ctx, backend.ActionJSONExport, out)
			}
			if outDir != "" {
				if err := dataset.ValidateOutputDir(outDir); err != nil {
					return err
				}
			}

			l, err := ctx.openLocal(false)
			if err != nil {
				return err
			}
			defer l.Close()

			result, err := l.processor.Run(cmd.Context())
			if err != nil {
				return err
			}
			printProcessResult(out, result)

			var summary dataset.Summary
			if outDir != "" {
				summary, err = l.dataset.BuildTo(cmd.Context(), outDir)
			} else {
				summary, err = l.dataset.Build(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("build dataset: %w", err)
			}
			printDatasetSummary(out, summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&localRun, "local", false, "Run against the local database instead of the backend")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write the manifests to this existing directory (implies --local)")
	return cmd
}

func newExportsCommand(ctx *commandContext) *cobra.Command {
	var localRun bool

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List stored exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			var exports []store.Export
			if localRun {
				l, err := ctx.openLocal(false)
				if err != nil {
					return err
				}
				defer l.Close()

				list, err := l.repo.ListExports(cmd.Context())
				if err != nil {
					return fmt.Errorf("list exports: %w", err)
				}
				for _, e := range list {
					exports = append(exports, *e)
				}
			} else {
				list, err := ctx.backendClient().Exports(cmd.Context())
				if err != nil {
					return err
				}
				exports = list
			}

			out := cmd.OutOrStdout()
			if len(exports) == 0 {
				fmt.Fprintln(out, "No exports")
				return nil
			}
			fmt.Fprintln(out, formatExportsTable(exports))
			return nil
		},
	}
	cmd.Flags().BoolVar(&localRun, "local", false, "Read the local database instead of the backend")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipdesk %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildTime)
		},
	}
}

func triggerRemote(ctx context.Context, cc *commandContext, action backend.Action, out io.Writer) error {
	client := cc.backendClient()
	if err := client.Trigger(ctx, action); err != nil {
		return fmt.Errorf("%s via %s: %w", action, client.BaseURL(), err)
	}
	fmt.Fprintf(out, "%s completed\n", action)
	return nil
}

func printProcessResult(out io.Writer, r processor.Result) {
	fmt.Fprintf(out, "Processed %d video(s): %d downloaded, %d cut, %d skipped, %d failed in %s\n",
		r.Videos, r.Downloaded, r.Cut, r.Skipped, r.Failed, r.Duration.Round(time.Millisecond))
}

func printDatasetSummary(out io.Writer, s dataset.Summary) {
	fmt.Fprintf(out, "Wrote %d training and %d eval entries to %s", s.Training, s.Eval, s.OutputDir)
	if s.MissingClips > 0 {
		fmt.Fprintf(out, " (%d export(s) without a clip skipped)", s.MissingClips)
	}
	fmt.Fprintln(out)
}

func formatExportsTable(exports []store.Export) string {
	rows := make([][]string, 0, len(exports))
	for _, e := range exports {
		created := ""
		if !e.CreatedAt.IsZero() {
			created = humanize.Time(e.CreatedAt)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.VideoID,
			clip.FormatTimecode(e.Start),
			clip.FormatTimecode(e.End),
			e.Labels(),
			created,
		})
	}
	return renderTable(
		[]string{"ID", "Video", "Start", "End", "Labels", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
