package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stackforge/internal/app"
)

type inspectOptions struct {
	OutputDir string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the build order and run report of an output directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory")
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	service := newAppService()
	result, err := service.Inspect(app.InspectRequest{
		OutputDir: resolveString(cmd, opts.OutputDir, "output", "output"),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "build.order entries: %d\n", len(result.Order))
	for _, entry := range result.Order {
		role := ""
		if entry.Root {
			role = " (root)"
		}
		fmt.Fprintf(out, "- %s%s\n", entry.Module, role)
	}
	if result.HasReport {
		fmt.Fprintf(out, "run: %s policy=%s jobs=%d elapsed=%s\n",
			result.Report.StartedAt, result.Report.Policy, result.Report.Jobs, result.Elapsed)
		for _, outcome := range result.Report.Outcomes {
			if outcome.Reason == "" {
				continue
			}
			fmt.Fprintf(out, "- %s %s: %s\n", outcome.Module, outcome.State, firstLine(outcome.Reason))
		}
	}
	fmt.Fprintf(out, "states: %s\n", strings.Join(result.StateCounts(), " "))
	return nil
}

type historyOptions struct {
	ArchiveDir string
}

func newHistoryCommand() *cobra.Command {
	opts := historyOptions{}
	cmd := &cobra.Command{
		Use:   "history [name]",
		Short: "List archived descriptions of successful builds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runHistory(cmd.Context(), cmd, name, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ArchiveDir, "archive-dir", "", "Archive directory")
	_ = viper.BindPFlag("archive_dir", cmd.Flags().Lookup("archive-dir"))
	return cmd
}

func runHistory(ctx context.Context, cmd *cobra.Command, name string, opts historyOptions) error {
	service := newAppService()
	result, err := service.History(ctx, app.HistoryRequest{
		ArchiveDir: resolveString(cmd, opts.ArchiveDir, "archive_dir", "archive-dir"),
		Name:       name,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, archived := range result.Builds {
		fmt.Fprintf(out, "%s\t%s\n", archived.Name, archived.Path)
		for _, stats := range archived.Builds {
			fmt.Fprintf(out, "  %s built %s in %s\n", stats.Module, stats.BuiltAt, stats.Duration)
		}
	}
	return nil
}
