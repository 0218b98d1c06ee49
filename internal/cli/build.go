package cli

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stackforge/internal/app"
	"stackforge/internal/types"
)

type buildOptions struct {
	Selection   selectionOptions
	OutputDir   string
	BuildDir    string
	SourcePath  string
	ArchiveDir  string
	MetricsFile string
	Policy      string
	Jobs        int
	Parallel    int
}

func newBuildCommand() *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "build [spec...]",
		Short: "Resolve the dependency closure and build it in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd, args, opts)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Directory for build.order and run-report.yaml")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "Directory for per-package build trees")
	cmd.Flags().StringVar(&opts.SourcePath, "source-path", "", "Source download cache (default <build-dir>/sources)")
	cmd.Flags().StringVar(&opts.ArchiveDir, "archive-dir", "", "Keep descriptions of successful builds here")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	cmd.Flags().StringVar(&opts.Policy, "policy", string(types.FailurePolicyFailFast), "Failure policy: fail-fast or skip-dependents")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 1, "Number of packages built concurrently")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", runtime.NumCPU(), "Build parallelism passed to each package build")

	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("build_dir", cmd.Flags().Lookup("build-dir"))
	_ = viper.BindPFlag("source_path", cmd.Flags().Lookup("source-path"))
	_ = viper.BindPFlag("archive_dir", cmd.Flags().Lookup("archive-dir"))
	_ = viper.BindPFlag("metrics_file", cmd.Flags().Lookup("metrics-file"))
	_ = viper.BindPFlag("policy", cmd.Flags().Lookup("policy"))
	_ = viper.BindPFlag("jobs", cmd.Flags().Lookup("jobs"))
	_ = viper.BindPFlag("parallel", cmd.Flags().Lookup("parallel"))

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, args []string, opts buildOptions) error {
	sel, err := resolveSelection(cmd, args, opts.Selection)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.Build(ctx, app.BuildRequest{
		Selection:   sel,
		OutputDir:   resolveString(cmd, opts.OutputDir, "output", "output"),
		BuildDir:    resolveString(cmd, opts.BuildDir, "build_dir", "build-dir"),
		SourcePath:  resolveString(cmd, opts.SourcePath, "source_path", "source-path"),
		ArchiveDir:  resolveString(cmd, opts.ArchiveDir, "archive_dir", "archive-dir"),
		MetricsFile: resolveString(cmd, opts.MetricsFile, "metrics_file", "metrics-file"),
		Policy:      resolveString(cmd, opts.Policy, "policy", "policy"),
		Jobs:        resolveInt(cmd, opts.Jobs, "jobs", "jobs"),
		Parallel:    resolveInt(cmd, opts.Parallel, "parallel", "parallel"),
	})
	printRunSummary(cmd, result)
	return err
}

func printRunSummary(cmd *cobra.Command, result app.BuildResult) {
	out := cmd.OutOrStdout()
	run := result.Result
	if len(run.Outcomes) == 0 {
		return
	}
	for _, outcome := range run.Outcomes {
		line := fmt.Sprintf("%s\t%s", outcome.Module, outcome.State)
		if outcome.Reason != "" {
			line += "\t" + firstLine(outcome.Reason)
		}
		fmt.Fprintln(out, line)
	}
	summary := run.Summary()
	fmt.Fprintf(out, "built: %d, failed: %d, skipped: %d, aborted: %d, skipped due to failure: %d\n",
		summary.Succeeded, summary.Failed, summary.Skipped, summary.Aborted, summary.SkippedDueToFailure)
	if result.OutputDir != "" {
		fmt.Fprintf(out, "run report: %s\n", result.OutputDir)
	}
}

func firstLine(value string) string {
	line, _, _ := strings.Cut(value, "\n")
	return line
}
