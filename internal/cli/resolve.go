package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stackforge/internal/app"
)

type resolveOptions struct {
	Selection selectionOptions
	OutputDir string
	DOT       bool
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve [spec...]",
		Short: "Resolve the dependency closure and print the build order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd, args, opts)
		},
	}
	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Directory for build.order (not written when empty)")
	cmd.Flags().BoolVar(&opts.DOT, "dot", false, "Also write dependencies.dot to the output directory")
	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, args []string, opts resolveOptions) error {
	sel, err := resolveSelection(cmd, args, opts.Selection)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.Resolve(ctx, app.ResolveRequest{
		Selection: sel,
		OutputDir: opts.OutputDir,
		WriteDOT:  opts.DOT,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, entry := range result.Order {
		fmt.Fprintf(out, "%s\t%s\n", entry.Module, entry.State)
	}
	if result.OutputDir != "" {
		fmt.Fprintf(out, "wrote build order to %s\n", result.OutputDir)
	}
	return nil
}

type dryRunOptions struct {
	Selection selectionOptions
	Short     bool
}

func newDryRunCommand() *cobra.Command {
	opts := dryRunOptions{}
	cmd := &cobra.Command{
		Use:   "dry-run [spec...]",
		Short: "Print the build status of every package in the closure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDryRun(cmd.Context(), cmd, args, opts)
		},
	}
	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().BoolVar(&opts.Short, "short", false, "Abbreviate the common description directory as $CFGS")
	return cmd
}

func runDryRun(ctx context.Context, cmd *cobra.Command, args []string, opts dryRunOptions) error {
	sel, err := resolveSelection(cmd, args, opts.Selection)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.DryRun(ctx, app.DryRunRequest{Selection: sel, Short: opts.Short})
	if err != nil {
		return err
	}
	for _, line := range result.Lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

type graphOptions struct {
	Selection selectionOptions
}

func newGraphCommand() *cobra.Command {
	opts := graphOptions{}
	cmd := &cobra.Command{
		Use:   "graph [spec...]",
		Short: "Print the dependency graph in Graphviz DOT format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), cmd, args, opts)
		},
	}
	addSelectionFlags(cmd, &opts.Selection)
	return cmd
}

func runGraph(ctx context.Context, cmd *cobra.Command, args []string, opts graphOptions) error {
	sel, err := resolveSelection(cmd, args, opts.Selection)
	if err != nil {
		return err
	}
	service := newAppService()
	result, err := service.Graph(ctx, app.GraphRequest{Selection: sel})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), result.DOT)
	return nil
}
