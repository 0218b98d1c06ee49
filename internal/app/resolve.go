package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/adapters"
	"stackforge/internal/core"
)

func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	p, err := s.plan(ctx, req.Selection)
	if err != nil {
		return ResolveResult{}, err
	}
	entries := p.Order.Entries()
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir != "" {
		output := adapters.NewOutputFileAdapter(outputDir)
		if err := output.WriteBuildOrder(entries); err != nil {
			return ResolveResult{}, err
		}
		if req.WriteDOT {
			if err := output.WriteGraphDOT(p.Graph.View()); err != nil {
				return ResolveResult{}, err
			}
		}
	}
	return ResolveResult{
		Roots:     p.rootNames(),
		Order:     entries,
		OutputDir: outputDir,
	}, nil
}

// DryRun lists every node of the full closure with its install status.
func (s Service) DryRun(ctx context.Context, req DryRunRequest) (DryRunResult, error) {
	sel := req.Selection
	sel.RetainAllDeps = true
	p, err := s.plan(ctx, sel)
	if err != nil {
		return DryRunResult{}, err
	}
	// Installed status is judged against the real predicate, not the
	// retained closure.
	lines, err := core.DryRun(ctx, p.Order, p.Installed, core.DryRunOptions{
		Force:   req.Force,
		Rebuild: req.Rebuild,
		Short:   req.Short,
	})
	if err != nil {
		return DryRunResult{}, err
	}
	return DryRunResult{Lines: lines}, nil
}

func (s Service) Graph(ctx context.Context, req GraphRequest) (GraphResult, error) {
	p, err := s.plan(ctx, req.Selection)
	if err != nil {
		return GraphResult{}, err
	}
	view := p.Graph.View()
	return GraphResult{
		DOT:   adapters.RenderDOT(view),
		Nodes: len(view.Nodes),
		Edges: len(view.Edges),
	}, nil
}

func (s Service) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return SearchResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("search query is required")
	}
	if len(req.RobotPaths) == 0 {
		return SearchResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one robot path is required")
	}
	paths, err := s.OpenRepository(req.RobotPaths).Search(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Paths: paths}, nil
}
