package app

import (
	"context"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/core"
	"stackforge/internal/policies"
	"stackforge/internal/ports"
	"stackforge/internal/shared"
	"stackforge/internal/types"
)

const defaultEasystackFile = "easystack.yaml"

// plan is a resolved and scheduled selection.
type plan struct {
	Roots     []types.PartialSpec
	Repo      Repository
	Installed ports.InstalledPort
	Graph     *core.DependencyGraph
	Order     core.BuildOrder
}

func (p plan) rootNames() []string {
	out := make([]string, 0, len(p.Roots))
	for _, root := range p.Roots {
		out = append(out, root.String())
	}
	return out
}

// prepareSelection merges the easystack into the selection and parses the
// root specs. Explicit flags win over easystack values.
func (s Service) prepareSelection(sel Selection) (Selection, []types.PartialSpec, error) {
	easystack := strings.TrimSpace(sel.Easystack)
	if easystack == "" && len(sel.Specs) == 0 {
		easystack = discoverEasystack()
	}
	specs := append([]string(nil), sel.Specs...)
	if easystack != "" {
		stack, err := s.Descriptions.LoadEasystack(easystack)
		if err != nil {
			return Selection{}, nil, err
		}
		emitHints(checkEasystackHints(sel, stack))
		sel = applyEasystackDefaults(sel, stack)
		specs = append(specs, stack.Easyconfigs...)
	}
	if len(specs) == 0 {
		return Selection{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one package spec or an easystack file is required")
	}
	if len(sel.RobotPaths) == 0 {
		return Selection{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one robot path is required")
	}

	roots, err := core.ParsePartialSpecs(specs)
	if err != nil {
		return Selection{}, nil, err
	}
	var toolchain *types.Toolchain
	if raw := strings.TrimSpace(sel.Toolchain); raw != "" {
		tc, err := core.ParseToolchain(raw)
		if err != nil {
			return Selection{}, nil, err
		}
		toolchain = &tc
	}
	return sel, core.ApplyDefaults(roots, toolchain, sel.Suffix), nil
}

// dependencyPolicy builds the filter and override policy of a selection.
func dependencyPolicy(sel Selection) (policies.DependencyPolicy, error) {
	overrides := make([]policies.Override, 0, len(sel.Overrides))
	for _, raw := range sel.Overrides {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		override, err := policies.ParseOverride(raw)
		if err != nil {
			return policies.DependencyPolicy{}, err
		}
		overrides = append(overrides, override)
	}
	return policies.NewDependencyPolicy(shared.UniqueSortedStrings(sel.FilterDeps), overrides)
}

// plan resolves the selection into a dependency graph and a build order.
// Nothing is built and nothing is written.
func (s Service) plan(ctx context.Context, sel Selection) (plan, error) {
	sel, roots, err := s.prepareSelection(sel)
	if err != nil {
		return plan{}, err
	}
	policy, err := dependencyPolicy(sel)
	if err != nil {
		return plan{}, err
	}

	repo := s.OpenRepository(sel.RobotPaths)
	var installed ports.InstalledPort
	if s.OpenInstalled != nil {
		installed = s.OpenInstalled(strings.TrimSpace(sel.InstallPrefix))
	}
	builder := core.NewGraphBuilder(repo, repo, installed, core.NewResolutionCache())
	if !policy.Empty() {
		builder.Policy = policy
	}
	if len(s.Easyblocks.Names()) > 0 {
		builder.Easyblocks = s.Easyblocks
	}
	builder.Options = core.BuildOptions{
		Force:         sel.Force,
		Rebuild:       sel.Rebuild,
		RetainAllDeps: sel.RetainAllDeps,
	}

	graph, err := builder.Build(ctx, roots)
	if err != nil {
		return plan{}, err
	}
	order, err := core.Schedule(ctx, graph)
	if err != nil {
		return plan{}, err
	}
	log.Ctx(ctx).Debug().
		Int("roots", len(roots)).
		Int("nodes", graph.Len()).
		Msg("build order computed")
	return plan{
		Roots:     roots,
		Repo:      repo,
		Installed: installed,
		Graph:     graph,
		Order:     order,
	}, nil
}

// applyEasystackDefaults fills selection fields the user left empty from
// the easystack file.
func applyEasystackDefaults(sel Selection, stack types.Easystack) Selection {
	if len(sel.RobotPaths) == 0 && len(stack.RobotPaths) > 0 {
		sel.RobotPaths = append([]string(nil), stack.RobotPaths...)
	}
	return sel
}

// discoverEasystack returns the easystack file in the working directory,
// or "" when there is none.
func discoverEasystack() string {
	info, err := os.Stat(defaultEasystackFile)
	if err != nil || info.IsDir() {
		return ""
	}
	return defaultEasystackFile
}
