package core

import (
	"context"
	"errors"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

// BuildOptions control which installed packages are rebuilt.
type BuildOptions struct {
	// Force builds the roots even when they are installed.
	Force bool

	// Rebuild is Force with rebuild reporting.
	Rebuild bool

	// RetainAllDeps ignores the installed predicate for every node.
	RetainAllDeps bool
}

// GraphBuilder discovers the dependency closure of a set of roots.
type GraphBuilder struct {
	Resolver   SpecResolver
	Repository ports.RepositoryPort
	Toolchains ports.ToolchainPort
	Installed  ports.InstalledPort
	Policy     ports.DependencyPolicyPort
	Easyblocks EasyblockRegistry
	Options    BuildOptions
}

type buildFrame struct {
	node *PackageNode
	deps []types.DependencyDecl
	next int
}

func NewGraphBuilder(repo ports.RepositoryPort, toolchains ports.ToolchainPort, installed ports.InstalledPort, cache *ResolutionCache) GraphBuilder {
	return GraphBuilder{
		Resolver:   NewSpecResolver(repo, toolchains, cache),
		Repository: repo,
		Toolchains: toolchains,
		Installed:  installed,
		Easyblocks: DefaultEasyblocks(),
	}
}

// Build resolves roots and walks their dependencies depth first with an
// explicit work stack. Installed nodes become SKIPPED closure leaves and
// their dependencies are not expanded. The graph is only returned when the
// whole closure resolved without cycles.
func (b GraphBuilder) Build(ctx context.Context, roots []types.PartialSpec) (*DependencyGraph, error) {
	if b.Repository == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("graph builder requires a repository port")
	}
	if len(roots) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one package spec is required")
	}
	if b.Resolver.Repository == nil || b.Resolver.Cache == nil {
		b.Resolver = NewSpecResolver(b.Repository, b.Toolchains, b.Resolver.Cache)
	}
	if b.Easyblocks.procedures == nil {
		b.Easyblocks = DefaultEasyblocks()
	}

	resolvedRoots := make([]types.Candidate, 0, len(roots))
	rootKeys := map[types.SpecKey]bool{}
	for _, root := range roots {
		candidate, err := b.Resolver.Resolve(ctx, root)
		if err != nil {
			return nil, err
		}
		resolvedRoots = append(resolvedRoots, candidate)
		rootKeys[candidate.Spec.Key()] = true
	}

	graph := newDependencyGraph()
	active := map[types.SpecKey]bool{}
	var stack []*buildFrame

	push := func(node *PackageNode) error {
		frame, err := b.expand(ctx, node, rootKeys[node.Spec.Key()])
		if err != nil {
			return err
		}
		if frame == nil {
			return nil
		}
		active[node.Spec.Key()] = true
		stack = append(stack, frame)
		return nil
	}

	for _, candidate := range resolvedRoots {
		node, created, err := b.intern(graph, candidate)
		if err != nil {
			return nil, err
		}
		node.Root = true
		if !created {
			continue
		}
		if err := push(node); err != nil {
			return nil, err
		}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.deps) {
				stack = stack[:len(stack)-1]
				delete(active, top.node.Spec.Key())
				top.node.state = types.NodeStateResolved
				continue
			}
			decl := top.deps[top.next]
			top.next++

			child, created, err := b.resolveDependency(ctx, graph, stack, decl)
			if err != nil {
				return nil, err
			}
			graph.addEdge(top.node, child, decl.Kind)
			if active[child.Spec.Key()] {
				return nil, cycleError(stack, child)
			}
			if created {
				if err := push(child); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, node := range graph.nodes {
		assert.NotEmpty(ctx, node.Spec.Name, "graph node must have a name")
	}
	log.Ctx(ctx).Debug().
		Int("nodes", len(graph.nodes)).
		Int("edges", len(graph.edges)).
		Msg("dependency graph built")
	return graph, nil
}

// intern adds a resolved candidate to the graph and binds its build
// procedure.
func (b GraphBuilder) intern(graph *DependencyGraph, candidate types.Candidate) (*PackageNode, bool, error) {
	node, created := graph.intern(candidate)
	if !created {
		return node, false, nil
	}
	procedure, err := b.Easyblocks.Lookup(candidate.Easyblock)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s: %v", candidate.Spec.ModuleName(), err)).
			WithCause(err)
	}
	node.Easyblock = procedure.Name()
	node.Steps = procedure.Plan(candidate)
	return node, true, nil
}

// expand moves a new node to RESOLVING and collects its dependencies. It
// returns a nil frame for nodes that become SKIPPED.
func (b GraphBuilder) expand(ctx context.Context, node *PackageNode, root bool) (*buildFrame, error) {
	node.state = types.NodeStateResolving
	node.Forced = root && (b.Options.Force || b.Options.Rebuild)

	if !node.Forced && !b.Options.RetainAllDeps {
		installed, err := b.Resolver.Cache.isInstalled(ctx, b.Installed, node.Spec)
		if err != nil {
			return nil, err
		}
		if installed {
			node.state = types.NodeStateSkipped
			log.Ctx(ctx).Debug().Str("module", node.Module()).Msg("already installed")
			return nil, nil
		}
	}

	var decls []types.DependencyDecl
	tc := node.Spec.Toolchain
	if !tc.IsTrivial() {
		if b.Toolchains == nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s uses toolchain %s but no toolchain port is configured", node.Module(), tc.String()))
		}
		components, err := b.Resolver.Cache.toolchainComponents(ctx, b.Toolchains, tc)
		if err != nil {
			return nil, &UnresolvableDependencyError{
				Requester: node.Module(),
				Missing:   types.PartialSpec{Name: tc.Name, Version: tc.Version},
				Chain:     []string{node.Module()},
				Reason:    "toolchain is not available",
				Cause:     err,
			}
		}
		if len(components) == 0 {
			// A single-package toolchain such as a bare compiler is its
			// own constituent.
			components = []types.PartialSpec{toolchainPackage(tc)}
		}
		for _, component := range components {
			if component.Toolchain == nil {
				component.Toolchain = &types.Toolchain{Name: types.ToolchainSystem}
			}
			decls = append(decls, types.DependencyDecl{Spec: component, Kind: types.DependencyKindToolchain})
		}
	}

	declared, err := b.Resolver.Cache.loadDependencies(ctx, b.Repository, node.Spec)
	if err != nil {
		return nil, err
	}
	if b.Policy != nil {
		declared, err = b.Policy.Apply(node.Spec, declared)
		if err != nil {
			return nil, err
		}
	}
	decls = append(decls, declared...)
	return &buildFrame{node: node, deps: decls}, nil
}

// resolveDependency maps a declaration of the node on top of the stack to
// a graph node. A declaration without a toolchain asks for the requester's
// toolchain. Missing packages are reported with the full ancestor chain.
func (b GraphBuilder) resolveDependency(ctx context.Context, graph *DependencyGraph, stack []*buildFrame, decl types.DependencyDecl) (*PackageNode, bool, error) {
	requester := stack[len(stack)-1].node
	if decl.External {
		return b.externalDependency(ctx, graph, stack, decl)
	}
	partial := decl.Spec
	if partial.Toolchain == nil {
		inherited := requester.Spec.Toolchain
		partial.Toolchain = &inherited
	}
	candidate, err := b.Resolver.Resolve(ctx, partial)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, false, &UnresolvableDependencyError{
				Requester: requester.Module(),
				Missing:   decl.Spec,
				Chain:     stackChain(stack),
			}
		}
		return nil, false, err
	}
	node, created, err := b.intern(graph, candidate)
	if err != nil {
		return nil, false, err
	}
	if created {
		node.Hidden = decl.Hidden
	}
	return node, created, nil
}

// externalDependency represents a module provided outside the repository.
// It must already be installed and is never built.
func (b GraphBuilder) externalDependency(ctx context.Context, graph *DependencyGraph, stack []*buildFrame, decl types.DependencyDecl) (*PackageNode, bool, error) {
	requester := stack[len(stack)-1].node
	spec := types.PackageSpec{
		Name:      decl.Spec.Name,
		Version:   decl.Spec.Version,
		Toolchain: types.Toolchain{Name: types.ToolchainSystem},
	}
	if decl.Spec.Toolchain != nil {
		spec.Toolchain = decl.Spec.Toolchain.Normalized()
	}
	if decl.Spec.VersionSuffix != nil {
		spec.VersionSuffix = *decl.Spec.VersionSuffix
	}
	if IsVersionRange(spec.Version) {
		return nil, false, &UnresolvableDependencyError{
			Requester: requester.Module(),
			Missing:   decl.Spec,
			Chain:     stackChain(stack),
			Reason:    "external modules need an exact version",
		}
	}
	installed, err := b.Resolver.Cache.isInstalled(ctx, b.Installed, spec)
	if err != nil {
		return nil, false, err
	}
	if !installed {
		return nil, false, &UnresolvableDependencyError{
			Requester: requester.Module(),
			Missing:   decl.Spec,
			Chain:     stackChain(stack),
			Reason:    "external module is not installed",
		}
	}
	node, created := graph.intern(types.Candidate{Spec: spec})
	if created {
		node.External = true
		node.Hidden = decl.Hidden
		node.state = types.NodeStateSkipped
	}
	return node, created, nil
}

func toolchainPackage(tc types.Toolchain) types.PartialSpec {
	return types.PartialSpec{
		Name:      tc.Name,
		Version:   tc.Version,
		Toolchain: &types.Toolchain{Name: types.ToolchainSystem},
	}
}

func stackChain(stack []*buildFrame) []string {
	chain := make([]string, 0, len(stack))
	for _, frame := range stack {
		chain = append(chain, frame.node.Module())
	}
	return chain
}

// cycleError names the cycle from the first occurrence of child on the
// active path back to child.
func cycleError(stack []*buildFrame, child *PackageNode) error {
	start := 0
	for i, frame := range stack {
		if frame.node == child {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	for _, frame := range stack[start:] {
		cycle = append(cycle, frame.node.Module())
	}
	cycle = append(cycle, child.Module())
	return &CyclicDependencyError{Cycle: cycle}
}
