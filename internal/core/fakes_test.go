package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

type testEntry struct {
	candidate     types.Candidate
	deps          []types.DependencyDecl
	components    []types.PartialSpec
	subtoolchains []types.Toolchain
}

// testRepository is an in-memory repository and toolchain port.
type testRepository struct {
	entries []testEntry
	lookups int
}

func newTestRepository() *testRepository {
	return &testRepository{}
}

// pkg registers a package; toolchain "name/version" or "" for system.
func (r *testRepository) pkg(name string, version string, toolchain string, deps ...types.DependencyDecl) *testRepository {
	return r.pkgSuffix(name, version, toolchain, "", deps...)
}

func (r *testRepository) pkgSuffix(name string, version string, toolchain string, suffix string, deps ...types.DependencyDecl) *testRepository {
	spec := types.PackageSpec{
		Name:          name,
		Version:       version,
		Toolchain:     parseTestToolchain(toolchain),
		VersionSuffix: suffix,
	}
	r.entries = append(r.entries, testEntry{
		candidate: types.Candidate{Spec: spec, Path: name + "-" + spec.FullVersion() + ".yaml"},
		deps:      deps,
	})
	return r
}

// toolchain registers a toolchain package with its components and
// subtoolchains.
func (r *testRepository) toolchain(name string, version string, components []types.PartialSpec, subtoolchains ...types.Toolchain) *testRepository {
	spec := types.PackageSpec{Name: name, Version: version, Toolchain: types.Toolchain{Name: types.ToolchainSystem}}
	r.entries = append(r.entries, testEntry{
		candidate:     types.Candidate{Spec: spec, Path: name + "-" + version + ".yaml", Easyblock: "Toolchain"},
		components:    components,
		subtoolchains: subtoolchains,
	})
	return r
}

func (r *testRepository) Lookup(_ context.Context, partial types.PartialSpec) ([]types.Candidate, error) {
	r.lookups++
	var out []types.Candidate
	for _, entry := range r.entries {
		if entry.candidate.Spec.Name == partial.Name {
			out = append(out, entry.candidate)
		}
	}
	return out, nil
}

func (r *testRepository) LoadDependencies(_ context.Context, spec types.PackageSpec) ([]types.DependencyDecl, error) {
	for _, entry := range r.entries {
		if entry.candidate.Spec.Equivalent(spec) {
			return entry.deps, nil
		}
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("no description for %s", spec.ModuleName()))
}

func (r *testRepository) Components(_ context.Context, tc types.Toolchain) ([]types.PartialSpec, error) {
	entry, ok := r.findToolchain(tc)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown toolchain %s", tc.String()))
	}
	return entry.components, nil
}

func (r *testRepository) Subtoolchains(_ context.Context, tc types.Toolchain) ([]types.Toolchain, error) {
	entry, ok := r.findToolchain(tc)
	if !ok {
		return nil, nil
	}
	return entry.subtoolchains, nil
}

// findToolchain prefers a Toolchain bundle and falls back to a plain
// package of the same name and version, which has no components.
func (r *testRepository) findToolchain(tc types.Toolchain) (testEntry, bool) {
	var plain *testEntry
	for i, entry := range r.entries {
		spec := entry.candidate.Spec
		if spec.Name != tc.Name || spec.Version != tc.Version {
			continue
		}
		if entry.candidate.Easyblock == "Toolchain" {
			return entry, true
		}
		if plain == nil {
			plain = &r.entries[i]
		}
	}
	if plain != nil {
		return *plain, true
	}
	return testEntry{}, false
}

func parseTestToolchain(raw string) types.Toolchain {
	if raw == "" {
		return types.Toolchain{Name: types.ToolchainSystem}
	}
	tc, err := ParseToolchain(raw)
	if err != nil {
		panic(err)
	}
	return tc
}

func buildDep(name string, version string) types.DependencyDecl {
	return testDecl(name, version, types.DependencyKindBuild)
}

func runtimeDep(name string, version string) types.DependencyDecl {
	return testDecl(name, version, types.DependencyKindRuntime)
}

func testDecl(name string, version string, kind types.DependencyKind) types.DependencyDecl {
	suffix := ""
	return types.DependencyDecl{
		Spec: types.PartialSpec{Name: name, Version: version, VersionSuffix: &suffix},
		Kind: kind,
	}
}

func withToolchain(decl types.DependencyDecl, toolchain string) types.DependencyDecl {
	tc := parseTestToolchain(toolchain)
	decl.Spec.Toolchain = &tc
	return decl
}

func component(name string, version string, toolchain string) types.PartialSpec {
	tc := parseTestToolchain(toolchain)
	return types.PartialSpec{Name: name, Version: version, Toolchain: &tc}
}

// testInstalled reports modules in the set as installed.
type testInstalled map[string]bool

func (t testInstalled) IsInstalled(_ context.Context, spec types.PackageSpec) (bool, error) {
	return t[spec.ModuleName()], nil
}

// recordingBuilder records build calls and fails the modules in fail.
type recordingBuilder struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func newRecordingBuilder(failing ...string) *recordingBuilder {
	fail := map[string]bool{}
	for _, module := range failing {
		fail[module] = true
	}
	return &recordingBuilder{fail: fail}
}

func (b *recordingBuilder) Build(_ context.Context, target types.BuildTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, target.Module)
	if b.fail[target.Module] {
		return fmt.Errorf("make exited with status 2")
	}
	return nil
}

func (b *recordingBuilder) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// resolveAndSchedule builds the graph for roots and orders it.
func resolveAndSchedule(ctx context.Context, repo *testRepository, installed testInstalled, roots ...string) (BuildOrder, error) {
	partials, err := ParsePartialSpecs(roots)
	if err != nil {
		return BuildOrder{}, err
	}
	builder := NewGraphBuilder(repo, repo, installed, NewResolutionCache())
	graph, err := builder.Build(ctx, partials)
	if err != nil {
		return BuildOrder{}, err
	}
	return Schedule(ctx, graph)
}
