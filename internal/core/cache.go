package core

import (
	"context"
	"sync"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

// ResolutionCache memoizes repository lookups, dependency loads, toolchain
// queries and installed checks for one resolution run. Create a fresh cache
// per run; it never invalidates entries.
type ResolutionCache struct {
	mu            sync.Mutex
	versions      *versionCache
	lookups       map[string][]types.Candidate
	dependencies  map[types.SpecKey][]types.DependencyDecl
	installed     map[types.SpecKey]bool
	components    map[types.Toolchain][]types.PartialSpec
	subtoolchains map[types.Toolchain][]types.Toolchain
}

func NewResolutionCache() *ResolutionCache {
	return &ResolutionCache{
		versions:      newVersionCache(),
		lookups:       map[string][]types.Candidate{},
		dependencies:  map[types.SpecKey][]types.DependencyDecl{},
		installed:     map[types.SpecKey]bool{},
		components:    map[types.Toolchain][]types.PartialSpec{},
		subtoolchains: map[types.Toolchain][]types.Toolchain{},
	}
}

// lookup queries the repository by name only so that every partial spec for
// the same package shares one cached answer.
func (c *ResolutionCache) lookup(ctx context.Context, repo ports.RepositoryPort, name string) ([]types.Candidate, error) {
	c.mu.Lock()
	cached, ok := c.lookups[name]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	candidates, err := repo.Lookup(ctx, types.PartialSpec{Name: name})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lookups[name] = candidates
	c.mu.Unlock()
	return candidates, nil
}

func (c *ResolutionCache) loadDependencies(ctx context.Context, repo ports.RepositoryPort, spec types.PackageSpec) ([]types.DependencyDecl, error) {
	key := spec.Key()
	c.mu.Lock()
	cached, ok := c.dependencies[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	decls, err := repo.LoadDependencies(ctx, spec)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.dependencies[key] = decls
	c.mu.Unlock()
	return decls, nil
}

func (c *ResolutionCache) isInstalled(ctx context.Context, installed ports.InstalledPort, spec types.PackageSpec) (bool, error) {
	if installed == nil {
		return false, nil
	}
	key := spec.Key()
	c.mu.Lock()
	cached, ok := c.installed[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	value, err := installed.IsInstalled(ctx, spec)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.installed[key] = value
	c.mu.Unlock()
	return value, nil
}

func (c *ResolutionCache) toolchainComponents(ctx context.Context, toolchains ports.ToolchainPort, tc types.Toolchain) ([]types.PartialSpec, error) {
	tc = tc.Normalized()
	c.mu.Lock()
	cached, ok := c.components[tc]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	components, err := toolchains.Components(ctx, tc)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.components[tc] = components
	c.mu.Unlock()
	return components, nil
}

// hierarchy returns the transitive subtoolchains of tc, nearest first and
// without duplicates. The toolchain itself is not included.
func (c *ResolutionCache) hierarchy(ctx context.Context, toolchains ports.ToolchainPort, tc types.Toolchain) ([]types.Toolchain, error) {
	tc = tc.Normalized()
	if toolchains == nil || tc.IsTrivial() {
		return nil, nil
	}
	c.mu.Lock()
	cached, ok := c.subtoolchains[tc]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	seen := map[types.Toolchain]bool{tc: true}
	var out []types.Toolchain
	queue := []types.Toolchain{tc}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		subs, err := toolchains.Subtoolchains(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			sub = sub.Normalized()
			if seen[sub] || sub.IsTrivial() {
				continue
			}
			seen[sub] = true
			out = append(out, sub)
			queue = append(queue, sub)
		}
	}
	c.mu.Lock()
	c.subtoolchains[tc] = out
	c.mu.Unlock()
	return out, nil
}
