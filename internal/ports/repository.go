package ports

import (
	"context"

	"stackforge/internal/types"
)

// RepositoryPort is the source of package descriptions.
type RepositoryPort interface {
	// Lookup returns every description whose name matches the partial spec.
	// Filtering on version, toolchain and suffix is left to the resolver.
	Lookup(ctx context.Context, partial types.PartialSpec) ([]types.Candidate, error)

	// LoadDependencies returns the declared build and runtime dependencies
	// of a resolved spec, in declaration order.
	LoadDependencies(ctx context.Context, spec types.PackageSpec) ([]types.DependencyDecl, error)
}

// ToolchainPort exposes the toolchain hierarchy.
type ToolchainPort interface {
	Components(ctx context.Context, toolchain types.Toolchain) ([]types.PartialSpec, error)
	Subtoolchains(ctx context.Context, toolchain types.Toolchain) ([]types.Toolchain, error)
}

type SearchPort interface {
	Search(ctx context.Context, query string) ([]string, error)
}

type DescriptionCatalogPort interface {
	// Descriptions parses every description reachable from the repository
	// and returns the problems found alongside the parsed entries.
	Descriptions(ctx context.Context) ([]types.DescriptionRecord, error)
}
