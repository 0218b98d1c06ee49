package ports

import "stackforge/internal/types"

// DependencyPolicyPort rewrites or drops declared dependencies before they
// are resolved.
type DependencyPolicyPort interface {
	Apply(parent types.PackageSpec, decls []types.DependencyDecl) ([]types.DependencyDecl, error)
}
