package policies

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

// DependencyPolicy filters declared dependencies and then applies the
// per-name overrides to what is left.
type DependencyPolicy struct {
	Filter    DependencyFilter
	overrides map[string]Override
}

func NewDependencyPolicy(filterPatterns []string, overrides []Override) (DependencyPolicy, error) {
	filter, err := NewDependencyFilter(filterPatterns)
	if err != nil {
		return DependencyPolicy{}, err
	}
	policy := DependencyPolicy{Filter: filter, overrides: map[string]Override{}}
	for _, override := range overrides {
		if err := override.validate(); err != nil {
			return DependencyPolicy{}, err
		}
		if _, exists := policy.overrides[override.Name]; exists {
			return DependencyPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("duplicate override for %s", override.Name))
		}
		policy.overrides[override.Name] = override
	}
	return policy, nil
}

func (p DependencyPolicy) Empty() bool {
	return p.Filter.Empty() && len(p.overrides) == 0
}

func (p DependencyPolicy) Apply(parent types.PackageSpec, decls []types.DependencyDecl) ([]types.DependencyDecl, error) {
	out := make([]types.DependencyDecl, 0, len(decls))
	for _, decl := range decls {
		if p.Filter.Matches(decl.Kind, decl.Spec.Name) {
			continue
		}
		override, ok := p.overrides[decl.Spec.Name]
		if !ok {
			out = append(out, decl)
			continue
		}
		rewritten, err := ApplyOverride(parent, decl, override)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten)
	}
	return out, nil
}
