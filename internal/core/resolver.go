package core

import (
	"context"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

// Toolchain match tiers, best first.
const (
	tierExact = iota
	tierGeneration
	tierSubtoolchain
	tierSystem
)

// SpecResolver turns a partial spec into exactly one repository candidate.
type SpecResolver struct {
	Repository ports.RepositoryPort
	Toolchains ports.ToolchainPort
	Cache      *ResolutionCache
}

type rankedCandidate struct {
	candidate types.Candidate
	tier      int
	distance  int
}

func NewSpecResolver(repo ports.RepositoryPort, toolchains ports.ToolchainPort, cache *ResolutionCache) SpecResolver {
	if cache == nil {
		cache = NewResolutionCache()
	}
	return SpecResolver{
		Repository: repo,
		Toolchains: toolchains,
		Cache:      cache,
	}
}

// Resolve picks the best candidate for partial. Candidates are ranked by
// toolchain tier (exact, same generation, subtoolchain, system), then by
// subtoolchain distance, then by highest version and highest toolchain
// version. Two distinct candidates that tie on every key are reported as
// AmbiguousSpecError rather than guessed.
func (r SpecResolver) Resolve(ctx context.Context, partial types.PartialSpec) (types.Candidate, error) {
	if r.Repository == nil {
		return types.Candidate{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolver requires a repository port")
	}
	if partial.Name == "" {
		return types.Candidate{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot resolve a spec without a name")
	}
	cache := r.Cache
	if cache == nil {
		cache = NewResolutionCache()
	}

	all, err := cache.lookup(ctx, r.Repository, partial.Name)
	if err != nil {
		return types.Candidate{}, err
	}

	var hierarchy []types.Toolchain
	if partial.Toolchain != nil {
		hierarchy, err = cache.hierarchy(ctx, r.Toolchains, *partial.Toolchain)
		if err != nil {
			return types.Candidate{}, err
		}
	}

	seen := map[types.SpecKey]bool{}
	var ranked []rankedCandidate
	for _, candidate := range all {
		spec := candidate.Spec
		if spec.Name != partial.Name || seen[spec.Key()] {
			continue
		}
		ok, err := cache.versions.matches(partial.Version, spec.Version)
		if err != nil {
			return types.Candidate{}, err
		}
		if !ok {
			continue
		}
		if partial.VersionSuffix != nil && spec.VersionSuffix != *partial.VersionSuffix {
			continue
		}
		tier, distance, ok := toolchainTier(spec.Toolchain, partial.Toolchain, hierarchy)
		if !ok {
			continue
		}
		seen[spec.Key()] = true
		ranked = append(ranked, rankedCandidate{candidate: candidate, tier: tier, distance: distance})
	}
	if partial.VersionSuffix == nil {
		ranked = preferEmptySuffix(ranked)
	}
	if len(ranked) == 0 {
		return types.Candidate{}, &NotFoundError{Spec: partial}
	}

	versions := cache.versions
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(versions, ranked[i], ranked[j])
	})

	best := ranked[0]
	var tied []string
	for _, other := range ranked[1:] {
		if rankLess(versions, best, other) {
			break
		}
		tied = append(tied, other.candidate.Spec.ModuleName())
	}
	if len(tied) > 0 {
		return types.Candidate{}, &AmbiguousSpecError{
			Spec:       partial,
			Candidates: append([]string{best.candidate.Spec.ModuleName()}, tied...),
		}
	}

	log.Ctx(ctx).Debug().
		Str("spec", partial.String()).
		Str("module", best.candidate.Spec.ModuleName()).
		Int("candidates", len(ranked)).
		Msg("resolved spec")
	return best.candidate, nil
}

// rankLess orders a before b when a is strictly preferred.
func rankLess(versions *versionCache, a rankedCandidate, b rankedCandidate) bool {
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	if cmp := versions.compare(a.candidate.Spec.Version, b.candidate.Spec.Version); cmp != 0 {
		return cmp > 0
	}
	tcA := a.candidate.Spec.Toolchain.Normalized()
	tcB := b.candidate.Spec.Toolchain.Normalized()
	if tcA.Name == tcB.Name {
		if cmp := versions.compare(tcA.Version, tcB.Version); cmp != 0 {
			return cmp > 0
		}
	}
	return false
}

// toolchainTier classifies a candidate toolchain against the requested one.
// The boolean is false when the candidate is not acceptable at all.
func toolchainTier(candidate types.Toolchain, requested *types.Toolchain, hierarchy []types.Toolchain) (int, int, bool) {
	if requested == nil {
		return tierExact, 0, true
	}
	cand := candidate.Normalized()
	req := requested.Normalized()
	if req.IsTrivial() {
		return tierExact, 0, cand.IsTrivial()
	}
	if cand == req || (req.Version == "" && cand.Name == req.Name) {
		return tierExact, 0, true
	}
	if cand.Name == req.Name && toolchainGeneration(cand.Version) == toolchainGeneration(req.Version) {
		return tierGeneration, 0, true
	}
	for i, sub := range hierarchy {
		if cand == sub {
			return tierSubtoolchain, i, true
		}
	}
	if cand.IsTrivial() {
		return tierSystem, 0, true
	}
	return 0, 0, false
}

// preferEmptySuffix keeps only unsuffixed candidates when any exist.
func preferEmptySuffix(ranked []rankedCandidate) []rankedCandidate {
	var plain []rankedCandidate
	for _, item := range ranked {
		if item.candidate.Spec.VersionSuffix == "" {
			plain = append(plain, item)
		}
	}
	if len(plain) == 0 {
		return ranked
	}
	return plain
}
