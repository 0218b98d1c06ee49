package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

// DependencyFilter drops declared dependencies by name. Patterns are an
// exact name, a prefix ending in "*" or a bare "*", optionally scoped to a
// dependency kind as "build:cmake". Unscoped patterns never match toolchain
// components.
type DependencyFilter struct {
	Patterns     []string
	exactByKind  map[types.DependencyKind]map[string]bool
	exactAny     map[string]bool
	prefixByKind map[types.DependencyKind][]string
	prefixAny    []string
	wildcard     map[types.DependencyKind]bool
	wildcardAny  bool
}

func NewDependencyFilter(patterns []string) (DependencyFilter, error) {
	filter := DependencyFilter{
		exactByKind:  map[types.DependencyKind]map[string]bool{},
		exactAny:     map[string]bool{},
		prefixByKind: map[types.DependencyKind][]string{},
		wildcard:     map[types.DependencyKind]bool{},
	}
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		parsed, ok := parsePattern(pattern)
		if !ok {
			return DependencyFilter{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid filter pattern: %q", pattern))
		}
		filter.Patterns = append(filter.Patterns, strings.TrimSpace(pattern))
		filter.store(parsed)
	}
	return filter, nil
}

// Matches reports whether a dependency of the given kind is filtered out.
func (f DependencyFilter) Matches(kind types.DependencyKind, name string) bool {
	if f.exactByKind[kind][name] || f.wildcard[kind] {
		return true
	}
	for _, prefix := range f.prefixByKind[kind] {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	if kind == types.DependencyKindToolchain {
		return false
	}
	if f.exactAny[name] || f.wildcardAny {
		return true
	}
	for _, prefix := range f.prefixAny {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (f DependencyFilter) Empty() bool {
	return len(f.Patterns) == 0
}

type parsedPattern struct {
	kind    *types.DependencyKind
	pattern patternKind
	name    string
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
	patternInvalid
)

func (f *DependencyFilter) store(parsed parsedPattern) {
	switch parsed.pattern {
	case patternWildcard:
		if parsed.kind == nil {
			f.wildcardAny = true
			return
		}
		f.wildcard[*parsed.kind] = true
	case patternExact:
		if parsed.kind == nil {
			f.exactAny[parsed.name] = true
			return
		}
		if f.exactByKind[*parsed.kind] == nil {
			f.exactByKind[*parsed.kind] = map[string]bool{}
		}
		f.exactByKind[*parsed.kind][parsed.name] = true
	case patternPrefix:
		if parsed.kind == nil {
			f.prefixAny = append(f.prefixAny, parsed.name)
			return
		}
		f.prefixByKind[*parsed.kind] = append(f.prefixByKind[*parsed.kind], parsed.name)
	}
}

func parsePattern(pattern string) (parsedPattern, bool) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "*" {
		return parsedPattern{pattern: patternWildcard}, true
	}
	parts := strings.Split(trimmed, ":")
	switch len(parts) {
	case 1:
		name, kind := parseNamePattern(trimmed)
		if kind == patternInvalid {
			return parsedPattern{pattern: patternInvalid}, false
		}
		return parsedPattern{pattern: kind, name: name}, true
	case 2:
		depKind, ok := parseDependencyKind(parts[0])
		if !ok {
			return parsedPattern{pattern: patternInvalid}, false
		}
		name, kind := parseNamePattern(parts[1])
		if kind == patternInvalid {
			return parsedPattern{pattern: patternInvalid}, false
		}
		return parsedPattern{kind: &depKind, pattern: kind, name: name}, true
	default:
		return parsedPattern{pattern: patternInvalid}, false
	}
}

func parseDependencyKind(token string) (types.DependencyKind, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "build", "builddependency":
		return types.DependencyKindBuild, true
	case "runtime", "dependency":
		return types.DependencyKindRuntime, true
	case "toolchain":
		return types.DependencyKindToolchain, true
	default:
		return "", false
	}
}

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" {
		return "", patternInvalid
	}
	if pattern == "*" {
		return "", patternWildcard
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.Contains(prefix, "*") {
			return "", patternInvalid
		}
		return prefix, patternPrefix
	}
	if strings.Contains(pattern, "*") {
		return "", patternInvalid
	}
	return pattern, patternExact
}
