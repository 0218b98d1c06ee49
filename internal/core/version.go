package core

import (
	"cmp"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

// versionMatcher decides whether a candidate version satisfies a version
// expression from a partial spec.
type versionMatcher struct {
	raw    string
	exact  bool
	semver *semver.Constraints
	pep    *pep440.Specifiers
}

// pepOperators are the prefixes handled with PEP 440 semantics; every other
// operator goes through semver ranges.
var pepOperators = []string{"~=", "==", "!="}

var rangeOperators = []string{"~=", "==", "!=", ">", "<", "=", "^", "~"}

// versionCache memoizes parsed versions and range expressions for the
// duration of one resolution run.
type versionCache struct {
	mu       sync.Mutex
	deb      map[string]debversion.Version
	sem      map[string]*semver.Version
	pep      map[string]pep440.Version
	matchers map[string]versionMatcher
}

func newVersionCache() *versionCache {
	return &versionCache{
		deb:      map[string]debversion.Version{},
		sem:      map[string]*semver.Version{},
		pep:      map[string]pep440.Version{},
		matchers: map[string]versionMatcher{},
	}
}

// debVersion returns a parsed Debian-style version, caching the result.
func (c *versionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

func (c *versionCache) semVersion(value string) (*semver.Version, error) {
	if parsed, ok := c.sem[value]; ok {
		return parsed, nil
	}
	parsed, err := semver.NewVersion(value)
	if err != nil {
		return nil, err
	}
	c.sem[value] = parsed
	return parsed, nil
}

func (c *versionCache) pepVersion(value string) (pep440.Version, error) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		return pep440.Version{}, err
	}
	c.pep[value] = parsed
	return parsed, nil
}

// compare returns -1, 0, or 1 comparing two package versions. Versions are
// ordered with Debian semantics, which accept the letter suffixes common in
// toolchain generations (2023a < 2023b). Unparseable versions fall back to
// plain string ordering so the result stays total and deterministic.
func (c *versionCache) compare(a string, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == b {
		return 0
	}
	v1, err1 := c.debVersion(a)
	v2, err2 := c.debVersion(b)
	if err1 == nil && err2 == nil {
		return cmp.Compare(v1.Compare(v2), 0)
	}
	return strings.Compare(a, b)
}

// matcher parses a version expression once and caches it.
func (c *versionCache) matcher(expr string) (versionMatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.matchers[expr]; ok {
		return m, nil
	}
	m, err := parseVersionExpr(expr)
	if err != nil {
		return versionMatcher{}, err
	}
	c.matchers[expr] = m
	return m, nil
}

// matches reports whether version satisfies expr. An empty expression
// matches every version.
func (c *versionCache) matches(expr string, version string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	m, err := c.matcher(expr)
	if err != nil {
		return false, err
	}
	if m.exact {
		return version == m.raw, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case m.pep != nil:
		v, err := c.pepVersion(version)
		if err != nil {
			return false, nil
		}
		return m.pep.Check(v), nil
	case m.semver != nil:
		v, err := c.semVersion(version)
		if err != nil {
			return false, nil
		}
		return m.semver.Check(v), nil
	}
	return false, nil
}

// IsVersionRange reports whether expr is a range rather than an exact
// version.
func IsVersionRange(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	for _, op := range rangeOperators {
		if strings.HasPrefix(expr, op) {
			return true
		}
	}
	return strings.ContainsAny(expr, "*,|") || strings.Contains(expr, " - ")
}

func parseVersionExpr(expr string) (versionMatcher, error) {
	if !IsVersionRange(expr) {
		return versionMatcher{raw: expr, exact: true}, nil
	}
	for _, op := range pepOperators {
		if strings.HasPrefix(expr, op) {
			spec, err := pep440.NewSpecifiers(expr)
			if err != nil {
				return versionMatcher{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid version range %q", expr)).
					WithCause(err)
			}
			return versionMatcher{raw: expr, pep: &spec}, nil
		}
	}
	constraint, err := semver.NewConstraint(expr)
	if err != nil {
		return versionMatcher{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version range %q", expr)).
			WithCause(err)
	}
	return versionMatcher{raw: expr, semver: constraint}, nil
}

// toolchainGeneration returns the leading numeric component of a toolchain
// version: 2023 for 2023a, 12 for 12.3.0. Versions without a leading digit
// are their own generation.
func toolchainGeneration(version string) string {
	version = strings.TrimSpace(version)
	end := 0
	for end < len(version) && version[end] >= '0' && version[end] <= '9' {
		end++
	}
	if end == 0 {
		return version
	}
	return version[:end]
}
