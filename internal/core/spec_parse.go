package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

// ParsePartialSpec parses "name[/version][:suffix][@toolchain[/version]]"
// into a partial spec. Omitted parts stay unconstrained.
func ParsePartialSpec(raw string) (types.PartialSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.PartialSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty package spec")
	}
	var partial types.PartialSpec
	body := raw
	if idx := strings.LastIndex(body, "@"); idx >= 0 {
		tcRaw := strings.TrimSpace(body[idx+1:])
		body = body[:idx]
		if tcRaw == "" {
			return types.PartialSpec{}, invalidSpec(raw, "empty toolchain")
		}
		tc := types.Toolchain{Name: tcRaw}
		if name, version, ok := strings.Cut(tcRaw, "/"); ok {
			tc = types.Toolchain{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)}
		}
		if tc.Name == "" {
			return types.PartialSpec{}, invalidSpec(raw, "empty toolchain name")
		}
		partial.Toolchain = &tc
	}
	if head, suffix, ok := strings.Cut(body, ":"); ok {
		suffix = strings.TrimSpace(suffix)
		partial.VersionSuffix = &suffix
		body = head
	}
	name, version, _ := strings.Cut(body, "/")
	partial.Name = strings.TrimSpace(name)
	partial.Version = strings.TrimSpace(version)
	if partial.Name == "" {
		return types.PartialSpec{}, invalidSpec(raw, "missing package name")
	}
	if strings.ContainsAny(partial.Name, " \t") {
		return types.PartialSpec{}, invalidSpec(raw, "package name contains whitespace")
	}
	return partial, nil
}

// ParsePartialSpecs parses every raw spec, stopping at the first error.
func ParsePartialSpecs(raw []string) ([]types.PartialSpec, error) {
	out := make([]types.PartialSpec, 0, len(raw))
	for _, item := range raw {
		partial, err := ParsePartialSpec(item)
		if err != nil {
			return nil, err
		}
		out = append(out, partial)
	}
	return out, nil
}

// ApplyDefaults fills the toolchain and suffix of roots that did not set
// them, used for the global --toolchain and --suffix options.
func ApplyDefaults(roots []types.PartialSpec, toolchain *types.Toolchain, suffix *string) []types.PartialSpec {
	out := make([]types.PartialSpec, len(roots))
	for i, root := range roots {
		if root.Toolchain == nil && toolchain != nil {
			tc := *toolchain
			root.Toolchain = &tc
		}
		if root.VersionSuffix == nil && suffix != nil {
			s := *suffix
			root.VersionSuffix = &s
		}
		out[i] = root
	}
	return out
}

// ParseToolchain parses "name[/version]".
func ParseToolchain(raw string) (types.Toolchain, error) {
	raw = strings.TrimSpace(raw)
	name, version, _ := strings.Cut(raw, "/")
	tc := types.Toolchain{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)}
	if tc.Name == "" {
		return types.Toolchain{}, invalidSpec(raw, "empty toolchain name")
	}
	return tc, nil
}

func invalidSpec(raw string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid package spec %q: %s", raw, reason))
}
