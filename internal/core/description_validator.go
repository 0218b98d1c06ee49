package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/types"
)

// DescriptionValidator checks parsed description files before they are
// used for resolution.
type DescriptionValidator struct {
	Easyblocks EasyblockRegistry
}

func NewDescriptionValidator(easyblocks EasyblockRegistry) DescriptionValidator {
	return DescriptionValidator{Easyblocks: easyblocks}
}

func (v DescriptionValidator) ValidateDescription(ctx context.Context, path string, desc types.DescriptionFile) error {
	assert.NotEmpty(ctx, path, "description path must be set")
	if err := validateName(desc.Name); err != nil {
		return invalidDescription(path, err.Error())
	}
	if strings.TrimSpace(desc.Version) == "" {
		return invalidDescription(path, "version must not be empty")
	}
	if IsVersionRange(desc.Version) {
		return invalidDescription(path, fmt.Sprintf("version %q must be exact", desc.Version))
	}
	if desc.Toolchain != nil {
		if err := validateToolchain(*desc.Toolchain); err != nil {
			return invalidDescription(path, err.Error())
		}
	}
	if _, err := v.Easyblocks.Lookup(desc.Easyblock); err != nil {
		return invalidDescription(path, err.Error())
	}
	isToolchain := strings.TrimSpace(desc.Easyblock) == "Toolchain"
	if !isToolchain && (len(desc.ToolchainComponents) > 0 || len(desc.Subtoolchains) > 0) {
		return invalidDescription(path, "toolchain_components and subtoolchains require easyblock Toolchain")
	}
	if isToolchain && len(desc.ToolchainComponents) == 0 {
		return invalidDescription(path, "easyblock Toolchain needs at least one toolchain_components entry")
	}
	for key := range desc.Parameters {
		if strings.TrimSpace(key) == "" {
			return invalidDescription(path, "parameters must not contain an empty key")
		}
	}
	for _, group := range []struct {
		field   string
		entries []types.DependencyEntry
	}{
		{"dependencies", desc.Dependencies},
		{"builddependencies", desc.BuildDependencies},
		{"toolchain_components", desc.ToolchainComponents},
	} {
		if err := validateEntries(group.field, group.entries); err != nil {
			return invalidDescription(path, err.Error())
		}
	}
	if err := validateSources(desc); err != nil {
		return invalidDescription(path, err.Error())
	}
	for _, sub := range desc.Subtoolchains {
		if err := validateToolchain(sub); err != nil {
			return invalidDescription(path, "subtoolchains: "+err.Error())
		}
	}
	log.Ctx(ctx).Debug().Str("path", path).Str("module", desc.Spec().ModuleName()).Msg("description validated")
	return nil
}

func validateEntries(field string, entries []types.DependencyEntry) error {
	seen := map[string]bool{}
	for _, entry := range entries {
		if err := validateName(entry.Name); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if strings.TrimSpace(entry.Version) == "" {
			return fmt.Errorf("%s: %s needs a version", field, entry.Name)
		}
		if entry.External && IsVersionRange(entry.Version) {
			return fmt.Errorf("%s: external %s needs an exact version", field, entry.Name)
		}
		if entry.Toolchain != nil {
			if err := validateToolchain(*entry.Toolchain); err != nil {
				return fmt.Errorf("%s: %s: %w", field, entry.Name, err)
			}
		}
		key := entry.Name
		if entry.VersionSuffix != nil {
			key += *entry.VersionSuffix
		}
		if seen[key] {
			return fmt.Errorf("%s: %s is listed twice", field, entry.Name)
		}
		seen[key] = true
	}
	return nil
}

func validateSources(desc types.DescriptionFile) error {
	if len(desc.Checksums) > len(desc.Sources) {
		return fmt.Errorf("%d checksums given for %d sources", len(desc.Checksums), len(desc.Sources))
	}
	for i, name := range desc.Sources {
		if strings.TrimSpace(name) == "" || strings.ContainsRune(name, '/') {
			return fmt.Errorf("source %d must be a plain file name", i+1)
		}
	}
	for _, checksum := range desc.Checksums {
		if !isHexDigest(checksum) {
			return fmt.Errorf("checksum %q is not an md5 or sha256 hex digest", checksum)
		}
	}
	for _, url := range desc.SourceURLs {
		if !strings.Contains(url, "://") {
			return fmt.Errorf("source url %q has no scheme", url)
		}
	}
	return nil
}

func isHexDigest(value string) bool {
	if len(value) != 32 && len(value) != 64 {
		return false
	}
	for _, r := range value {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.ContainsAny(name, " \t/@:") {
		return fmt.Errorf("name %q contains a reserved character", name)
	}
	return nil
}

func validateToolchain(tc types.Toolchain) error {
	if strings.TrimSpace(tc.Name) == "" {
		return fmt.Errorf("toolchain name must not be empty")
	}
	if !tc.IsTrivial() && strings.TrimSpace(tc.Version) == "" {
		return fmt.Errorf("toolchain %s needs a version", tc.Name)
	}
	return nil
}

func invalidDescription(path string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%s: %s", path, reason))
}
