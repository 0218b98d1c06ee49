package types

import (
	"fmt"
	"strings"
)

// Toolchain identifies the compiler/library bundle a package is built with.
// The zero value means "no toolchain" and behaves like ToolchainSystem.
type Toolchain struct {
	Name    string `yaml:"name" hcl:"name,attr"`
	Version string `yaml:"version,omitempty" hcl:"version,optional"`
}

// IsTrivial reports whether the toolchain never expands into dependencies.
func (t Toolchain) IsTrivial() bool {
	name := strings.TrimSpace(t.Name)
	return name == "" || name == ToolchainSystem || name == ToolchainDummy
}

// Normalized folds every trivial toolchain into the system toolchain so
// equivalence checks do not depend on how "none" was spelled.
func (t Toolchain) Normalized() Toolchain {
	if t.IsTrivial() {
		return Toolchain{Name: ToolchainSystem}
	}
	return Toolchain{Name: strings.TrimSpace(t.Name), Version: strings.TrimSpace(t.Version)}
}

func (t Toolchain) String() string {
	n := t.Normalized()
	if n.Version == "" {
		return n.Name
	}
	return n.Name + "/" + n.Version
}

// PackageSpec is a fully resolved package identity. Values are treated as
// immutable once produced by the resolver; Parameters must not be mutated.
type PackageSpec struct {
	Name          string
	Version       string
	Toolchain     Toolchain
	VersionSuffix string
	Parameters    map[string]string
}

// SpecKey is the equivalence key of a PackageSpec. Parameters are not part
// of it, so two specs differing only in parameters collapse into one node.
type SpecKey struct {
	Name             string
	Version          string
	ToolchainName    string
	ToolchainVersion string
	VersionSuffix    string
}

func (s PackageSpec) Key() SpecKey {
	tc := s.Toolchain.Normalized()
	return SpecKey{
		Name:             s.Name,
		Version:          s.Version,
		ToolchainName:    tc.Name,
		ToolchainVersion: tc.Version,
		VersionSuffix:    s.VersionSuffix,
	}
}

// Equivalent reports whether two specs name the same build.
func (s PackageSpec) Equivalent(other PackageSpec) bool {
	return s.Key() == other.Key()
}

// FullVersion renders version, toolchain and suffix the way installation
// directories and module files are named: 1.14.0-foss-2023a-mpi.
func (s PackageSpec) FullVersion() string {
	var b strings.Builder
	b.WriteString(s.Version)
	if !s.Toolchain.IsTrivial() {
		tc := s.Toolchain.Normalized()
		b.WriteString("-")
		b.WriteString(tc.Name)
		if tc.Version != "" {
			b.WriteString("-")
			b.WriteString(tc.Version)
		}
	}
	b.WriteString(s.VersionSuffix)
	return b.String()
}

// ModuleName is the full module name, name/fullversion.
func (s PackageSpec) ModuleName() string {
	return s.Name + "/" + s.FullVersion()
}

func (s PackageSpec) String() string {
	return s.ModuleName()
}

// PartialSpec is a possibly incomplete package identifier as written by a
// user or by a dependency declaration.
type PartialSpec struct {
	Name string

	// Version is an exact version, a range expression, or empty for any.
	Version string

	// Toolchain is nil when the caller did not constrain it.
	Toolchain *Toolchain

	// VersionSuffix is nil when the caller did not constrain it.
	VersionSuffix *string
}

func (p PartialSpec) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Version != "" {
		b.WriteString("/")
		b.WriteString(p.Version)
	}
	if p.VersionSuffix != nil && *p.VersionSuffix != "" {
		b.WriteString(":")
		b.WriteString(*p.VersionSuffix)
	}
	if p.Toolchain != nil {
		b.WriteString("@")
		b.WriteString(p.Toolchain.String())
	}
	return b.String()
}

// PartialFromSpec turns a resolved spec back into a fully constrained
// partial spec.
func PartialFromSpec(spec PackageSpec) PartialSpec {
	tc := spec.Toolchain
	suffix := spec.VersionSuffix
	return PartialSpec{
		Name:          spec.Name,
		Version:       spec.Version,
		Toolchain:     &tc,
		VersionSuffix: &suffix,
	}
}

// DependencyDecl is one declared dependency of a package description.
type DependencyDecl struct {
	Spec     PartialSpec
	Kind     DependencyKind
	Hidden   bool
	External bool
}

func (d DependencyDecl) String() string {
	return fmt.Sprintf("%s (%s)", d.Spec.String(), d.Kind)
}

// Candidate is a repository entry matching a lookup: the spec it provides
// and the metadata needed to build it.
type Candidate struct {
	Spec      PackageSpec
	Path      string
	Easyblock string
	Steps     BuildSteps
	Sources   []SourceFile
}

// SourceFile is one source archive of a description. Filename may contain
// %(name)s and %(version)s.
type SourceFile struct {
	Filename string
	URLs     []string
	Checksum string
}

// BuildSteps holds the optional shell commands of a description.
type BuildSteps struct {
	Configure string `yaml:"configure,omitempty" hcl:"configure,optional"`
	Build     string `yaml:"build,omitempty" hcl:"build,optional"`
	Install   string `yaml:"install,omitempty" hcl:"install,optional"`
}

// BuildStep is one concrete command of a build procedure.
type BuildStep struct {
	Name    string
	Command string
}

// BuildTarget is everything a builder needs to build one node.
type BuildTarget struct {
	Spec      PackageSpec
	Module    string
	Path      string
	Easyblock string
	Steps     []BuildStep
	Sources   []SourceFile
	Hidden    bool
}
