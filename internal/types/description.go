package types

// DescriptionFile is the on-disk shape of a package description. The same
// struct is decoded from YAML and from the body of an HCL "package" block.
type DescriptionFile struct {
	Name                string            `yaml:"name" hcl:"name,attr"`
	Version             string            `yaml:"version" hcl:"version,attr"`
	VersionSuffix       string            `yaml:"versionsuffix,omitempty" hcl:"versionsuffix,optional"`
	Toolchain           *Toolchain        `yaml:"toolchain,omitempty" hcl:"toolchain,block"`
	Easyblock           string            `yaml:"easyblock,omitempty" hcl:"easyblock,optional"`
	Parameters          map[string]string `yaml:"parameters,omitempty" hcl:"parameters,optional"`
	Dependencies        []DependencyEntry `yaml:"dependencies,omitempty" hcl:"dependency,block"`
	BuildDependencies   []DependencyEntry `yaml:"builddependencies,omitempty" hcl:"builddependency,block"`
	ToolchainComponents []DependencyEntry `yaml:"toolchain_components,omitempty" hcl:"toolchain_component,block"`
	Subtoolchains       []Toolchain       `yaml:"subtoolchains,omitempty" hcl:"subtoolchain,block"`
	Steps               *BuildSteps       `yaml:"steps,omitempty" hcl:"steps,block"`
	Sources             []string          `yaml:"sources,omitempty" hcl:"sources,optional"`
	SourceURLs          []string          `yaml:"source_urls,omitempty" hcl:"source_urls,optional"`
	Checksums           []string          `yaml:"checksums,omitempty" hcl:"checksums,optional"`
}

// DependencyEntry is a dependency as written in a description file.
type DependencyEntry struct {
	Name          string     `yaml:"name" hcl:"name,label"`
	Version       string     `yaml:"version,omitempty" hcl:"version,optional"`
	VersionSuffix *string    `yaml:"versionsuffix,omitempty" hcl:"versionsuffix,optional"`
	Toolchain     *Toolchain `yaml:"toolchain,omitempty" hcl:"toolchain,block"`
	Hidden        bool       `yaml:"hidden,omitempty" hcl:"hidden,optional"`
	External      bool       `yaml:"external,omitempty" hcl:"external,optional"`
}

// Spec returns the package identity the description provides.
func (d DescriptionFile) Spec() PackageSpec {
	var tc Toolchain
	if d.Toolchain != nil {
		tc = *d.Toolchain
	}
	return PackageSpec{
		Name:          d.Name,
		Version:       d.Version,
		Toolchain:     tc.Normalized(),
		VersionSuffix: d.VersionSuffix,
		Parameters:    d.Parameters,
	}
}

// SourceFiles pairs every source with its checksum, if any. All sources
// share the description's source URLs.
func (d DescriptionFile) SourceFiles() []SourceFile {
	var out []SourceFile
	for i, name := range d.Sources {
		file := SourceFile{Filename: name, URLs: d.SourceURLs}
		if i < len(d.Checksums) {
			file.Checksum = d.Checksums[i]
		}
		out = append(out, file)
	}
	return out
}

// Partial converts the entry into a partial spec. An entry without a suffix
// asks for the empty suffix; one without a toolchain leaves it open so the
// parent toolchain can be inherited.
func (e DependencyEntry) Partial() PartialSpec {
	suffix := ""
	if e.VersionSuffix != nil {
		suffix = *e.VersionSuffix
	}
	var tc *Toolchain
	if e.Toolchain != nil {
		t := *e.Toolchain
		tc = &t
	}
	return PartialSpec{
		Name:          e.Name,
		Version:       e.Version,
		Toolchain:     tc,
		VersionSuffix: &suffix,
	}
}

// Decl converts the entry into a typed dependency declaration.
func (e DependencyEntry) Decl(kind DependencyKind) DependencyDecl {
	return DependencyDecl{
		Spec:     e.Partial(),
		Kind:     kind,
		Hidden:   e.Hidden,
		External: e.External,
	}
}

// Easystack lists the packages to install in one invocation.
type Easystack struct {
	Easyconfigs []string `yaml:"easyconfigs"`
	RobotPaths  []string `yaml:"robot_paths,omitempty"`
}

// DescriptionRecord is a parsed description together with the file it came
// from.
type DescriptionRecord struct {
	Path        string
	Description DescriptionFile
}
