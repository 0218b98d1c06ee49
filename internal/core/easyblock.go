package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

// Placeholders expanded by the builder when a step runs.
const (
	PlaceholderInstallDir = "%(installdir)s"
	PlaceholderBuildDir   = "%(builddir)s"
	PlaceholderParallel   = "%(parallel)s"
	PlaceholderName       = "%(name)s"
	PlaceholderVersion    = "%(version)s"
)

// DefaultEasyblock is used for descriptions that do not name one.
const DefaultEasyblock = "ConfigureMake"

// BuildProcedure turns a description into the concrete steps that build it.
type BuildProcedure interface {
	Name() string
	Plan(candidate types.Candidate) []types.BuildStep
}

// EasyblockRegistry maps easyblock tags to build procedures.
type EasyblockRegistry struct {
	procedures map[string]BuildProcedure
}

func NewEasyblockRegistry(procedures ...BuildProcedure) EasyblockRegistry {
	registry := EasyblockRegistry{procedures: map[string]BuildProcedure{}}
	for _, p := range procedures {
		registry.procedures[p.Name()] = p
	}
	return registry
}

// DefaultEasyblocks returns a registry with the built-in procedures.
func DefaultEasyblocks() EasyblockRegistry {
	return NewEasyblockRegistry(
		configureMake{},
		cmakeMake{},
		bundle{name: "Bundle"},
		bundle{name: "Toolchain"},
		binary{},
	)
}

// Lookup returns the procedure for tag, falling back to DefaultEasyblock
// when tag is empty.
func (r EasyblockRegistry) Lookup(tag string) (BuildProcedure, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = DefaultEasyblock
	}
	p, ok := r.procedures[tag]
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown easyblock %q (known: %s)", tag, strings.Join(r.Names(), ", ")))
	}
	return p, nil
}

func (r EasyblockRegistry) Names() []string {
	names := make([]string, 0, len(r.procedures))
	for name := range r.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type configureMake struct{}

func (configureMake) Name() string { return "ConfigureMake" }

func (configureMake) Plan(candidate types.Candidate) []types.BuildStep {
	configure := "./configure --prefix=" + PlaceholderInstallDir
	if opts := candidate.Spec.Parameters["configopts"]; opts != "" {
		configure += " " + opts
	}
	return planSteps(candidate.Steps, configure, "make -j "+PlaceholderParallel, "make install")
}

type cmakeMake struct{}

func (cmakeMake) Name() string { return "CMakeMake" }

func (cmakeMake) Plan(candidate types.Candidate) []types.BuildStep {
	configure := "cmake -S . -B _build -DCMAKE_INSTALL_PREFIX=" + PlaceholderInstallDir
	if opts := candidate.Spec.Parameters["configopts"]; opts != "" {
		configure += " " + opts
	}
	return planSteps(candidate.Steps, configure, "cmake --build _build -j "+PlaceholderParallel, "cmake --install _build")
}

// bundle only installs its dependencies; it runs explicit steps if given.
type bundle struct {
	name string
}

func (b bundle) Name() string { return b.name }

func (bundle) Plan(candidate types.Candidate) []types.BuildStep {
	return planSteps(candidate.Steps, "", "", "")
}

// binary copies prebuilt files into the installation directory.
type binary struct{}

func (binary) Name() string { return "Binary" }

func (binary) Plan(candidate types.Candidate) []types.BuildStep {
	return planSteps(candidate.Steps, "", "", "cp -a . "+PlaceholderInstallDir)
}

// planSteps lets explicit description steps override procedure defaults and
// drops steps that end up empty.
func planSteps(explicit types.BuildSteps, configure string, build string, install string) []types.BuildStep {
	if explicit.Configure != "" {
		configure = explicit.Configure
	}
	if explicit.Build != "" {
		build = explicit.Build
	}
	if explicit.Install != "" {
		install = explicit.Install
	}
	var steps []types.BuildStep
	for _, step := range []types.BuildStep{
		{Name: "configure", Command: configure},
		{Name: "build", Command: build},
		{Name: "install", Command: install},
	} {
		if strings.TrimSpace(step.Command) != "" {
			steps = append(steps, step)
		}
	}
	return steps
}
