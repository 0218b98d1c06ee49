package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

// InstallTree is an installation prefix laid out as
//
//	<prefix>/software/<name>/<fullversion>      installed files
//	<prefix>/modules/all/<name>/<fullversion>   module file
//
// A package counts as installed when its module file exists. Hidden
// modules carry a leading dot in the version component.
type InstallTree struct {
	Prefix string
}

func NewInstallTree(prefix string) InstallTree {
	return InstallTree{Prefix: prefix}
}

func (t InstallTree) SoftwareDir(spec types.PackageSpec) string {
	return filepath.Join(t.Prefix, "software", spec.Name, spec.FullVersion())
}

func (t InstallTree) ModuleFile(spec types.PackageSpec, hidden bool) string {
	version := spec.FullVersion()
	if hidden {
		version = "." + version
	}
	return filepath.Join(t.Prefix, "modules", "all", spec.Name, version)
}

func (t InstallTree) IsInstalled(_ context.Context, spec types.PackageSpec) (bool, error) {
	if strings.TrimSpace(t.Prefix) == "" {
		return false, nil
	}
	for _, hidden := range []bool{false, true} {
		info, err := os.Stat(t.ModuleFile(spec, hidden))
		if err == nil {
			return !info.IsDir(), nil
		}
		if !os.IsNotExist(err) {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to check installation of %s", spec.ModuleName())).
				WithCause(err)
		}
	}
	return false, nil
}

// MarkInstalled writes the module file for target.
func (t InstallTree) MarkInstalled(target types.BuildTarget) error {
	if strings.TrimSpace(t.Prefix) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("install prefix is empty")
	}
	path := t.ModuleFile(target.Spec, target.Hidden)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create module directory").
			WithCause(err)
	}
	root := t.SoftwareDir(target.Spec)
	content := fmt.Sprintf(`#%%Module
## %s
module-whatis {%s built from %s}
setenv EBROOT%s %s
prepend-path PATH %s
prepend-path LD_LIBRARY_PATH %s
`,
		target.Module,
		target.Module,
		target.Path,
		envName(target.Spec.Name),
		root,
		filepath.Join(root, "bin"),
		filepath.Join(root, "lib"),
	)
	return writeFile(path, content)
}

// envName upper-cases name for use in an EBROOT variable: "-" becomes
// "MINUS" and other characters outside [A-Z0-9] become "_".
func envName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r == '-':
			b.WriteString("MINUS")
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ ports.InstalledPort = InstallTree{}
