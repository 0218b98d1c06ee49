package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

const statsSuffix = ".stats.yaml"

// DescriptionArchive keeps a copy of every successfully built description
// under <dir>/<name>/<name>-<fullversion><ext>, with the build statistics
// of every build of it in a sibling stats file.
type DescriptionArchive struct {
	Dir string
}

func NewDescriptionArchive(dir string) DescriptionArchive {
	return DescriptionArchive{Dir: dir}
}

func (a DescriptionArchive) Archive(ctx context.Context, target types.BuildTarget, stats types.BuildStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive directory is empty")
	}
	if strings.TrimSpace(target.Path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s has no description file to archive", target.Module))
	}
	content, err := os.ReadFile(target.Path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read description for archive").
			WithCause(err)
	}
	dir := filepath.Join(a.Dir, target.Spec.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create archive directory").
			WithCause(err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s%s", target.Spec.Name, target.Spec.FullVersion(), filepath.Ext(target.Path)))
	header := fmt.Sprintf("# Built with stackforge on %s\n", stats.BuiltAt)
	if err := writeFile(path, header+string(content)); err != nil {
		return err
	}

	previous, err := readStats(path + statsSuffix)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(append(previous, stats))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode build stats").
			WithCause(err)
	}
	return writeFile(path+statsSuffix, string(data))
}

// Archived lists archived descriptions, optionally only those of name.
func (a DescriptionArchive) Archived(ctx context.Context, name string) ([]types.ArchivedBuild, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Dir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive directory is empty")
	}
	pattern := filepath.Join(a.Dir, "*", "*")
	if name != "" {
		pattern = filepath.Join(a.Dir, name, "*")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid archive lookup").
			WithCause(err)
	}
	sort.Strings(matches)
	var out []types.ArchivedBuild
	for _, path := range matches {
		if strings.HasSuffix(path, statsSuffix) || !IsDescriptionFile(path) {
			continue
		}
		builds, err := readStats(path + statsSuffix)
		if err != nil {
			return nil, err
		}
		out = append(out, types.ArchivedBuild{
			Name:   filepath.Base(filepath.Dir(path)),
			Path:   path,
			Builds: builds,
		})
	}
	return out, nil
}

func readStats(path string) ([]types.BuildStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read build stats").
			WithCause(err)
	}
	var stats []types.BuildStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid build stats file: %s", path)).
			WithCause(err)
	}
	return stats, nil
}

var (
	_ ports.ArchivePort       = DescriptionArchive{}
	_ ports.ArchiveReaderPort = DescriptionArchive{}
)
