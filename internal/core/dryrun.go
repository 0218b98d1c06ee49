package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"stackforge/internal/ports"
)

const dryRunVar = "CFGS"

type DryRunOptions struct {
	Force   bool
	Rebuild bool

	// Short replaces the common description directory with $CFGS.
	Short bool
}

// DryRun renders the build status of every node in order:
//
//	[ ] not installed, [x] installed, [F] installed root rebuilt by force,
//	[R] installed root rebuilt by rebuild.
//
// The order should come from a graph built with RetainAllDeps so that the
// dependencies of installed nodes are listed too.
func DryRun(ctx context.Context, order BuildOrder, installed ports.InstalledPort, opts DryRunOptions) ([]string, error) {
	cache := NewResolutionCache()
	lines := []string{"Dry run: printing build status of packages and dependencies"}

	var paths []string
	for _, node := range order.Nodes {
		if node.Path != "" {
			paths = append(paths, node.Path)
		}
	}
	prefix := commonDirPrefix(paths)
	short := opts.Short && len(prefix) > len(dryRunVar)*2
	if short {
		lines = append(lines, fmt.Sprintf("%s=%s", dryRunVar, prefix))
	}

	for _, node := range order.Nodes {
		isInstalled := node.External
		if !isInstalled {
			var err error
			isInstalled, err = cache.isInstalled(ctx, installed, node.Spec)
			if err != nil {
				return nil, err
			}
		}
		mark := " "
		switch {
		case !isInstalled:
		case opts.Force && node.Root:
			mark = "F"
		case opts.Rebuild && node.Root:
			mark = "R"
		default:
			mark = "x"
		}

		item := node.Path
		switch {
		case node.External:
			item = "(external)"
		case short && strings.HasPrefix(item, prefix+string(filepath.Separator)):
			item = filepath.Join("$"+dryRunVar, item[len(prefix)+1:])
		}
		lines = append(lines, fmt.Sprintf(" * [%1s] %s (module: %s)", mark, item, node.Module()))
	}
	return lines, nil
}

// commonDirPrefix returns the longest directory shared by every path.
func commonDirPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	prefix := filepath.Dir(paths[0])
	for _, path := range paths[1:] {
		for prefix != "." && prefix != string(filepath.Separator) &&
			!strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			prefix = filepath.Dir(prefix)
		}
	}
	if prefix == "." || prefix == string(filepath.Separator) {
		return ""
	}
	return prefix
}
