package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackforge/internal/adapters"
	"stackforge/internal/core"
)

func TestResolveWritesBuildOrder(t *testing.T) {
	robot := robotTree(t)
	outputDir := t.TempDir()

	result, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robot}},
		OutputDir: outputDir,
		WriteDOT:  true,
	})
	require.NoError(t, err)

	want := []string{"lib/1.0", "CMake/3.26.3", "app/2.0"}
	if diff := cmp.Diff(want, orderModules(result.Order)); diff != "" {
		t.Fatalf("unexpected build order (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"app"}, result.Roots)
	assert.True(t, result.Order[2].Root)
	assert.Equal(t, "Bundle", result.Order[0].Easyblock)

	written, err := adapters.NewOutputReaderAdapter().ReadBuildOrder(filepath.Join(outputDir, adapters.BuildOrderFile))
	require.NoError(t, err)
	if diff := cmp.Diff(result.Order, written); diff != "" {
		t.Fatalf("unexpected build.order (-want +got):\n%s", diff)
	}
	dot, err := os.ReadFile(filepath.Join(outputDir, adapters.GraphDOTFile))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph dependencies {")
}

func TestResolveWithoutOutputWritesNothing(t *testing.T) {
	result, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"lib"}, RobotPaths: []string{robotTree(t)}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/1.0"}, orderModules(result.Order))
	assert.Empty(t, result.OutputDir)
}

func TestResolveRequiresInput(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "no specs", sel: Selection{RobotPaths: []string{t.TempDir()}}},
		{name: "no robot paths", sel: Selection{Specs: []string{"app"}}},
		{name: "bad toolchain", sel: Selection{Specs: []string{"app"}, RobotPaths: []string{t.TempDir()}, Toolchain: "/2023a"}},
		{name: "bad override", sel: Selection{Specs: []string{"app"}, RobotPaths: []string{t.TempDir()}, Overrides: []string{"lib=upgrade"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService().Resolve(t.Context(), ResolveRequest{Selection: tt.sel})
			require.Error(t, err)
			if diff := cmp.Diff(errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err)); diff != "" {
				t.Fatalf("unexpected error code (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveMissingRoot(t *testing.T) {
	_, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"netCDF"}, RobotPaths: []string{robotTree(t)}},
	})
	var notFound *core.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "netCDF", notFound.Spec.Name)
}

func TestResolveMissingDependencyNamesChain(t *testing.T) {
	robot := robotTree(t)
	require.NoError(t, os.Remove(filepath.Join(robot, "l/lib/lib-1.0.yaml")))

	_, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robot}},
	})
	var unresolvable *core.UnresolvableDependencyError
	require.True(t, errors.As(err, &unresolvable))
	assert.Equal(t, "app/2.0", unresolvable.Requester)
	assert.Equal(t, "lib", unresolvable.Missing.Name)
}

func TestResolveFromEasystack(t *testing.T) {
	robot := robotTree(t)
	stack := writeFile(t, t.TempDir(), "easystack.yaml", "easyconfigs:\n  - app\nrobot_paths:\n  - "+robot+"\n")

	result, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Easystack: stack},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/1.0", "CMake/3.26.3", "app/2.0"}, orderModules(result.Order))
}

func TestResolveAppliesDependencyPolicy(t *testing.T) {
	robot := robotTree(t)

	filtered, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robot}, FilterDeps: []string{"build:CMake"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/1.0", "app/2.0"}, orderModules(filtered.Order))

	_, err = NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robot}, Overrides: []string{"lib=block"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by override")
}

func TestResolveSkipsInstalledDependencies(t *testing.T) {
	robot := robotTree(t)
	prefix := t.TempDir()
	writeFile(t, prefix, "modules/all/lib/1.0", "#%Module\n")

	result, err := NewService().Resolve(t.Context(), ResolveRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robot}, InstallPrefix: prefix},
	})
	require.NoError(t, err)
	require.Len(t, result.Order, 3)
	assert.Equal(t, "skipped", string(result.Order[0].State))
	assert.Equal(t, "resolved", string(result.Order[2].State))
}

func TestDryRunMarksInstalled(t *testing.T) {
	robot := robotTree(t)
	prefix := t.TempDir()
	writeFile(t, prefix, "modules/all/lib/1.0", "#%Module\n")

	result, err := NewService().DryRun(t.Context(), DryRunRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robot}, InstallPrefix: prefix},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 4)
	assert.Equal(t, " * [x] "+filepath.Join(robot, "l/lib/lib-1.0.yaml")+" (module: lib/1.0)", result.Lines[1])
	assert.True(t, strings.HasPrefix(result.Lines[2], " * [ ] "))
	assert.True(t, strings.HasSuffix(result.Lines[3], "(module: app/2.0)"))
}

func TestGraphRendersDOT(t *testing.T) {
	result, err := NewService().Graph(t.Context(), GraphRequest{
		Selection: Selection{Specs: []string{"app"}, RobotPaths: []string{robotTree(t)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Nodes)
	assert.Equal(t, 2, result.Edges)
	assert.True(t, strings.HasPrefix(result.DOT, "digraph dependencies {"))
	assert.Contains(t, result.DOT, "\"app/2.0\" -> \"CMake/3.26.3\"")
}

func TestSearch(t *testing.T) {
	robot := robotTree(t)
	service := NewService()

	result, err := service.Search(t.Context(), SearchRequest{RobotPaths: []string{robot}, Query: "cmake"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(robot, "c/CMake/CMake-3.26.3.hcl")}, result.Paths)

	_, err = service.Search(t.Context(), SearchRequest{RobotPaths: []string{robot}})
	require.Error(t, err)
}
