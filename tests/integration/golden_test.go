package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackforge/internal/adapters"
	"stackforge/internal/app"
	"stackforge/internal/core"
	"stackforge/internal/types"
	"stackforge/tests/testutil"
)

// fixtureRobotPath is relative so build.order paths do not depend on where
// the repository is checked out.
var fixtureRobotPath = filepath.Join("..", "..", "fixtures", "robot")

// TestGoldenResolve resolves HDF5 against the fixture tree and compares
// build.order against a committed golden file. If the golden file does not
// exist yet (first run), it is written so it can be committed.
//
// To update the golden file after an intentional change, delete the
// testdata/golden/ directory and re-run the test.
func TestGoldenResolve(t *testing.T) {
	root := testutil.RepoRoot(t)
	goldenDir := filepath.Join(root, "tests", "integration", "testdata", "golden")

	outDir := t.TempDir()
	service := app.NewService()
	_, err := service.Resolve(t.Context(), app.ResolveRequest{
		Selection: app.Selection{
			Specs:         []string{"HDF5/1.14.0@foss/2023a"},
			RobotPaths:    []string{fixtureRobotPath},
			InstallPrefix: t.TempDir(),
		},
		OutputDir: outDir,
		WriteDOT:  true,
	})
	require.NoError(t, err)

	for _, name := range []string{"build.order", "dependencies.dot"} {
		t.Run(name, func(t *testing.T) {
			actual, err := os.ReadFile(filepath.Join(outDir, name))
			require.NoError(t, err)

			goldenPath := filepath.Join(goldenDir, name)
			if _, statErr := os.Stat(goldenPath); os.IsNotExist(statErr) {
				require.NoError(t, os.MkdirAll(goldenDir, 0o755))
				require.NoError(t, os.WriteFile(goldenPath, actual, 0o644))
				t.Logf("golden file written: %s (commit it)", goldenPath)
				return
			}

			expected, err := os.ReadFile(goldenPath)
			require.NoError(t, err)
			assert.Equal(t, string(expected), string(actual),
				"golden mismatch for %s -- delete testdata/golden/ and re-run to regenerate", name)
		})
	}
}

// TestGoldenResolveStructure checks the properties of the fixture closure
// that do not depend on the exact file layout.
func TestGoldenResolveStructure(t *testing.T) {
	repo := adapters.NewFileRepository([]string{fixtureRobotPath})
	installed := adapters.NewInstallTree(t.TempDir())
	root, err := core.ParsePartialSpec("HDF5/1.14.0@foss/2023a")
	require.NoError(t, err)

	builder := core.NewGraphBuilder(repo, repo, installed, core.NewResolutionCache())
	graph, err := builder.Build(t.Context(), []types.PartialSpec{root})
	require.NoError(t, err)
	order, err := core.Schedule(t.Context(), graph)
	require.NoError(t, err)

	t.Run("build order", func(t *testing.T) {
		want := []string{
			"GCCcore/12.3.0",
			"binutils/2.40",
			"GCC/12.3.0",
			"hwloc/2.9.1",
			"OpenMPI/4.1.5-GCC-12.3.0",
			"OpenBLAS/0.3.23-GCC-12.3.0",
			"zlib/1.2.13",
			"Szip/2.1.1-GCC-12.3.0",
			"CMake/3.26.3",
			"HDF5/1.14.0-foss-2023a",
		}
		if diff := cmp.Diff(want, order.Modules()); diff != "" {
			t.Fatalf("build order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("dependencies precede dependents", func(t *testing.T) {
		position := map[string]int{}
		for i, node := range order.Nodes {
			position[node.Module()] = i
		}
		for _, edge := range graph.Edges() {
			assert.Less(t, position[edge.To.Module()], position[edge.From.Module()],
				"%s must be built before %s", edge.To.Module(), edge.From.Module())
		}
	})

	t.Run("subtoolchain and system fallback", func(t *testing.T) {
		// Szip only exists for GCC, which foss reaches through gompi.
		szip, ok := graph.NodeByModule("Szip/2.1.1-GCC-12.3.0")
		require.True(t, ok)
		assert.Equal(t, "GCC", szip.Spec.Toolchain.Name)

		// zlib only exists for the system toolchain.
		zlib, ok := graph.NodeByModule("zlib/1.2.13")
		require.True(t, ok)
		assert.True(t, zlib.Spec.Toolchain.IsTrivial())
	})

	t.Run("only HDF5 is a root", func(t *testing.T) {
		roots := graph.Roots()
		require.Len(t, roots, 1)
		assert.Equal(t, "HDF5/1.14.0-foss-2023a", roots[0].Module())
	})
}

// TestFixtureDescriptionsValidate keeps the fixture tree valid.
func TestFixtureDescriptionsValidate(t *testing.T) {
	service := app.NewService()
	result, err := service.Validate(t.Context(), app.ValidateRequest{RobotPaths: []string{fixtureRobotPath}})
	require.NoError(t, err)
	assert.Equal(t, 12, result.Descriptions)
}
