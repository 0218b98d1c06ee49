package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"stackforge/internal/types"
)

func robotTree(t *testing.T) (string, string) {
	t.Helper()
	primary := t.TempDir()
	secondary := t.TempDir()

	writeDescription(t, primary, "h/HDF5/HDF5-1.14.0-foss-2023a.yaml", hdf5YAML)
	writeDescription(t, primary, "z/zlib/zlib-1.2.13.yaml", "name: zlib\nversion: 1.2.13\nsteps: {configure: ./configure --prefix=/primary}\n")
	writeDescription(t, primary, "f/foss/foss-2023a.yaml", `name: foss
version: 2023a
easyblock: Toolchain
toolchain_components:
  - {name: GCC, version: 12.3.0}
  - {name: OpenMPI, version: 4.1.5, toolchain: {name: GCC, version: 12.3.0}}
subtoolchains:
  - {name: gompi, version: 2023a}
`)
	writeDescription(t, primary, "__archive__/z/zlib-1.2.8.yaml", "name: zlib\nversion: 1.2.8\n")
	writeDescription(t, primary, ".git/objects/junk.yaml", "name: junk\nversion: 1\n")
	writeDescription(t, primary, "c/CMake/CMake-3.26.3.hcl", "package {\n  name = \"CMake\"\n  version = \"3.26.3\"\n}\n")
	writeDescription(t, primary, "c/CMake/README.md", "not a description")

	writeDescription(t, secondary, "zlib-1.2.13.yaml", "name: zlib\nversion: 1.2.13\nsteps: {configure: ./configure --prefix=/secondary}\n")
	writeDescription(t, secondary, "zlib-1.3.0.yaml", "name: zlib\nversion: 1.3.0\n")
	return primary, secondary
}

func TestFileRepositoryLookupFirstPathWins(t *testing.T) {
	primary, secondary := robotTree(t)
	repo := NewFileRepository([]string{primary, secondary})

	candidates, err := repo.Lookup(t.Context(), types.PartialSpec{Name: "zlib"})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "zlib/1.2.13", candidates[0].Spec.ModuleName())
	assert.Equal(t, "./configure --prefix=/primary", candidates[0].Steps.Configure)
	assert.Equal(t, filepath.Join(primary, "z/zlib/zlib-1.2.13.yaml"), candidates[0].Path)
	assert.Equal(t, "zlib/1.3.0", candidates[1].Spec.ModuleName())

	none, err := repo.Lookup(t.Context(), types.PartialSpec{Name: "junk"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileRepositoryLoadDependencies(t *testing.T) {
	primary, _ := robotTree(t)
	repo := NewFileRepository([]string{primary})

	candidates, err := repo.Lookup(t.Context(), types.PartialSpec{Name: "HDF5"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	decls, err := repo.LoadDependencies(t.Context(), candidates[0].Spec)
	require.NoError(t, err)
	var got []string
	for _, decl := range decls {
		got = append(got, decl.String())
	}
	want := []string{"zlib/1.2.13 (runtime)", "Szip/2.1.1@GCCcore/12.3.0 (runtime)", "CMake/3.26.3@system (build)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected declarations (-want +got):\n%s", diff)
	}
	assert.True(t, decls[1].Hidden)
	assert.Nil(t, decls[0].Spec.Toolchain)

	_, err = repo.LoadDependencies(t.Context(), types.PackageSpec{Name: "HDF5", Version: "9.9"})
	require.Error(t, err)
}

func TestFileRepositoryToolchains(t *testing.T) {
	primary, _ := robotTree(t)
	repo := NewFileRepository([]string{primary})
	foss := types.Toolchain{Name: "foss", Version: "2023a"}

	components, err := repo.Components(t.Context(), foss)
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, "system", components[0].Toolchain.Name)
	assert.Equal(t, "GCC", components[1].Toolchain.Name)

	subs, err := repo.Subtoolchains(t.Context(), foss)
	require.NoError(t, err)
	assert.Equal(t, []types.Toolchain{{Name: "gompi", Version: "2023a"}}, subs)

	_, err = repo.Components(t.Context(), types.Toolchain{Name: "intel", Version: "2023a"})
	require.Error(t, err)
}

func TestFileRepositorySearch(t *testing.T) {
	primary, secondary := robotTree(t)
	repo := NewFileRepository([]string{primary, secondary})

	found, err := repo.Search(t.Context(), "ZLIB")
	require.NoError(t, err)
	assert.Len(t, found, 3)
	for _, path := range found {
		assert.NotContains(t, path, "__archive__")
	}

	all, err := repo.Search(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestFileRepositoryCollectsLoadErrors(t *testing.T) {
	primary, _ := robotTree(t)
	writeDescription(t, primary, "b/broken.yaml", "name: [oops")
	writeDescription(t, primary, "b/nameless.yaml", "version: 1.0\n")
	repo := NewFileRepository([]string{primary})

	records, err := repo.Descriptions(t.Context())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Len(t, records, 4)

	// Lookups keep working around broken files.
	candidates, err := repo.Lookup(t.Context(), types.PartialSpec{Name: "CMake"})
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestFileRepositoryRejectsBadRobotPaths(t *testing.T) {
	_, err := NewFileRepository(nil).Lookup(t.Context(), types.PartialSpec{Name: "zlib"})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a\n"), 0644))
	_, err = NewFileRepository([]string{file}).Lookup(t.Context(), types.PartialSpec{Name: "zlib"})
	require.Error(t, err)
}
