package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackforge/internal/types"
)

func TestDescriptionArchiveKeepsEveryBuild(t *testing.T) {
	robot := t.TempDir()
	descPath := writeDescription(t, robot, "HDF5.yaml", hdf5YAML)
	archive := NewDescriptionArchive(filepath.Join(t.TempDir(), "archive"))
	target := types.BuildTarget{Spec: hdf5Spec, Module: hdf5Spec.ModuleName(), Path: descPath}

	first := types.BuildStats{Module: target.Module, BuiltAt: "2025-06-15T10:30:00Z", Duration: 90 * time.Second, Easyblock: "CMakeMake"}
	second := types.BuildStats{Module: target.Module, BuiltAt: "2025-06-16T08:00:00Z", Duration: 80 * time.Second, Easyblock: "CMakeMake"}
	require.NoError(t, archive.Archive(t.Context(), target, first))
	require.NoError(t, archive.Archive(t.Context(), target, second))

	archivedPath := filepath.Join(archive.Dir, "HDF5", "HDF5-1.14.0-foss-2023a.yaml")
	data, err := os.ReadFile(archivedPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Built with stackforge on 2025-06-16T08:00:00Z\nname: HDF5\n"))

	archived, err := archive.Archived(t.Context(), "")
	require.NoError(t, err)
	want := []types.ArchivedBuild{{Name: "HDF5", Path: archivedPath, Builds: []types.BuildStats{first, second}}}
	if diff := cmp.Diff(want, archived); diff != "" {
		t.Fatalf("unexpected archive listing (-want +got):\n%s", diff)
	}

	none, err := archive.Archived(t.Context(), "zlib")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDescriptionArchiveErrors(t *testing.T) {
	target := types.BuildTarget{Spec: hdf5Spec, Module: hdf5Spec.ModuleName()}

	require.Error(t, NewDescriptionArchive("").Archive(t.Context(), target, types.BuildStats{}))
	require.Error(t, NewDescriptionArchive(t.TempDir()).Archive(t.Context(), target, types.BuildStats{}))

	target.Path = filepath.Join(t.TempDir(), "gone.yaml")
	require.Error(t, NewDescriptionArchive(t.TempDir()).Archive(t.Context(), target, types.BuildStats{}))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewDescriptionArchive(t.TempDir()).Archived(ctx, "")
	require.Error(t, err)
}
