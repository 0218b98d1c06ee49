package adapters

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackforge/internal/types"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sourceServer(t *testing.T, files map[string][]byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func sourceTarget(urls []string, sources ...types.SourceFile) types.BuildTarget {
	for i := range sources {
		sources[i].URLs = urls
	}
	spec := types.PackageSpec{Name: "zlib", Version: "1.2.13"}
	return types.BuildTarget{Spec: spec, Module: spec.ModuleName(), Sources: sources}
}

func TestSourceFetcherDownloadsVerifiesAndUnpacks(t *testing.T) {
	archive := tarball(t, map[string]string{"zlib-1.2.13/configure": "#!/bin/sh\n"})
	var hits atomic.Int32
	server := sourceServer(t, map[string][]byte{"/src/zlib-1.2.13.tar.gz": archive}, &hits)

	fetcher := NewSourceFetcher(t.TempDir(), time.Second, 1)
	target := sourceTarget([]string{server.URL + "/src/"}, types.SourceFile{Filename: "%(name)s-%(version)s.tar.gz", Checksum: sha256Hex(archive)})

	buildDir := t.TempDir()
	require.NoError(t, fetcher.Fetch(t.Context(), target, buildDir))
	assert.FileExists(t, filepath.Join(buildDir, "zlib-1.2.13", "configure"))
	assert.FileExists(t, filepath.Join(fetcher.SourcePath, "z", "zlib", "zlib-1.2.13.tar.gz"))
	assert.Equal(t, filepath.Join(buildDir, "zlib-1.2.13"), startDir(buildDir))

	// The second fetch is served from the cache.
	require.NoError(t, fetcher.Fetch(t.Context(), target, t.TempDir()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestSourceFetcherFallsBackToNextURL(t *testing.T) {
	patch := []byte("--- a\n+++ b\n")
	var hits atomic.Int32
	server := sourceServer(t, map[string][]byte{"/mirror/fix.patch": patch}, &hits)

	fetcher := NewSourceFetcher(t.TempDir(), time.Second, 1)
	target := sourceTarget([]string{server.URL + "/missing", server.URL + "/mirror"}, types.SourceFile{Filename: "fix.patch"})

	buildDir := t.TempDir()
	require.NoError(t, fetcher.Fetch(t.Context(), target, buildDir))
	data, err := os.ReadFile(filepath.Join(buildDir, "fix.patch"))
	require.NoError(t, err)
	assert.Equal(t, patch, data)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSourceFetcherChecksumMismatch(t *testing.T) {
	var hits atomic.Int32
	server := sourceServer(t, map[string][]byte{"/zlib.tar.gz": []byte("tampered")}, &hits)

	fetcher := NewSourceFetcher(t.TempDir(), time.Second, 1)
	target := sourceTarget([]string{server.URL}, types.SourceFile{Filename: "zlib.tar.gz", Checksum: "d41d8cd98f00b204e9800998ecf8427e"})

	err := fetcher.Fetch(t.Context(), target, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.NoFileExists(t, fetcher.CachePath("zlib", "zlib.tar.gz"))
}

func TestSourceFetcherWithoutURLs(t *testing.T) {
	fetcher := NewSourceFetcher(t.TempDir(), time.Second, 1)
	err := fetcher.Fetch(t.Context(), sourceTarget(nil, types.SourceFile{Filename: "zlib.tar.gz"}), t.TempDir())
	require.Error(t, err)

	require.NoError(t, fetcher.Fetch(t.Context(), sourceTarget(nil), t.TempDir()))
}

func TestShellBuilderRunsInsideUnpackedSources(t *testing.T) {
	archive := tarball(t, map[string]string{"zlib-1.2.13/VERSION": "1.2.13\n"})
	var hits atomic.Int32
	server := sourceServer(t, map[string][]byte{"/zlib-1.2.13.tar.gz": archive}, &hits)

	root := t.TempDir()
	builder := NewShellBuilder(filepath.Join(root, "build"), NewInstallTree(filepath.Join(root, "prefix")), 1)
	builder.Sources = NewSourceFetcher(filepath.Join(root, "sources"), time.Second, 1)

	target := sourceTarget([]string{server.URL}, types.SourceFile{Filename: "zlib-1.2.13.tar.gz"})
	target.Steps = []types.BuildStep{{Name: "install", Command: "cp VERSION %(installdir)s/"}}
	require.NoError(t, builder.Build(t.Context(), target))

	assert.FileExists(t, filepath.Join(builder.Install.SoftwareDir(target.Spec), "VERSION"))
}
