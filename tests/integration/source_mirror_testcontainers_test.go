//go:build integration

package integration

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"stackforge/internal/adapters"
	"stackforge/internal/app"
	"stackforge/internal/types"
)

const helloDescription = `name: hello
version: "1.0"
easyblock: Binary
sources: [hello-%%(version)s.tar.gz]
source_urls: [%s]
checksums: [%s]
`

func TestBuildFetchesSourcesFromMirrorWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers e2e in short mode")
	}

	ctx := t.Context()
	archive := helloTarball(t)
	archivePath := filepath.Join(t.TempDir(), "hello-1.0.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, archive, 0644))

	endpoint, cleanup := startSourceMirror(ctx, t, archivePath)
	t.Cleanup(cleanup)

	sum := sha256.Sum256(archive)
	robot := t.TempDir()
	descPath := filepath.Join(robot, "h", "hello", "hello-1.0.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(descPath), 0755))
	require.NoError(t, os.WriteFile(descPath,
		[]byte(fmt.Sprintf(helloDescription, endpoint, hex.EncodeToString(sum[:]))), 0644))

	prefix := t.TempDir()
	sourcePath := t.TempDir()
	service := app.NewService()
	result, err := service.Build(ctx, app.BuildRequest{
		Selection: app.Selection{
			Specs:         []string{"hello/1.0"},
			RobotPaths:    []string{robot},
			InstallPrefix: prefix,
		},
		BuildDir:   t.TempDir(),
		SourcePath: sourcePath,
		Policy:     string(types.FailurePolicyFailFast),
		Jobs:       1,
		Parallel:   1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"hello/1.0"}, result.Result.Succeeded)

	spec := types.PackageSpec{Name: "hello", Version: "1.0", Toolchain: types.Toolchain{Name: types.ToolchainSystem}}
	require.FileExists(t, filepath.Join(adapters.NewInstallTree(prefix).SoftwareDir(spec), "hello.sh"))
	require.FileExists(t, filepath.Join(sourcePath, "h", "hello", "hello-1.0.tar.gz"))
}

func helloTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	script := "#!/bin/sh\necho hello\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "hello-1.0/", Typeflag: tar.TypeDir, Mode: 0755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "hello-1.0/hello.sh", Mode: 0755, Size: int64(len(script))}))
	_, err := tw.Write([]byte(script))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func startSourceMirror(ctx context.Context, t *testing.T, archivePath string) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8081/tcp"},
		Cmd:          []string{"python", "-m", "http.server", "8081", "--directory", "/srv/sources"},
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      archivePath,
			ContainerFilePath: "/srv/sources/" + filepath.Base(archivePath),
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForListeningPort("8081/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8081/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(context.Background())
	}
	return endpoint, cleanup
}
