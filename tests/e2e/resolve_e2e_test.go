package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackforge/tests/testutil"
)

func runStackforge(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "./cmd/stackforge"}, args...)...)
	cmd.Dir = testutil.RepoRoot(t)
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestResolveCommandE2E(t *testing.T) {
	outDir := t.TempDir()

	out, err := runStackforge(t, "resolve", "HDF5/1.14.0@foss/2023a",
		"--robot-path", "fixtures/robot",
		"--install-prefix", t.TempDir(),
		"--output", outDir,
		"--dot",
	)
	require.NoError(t, err, out)

	require.FileExists(t, filepath.Join(outDir, "build.order"))
	require.FileExists(t, filepath.Join(outDir, "dependencies.dot"))
	assert.Contains(t, out, "HDF5/1.14.0-foss-2023a\tresolved")
}

func TestEasystackDryRunE2E(t *testing.T) {
	out, err := runStackforge(t, "dry-run",
		"--easystack", "fixtures/easystack.yaml",
		"--install-prefix", t.TempDir(),
	)
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var marked []string
	for _, line := range lines {
		if strings.HasPrefix(line, " * [") {
			marked = append(marked, line)
		}
	}
	require.Len(t, marked, 10, out)
	assert.Contains(t, marked[len(marked)-1], "HDF5-1.14.0-foss-2023a.yaml")
}

func TestMissingPackageExitCodeE2E(t *testing.T) {
	out, err := runStackforge(t, "resolve", "NoSuchPackage", "--robot-path", "fixtures/robot")
	require.Error(t, err, out)

	// go run reports the program's status instead of always exiting with it.
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	if exitErr.ExitCode() != 4 {
		assert.Contains(t, out, "exit status 4")
	}
	assert.Contains(t, out, "NoSuchPackage")
}
