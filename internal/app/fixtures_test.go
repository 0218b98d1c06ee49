package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

const (
	appYAML = `name: app
version: "2.0"
easyblock: Bundle
dependencies:
  - {name: lib, version: "1.0"}
builddependencies:
  - {name: CMake, version: 3.26.3}
steps:
  install: echo app > %(installdir)s/app.txt
`
	libYAML = `name: lib
version: "1.0"
easyblock: Bundle
steps:
  install: echo lib > %(installdir)s/lib.txt
`
	cmakeHCL = `package {
  name      = "CMake"
  version   = "3.26.3"
  easyblock = "Bundle"
  steps {
    install = "echo cmake > %(installdir)s/cmake.txt"
  }
}
`
)

func writeFile(t *testing.T, root string, rel string, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// robotTree writes app -> lib (runtime) and app -> CMake (build).
func robotTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "a/app/app-2.0.yaml", appYAML)
	writeFile(t, root, "l/lib/lib-1.0.yaml", libYAML)
	writeFile(t, root, "c/CMake/CMake-3.26.3.hcl", cmakeHCL)
	return root
}

// recordingBuilder records build calls and fails the listed modules.
type recordingBuilder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func newRecordingBuilder(failing ...string) *recordingBuilder {
	b := &recordingBuilder{fail: map[string]bool{}}
	for _, module := range failing {
		b.fail[module] = true
	}
	return b
}

func (b *recordingBuilder) Build(_ context.Context, target types.BuildTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, target.Module)
	if b.fail[target.Module] {
		return fmt.Errorf("install step of %s failed", target.Module)
	}
	return nil
}

func (b *recordingBuilder) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func serviceWithBuilder(builder ports.BuilderPort) Service {
	service := NewService()
	service.NewBuilder = func(BuildRequest) ports.BuilderPort {
		return builder
	}
	return service
}

func orderModules(entries []types.OrderEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Module)
	}
	return out
}
