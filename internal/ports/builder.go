package ports

import (
	"context"
	"time"

	"stackforge/internal/types"
)

// BuilderPort builds and installs a single node. A returned error marks the
// node FAILED; it never aborts the run by itself.
type BuilderPort interface {
	Build(ctx context.Context, target types.BuildTarget) error
}

// RunObserverPort receives per-node progress from the executor.
type RunObserverPort interface {
	NodeStarted(target types.BuildTarget)
	NodeFinished(target types.BuildTarget, state types.NodeState, elapsed time.Duration)
}

// SourceFetcherPort places the verified source files of a target in dir.
type SourceFetcherPort interface {
	Fetch(ctx context.Context, target types.BuildTarget, dir string) error
}

// ArchivePort keeps a copy of the description of every successful build.
type ArchivePort interface {
	Archive(ctx context.Context, target types.BuildTarget, stats types.BuildStats) error
}

type ArchiveReaderPort interface {
	Archived(ctx context.Context, name string) ([]types.ArchivedBuild, error)
}
