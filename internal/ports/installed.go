package ports

import (
	"context"

	"stackforge/internal/types"
)

type InstalledPort interface {
	IsInstalled(ctx context.Context, spec types.PackageSpec) (bool, error)
}
