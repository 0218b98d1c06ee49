package app

import (
	"time"

	"stackforge/internal/adapters"
	"stackforge/internal/core"
	"stackforge/internal/ports"
)

// Repository is everything the service needs from a set of robot paths.
type Repository interface {
	ports.RepositoryPort
	ports.ToolchainPort
	ports.SearchPort
	ports.DescriptionCatalogPort
}

type Service struct {
	OpenRepository func(robotPaths []string) Repository
	OpenInstalled  func(prefix string) ports.InstalledPort
	NewBuilder     func(req BuildRequest) ports.BuilderPort
	Descriptions   adapters.DescriptionFileAdapter
	OutputReader   ports.OutputReaderPort
	Easyblocks     core.EasyblockRegistry
	Clock          func() time.Time
}

func NewService() Service {
	return Service{
		OpenRepository: func(robotPaths []string) Repository {
			return adapters.NewFileRepository(robotPaths)
		},
		OpenInstalled: func(prefix string) ports.InstalledPort {
			return adapters.NewInstallTree(prefix)
		},
		NewBuilder:   newShellBuilder,
		Descriptions: adapters.NewDescriptionFileAdapter(),
		OutputReader: adapters.NewOutputReaderAdapter(),
		Easyblocks:   core.DefaultEasyblocks(),
		Clock:        time.Now,
	}
}

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
