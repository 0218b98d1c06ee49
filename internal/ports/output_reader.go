package ports

import "stackforge/internal/types"

type OutputReaderPort interface {
	ReadBuildOrder(path string) ([]types.OrderEntry, error)
	ReadRunReport(path string) (types.RunReport, error)
}
