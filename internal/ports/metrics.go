package ports

import "stackforge/internal/types"

type MetricsPort interface {
	RunObserverPort
	Flush(result types.RunResult) error
}
