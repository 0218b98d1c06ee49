package ports

import "stackforge/internal/types"

type OutputPort interface {
	WriteBuildOrder(entries []types.OrderEntry) error
	WriteGraphDOT(graph types.GraphView) error
	WriteRunReport(report types.RunReport) error
}
