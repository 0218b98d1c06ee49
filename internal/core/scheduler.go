package core

import (
	"container/heap"
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/types"
)

// BuildOrder lists every node of a graph with each dependency before its
// dependents. SKIPPED nodes are included so the order describes the whole
// closure.
type BuildOrder struct {
	Graph *DependencyGraph
	Nodes []*PackageNode
}

// Modules returns the module names in order.
func (o BuildOrder) Modules() []string {
	out := make([]string, 0, len(o.Nodes))
	for _, node := range o.Nodes {
		out = append(out, node.Module())
	}
	return out
}

// Entries renders the order for persistence.
func (o BuildOrder) Entries() []types.OrderEntry {
	out := make([]types.OrderEntry, 0, len(o.Nodes))
	for _, node := range o.Nodes {
		out = append(out, types.OrderEntry{
			Module:    node.Module(),
			Path:      node.Path,
			State:     node.State(),
			Easyblock: node.Easyblock,
			Root:      node.Root,
		})
	}
	return out
}

// readyQueue is a min-heap of node discovery indexes.
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(int))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Schedule orders the graph with Kahn's algorithm. Among nodes that are
// ready at the same time the one discovered first goes first, so the same
// graph always yields the same order. Nodes left over after the queue
// drains form a cycle, which the graph builder should already have rejected;
// they are reported as an internal CyclicDependencyError.
func Schedule(ctx context.Context, graph *DependencyGraph) (BuildOrder, error) {
	if graph == nil {
		return BuildOrder{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot schedule a nil graph")
	}
	n := len(graph.nodes)
	remaining := make([]int, n)
	ready := &readyQueue{}
	for i := 0; i < n; i++ {
		remaining[i] = len(graph.deps[i])
		if remaining[i] == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	order := BuildOrder{Graph: graph, Nodes: make([]*PackageNode, 0, n)}
	for ready.Len() > 0 {
		idx := heap.Pop(ready).(int)
		order.Nodes = append(order.Nodes, graph.nodes[idx])
		for _, dependent := range graph.dependents[idx] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(order.Nodes) != n {
		return BuildOrder{}, &CyclicDependencyError{
			Cycle:    findCycle(graph, remaining),
			Internal: true,
		}
	}
	log.Ctx(ctx).Debug().Int("nodes", n).Msg("build order computed")
	return order, nil
}

// findCycle walks dependency edges among unscheduled nodes until a node
// repeats. Every unscheduled node has at least one unscheduled dependency,
// so the walk always closes.
func findCycle(graph *DependencyGraph, remaining []int) []string {
	start := -1
	for i, count := range remaining {
		if count > 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	position := map[int]int{}
	var path []int
	current := start
	for {
		if pos, ok := position[current]; ok {
			cycle := make([]string, 0, len(path)-pos+1)
			for _, idx := range path[pos:] {
				cycle = append(cycle, graph.nodes[idx].Module())
			}
			return append(cycle, graph.nodes[current].Module())
		}
		position[current] = len(path)
		path = append(path, current)
		next := -1
		for _, dep := range graph.deps[current] {
			if remaining[dep] > 0 {
				next = dep
				break
			}
		}
		if next < 0 {
			return nil
		}
		current = next
	}
}
