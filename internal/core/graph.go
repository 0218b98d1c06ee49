package core

import (
	"stackforge/internal/types"
)

// PackageNode is one package in a dependency graph.
type PackageNode struct {
	Spec      types.PackageSpec
	Path      string
	Easyblock string
	Steps     []types.BuildStep
	Sources   []types.SourceFile
	Hidden    bool
	External  bool
	Root      bool
	Forced    bool

	index int
	state types.NodeState
}

func (n *PackageNode) Module() string {
	return n.Spec.ModuleName()
}

// Index is the discovery position of the node in its graph.
func (n *PackageNode) Index() int {
	return n.index
}

// State is the state reached during graph construction: RESOLVED, or
// SKIPPED for installed closure leaves.
func (n *PackageNode) State() types.NodeState {
	return n.state
}

func (n *PackageNode) Target() types.BuildTarget {
	return types.BuildTarget{
		Spec:      n.Spec,
		Module:    n.Module(),
		Path:      n.Path,
		Easyblock: n.Easyblock,
		Steps:     n.Steps,
		Sources:   n.Sources,
		Hidden:    n.Hidden,
	}
}

type DependencyEdge struct {
	From *PackageNode
	To   *PackageNode
	Kind types.DependencyKind
}

type edgeKey struct {
	from int
	to   int
	kind types.DependencyKind
}

// DependencyGraph holds nodes in discovery order and typed edges from a
// dependent to its dependency. Nodes are deduplicated by spec equivalence.
type DependencyGraph struct {
	nodes      []*PackageNode
	byKey      map[types.SpecKey]*PackageNode
	edges      []DependencyEdge
	edgeSeen   map[edgeKey]bool
	deps       [][]int
	dependents [][]int
}

func newDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		byKey:    map[types.SpecKey]*PackageNode{},
		edgeSeen: map[edgeKey]bool{},
	}
}

// intern returns the node equivalent to spec, creating it when missing.
func (g *DependencyGraph) intern(candidate types.Candidate) (*PackageNode, bool) {
	key := candidate.Spec.Key()
	if node, ok := g.byKey[key]; ok {
		return node, false
	}
	node := &PackageNode{
		Spec:      candidate.Spec,
		Path:      candidate.Path,
		Easyblock: candidate.Easyblock,
		Sources:   candidate.Sources,
		index:     len(g.nodes),
		state:     types.NodeStateUnresolved,
	}
	g.nodes = append(g.nodes, node)
	g.byKey[key] = node
	g.deps = append(g.deps, nil)
	g.dependents = append(g.dependents, nil)
	return node, true
}

func (g *DependencyGraph) addEdge(from *PackageNode, to *PackageNode, kind types.DependencyKind) {
	key := edgeKey{from: from.index, to: to.index, kind: kind}
	if g.edgeSeen[key] {
		return
	}
	g.edgeSeen[key] = true
	g.edges = append(g.edges, DependencyEdge{From: from, To: to, Kind: kind})
	if !containsIndex(g.deps[from.index], to.index) {
		g.deps[from.index] = append(g.deps[from.index], to.index)
		g.dependents[to.index] = append(g.dependents[to.index], from.index)
	}
}

func containsIndex(list []int, value int) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// Nodes returns the nodes in discovery order.
func (g *DependencyGraph) Nodes() []*PackageNode {
	out := make([]*PackageNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *DependencyGraph) Edges() []DependencyEdge {
	out := make([]DependencyEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

func (g *DependencyGraph) Node(spec types.PackageSpec) (*PackageNode, bool) {
	node, ok := g.byKey[spec.Key()]
	return node, ok
}

// NodeByModule finds a node by its full module name.
func (g *DependencyGraph) NodeByModule(module string) (*PackageNode, bool) {
	for _, node := range g.nodes {
		if node.Module() == module {
			return node, true
		}
	}
	return nil, false
}

func (g *DependencyGraph) Roots() []*PackageNode {
	var out []*PackageNode
	for _, node := range g.nodes {
		if node.Root {
			out = append(out, node)
		}
	}
	return out
}

// Dependencies returns the direct dependencies of node, in the order their
// edges were added.
func (g *DependencyGraph) Dependencies(node *PackageNode) []*PackageNode {
	return g.lookupAll(g.deps[node.index])
}

// Dependents returns the nodes that directly depend on node.
func (g *DependencyGraph) Dependents(node *PackageNode) []*PackageNode {
	return g.lookupAll(g.dependents[node.index])
}

// TransitiveDependents returns every node that depends on node directly or
// indirectly, in discovery order.
func (g *DependencyGraph) TransitiveDependents(node *PackageNode) []*PackageNode {
	seen := make([]bool, len(g.nodes))
	queue := append([]int(nil), g.dependents[node.index]...)
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if seen[idx] {
			continue
		}
		seen[idx] = true
		queue = append(queue, g.dependents[idx]...)
	}
	var out []*PackageNode
	for idx, ok := range seen {
		if ok {
			out = append(out, g.nodes[idx])
		}
	}
	return out
}

func (g *DependencyGraph) lookupAll(indexes []int) []*PackageNode {
	out := make([]*PackageNode, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, g.nodes[idx])
	}
	return out
}

// View returns a presentation snapshot of the graph.
func (g *DependencyGraph) View() types.GraphView {
	view := types.GraphView{}
	for _, node := range g.nodes {
		view.Nodes = append(view.Nodes, types.GraphNodeView{
			Module: node.Module(),
			State:  node.state,
			Root:   node.Root,
			Hidden: node.Hidden,
		})
	}
	for _, edge := range g.edges {
		view.Edges = append(view.Edges, types.GraphEdgeView{
			From: edge.From.Module(),
			To:   edge.To.Module(),
			Kind: edge.Kind,
		})
	}
	return view
}
