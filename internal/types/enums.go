package types

type DependencyKind string

const (
	DependencyKindBuild     DependencyKind = "build"
	DependencyKindRuntime   DependencyKind = "runtime"
	DependencyKindToolchain DependencyKind = "toolchain"
)

type NodeState string

const (
	NodeStateUnresolved          NodeState = "unresolved"
	NodeStateResolving           NodeState = "resolving"
	NodeStateResolved            NodeState = "resolved"
	NodeStateSkipped             NodeState = "skipped"
	NodeStateBuilding            NodeState = "building"
	NodeStateDone                NodeState = "done"
	NodeStateFailed              NodeState = "failed"
	NodeStateAborted             NodeState = "aborted"
	NodeStateSkippedDueToFailure NodeState = "skipped_due_to_failure"
)

// FailurePolicy decides what the executor does after a node fails.
type FailurePolicy string

const (
	FailurePolicyFailFast       FailurePolicy = "fail-fast"
	FailurePolicySkipDependents FailurePolicy = "skip-dependents"
)

// ToolchainSystem and ToolchainDummy name the trivial toolchains that never
// expand into dependency nodes.
const (
	ToolchainSystem = "system"
	ToolchainDummy  = "dummy"
)
