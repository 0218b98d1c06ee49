package types

import "time"

// OrderEntry is one line of a persisted build order.
type OrderEntry struct {
	Module    string    `yaml:"module"`
	Path      string    `yaml:"path,omitempty"`
	State     NodeState `yaml:"state"`
	Easyblock string    `yaml:"easyblock,omitempty"`
	Root      bool      `yaml:"root,omitempty"`
}

// GraphView is a presentation snapshot of a dependency graph.
type GraphView struct {
	Nodes []GraphNodeView
	Edges []GraphEdgeView
}

type GraphNodeView struct {
	Module string
	State  NodeState
	Root   bool
	Hidden bool
}

type GraphEdgeView struct {
	From string
	To   string
	Kind DependencyKind
}

// NodeOutcome is the final state of one node after a run.
type NodeOutcome struct {
	Module   string        `yaml:"module"`
	State    NodeState     `yaml:"state"`
	Reason   string        `yaml:"reason,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
}

// RunResult aggregates the outcome of executing a build order. Outcomes are
// listed in build order regardless of completion order.
type RunResult struct {
	Outcomes            []NodeOutcome
	Succeeded           []string
	Failed              []string
	Skipped             []string
	Aborted             []string
	SkippedDueToFailure []string
}

// Record appends an outcome and files the module under its state.
func (r *RunResult) Record(outcome NodeOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	switch outcome.State {
	case NodeStateDone:
		r.Succeeded = append(r.Succeeded, outcome.Module)
	case NodeStateFailed:
		r.Failed = append(r.Failed, outcome.Module)
	case NodeStateSkipped:
		r.Skipped = append(r.Skipped, outcome.Module)
	case NodeStateAborted:
		r.Aborted = append(r.Aborted, outcome.Module)
	case NodeStateSkippedDueToFailure:
		r.SkippedDueToFailure = append(r.SkippedDueToFailure, outcome.Module)
	}
}

// State returns the final state of a module, or NodeStateUnresolved when the
// module was not part of the run.
func (r RunResult) State(module string) NodeState {
	for _, o := range r.Outcomes {
		if o.Module == module {
			return o.State
		}
	}
	return NodeStateUnresolved
}

func (r RunResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// RunReport is the persisted form of a run.
type RunReport struct {
	StartedAt  string        `yaml:"started_at"`
	FinishedAt string        `yaml:"finished_at"`
	Policy     FailurePolicy `yaml:"policy"`
	Jobs       int           `yaml:"jobs"`
	Roots      []string      `yaml:"roots"`
	Outcomes   []NodeOutcome `yaml:"outcomes"`
	Summary    RunSummary    `yaml:"summary"`
}

type RunSummary struct {
	Succeeded           int `yaml:"succeeded"`
	Failed              int `yaml:"failed"`
	Skipped             int `yaml:"skipped"`
	Aborted             int `yaml:"aborted"`
	SkippedDueToFailure int `yaml:"skipped_due_to_failure"`
}

func (r RunResult) Summary() RunSummary {
	return RunSummary{
		Succeeded:           len(r.Succeeded),
		Failed:              len(r.Failed),
		Skipped:             len(r.Skipped),
		Aborted:             len(r.Aborted),
		SkippedDueToFailure: len(r.SkippedDueToFailure),
	}
}

// BuildStats is the record kept alongside an archived description.
type BuildStats struct {
	Module     string        `yaml:"module"`
	BuiltAt    string        `yaml:"built_at"`
	Duration   time.Duration `yaml:"duration"`
	Easyblock  string        `yaml:"easyblock,omitempty"`
	InstallDir string        `yaml:"install_dir,omitempty"`
}

// ArchivedBuild is an archived description and the builds recorded for it.
type ArchivedBuild struct {
	Name   string
	Path   string
	Builds []BuildStats
}
