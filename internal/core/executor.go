package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

// Executor walks a build order and invokes the builder once per node that
// still needs building.
type Executor struct {
	Policy   types.FailurePolicy
	Jobs     int
	Observer ports.RunObserverPort
}

func NewExecutor(policy types.FailurePolicy, jobs int) Executor {
	return Executor{Policy: policy, Jobs: jobs}
}

// ParseFailurePolicy validates a policy name; empty selects fail-fast.
func ParseFailurePolicy(value string) (types.FailurePolicy, error) {
	switch types.FailurePolicy(value) {
	case "", types.FailurePolicyFailFast:
		return types.FailurePolicyFailFast, nil
	case types.FailurePolicySkipDependents:
		return types.FailurePolicySkipDependents, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown failure policy %q (want %s or %s)", value, types.FailurePolicyFailFast, types.FailurePolicySkipDependents))
	}
}

// Execute runs the order. Build failures are reported in the result, not
// as an error; the error is reserved for invalid input and cancellation.
// With Jobs > 1 independent nodes are built concurrently.
func (e Executor) Execute(ctx context.Context, order BuildOrder, builder ports.BuilderPort) (types.RunResult, error) {
	if builder == nil {
		return types.RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("executor requires a builder")
	}
	policy, err := ParseFailurePolicy(string(e.Policy))
	if err != nil {
		return types.RunResult{}, err
	}
	e.Policy = policy
	state, err := newRunState(order)
	if err != nil {
		return types.RunResult{}, err
	}
	if e.Jobs > 1 {
		return e.executeParallel(ctx, state, builder)
	}
	return e.executeSerial(ctx, state, builder)
}

func (e Executor) executeSerial(ctx context.Context, state *runState, builder ports.BuilderPort) (types.RunResult, error) {
	for pos, node := range state.order.Nodes {
		if err := ctx.Err(); err != nil {
			state.abortPending("run cancelled")
			return state.result(), cancelled(err)
		}
		if state.get(pos) != types.NodeStateResolved {
			continue
		}
		if ok := e.runNode(ctx, state, pos, node, builder); ok {
			continue
		}
		if e.Policy == types.FailurePolicyFailFast {
			state.abortPending(fmt.Sprintf("aborted after %s failed", node.Module()))
			break
		}
		state.skipDependents(pos)
	}
	return state.result(), nil
}

// runNode builds one node and records the outcome. It reports whether the
// build succeeded.
func (e Executor) runNode(ctx context.Context, state *runState, pos int, node *PackageNode, builder ports.BuilderPort) bool {
	target := node.Target()
	state.set(pos, types.NodeStateBuilding, "", 0)
	if e.Observer != nil {
		e.Observer.NodeStarted(target)
	}
	log.Ctx(ctx).Info().Str("module", target.Module).Msg("building")

	started := time.Now()
	err := builder.Build(ctx, target)
	elapsed := time.Since(started)

	final := types.NodeStateDone
	reason := ""
	if err != nil {
		final = types.NodeStateFailed
		reason = err.Error()
		log.Ctx(ctx).Error().Err(err).Str("module", target.Module).Msg("build failed")
	} else {
		log.Ctx(ctx).Info().Str("module", target.Module).Dur("elapsed", elapsed).Msg("installed")
	}
	state.set(pos, final, reason, elapsed)
	if e.Observer != nil {
		e.Observer.NodeFinished(target, final, elapsed)
	}
	return err == nil
}

func cancelled(cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("build run cancelled").
		WithCause(cause)
}

// FailureError folds every failed node of a run into one error, or returns
// nil when nothing failed.
func FailureError(result types.RunResult) error {
	var err error
	for _, outcome := range result.Outcomes {
		if outcome.State != types.NodeStateFailed {
			continue
		}
		var cause error
		if outcome.Reason != "" {
			cause = errors.New(outcome.Reason)
		}
		err = multierr.Append(err, &BuildFailure{Module: outcome.Module, Cause: cause})
	}
	return err
}

// runState tracks per-node run outcomes separately from the graph, so the
// graph and order are never modified by a run.
type runState struct {
	mu       sync.Mutex
	order    BuildOrder
	position []int
	states   []types.NodeState
	reasons  []string
	elapsed  []time.Duration
}

func newRunState(order BuildOrder) (*runState, error) {
	if order.Graph == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build order has no graph")
	}
	n := len(order.Nodes)
	state := &runState{
		order:    order,
		position: make([]int, order.Graph.Len()),
		states:   make([]types.NodeState, n),
		reasons:  make([]string, n),
		elapsed:  make([]time.Duration, n),
	}
	for pos, node := range order.Nodes {
		switch node.State() {
		case types.NodeStateResolved, types.NodeStateSkipped:
		default:
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s is %s, not ready to build", node.Module(), node.State()))
		}
		state.position[node.Index()] = pos
		state.states[pos] = node.State()
	}
	return state, nil
}

func (s *runState) get(pos int) types.NodeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[pos]
}

func (s *runState) set(pos int, state types.NodeState, reason string, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[pos] = state
	s.reasons[pos] = reason
	s.elapsed[pos] = elapsed
}

// abortPending marks every node that has not started as ABORTED.
func (s *runState) abortPending(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pos, state := range s.states {
		if state == types.NodeStateResolved {
			s.states[pos] = types.NodeStateAborted
			s.reasons[pos] = reason
		}
	}
}

// skipDependents marks every not yet started transitive dependent of the
// failed node as SKIPPED_DUE_TO_FAILURE and returns their positions.
func (s *runState) skipDependents(failed int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := s.order.Nodes[failed]
	reason := fmt.Sprintf("dependency %s failed", node.Module())
	var skipped []int
	for _, dependent := range s.order.Graph.TransitiveDependents(node) {
		pos := s.position[dependent.Index()]
		if s.states[pos] != types.NodeStateResolved {
			continue
		}
		s.states[pos] = types.NodeStateSkippedDueToFailure
		s.reasons[pos] = reason
		skipped = append(skipped, pos)
	}
	return skipped
}

func (s *runState) result() types.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result types.RunResult
	for pos, node := range s.order.Nodes {
		result.Record(types.NodeOutcome{
			Module:   node.Module(),
			State:    s.states[pos],
			Reason:   s.reasons[pos],
			Duration: s.elapsed[pos],
		})
	}
	return result
}
