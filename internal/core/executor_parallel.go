package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

type completion struct {
	pos int
	ok  bool
}

// executeParallel dispatches every node whose dependencies are all built (or
// were already installed) to a pool of at most Jobs workers. Dispatch order
// follows the build order. Under fail-fast, builds already running finish
// but nothing new starts.
func (e Executor) executeParallel(ctx context.Context, state *runState, builder ports.BuilderPort) (types.RunResult, error) {
	order := state.order
	graph := order.Graph
	n := len(order.Nodes)

	waiting := make([]int, n)
	var ready []int
	for pos, node := range order.Nodes {
		if state.get(pos) != types.NodeStateResolved {
			continue
		}
		for _, dep := range graph.Dependencies(node) {
			if state.get(state.position[dep.Index()]) != types.NodeStateSkipped {
				waiting[pos]++
			}
		}
		if waiting[pos] == 0 {
			ready = append(ready, pos)
		}
	}

	var group errgroup.Group
	group.SetLimit(e.Jobs)
	done := make(chan completion, n)
	inflight := 0
	stopped := false

	dispatch := func() {
		sort.Ints(ready)
		for len(ready) > 0 && inflight < e.Jobs && !stopped {
			pos := ready[0]
			ready = ready[1:]
			if state.get(pos) != types.NodeStateResolved {
				continue
			}
			node := order.Nodes[pos]
			inflight++
			group.Go(func() error {
				done <- completion{pos: pos, ok: e.runNode(ctx, state, pos, node, builder)}
				return nil
			})
		}
	}

	if err := ctx.Err(); err != nil {
		state.abortPending("run cancelled")
		return state.result(), cancelled(err)
	}

	var runErr error
	dispatch()
	for inflight > 0 {
		c := <-done
		inflight--
		node := order.Nodes[c.pos]
		if c.ok {
			for _, dependent := range graph.Dependents(node) {
				pos := state.position[dependent.Index()]
				waiting[pos]--
				if waiting[pos] == 0 {
					ready = append(ready, pos)
				}
			}
		} else if e.Policy == types.FailurePolicyFailFast {
			if !stopped {
				log.Ctx(ctx).Warn().Str("module", node.Module()).Int("in_flight", inflight).Msg("stopping dispatch after failure")
			}
			stopped = true
			state.abortPending(fmt.Sprintf("aborted after %s failed", node.Module()))
		} else {
			state.skipDependents(c.pos)
		}
		if err := ctx.Err(); err != nil && !stopped {
			stopped = true
			runErr = cancelled(err)
			state.abortPending("run cancelled")
		}
		dispatch()
	}
	_ = group.Wait()
	return state.result(), runErr
}
