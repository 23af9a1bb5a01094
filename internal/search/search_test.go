package search_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/search"
)

// TestGreedyPicksHighestValue mirrors MCTS::UnitTestGreedy: with no UCB
// bonus, the action with the clearly highest scalarized value wins.
func TestGreedyPicksHighestValue(t *testing.T) {
	sim := newTestSimulator(5, 5, 0)
	e := search.New[*testState](sim, search.DefaultParams(), rng.New(0))

	vnode := e.ExpandNode(sim.CreateStartState())
	vnode.Value.Set(1, rc.RC{})
	// Cost left at zero for every candidate so the comparison exercises
	// reward alone, unconfounded by the Lagrange multiplier's scalarization.
	vnode.Children[0].Value.Set(1, rc.RC{R: 1})
	for action := 1; action < sim.NumActions(); action++ {
		vnode.Children[action].Value.Set(0, rc.RC{})
	}

	p := e.GreedyUCB(vnode, false, true)
	require.Equal(t, 0, p.SampleAction(rng.New(1)))
}

// TestUCBTieBreaksByLowestCount mirrors the first case of
// MCTS::UnitTestUCB: among equal-value actions, the one with the lowest
// visit count wins because it carries the largest exploration bonus.
//
// Every action here scalarizes to the same Q (0), so the second,
// cost-mixing pass in GreedyUCB necessarily treats all of them as tied on
// value and partitions the tie set by raw cost alone -- it has no way to
// single out the UCB-bonus winner by value. To still observe that the
// bonus correctly identified action 3 (not some other tied action) we
// give it a distinguishing raw cost (R=2, C=1, which scalarizes to the
// same Q=0 with lambda=2) so it becomes the tie set's unique max-cost
// member, and assert that rather than threading through SampleAction.
// The admissible cost is set strictly between the tie set's cost extremes
// (0 and 1): at the default of 0 the min-cost action already meets the
// bound, and the policy would collapse onto it.
func TestUCBTieBreaksByLowestCount(t *testing.T) {
	sim := newTestSimulator(5, 5, 0)
	params := search.DefaultParams()
	params.CHat = 0.5
	e := search.New[*testState](sim, params, rng.New(0))
	vnode := e.ExpandNode(sim.CreateStartState())
	vnode.Value.Set(1, rc.RC{})
	for action := 0; action < sim.NumActions(); action++ {
		if action == 3 {
			vnode.Children[action].Value.Set(99, rc.RC{R: 2, C: 1})
		} else {
			vnode.Children[action].Value.Set(float64(100+action), rc.RC{})
		}
	}
	p := e.GreedyUCB(vnode, true, true)
	require.Equal(t, 3, p.MaxCostAction())
}

// TestUCBExploitsHighestValueAtHighCounts mirrors the second case of
// MCTS::UnitTestUCB: once counts are large enough that the exploration
// bonus can't make up the gap, the highest-value action wins.
func TestUCBExploitsHighestValueAtHighCounts(t *testing.T) {
	sim := newTestSimulator(5, 5, 0)
	e := search.New[*testState](sim, search.DefaultParams(), rng.New(0))
	vnode := e.ExpandNode(sim.CreateStartState())
	vnode.Value.Set(1, rc.RC{})
	numObs := sim.NumObservations()
	numAct := sim.NumActions()
	// Cost left at zero so the higher count doesn't get scalarized away by
	// the Lagrange multiplier -- this case isolates reward dominance.
	for action := 0; action < numAct; action++ {
		if action == 3 {
			vnode.Children[action].Value.Set(float64(99+numObs), rc.RC{R: 1})
		} else {
			vnode.Children[action].Value.Set(float64(100+numAct-action), rc.RC{})
		}
	}
	p := e.GreedyUCB(vnode, true, true)
	require.Equal(t, 3, p.SampleAction(rng.New(3)))
}

// TestUCBExplorationBeatsHighCount mirrors the third case of
// MCTS::UnitTestUCB: a low-count action's exploration bonus can still
// overcome high-count competitors of equal value.
//
// As in TestUCBTieBreaksByLowestCount, every action scalarizes to the
// same Q here, so the cost-mixing pass can't distinguish the bonus
// winner by value alone. Action 3 gets a distinguishing raw cost
// (R=3, C=1, same Q=1 as the rest with lambda=2) so it surfaces as the
// tie set's unique max-cost member, and the admissible cost of 0.5 keeps
// both cost extremes in the policy.
func TestUCBExplorationBeatsHighCount(t *testing.T) {
	sim := newTestSimulator(5, 5, 0)
	params := search.DefaultParams()
	params.CHat = 0.5
	e := search.New[*testState](sim, params, rng.New(0))
	vnode := e.ExpandNode(sim.CreateStartState())
	vnode.Value.Set(1, rc.RC{})
	for action := 0; action < sim.NumActions(); action++ {
		if action == 3 {
			vnode.Children[action].Value.Set(1, rc.RC{R: 3, C: 1})
		} else {
			vnode.Children[action].Value.Set(float64(100+action), rc.RC{R: 1})
		}
	}
	p := e.GreedyUCB(vnode, true, true)
	require.Equal(t, 3, p.MaxCostAction())
}

// TestUCBUnvisitedActionAlwaysWins mirrors the fourth case of
// MCTS::UnitTestUCB: an action with zero visits has an infinite
// exploration bonus and always wins.
func TestUCBUnvisitedActionAlwaysWins(t *testing.T) {
	sim := newTestSimulator(5, 5, 0)
	e := search.New[*testState](sim, search.DefaultParams(), rng.New(0))
	vnode := e.ExpandNode(sim.CreateStartState())
	vnode.Value.Set(1, rc.RC{})
	for action := 0; action < sim.NumActions(); action++ {
		if action == 3 {
			vnode.Children[action].Value.Set(0, rc.RC{})
		} else {
			vnode.Children[action].Value.Set(1, rc.RC{R: 1, C: 1})
		}
	}
	p := e.GreedyUCB(vnode, true, true)
	require.Equal(t, 3, p.SampleAction(rng.New(5)))
}

// TestRolloutConvergesToMeanValue mirrors MCTS::UnitTestRollout: averaged
// over many independent rollouts from a fresh start state, the reward
// converges to the uniformly-random policy's expected value.
func TestRolloutConvergesToMeanValue(t *testing.T) {
	sim := newTestSimulator(2, 2, 0)
	params := search.DefaultParams()
	params.NumSimulations = 1000
	params.MaxDepth = 10
	e := search.New[*testState](sim, params, rng.New(0))

	var total rc.RC
	for n := 0; n < params.NumSimulations; n++ {
		state := sim.CreateStartState()
		total = total.Add(e.Rollout(state))
	}
	rootValue := total.Div(float64(params.NumSimulations))
	meanValue := sim.meanValue()
	require.Less(t, math.Abs(meanValue.R-rootValue.R), 0.1)
}

// TestSearchConvergesToOptimalValue mirrors MCTS::UnitTestSearch: after
// enough simulations, the root's estimated value approaches the known
// optimal value of always taking action 0.
func TestSearchConvergesToOptimalValue(t *testing.T) {
	for depth := 1; depth <= 3; depth++ {
		sim := newTestSimulator(3, 2, depth)
		params := search.DefaultParams()
		params.MaxDepth = depth + 1
		params.NumSimulations = int(math.Pow(10, float64(depth+1)))
		// A non-binding admissible cost keeps the Lagrange multiplier near
		// zero, so this isolates pure reward-seeking search convergence
		// from the (separately tested) cost-admissibility behavior.
		params.CHat = 1e6
		e := search.New[*testState](sim, params, rng.New(0))

		e.SelectAction()
		rootValue := e.Root().Value.Value()
		optimalValue := sim.optimalValue()
		require.Less(t, math.Abs(optimalValue.R-rootValue.R), 0.15)
	}
}
