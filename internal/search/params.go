package search

// TreeAlgorithm selects which action-selection rule GreedyUCB applies at
// every tree node: the full constrained-cost algorithm, or the simpler
// baseline that outright excludes any action whose measured cost is not
// below the admissible bound.
//
// Grounded on original_source/src/mcts.h's PARAMS::TreeAlgorithm (0/1).
type TreeAlgorithm int

const (
	// CCPOMCP scalarizes reward and cost via the Lagrange multiplier and
	// lets the stochastic Policy mixture meet the cost bound exactly.
	CCPOMCP TreeAlgorithm = iota
	// Baseline filters out any action whose cost is not below the
	// admissible cost and returns a single action (ties broken uniformly
	// at random), never a two-action mixture.
	Baseline
)

// Params configures one search Engine. Field names and defaults mirror
// original_source/src/mcts.h's MCTS::PARAMS.
type Params struct {
	// MaxDepth bounds how many tree/rollout steps a single simulation may
	// take before its remaining value is truncated to zero.
	MaxDepth int
	// NumSimulations is how many simulations UCTSearch/RolloutSearch run
	// per SelectAction call.
	NumSimulations int
	// NumStartStates seeds the root belief with this many independent
	// draws from the simulator's start-state distribution.
	NumStartStates int
	// UseTransforms enables local-move particle reinvigoration in Update.
	UseTransforms bool
	// NumTransforms is the target number of reinvigorated particles to
	// add per Update call.
	NumTransforms int
	// MaxAttempts bounds how many local-move attempts Update makes while
	// trying to reach NumTransforms.
	MaxAttempts int
	// ExpandCount is the visit count a QNode must reach before an unseen
	// observation grows a new VNode child, rather than falling through to
	// a rollout.
	ExpandCount int
	// ExplorationConstant scales the UCB exploration bonus.
	ExplorationConstant float64
	// UseRave blends AMAF statistics into GreedyUCB's scalarized value.
	UseRave bool
	// RaveDiscount decays the AMAF update weight with distance from the
	// node being updated.
	RaveDiscount float64
	// RaveConstant tunes how quickly AMAF's influence fades as the direct
	// visit count grows.
	RaveConstant float64
	// DisableTree runs RolloutSearch (depth-1 lookahead) instead of a
	// full UCTSearch.
	DisableTree bool
	// LambdaMax clamps the dual variable's dual gradient ascent.
	LambdaMax float64
	// CHat is the admissible cost bound the policy must meet in
	// expectation at the root.
	CHat float64
	// TreeAlgorithm picks CCPOMCP or Baseline action selection.
	TreeAlgorithm TreeAlgorithm
}

// DefaultParams returns the same defaults as MCTS::PARAMS's constructor.
func DefaultParams() Params {
	return Params{
		MaxDepth:             100,
		NumSimulations:       1000,
		NumStartStates:       1000,
		UseTransforms:        true,
		NumTransforms:        0,
		MaxAttempts:          0,
		ExpandCount:          1,
		ExplorationConstant:  1,
		UseRave:              false,
		RaveDiscount:         1.0,
		RaveConstant:         0.01,
		DisableTree:          false,
		LambdaMax:            100.0,
		CHat:                 0,
		TreeAlgorithm:        CCPOMCP,
	}
}
