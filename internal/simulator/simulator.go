// Package simulator defines the abstract generative-model contract that
// the search engine treats as an external collaborator (specification
// §6). Any concrete domain -- rock-sample here, anything else a caller
// plugs in -- implements Simulator[S] for its own opaque state type S.
//
// Grounded on original_source/src/simulator.h's SIMULATOR base class and
// the teacher's own preference for small capability interfaces (see
// internal/searchers.Searcher in the teacher repo).
package simulator

import (
	"math"

	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
)

// Simulator is the generative black box the planner grows its search tree
// against. S is the domain's own opaque state type -- the planner never
// inspects it beyond what this interface exposes. State lifecycle
// (CreateStartState/Copy/FreeState) follows the single-owner discipline of
// specification §3: a state handle returned to the caller is owned by the
// caller until passed to FreeState or re-copied.
type Simulator[S any] interface {
	// CreateStartState returns a newly owned start state (may be
	// stochastic).
	CreateStartState() S

	// FreeState releases a state the caller no longer needs.
	FreeState(s S)

	// Copy returns a newly owned deep copy of s.
	Copy(s S) S

	// Step mutates s in place, applying action, and returns the resulting
	// observation, reward-cost pair, and whether the episode terminated.
	Step(s S, action int) (observation int, result rc.RC, terminal bool)

	// Validate performs an optional sanity check on s; implementations
	// that have nothing to check may no-op.
	Validate(s S)

	// GenerateLegal returns every action legal from s. The default
	// simulator behavior (all actions legal) is available via
	// AllActions for implementations that don't restrict legality.
	GenerateLegal(s S, h *history.History, status ccstatus.Status) []int

	// GeneratePreferred returns the domain-preferred subset of legal
	// actions from s, or nil if the domain has no preference.
	GeneratePreferred(s S, h *history.History, status ccstatus.Status) []int

	// LocalMove attempts to perturb s into a state consistent with the
	// observation stepObs recorded at the end of h, returning whether it
	// succeeded. Used to recover from particle deprivation.
	LocalMove(s S, h *history.History, stepObs int, status ccstatus.Status) bool

	// HasAlpha reports whether this simulator supplies an explicit
	// alpha-vector value function. The core scenarios never set this.
	HasAlpha() bool

	// AlphaValue returns the alpha-vector-estimated scalarized value and
	// its confidence count for s. Only called when HasAlpha() is true.
	AlphaValue(s S) (value, count float64)

	// UpdateAlpha updates the simulator's alpha-vector state after
	// visiting s. Only called when HasAlpha() is true.
	UpdateAlpha(s S)

	// NumActions is the size of the dense action space [0, NumActions).
	NumActions() int

	// NumObservations is the size of the dense observation space
	// [0, NumObservations).
	NumObservations() int

	// Discount is the per-step discount factor, in (0, 1].
	Discount() float64

	// RewardRange bounds the magnitude of a single step's reward, used to
	// size the UCB exploration constant when auto-tuning.
	RewardRange() float64

	// Horizon returns ceil(log(accuracy)/log(Discount())), or
	// undiscountedHorizon when Discount() == 1.
	Horizon(accuracy float64, undiscountedHorizon int) int

	// Knowledge returns the KnowledgeLevel configuration this simulator
	// wants applied to tree priors and rollouts.
	Knowledge() ccstatus.Knowledge
}

// AllActions returns every action in [0, n) -- the default GenerateLegal
// body for simulators that place no restriction on legality, matching
// SIMULATOR::GenerateLegal's base-class implementation.
func AllActions(n int) []int {
	actions := make([]int, n)
	for i := range actions {
		actions[i] = i
	}
	return actions
}

// Horizon computes the generic "how many steps until reward contributions
// become negligible" formula from specification §6:
// GetHorizon(accuracy, undiscountedHorizon) = undiscountedHorizon if γ=1,
// else log(accuracy)/log(γ).
func Horizon(discount, accuracy float64, undiscountedHorizon int) int {
	if discount >= 1 {
		return undiscountedHorizon
	}
	h := math.Log(accuracy) / math.Log(discount)
	return int(h + 0.999999) // round up, matching an integer step count.
}

// SelectRandom implements the default-policy action choice described in
// specification §4.5/§6: layer GeneratePreferred -> GenerateLegal ->
// uniform over NumActions, gated by the simulator's rollout
// KnowledgeLevel. This is shared, domain-agnostic logic -- not a method on
// Simulator itself, since every domain gets the same layering -- matching
// how the original's SIMULATOR::SelectRandom is a concrete (non-virtual)
// base-class method built on the virtual GenerateLegal/GeneratePreferred
// hooks.
func SelectRandom[S any](sim Simulator[S], s S, h *history.History, status ccstatus.Status, r *rng.Source) int {
	level := sim.Knowledge().Level(status.Phase)

	if level >= ccstatus.Smart {
		if preferred := sim.GeneratePreferred(s, h, status); len(preferred) > 0 {
			return preferred[r.IntN(len(preferred))]
		}
	}
	if level >= ccstatus.Legal {
		if legal := sim.GenerateLegal(s, h, status); len(legal) > 0 {
			return legal[r.IntN(len(legal))]
		}
	}
	return r.IntN(sim.NumActions())
}
