// Package policy implements the stochastic two-action mixture the
// search returns to the caller: the randomized tie-break between a
// minimum-cost and a maximum-cost candidate action that lets the greedy
// selector meet an admissible cost bound exactly in expectation, per
// specification §3/§4.4.
//
// Grounded on original_source/src/mcts.h's Policy class.
package policy

import "github.com/jpfeifer-lab/ccpomcp/internal/rng"

// Policy is either degenerate (always the same action) or a mixture of
// exactly two actions, sampled according to probMinCostAction /
// probMaxCostAction. Construct one with New; the zero value is not
// meaningful.
type Policy struct {
	minCostAction, maxCostAction         int
	probMinCostAction, probMaxCostAction float64
}

// New builds the policy via the same three-way branch as the original's
// Policy::setPolicy: if the max-cost candidate already meets cHat, always
// take it; if even the min-cost candidate exceeds cHat, always take that
// one instead (the bound is infeasible, so get as close as possible); and
// otherwise mix the two so that the expected cost lands exactly on cHat.
//
// Per specification §9's preserved open question, this does not assert
// minCost <= maxCost the way the original does -- callers are expected to
// pass minCost/maxCost for the matching min/max-cost actions, and a
// reversed pair here simply yields a reversed mixture rather than a
// crash.
func New(minCost, maxCost float64, minCostAction, maxCostAction int, cHat float64) Policy {
	switch {
	case maxCost <= cHat:
		return Policy{
			minCostAction: maxCostAction, maxCostAction: maxCostAction,
			probMinCostAction: 1, probMaxCostAction: 0,
		}
	case minCost >= cHat:
		return Policy{
			minCostAction: minCostAction, maxCostAction: minCostAction,
			probMinCostAction: 1, probMaxCostAction: 0,
		}
	default:
		probMin := (cHat - maxCost) / (minCost - maxCost)
		return Policy{
			minCostAction: minCostAction, maxCostAction: maxCostAction,
			probMinCostAction: probMin, probMaxCostAction: 1 - probMin,
		}
	}
}

// Degenerate builds a single-action policy, used by the Baseline tree
// algorithm (specification §4.4) which never mixes.
func Degenerate(action int) Policy {
	return Policy{minCostAction: action, maxCostAction: action, probMinCostAction: 1, probMaxCostAction: 0}
}

// SampleAction draws the committed action: minCostAction with
// probability probMinCostAction, maxCostAction otherwise. Per
// specification §9's preserved open question, this does not assert that
// the two probabilities sum to (approximately) 1 the way the original's
// sampleAction does -- a Policy built any other way than via New or
// Degenerate sampling unpredictably is considered caller error, not
// something worth guarding against at runtime here.
func (p Policy) SampleAction(r *rng.Source) int {
	if r.Float64() <= p.probMinCostAction {
		return p.minCostAction
	}
	return p.maxCostAction
}

// NumActions returns 1 for a degenerate policy, 2 for a genuine mixture.
func (p Policy) NumActions() int {
	if p.minCostAction == p.maxCostAction {
		return 1
	}
	return 2
}

// OtherAction returns the mixture's other action given one of its two
// actions. Panics if action is not one of the two, or if the policy is
// degenerate (mirroring the original's assert).
func (p Policy) OtherAction(action int) int {
	if p.minCostAction == p.maxCostAction {
		panic("policy: OtherAction called on a degenerate policy")
	}
	switch action {
	case p.minCostAction:
		return p.maxCostAction
	case p.maxCostAction:
		return p.minCostAction
	default:
		panic("policy: OtherAction called with an action outside the mixture")
	}
}

// ActionProbability returns the probability of sampling action.
func (p Policy) ActionProbability(action int) float64 {
	switch action {
	case p.minCostAction:
		return p.probMinCostAction
	case p.maxCostAction:
		return p.probMaxCostAction
	default:
		panic("policy: ActionProbability called with an action outside the mixture")
	}
}

// MinCostAction returns the lower-cost candidate action.
func (p Policy) MinCostAction() int { return p.minCostAction }

// MaxCostAction returns the higher-cost candidate action.
func (p Policy) MaxCostAction() int { return p.maxCostAction }
