// Package search implements the CC-POMCP online planner: an Engine grows
// a belief-tree search rooted at the agent's current history and returns
// a stochastic Policy meeting an admissible cost bound, per
// specification §4.4/§4.5.
//
// Grounded on original_source/src/mcts.h/.cpp.
package search

import (
	"k8s.io/klog/v2"

	"github.com/jpfeifer-lab/ccpomcp/internal/belief"
	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/node"
	"github.com/jpfeifer-lab/ccpomcp/internal/policy"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
	"github.com/jpfeifer-lab/ccpomcp/internal/stats"
)

// initialLambda is the Lagrange multiplier's starting value, matching
// MCTS::MCTS's member-initializer lambda(2).
const initialLambda = 2.0

// Engine runs the search tree for one CPOMDP agent. It owns its node
// pool and random source exclusively -- nothing here is shared mutable
// package state, so an experiment driver may run many Engines
// concurrently, one per goroutine (specification §5).
type Engine[S any] struct {
	sim    simulator.Simulator[S]
	params Params
	rng    *rng.Source
	pool   *node.Pool[S]

	treeDepth, peakTreeDepth int
	root                     *node.VNode[S]
	history                  history.History
	status                   ccstatus.Status

	lambda        float64
	lambdaMax     float64
	cHat          float64
	initialCHat   float64
	treeAlgorithm TreeAlgorithm

	statTreeDepth, statRolloutDepth, statTotalReward, statTotalCost stats.Accumulator

	ucbTable [][]float64
}

// New builds an Engine, expanding a fresh root node and seeding its
// belief with params.NumStartStates independent draws from the
// simulator's start-state distribution -- matching the MCTS constructor.
func New[S any](sim simulator.Simulator[S], params Params, r *rng.Source) *Engine[S] {
	e := &Engine[S]{
		sim:           sim,
		params:        params,
		rng:           r,
		pool:          node.NewPool[S](sim.NumActions(), sim.NumObservations()),
		lambda:        initialLambda,
		lambdaMax:     params.LambdaMax,
		cHat:          params.CHat,
		initialCHat:   params.CHat,
		treeAlgorithm: params.TreeAlgorithm,
	}
	if params.ExplorationConstant > 0 {
		e.ucbTable = buildUCBTable(params.ExplorationConstant)
	}

	start := sim.CreateStartState()
	e.root = e.expandNode(start)
	sim.FreeState(start)

	for i := 0; i < params.NumStartStates; i++ {
		e.root.Belief.AddSample(sim.CreateStartState())
	}
	return e
}

// Close releases the root subtree's particles back to the simulator.
// Call it once the Engine is no longer needed.
func (e *Engine[S]) Close() {
	e.pool.Free(e.root, e.sim)
	e.root = nil
}

// Root returns the current root VNode, exposing its belief particles.
func (e *Engine[S]) Root() *node.VNode[S] { return e.root }

// History returns the history of (action, observation) pairs committed
// so far.
func (e *Engine[S]) History() *history.History { return &e.history }

// Status returns the current phase/particle status.
func (e *Engine[S]) Status() ccstatus.Status { return e.status }

// Lambda returns the current Lagrange multiplier.
func (e *Engine[S]) Lambda() float64 { return e.lambda }

// AdmissibleCost returns the admissible cost bound currently in force.
func (e *Engine[S]) AdmissibleCost() float64 { return e.cHat }

// SetAdmissibleCost updates the admissible cost bound -- used by the
// experiment driver's Bellman recursion on the cost dimension between
// planning steps (specification §4.6).
func (e *Engine[S]) SetAdmissibleCost(cHat float64) { e.cHat = cHat }

// expandNode allocates a fresh VNode and installs its action priors from
// state, matching SIMULATOR::Prior/MCTS::ExpandNode. state is used only
// to compute the legal/preferred action lists the prior needs; ownership
// is not taken.
func (e *Engine[S]) expandNode(state S) *node.VNode[S] {
	vnode := e.pool.Allocate()
	vnode.Value.Set(0, rc.RC{})

	knowledge := e.sim.Knowledge()
	level := knowledge.Level(ccstatus.Tree)

	var legal, preferred []int
	if level >= ccstatus.Legal {
		legal = e.sim.GenerateLegal(state, &e.history, e.status)
	}
	if level >= ccstatus.Smart {
		preferred = e.sim.GeneratePreferred(state, &e.history, e.status)
	}
	vnode.InstallPrior(level, legal, preferred, knowledge.SmartCount, knowledge.SmartValue)

	if klog.V(2).Enabled() {
		klog.Infof("search: expanding node at history depth %d", e.history.Len())
	}
	return vnode
}

// ExpandNode allocates and returns a freshly-primed VNode for state,
// without attaching it anywhere in the tree. Exposed for callers (and
// tests) that want to probe the prior-installation rule in isolation.
func (e *Engine[S]) ExpandNode(state S) *node.VNode[S] {
	return e.expandNode(state)
}

// GreedyUCB exposes the core action-selection rule directly, letting
// callers evaluate it against a hand-built VNode without running a full
// search -- useful for introspection and for testing convergence
// properties in isolation.
func (e *Engine[S]) GreedyUCB(vnode *node.VNode[S], ucb, stochastic bool) policy.Policy {
	return e.greedyUCB(vnode, ucb, stochastic)
}

// Rollout runs the simulator's default policy from state to MaxDepth (or
// termination), exposed for callers that want rollout-only estimates
// without growing the tree.
func (e *Engine[S]) Rollout(state S) rc.RC {
	return e.rollout(state)
}

// addSample copies state and adds the copy as a new belief particle of
// vnode, matching MCTS::AddSample.
func (e *Engine[S]) addSample(vnode *node.VNode[S], state S) {
	vnode.Belief.AddSample(e.sim.Copy(state))
}

// Update commits action/observation/rewardcost to the real history,
// shifts the root to the matching child subtree (reusing its particles),
// reinvigorates the belief via local transforms, and reports whether
// enough particles survived to continue. Matches MCTS::Update.
func (e *Engine[S]) Update(action, observation int, rewardcost rc.RC) bool {
	e.history.Append(action, observation)

	var beliefs belief.State[S]
	qnode := &e.root.Children[action]
	matched := qnode.Child(observation)
	if matched != nil {
		if klog.V(1).Enabled() {
			klog.Infof("search: matched %d states", matched.Belief.Len())
		}
		beliefs.Copy(&matched.Belief, e.sim)
	} else if klog.V(1).Enabled() {
		klog.Infof("search: no matching node found")
	}

	if e.params.UseTransforms {
		e.addTransforms(&beliefs)
	}

	if beliefs.Empty() && (matched == nil || matched.Belief.Empty()) {
		return false
	}

	var state S
	if matched != nil && !matched.Belief.Empty() {
		state = matched.Belief.Sample(0)
	} else {
		state = beliefs.Sample(0)
	}

	newRoot := e.expandNode(state)
	newRoot.Belief = beliefs

	e.pool.Free(e.root, e.sim)
	e.root = newRoot
	return true
}

// SelectAction runs the search (UCTSearch, or RolloutSearch if
// DisableTree) and returns the greedy stochastic policy at the root.
// Matches MCTS::SelectAction.
func (e *Engine[S]) SelectAction() policy.Policy {
	if e.params.DisableTree {
		e.rolloutSearch()
	} else {
		e.uctSearch()
	}
	return e.greedyUCB(e.root, false, true)
}

// NextAdmissibleCost computes the admissible cost to carry into the next
// planning step after committing to sampledAction, per the cost Bellman
// recursion of specification §4.6. Matches
// MCTS::getNextAdmissibleCost.
func (e *Engine[S]) NextAdmissibleCost(p policy.Policy, sampledAction int, rewardcost rc.RC) float64 {
	var next float64
	if p.NumActions() == 1 {
		next = (e.cHat - rewardcost.C) / e.sim.Discount()
	} else {
		other := p.OtherAction(sampledAction)
		probAction := p.ActionProbability(sampledAction)
		otherQC := e.root.Children[other].Value.Value().C
		next = (e.cHat - probAction*rewardcost.C - (1-probAction)*otherQC) / (e.sim.Discount() * probAction)
	}
	if next < 0 {
		next = 0
	}
	return next
}

// clearStatistics resets the per-search statistics accumulators, matching
// MCTS::ClearStatistics.
func (e *Engine[S]) clearStatistics() {
	e.statTreeDepth.Clear()
	e.statRolloutDepth.Clear()
	e.statTotalReward.Clear()
	e.statTotalCost.Clear()
}

// uctSearch runs params.NumSimulations tree simulations from the root,
// updating lambda via dual gradient ascent after each one when the
// CCPOMCP tree algorithm is in use. Matches MCTS::UCTSearch.
func (e *Engine[S]) uctSearch() {
	e.clearStatistics()
	historyDepth := e.history.Len()

	for n := 0; n < e.params.NumSimulations; n++ {
		state := e.root.Belief.CreateSample(e.sim, e.rng)
		e.sim.Validate(state)
		e.status.Phase = ccstatus.Tree

		e.treeDepth = 0
		e.peakTreeDepth = 0
		total := e.simulateV(state, e.root)
		e.statTotalReward.Add(total.R)
		e.statTotalCost.Add(total.C)
		e.statTreeDepth.Add(float64(e.peakTreeDepth))

		if e.treeAlgorithm == CCPOMCP {
			p := e.greedyUCB(e.root, false, false)
			action := p.SampleAction(e.rng)
			vC := e.root.Children[action].Value.Value().C
			gradient := 1.0
			if vC-e.cHat < 0 {
				gradient = -1.0
			}
			e.lambda += 1.0 / (float64(n) + 1.0) * gradient
			if e.lambda < 0 {
				e.lambda = 0
			}
			if e.lambda > e.lambdaMax {
				e.lambda = e.lambdaMax
			}
		}

		e.sim.FreeState(state)
		e.history.Truncate(historyDepth)
	}

	if klog.V(1).Enabled() {
		klog.Infof("search: tree depth mean=%.2f rollout depth mean=%.2f reward mean=%.2f cost mean=%.2f lambda=%.4f",
			e.statTreeDepth.Mean(), e.statRolloutDepth.Mean(), e.statTotalReward.Mean(), e.statTotalCost.Mean(), e.lambda)
	}
}

// rolloutSearch runs a depth-1 lookahead over the legal actions, used
// when DisableTree skips the full tree search. Matches
// MCTS::RolloutSearch.
func (e *Engine[S]) rolloutSearch() {
	historyDepth := e.history.Len()

	legal := e.sim.GenerateLegal(e.root.Belief.Sample(0), &e.history, e.status)
	e.rng.Shuffle(len(legal), func(i, j int) { legal[i], legal[j] = legal[j], legal[i] })

	for i := 0; i < e.params.NumSimulations; i++ {
		action := legal[i%len(legal)]
		state := e.root.Belief.CreateSample(e.sim, e.rng)
		e.sim.Validate(state)

		observation, immediate, terminal := e.sim.Step(state, action)

		qnode := &e.root.Children[action]
		vnode := qnode.Child(observation)
		if vnode == nil && !terminal {
			vnode = e.expandNode(state)
			e.addSample(vnode, state)
			qnode.SetChild(observation, vnode)
		}
		e.history.Append(action, observation)

		delayed := e.rollout(state)
		total := immediate.Add(delayed.Scale(e.sim.Discount()))
		qnode.Value.Add(total)

		e.sim.FreeState(state)
		e.history.Truncate(historyDepth)
	}
}

// simulateV descends one tree level from vnode, picking the UCB-greedy
// action, recursing into SimulateQ, and folding the result into vnode's
// own statistics and RAVE bookkeeping. Matches MCTS::SimulateV.
func (e *Engine[S]) simulateV(state S, vnode *node.VNode[S]) rc.RC {
	action := e.greedyUCB(vnode, true, true).SampleAction(e.rng)

	e.peakTreeDepth = e.treeDepth
	if e.treeDepth >= e.params.MaxDepth {
		return rc.RC{}
	}
	if e.treeDepth == 1 {
		e.addSample(vnode, state)
	}

	qnode := &vnode.Children[action]
	total := e.simulateQ(state, qnode, action)
	vnode.Value.Add(total)
	e.addRave(vnode, total)
	return total
}

// simulateQ steps the simulator for one action, growing a new VNode child
// once the observation has been seen ExpandCount times, then recurses
// into SimulateV or falls through to a rollout. Matches MCTS::SimulateQ.
func (e *Engine[S]) simulateQ(state S, qnode *node.QNode[S], action int) rc.RC {
	if e.sim.HasAlpha() {
		e.sim.UpdateAlpha(state)
	}

	observation, immediate, terminal := e.sim.Step(state, action)
	e.history.Append(action, observation)

	vnode := qnode.Child(observation)
	if vnode == nil && !terminal && qnode.Value.Count() >= float64(e.params.ExpandCount) {
		vnode = e.expandNode(state)
		qnode.SetChild(observation, vnode)
	}

	var delayed rc.RC
	if !terminal {
		e.treeDepth++
		if vnode != nil {
			delayed = e.simulateV(state, vnode)
		} else {
			delayed = e.rollout(state)
		}
		e.treeDepth--
	}

	total := immediate.Add(delayed.Scale(e.sim.Discount()))
	qnode.Value.Add(total)
	return total
}

// addRave folds totalRewardCost into the AMAF statistics of every action
// taken from vnode's tree depth onward in the current simulation's
// history, discounting by RaveDiscount per step of distance. Matches
// MCTS::AddRave.
func (e *Engine[S]) addRave(vnode *node.VNode[S], totalRewardCost rc.RC) {
	totalDiscount := 1.0
	for t := e.treeDepth; t < e.history.Len(); t++ {
		entry := e.history.At(t)
		qnode := &vnode.Children[entry.Action]
		qnode.AMAF.AddWeighted(totalRewardCost, totalDiscount)
		totalDiscount *= e.params.RaveDiscount
	}
}

// rollout runs the simulator's default policy to MaxDepth (relative to
// the current tree depth) or termination, accumulating discounted
// reward-cost. The caller is responsible for truncating History back to
// its pre-rollout length afterward -- Rollout itself only ever appends
// (specification §9's preserved Rollout-truncation contract). Matches
// MCTS::Rollout.
func (e *Engine[S]) rollout(state S) rc.RC {
	e.status.Phase = ccstatus.Rollout

	var total rc.RC
	discount := 1.0
	terminal := false
	numSteps := 0
	for ; numSteps+e.treeDepth < e.params.MaxDepth && !terminal; numSteps++ {
		action := simulator.SelectRandom(e.sim, state, &e.history, e.status, e.rng)

		var observation int
		var rewardcost rc.RC
		observation, rewardcost, terminal = e.sim.Step(state, action)
		e.history.Append(action, observation)

		total = total.Add(rewardcost.Scale(discount))
		discount *= e.sim.Discount()
	}
	e.statRolloutDepth.Add(float64(numSteps))
	return total
}

// addTransforms attempts to reinvigorate beliefs with up to
// params.NumTransforms locally-perturbed particles consistent with the
// last real observation, giving up after params.MaxAttempts tries.
// Matches MCTS::AddTransforms.
func (e *Engine[S]) addTransforms(beliefs *belief.State[S]) {
	attempts, added := 0, 0
	for added < e.params.NumTransforms && attempts < e.params.MaxAttempts {
		if transform, ok := e.createTransform(); ok {
			beliefs.AddSample(transform)
			added++
		}
		attempts++
	}
	if klog.V(1).Enabled() {
		klog.Infof("search: created %d local transformations out of %d attempts", added, attempts)
	}
}

// createTransform draws a root particle, replays the last committed
// action, and asks the simulator to locally perturb the result into one
// consistent with the real observation. Matches MCTS::CreateTransform.
func (e *Engine[S]) createTransform() (S, bool) {
	state := e.root.Belief.CreateSample(e.sim, e.rng)
	lastAction := e.history.Back().Action
	stepObs, _, _ := e.sim.Step(state, lastAction)
	if e.sim.LocalMove(state, &e.history, stepObs, e.status) {
		return state, true
	}
	e.sim.FreeState(state)
	var zero S
	return zero, false
}
