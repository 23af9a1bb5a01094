// Package node implements the search tree: alternating action-nodes
// (QNode) and observation/belief-nodes (VNode), each carrying a running
// reward-cost accumulator, plus the Pool that arena-allocates and
// recycles VNodes across an Engine's lifetime.
//
// Grounded on original_source/src/node.h/.cpp.
package node

import (
	"math"

	"github.com/jpfeifer-lab/ccpomcp/internal/belief"
	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
)

// RC is the reward-cost pair tree nodes accumulate. Aliased here so
// callers can write node.RC the way they write node.Accumulator, while
// the type itself lives in the dependency-free internal/rc package (kept
// separate from node to avoid node <-> simulator <-> belief import
// cycles, since Simulator.Step must also return an RC).
type RC = rc.RC

// Accumulator is a running count-weighted mean of RC values -- the
// VALUE<COUNT> template from the original, specialized to a float64
// count throughout (both the visit-count and AMAF accumulators use
// fractional weights here, so there is no int/float64 split).
type Accumulator struct {
	count float64
	total RC
}

// Set seeds the accumulator as if count observations of value had already
// been folded in.
func (a *Accumulator) Set(count float64, value RC) {
	a.count = count
	a.total = value.Scale(count)
}

// Add folds in one more observation of totalReward with unit weight.
func (a *Accumulator) Add(totalReward RC) {
	a.count += 1.0
	a.total = a.total.Add(totalReward)
}

// AddWeighted folds in totalReward with an arbitrary weight -- used by
// RAVE/AMAF bookkeeping, where an observation's weight need not be 1.
func (a *Accumulator) AddWeighted(totalReward RC, weight float64) {
	a.count += weight
	a.total = a.total.Add(totalReward.Scale(weight))
}

// Value returns the running mean, or the raw total if no weight has
// accumulated yet (matching VALUE::GetValue's zero-count fallback).
func (a *Accumulator) Value() RC {
	if a.count == 0 {
		return a.total
	}
	return a.total.Div(a.count)
}

// Count returns the accumulated weight.
func (a *Accumulator) Count() float64 {
	return a.count
}

// QNode is an action node: the statistics for having taken one particular
// action from the parent VNode, plus one child VNode per observation that
// has actually been reached.
type QNode[S any] struct {
	Value    Accumulator
	AMAF     Accumulator
	children []*VNode[S]
}

// initialise resets a QNode to numObservations empty children, matching
// QNODE::Initialise.
func (q *QNode[S]) initialise(numObservations int) {
	q.Value = Accumulator{}
	q.AMAF = Accumulator{}
	q.children = make([]*VNode[S], numObservations)
}

// Child returns the VNode reached after observation, or nil if that
// observation has never been reached from this QNode.
func (q *QNode[S]) Child(observation int) *VNode[S] {
	return q.children[observation]
}

// SetChild installs vnode as the child reached by observation.
func (q *QNode[S]) SetChild(observation int, vnode *VNode[S]) {
	q.children[observation] = vnode
}

// VNode is a belief node: the statistics for having reached this belief,
// one QNode per action, and the particle belief itself.
type VNode[S any] struct {
	Value    Accumulator
	Children []QNode[S]
	Belief   belief.State[S]
}

// initialise resets a VNode to numActions freshly-initialised QNodes and
// an empty belief, matching VNODE::Initialise.
func (v *VNode[S]) initialise(numActions, numObservations int) {
	v.Value = Accumulator{}
	v.Belief = belief.State[S]{}
	v.Children = make([]QNode[S], numActions)
	for i := range v.Children {
		v.Children[i].initialise(numObservations)
	}
}

// SetChildren seeds every child QNode's Value and AMAF as if count
// observations of value had already been folded in -- VNODE::SetChildren.
func (v *VNode[S]) SetChildren(count float64, value RC) {
	for i := range v.Children {
		v.Children[i].Value.Set(count, value)
		v.Children[i].AMAF.Set(count, value)
	}
}

// InstallPrior seeds this freshly-created VNode's children per the
// simulator's tree KnowledgeLevel, matching SIMULATOR::Prior. It is a
// VNode method rather than something the simulator package calls
// directly, so that internal/simulator never needs to import
// internal/node (which would cycle back through internal/belief).
// search.Engine calls this right after Pool.Allocate, having already
// asked the Simulator for the legal/preferred action lists.
func (v *VNode[S]) InstallPrior(level ccstatus.KnowledgeLevel, legalActions, preferredActions []int, smartCount float64, smartValue RC) {
	if level == ccstatus.Pure {
		v.SetChildren(0, RC{})
		return
	}

	v.SetChildren(hugeCount, hugeValue)

	if level >= ccstatus.Legal {
		for _, a := range legalActions {
			v.Children[a].Value.Set(0, RC{})
			v.Children[a].AMAF.Set(0, RC{})
		}
	}

	if level >= ccstatus.Smart {
		for _, a := range preferredActions {
			v.Children[a].Value.Set(smartCount, smartValue)
			v.Children[a].AMAF.Set(smartCount, smartValue)
		}
	}
}

// hugeCount/hugeValue stand in for the original's +LargeInteger count and
// RC(-Infinity, Infinity) placeholder value: an action the prior does not
// reset (an illegal one) scalarizes to -Inf (NaN when lambda is 0), so
// greedy selection never picks it, and its enormous nominal visit count
// keeps its exploration bonus negligible.
const hugeCount = 1e9

var hugeValue = RC{R: math.Inf(-1), C: math.Inf(1)}

// Pool arena-allocates VNodes and recycles them through a free list on
// Free, avoiding a GC churn of one allocation per simulation step. One
// Pool belongs to exactly one search.Engine -- matching the teacher's own
// cacheNode-pool-per-search style rather than the original's single
// process-wide MEMORY_POOL<VNODE> static.
type Pool[S any] struct {
	numActions      int
	numObservations int
	free            []*VNode[S]
}

// NewPool creates a Pool sized for a domain with the given action and
// observation counts.
func NewPool[S any](numActions, numObservations int) *Pool[S] {
	return &Pool[S]{numActions: numActions, numObservations: numObservations}
}

// Allocate returns a freshly-initialised VNode, reusing a recycled one
// from the free list when available.
func (p *Pool[S]) Allocate() *VNode[S] {
	var v *VNode[S]
	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		v = &VNode[S]{}
	}
	v.initialise(p.numActions, p.numObservations)
	return v
}

// Free releases vnode's belief particles back to sim, recursively frees
// every descendant VNode reachable through its QNode children, and
// recycles vnode itself -- matching VNODE::Free.
func (p *Pool[S]) Free(vnode *VNode[S], sim simulator.Simulator[S]) {
	vnode.Belief.Free(sim)
	for a := range vnode.Children {
		for o := range vnode.Children[a].children {
			if child := vnode.Children[a].children[o]; child != nil {
				p.Free(child, sim)
				vnode.Children[a].children[o] = nil
			}
		}
	}
	p.free = append(p.free, vnode)
}
