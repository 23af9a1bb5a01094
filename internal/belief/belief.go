// Package belief implements the belief state: an unordered, owned
// collection of simulator-state particles, per specification §3/§4.2.
//
// Grounded on original_source/src/beliefstate.h/.cpp.
package belief

import (
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
)

// State is a multiset of owned state particles of type S. Each particle is
// owned by exactly one State at any instant; ownership moves explicitly
// via AddSample/Move, or a fresh copy is made via Copy/CreateSample.
type State[S any] struct {
	samples []S
}

// Empty reports whether the belief holds no particles.
func (b *State[S]) Empty() bool {
	return len(b.samples) == 0
}

// Len returns the number of particles held.
func (b *State[S]) Len() int {
	return len(b.samples)
}

// Sample returns the particle at index i without transferring ownership.
func (b *State[S]) Sample(i int) S {
	return b.samples[i]
}

// AddSample transfers ownership of state into the belief.
func (b *State[S]) AddSample(state S) {
	b.samples = append(b.samples, state)
}

// CreateSample uniformly samples one particle and returns a newly owned
// deep copy via sim.Copy. Sampling an empty belief is a caller bug --
// per specification §4.2/§7, it is a programmer invariant violation, not a
// recoverable error, and callers must guard against it.
func (b *State[S]) CreateSample(sim simulator.Simulator[S], r *rng.Source) S {
	if b.Empty() {
		panic("belief: CreateSample called on an empty belief state")
	}
	idx := r.IntN(len(b.samples))
	return sim.Copy(b.samples[idx])
}

// Copy deep-copies every particle from other into b via sim.Copy, leaving
// other untouched.
func (b *State[S]) Copy(other *State[S], sim simulator.Simulator[S]) {
	for _, s := range other.samples {
		b.AddSample(sim.Copy(s))
	}
}

// Move transfers ownership of every particle from other into b, leaving
// other empty. No copies are made.
func (b *State[S]) Move(other *State[S]) {
	b.samples = append(b.samples, other.samples...)
	other.samples = nil
}

// Free asks sim to release every particle, then empties the belief.
func (b *State[S]) Free(sim simulator.Simulator[S]) {
	for _, s := range b.samples {
		sim.FreeState(s)
	}
	b.samples = nil
}
