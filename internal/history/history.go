// Package history implements the ordered (action, observation) sequence
// that the planner's tree descent appends to and the experiment driver
// truncates back to, as described in specification §3/§5.
//
// Grounded on original_source/src/history.h.
package history

// Entry is one (action, observation) pair. Observation is -1 for an entry
// whose observation has not yet been recorded (mirroring the original's
// default Observation of -1 in HISTORY::Add).
type Entry struct {
	Action      int
	Observation int
}

// History is the append/pop/truncate sequence described in specification
// §3: "the planner's history always mirrors the sequence of real-world
// commitments plus whatever simulated prefix the current descent has
// appended; it is restored to its real length after each simulation by
// truncation."
type History struct {
	entries []Entry
}

// Append adds a new (action, observation) entry.
func (h *History) Append(action, observation int) {
	h.entries = append(h.entries, Entry{Action: action, Observation: observation})
}

// Pop removes the last entry. Panics if History is empty.
func (h *History) Pop() {
	if len(h.entries) == 0 {
		panic("history: Pop called on empty history")
	}
	h.entries = h.entries[:len(h.entries)-1]
}

// Truncate resizes the history down to length n, discarding anything
// appended since. n must be <= Len().
func (h *History) Truncate(n int) {
	h.entries = h.entries[:n]
}

// Clear empties the history.
func (h *History) Clear() {
	h.entries = h.entries[:0]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// At returns the entry at index t.
func (h *History) At(t int) Entry {
	return h.entries[t]
}

// SetObservation updates the observation of the entry at index t --  used
// while replaying a stored history for display, mirroring the original's
// HISTORY::operator[] mutable access pattern.
func (h *History) SetObservation(t, observation int) {
	h.entries[t].Observation = observation
}

// Back returns the last entry. Panics if History is empty.
func (h *History) Back() Entry {
	if len(h.entries) == 0 {
		panic("history: Back called on empty history")
	}
	return h.entries[len(h.entries)-1]
}

// Equal reports whether two histories have the same entries in the same
// order.
func (h *History) Equal(other *History) bool {
	if len(h.entries) != len(other.entries) {
		return false
	}
	for i, e := range h.entries {
		if e != other.entries[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the history.
func (h *History) Clone() *History {
	clone := &History{entries: make([]Entry, len(h.entries))}
	copy(clone.entries, h.entries)
	return clone
}
