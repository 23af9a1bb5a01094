// Package stats implements running statistic accumulators used for
// diagnostics and experiment reporting.
//
// Grounded on original_source/src/statistic.h's STATISTIC class, and on
// the teacher's matchStats struct in internal/searchers/mcts/mcts.go,
// which tracks simple running counters reported through klog.
package stats

import "math"

// Accumulator tracks count, mean, variance, min and max of a running
// sequence of float64 samples, using Welford's online algorithm for the
// mean/variance so the accumulator never needs to retain the samples.
type Accumulator struct {
	count      int
	mean       float64
	m2         float64
	min, max   float64
	total      float64
	haveBounds bool
}

// Add records a new sample.
func (a *Accumulator) Add(x float64) {
	a.count++
	a.total += x
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	delta2 := x - a.mean
	a.m2 += delta * delta2

	if !a.haveBounds {
		a.min, a.max = x, x
		a.haveBounds = true
	} else {
		if x < a.min {
			a.min = x
		}
		if x > a.max {
			a.max = x
		}
	}
}

// Clear resets the accumulator.
func (a *Accumulator) Clear() {
	*a = Accumulator{}
}

// Count returns the number of samples added.
func (a *Accumulator) Count() int { return a.count }

// Total returns the running sum of samples.
func (a *Accumulator) Total() float64 { return a.total }

// Mean returns the running mean, or 0 if no samples were added.
func (a *Accumulator) Mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.mean
}

// Variance returns the running (population) variance, or 0 for fewer than
// two samples.
func (a *Accumulator) Variance() float64 {
	if a.count < 2 {
		return 0
	}
	return a.m2 / float64(a.count)
}

// StdDev returns the running standard deviation.
func (a *Accumulator) StdDev() float64 {
	return math.Sqrt(a.Variance())
}

// StdErr returns the standard error of the mean, matching the original's
// STATISTIC::GetStdErr (std-dev / sqrt(count)).
func (a *Accumulator) StdErr() float64 {
	if a.count == 0 {
		return 0
	}
	return a.StdDev() / math.Sqrt(float64(a.count))
}

// Min returns the smallest sample added, or 0 if none were added.
func (a *Accumulator) Min() float64 { return a.min }

// Max returns the largest sample added, or 0 if none were added.
func (a *Accumulator) Max() float64 { return a.max }
