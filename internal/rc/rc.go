// Package rc defines the reward-cost pair that every trajectory
// accumulation in the planner carries in lock-step, per specification §3.
//
// Grounded on original_source/src/node.h's RC class.
package rc

// RC pairs an expected-reward component with an expected-cost component.
// Both accumulate under the same discount factor along a trajectory.
type RC struct {
	R, C float64
}

// Add returns the component-wise sum of two RC values.
func (a RC) Add(b RC) RC {
	return RC{a.R + b.R, a.C + b.C}
}

// Scale returns a scaled by a scalar factor.
func (a RC) Scale(factor float64) RC {
	return RC{a.R * factor, a.C * factor}
}

// Div returns a divided by a scalar divisor.
func (a RC) Div(divisor float64) RC {
	return RC{a.R / divisor, a.C / divisor}
}

// Scalarize returns the Lagrangian-scalarized value R - lambda*C used
// throughout action selection (specification §4.4).
func (a RC) Scalarize(lambda float64) float64 {
	return a.R - lambda*a.C
}
