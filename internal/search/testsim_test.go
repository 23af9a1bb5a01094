package search_test

import (
	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
)

// testState is the minimal generic-depth state used to exercise search
// convergence without any domain-specific semantics -- mirroring
// original_source/src/testsimulator.h's TEST_STATE.
type testState struct {
	depth int
}

// testSimulator rewards action 0 for the first maxDepth steps regardless
// of observation, and emits a uniformly random observation every step.
// Mirrors original_source/src/testsimulator.h's TEST_SIMULATOR.
type testSimulator struct {
	numActions, numObservations, maxDepth int
	r                                      *rng.Source
}

func newTestSimulator(actions, observations, maxDepth int) *testSimulator {
	return &testSimulator{numActions: actions, numObservations: observations, maxDepth: maxDepth, r: rng.New(0)}
}

func (s *testSimulator) CreateStartState() *testState { return &testState{} }
func (s *testSimulator) FreeState(*testState)          {}
func (s *testSimulator) Copy(st *testState) *testState { c := *st; return &c }

func (s *testSimulator) Step(st *testState, action int) (int, rc.RC, bool) {
	var rewardcost rc.RC
	if st.depth < s.maxDepth && action == 0 {
		rewardcost = rc.RC{R: 1.0, C: 1.0}
	}
	observation := s.r.IntN(s.numObservations)
	st.depth++
	return observation, rewardcost, false
}

func (s *testSimulator) Validate(*testState) {}
func (s *testSimulator) GenerateLegal(*testState, *history.History, ccstatus.Status) []int {
	return simulator.AllActions(s.numActions)
}
func (s *testSimulator) GeneratePreferred(*testState, *history.History, ccstatus.Status) []int {
	return nil
}
func (s *testSimulator) LocalMove(*testState, *history.History, int, ccstatus.Status) bool {
	return false
}
func (s *testSimulator) HasAlpha() bool                   { return false }
func (s *testSimulator) AlphaValue(*testState) (float64, float64) { return 0, 0 }
func (s *testSimulator) UpdateAlpha(*testState)           {}
func (s *testSimulator) NumActions() int                 { return s.numActions }
func (s *testSimulator) NumObservations() int             { return s.numObservations }
func (s *testSimulator) Discount() float64                { return 1.0 }
func (s *testSimulator) RewardRange() float64              { return 1.0 }
func (s *testSimulator) Horizon(accuracy float64, undiscountedHorizon int) int {
	return simulator.Horizon(s.Discount(), accuracy, undiscountedHorizon)
}
func (s *testSimulator) Knowledge() ccstatus.Knowledge { return ccstatus.DefaultKnowledge() }

// optimalValue returns the best achievable value: always take action 0.
func (s *testSimulator) optimalValue() rc.RC {
	discount := 1.0
	var total rc.RC
	for i := 0; i < s.maxDepth; i++ {
		total = total.Add(rc.RC{R: discount, C: discount})
	}
	return total
}

// meanValue returns the value of a uniformly random policy.
func (s *testSimulator) meanValue() rc.RC {
	discount := 1.0
	var total rc.RC
	n := float64(s.numActions)
	for i := 0; i < s.maxDepth; i++ {
		total = total.Add(rc.RC{R: discount / n, C: discount / n})
	}
	return total
}
