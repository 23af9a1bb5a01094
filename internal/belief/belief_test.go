package belief_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jpfeifer-lab/ccpomcp/internal/belief"
	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
)

// intSim is a minimal Simulator[int] stub, enough to exercise particle
// ownership semantics without any real domain logic.
type intSim struct {
	freed   []int
	copies  int
	counter int
}

func (s *intSim) CreateStartState() int { s.counter++; return s.counter }
func (s *intSim) FreeState(v int)       { s.freed = append(s.freed, v) }
func (s *intSim) Copy(v int) int        { s.copies++; return v }
func (s *intSim) Step(int, int) (int, rc.RC, bool) {
	return 0, rc.RC{}, false
}
func (s *intSim) Validate(int) {}
func (s *intSim) GenerateLegal(int, *history.History, ccstatus.Status) []int {
	return nil
}
func (s *intSim) GeneratePreferred(int, *history.History, ccstatus.Status) []int {
	return nil
}
func (s *intSim) LocalMove(int, *history.History, int, ccstatus.Status) bool { return false }
func (s *intSim) HasAlpha() bool                                             { return false }
func (s *intSim) AlphaValue(int) (float64, float64)                          { return 0, 0 }
func (s *intSim) UpdateAlpha(int)                                            {}
func (s *intSim) NumActions() int                                           { return 1 }
func (s *intSim) NumObservations() int                                      { return 1 }
func (s *intSim) Discount() float64                                         { return 1 }
func (s *intSim) RewardRange() float64                                      { return 1 }
func (s *intSim) Horizon(float64, int) int                                  { return 1 }
func (s *intSim) Knowledge() ccstatus.Knowledge                             { return ccstatus.DefaultKnowledge() }

func TestEmptyCreateSamplePanics(t *testing.T) {
	var b belief.State[int]
	sim := &intSim{}
	r := rng.New(0)
	require.Panics(t, func() { b.CreateSample(sim, r) })
}

func TestAddSampleAndCreateSample(t *testing.T) {
	var b belief.State[int]
	sim := &intSim{}
	b.AddSample(1)
	b.AddSample(2)
	b.AddSample(3)
	require.Equal(t, 3, b.Len())

	r := rng.New(7)
	got := b.CreateSample(sim, r)
	require.Contains(t, []int{1, 2, 3}, got)
	require.Equal(t, 1, sim.copies)
	// CreateSample must not consume the particle it drew from.
	require.Equal(t, 3, b.Len())
}

func TestCopyIndependentOfSource(t *testing.T) {
	var src, dst belief.State[int]
	sim := &intSim{}
	src.AddSample(1)
	src.AddSample(2)

	dst.Copy(&src, sim)
	require.Equal(t, 2, dst.Len())
	require.Equal(t, 2, src.Len())
	require.Equal(t, 2, sim.copies)
}

func TestMoveTransfersOwnership(t *testing.T) {
	var src, dst belief.State[int]
	src.AddSample(1)
	src.AddSample(2)

	dst.Move(&src)
	require.Equal(t, 2, dst.Len())
	require.True(t, src.Empty())
}

func TestFreeReleasesEveryParticle(t *testing.T) {
	var b belief.State[int]
	sim := &intSim{}
	b.AddSample(10)
	b.AddSample(20)

	b.Free(sim)
	require.True(t, b.Empty())
	require.ElementsMatch(t, []int{10, 20}, sim.freed)
}
