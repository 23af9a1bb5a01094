package node_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/node"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
)

func TestAccumulatorMeanAndCount(t *testing.T) {
	var a node.Accumulator
	require.Equal(t, rc.RC{}, a.Value())
	require.Zero(t, a.Count())

	a.Add(rc.RC{R: 1, C: 2})
	a.Add(rc.RC{R: 3, C: 4})
	require.Equal(t, 2.0, a.Count())
	require.Equal(t, rc.RC{R: 2, C: 3}, a.Value())
}

func TestAccumulatorSetSeedsPriorCount(t *testing.T) {
	var a node.Accumulator
	a.Set(10, rc.RC{R: 1, C: 1})
	require.Equal(t, 10.0, a.Count())
	require.Equal(t, rc.RC{R: 1, C: 1}, a.Value())
}

func TestAccumulatorAddWeighted(t *testing.T) {
	var a node.Accumulator
	a.AddWeighted(rc.RC{R: 2, C: 0}, 0.5)
	require.Equal(t, 0.5, a.Count())
	require.Equal(t, rc.RC{R: 2, C: 0}, a.Value())
}

func TestPoolAllocateInitialisesChildren(t *testing.T) {
	pool := node.NewPool[int](3, 2)
	v := pool.Allocate()
	require.Len(t, v.Children, 3)
	for _, q := range v.Children {
		require.Nil(t, q.Child(0))
		require.Nil(t, q.Child(1))
	}
}

func TestPoolAllocateRecyclesFreedNodes(t *testing.T) {
	pool := node.NewPool[int](2, 2)
	sim := &nodeTestSim{}

	v1 := pool.Allocate()
	v1.Belief.AddSample(42)
	pool.Free(v1, sim)

	v2 := pool.Allocate()
	require.True(t, v2.Belief.Empty())
	require.Equal(t, []int{42}, sim.freed)
}

func TestInstallPriorPureSetsZero(t *testing.T) {
	pool := node.NewPool[int](3, 2)
	v := pool.Allocate()
	v.InstallPrior(ccstatus.Pure, nil, nil, 10, rc.RC{R: 1, C: 1})
	for _, q := range v.Children {
		require.Zero(t, q.Value.Count())
		require.Equal(t, rc.RC{}, q.Value.Value())
	}
}

func TestInstallPriorLegalResetsLegalActions(t *testing.T) {
	pool := node.NewPool[int](3, 2)
	v := pool.Allocate()
	v.InstallPrior(ccstatus.Legal, []int{0, 2}, nil, 10, rc.RC{R: 1, C: 1})

	require.Zero(t, v.Children[0].Value.Count())
	require.Zero(t, v.Children[2].Value.Count())
	// Action 1 was never declared legal, so it keeps the huge placeholder
	// count and the (-Inf reward, +Inf cost) value that keep greedy
	// selection from ever choosing it.
	require.Greater(t, v.Children[1].Value.Count(), 1e8)
}

func TestInstallPriorSmartSeedsPreferredActions(t *testing.T) {
	pool := node.NewPool[int](3, 2)
	v := pool.Allocate()
	v.InstallPrior(ccstatus.Smart, []int{0, 1, 2}, []int{1}, 10, rc.RC{R: 1, C: 1})

	require.Equal(t, 10.0, v.Children[1].Value.Count())
	require.Equal(t, rc.RC{R: 1, C: 1}, v.Children[1].Value.Value())
	require.Zero(t, v.Children[0].Value.Count())
}

type nodeTestSim struct {
	freed []int
}

func (s *nodeTestSim) CreateStartState() int { return 0 }
func (s *nodeTestSim) FreeState(v int)       { s.freed = append(s.freed, v) }
func (s *nodeTestSim) Copy(v int) int        { return v }
func (s *nodeTestSim) Step(int, int) (int, rc.RC, bool) {
	return 0, rc.RC{}, false
}
func (s *nodeTestSim) Validate(int) {}
func (s *nodeTestSim) GenerateLegal(int, *history.History, ccstatus.Status) []int {
	return nil
}
func (s *nodeTestSim) GeneratePreferred(int, *history.History, ccstatus.Status) []int {
	return nil
}
func (s *nodeTestSim) LocalMove(int, *history.History, int, ccstatus.Status) bool { return false }
func (s *nodeTestSim) HasAlpha() bool                                             { return false }
func (s *nodeTestSim) AlphaValue(int) (float64, float64)                          { return 0, 0 }
func (s *nodeTestSim) UpdateAlpha(int)                                            {}
func (s *nodeTestSim) NumActions() int                                           { return 1 }
func (s *nodeTestSim) NumObservations() int                                      { return 1 }
func (s *nodeTestSim) Discount() float64                                         { return 1 }
func (s *nodeTestSim) RewardRange() float64                                      { return 1 }
func (s *nodeTestSim) Horizon(float64, int) int                                  { return 1 }
func (s *nodeTestSim) Knowledge() ccstatus.Knowledge                             { return ccstatus.DefaultKnowledge() }
