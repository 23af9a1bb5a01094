package rocksample_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/rocksample"
)

func TestNewStandardLayoutUnknownName(t *testing.T) {
	_, err := rocksample.NewStandardLayout("9x9", rng.New(0))
	require.Error(t, err)
}

func TestCreateStartStatePlacesAgentAndSeedsRocks(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(0))
	require.NoError(t, err)

	state := sim.CreateStartState()
	require.Equal(t, 10, sim.NumActions()) // 5 rocks + 5 (4 moves + sample)
	require.Equal(t, 3, sim.NumObservations())
	require.Equal(t, -1, state.Target)
	require.NotPanics(t, func() { sim.Validate(state) })
}

func TestEastAtLastColumnTerminatesWithBonus(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(0))
	require.NoError(t, err)
	state := sim.CreateStartState()

	var terminal bool
	for i := 0; i < sim.NumActions()+10 && !terminal; i++ {
		_, result, term := sim.Step(state, rocksample.ActionEast)
		terminal = term
		if terminal {
			require.Equal(t, 10.0, result.R)
		}
	}
	require.True(t, terminal, "walking east repeatedly should eventually fall off the grid")
}

func TestGenerateLegalExcludesSampleOffRock(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(1))
	require.NoError(t, err)
	state := sim.CreateStartState()

	legal := sim.GenerateLegal(state, &history.History{}, ccstatus.Status{})
	require.NotContains(t, legal, rocksample.ActionSample)
	for rock := 0; rock < 5; rock++ {
		require.Contains(t, legal, rocksample.CheckRockAction(rock))
	}
}

func TestCheckRockAddsCostAndValidObservation(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(2))
	require.NoError(t, err)
	state := sim.CreateStartState()

	obs, result, terminal := sim.Step(state, rocksample.CheckRockAction(0))
	require.False(t, terminal)
	require.Equal(t, 1.0, result.C)
	require.Contains(t, []int{0, 1, 2}, obs)
}

func TestSelectTargetAlwaysReturnsMinusOne(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(3))
	require.NoError(t, err)
	state := sim.CreateStartState()
	require.Equal(t, -1, sim.SelectTarget(state))

	// Even after a check (which mutates the rock's Count and could have
	// fed an UncertaintyCount-gated target), the target stays -1 -- the
	// original's preserved bug (specification §9).
	sim.Step(state, rocksample.CheckRockAction(0))
	require.Equal(t, -1, sim.SelectTarget(state))
}

func TestLocalMoveNeverPanics(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(4))
	require.NoError(t, err)
	state := sim.CreateStartState()

	obs, _, _ := sim.Step(state, rocksample.CheckRockAction(0))

	h := &history.History{}
	h.Append(rocksample.CheckRockAction(0), obs)

	require.NotPanics(t, func() {
		sim.LocalMove(state, h, obs, ccstatus.Status{})
	})
}

func TestCopyIsIndependent(t *testing.T) {
	sim, err := rocksample.NewStandardLayout("5x5", rng.New(5))
	require.NoError(t, err)
	state := sim.CreateStartState()

	clone := sim.Copy(state)
	clone.AgentPos.X = -7

	require.NotEqual(t, clone.AgentPos, state.AgentPos)
}
