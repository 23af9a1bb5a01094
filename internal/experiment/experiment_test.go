package experiment_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jpfeifer-lab/ccpomcp/internal/experiment"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/rocksample"
	"github.com/jpfeifer-lab/ccpomcp/internal/search"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
)

func newRockSample(r *rng.Source) simulator.Simulator[*rocksample.State] {
	sim, err := rocksample.NewStandardLayout("5x5", r)
	if err != nil {
		panic(err)
	}
	return sim
}

func smallParams() (experiment.Params, search.Params) {
	params := experiment.DefaultParams()
	params.NumRuns = 4
	params.NumSteps = 60
	params.MinDoubles = 2
	params.MaxDoubles = 4
	params.TransformDoubles = -2

	searchParams := search.DefaultParams()
	searchParams.MaxDepth = 30
	return params, searchParams
}

// TestRunCompletesWithinStepBudget exercises one episode end to end
// against the rock-sample 5x5 layout, checking only that it terminates
// and returns self-consistent discounted/undiscounted statistics -- not
// any particular score, since a single run's outcome is highly seed
// dependent.
func TestRunCompletesWithinStepBudget(t *testing.T) {
	params, searchParams := smallParams()
	searchParams.NumSimulations = 64
	searchParams.NumStartStates = 64

	exp := experiment.New[*rocksample.State](newRockSample, newRockSample, params, searchParams)

	outcome := exp.Run(0)
	require.LessOrEqual(t, outcome.Steps, params.NumSteps)
	require.GreaterOrEqual(t, outcome.Steps, 0)
	require.LessOrEqual(t, outcome.FinalLambda, searchParams.LambdaMax)
	// A terminated episode's discounted return never exceeds its
	// undiscounted one in magnitude for a non-negative discount <= 1.
	require.LessOrEqual(t, outcome.DiscountedReward, outcome.UndiscountedReward+1e-6)
}

// TestMultiRunAggregatesAcrossRuns checks that MultiRun folds every
// episode's statistics into the shared Results, rather than only the
// last one.
func TestMultiRunAggregatesAcrossRuns(t *testing.T) {
	params, searchParams := smallParams()
	searchParams.NumSimulations = 32
	searchParams.NumStartStates = 32

	exp := experiment.New[*rocksample.State](newRockSample, newRockSample, params, searchParams)

	require.NoError(t, exp.MultiRun(context.Background(), 1))
	require.Equal(t, params.NumRuns, exp.Summary().Runs)
}

// TestDiscountedReturnProducesOneRowPerLevel mirrors the end-to-end
// scenario: a doubling sweep over a small range of simulation counts on
// rock-sample 5x5 should produce exactly MaxDoubles-MinDoubles+1 rows,
// each with a positive run count, and WriteReport should render them
// with the exact header columns external tooling depends on.
func TestDiscountedReturnProducesOneRowPerLevel(t *testing.T) {
	params, searchParams := smallParams()

	exp := experiment.New[*rocksample.State](newRockSample, newRockSample, params, searchParams)

	var summary bytes.Buffer
	rows, err := exp.DiscountedReturn(context.Background(), 7, &summary)
	require.NoError(t, err)
	require.Len(t, rows, params.MaxDoubles-params.MinDoubles+1)

	for i, row := range rows {
		require.Equal(t, 1<<uint(params.MinDoubles+i), row.Simulations)
		require.Equal(t, params.NumRuns, row.Runs)
	}

	var report bytes.Buffer
	require.NoError(t, experiment.WriteReport(&report, rows))
	header := report.String()
	require.Contains(t, header, "Simulations\tTimeSteps\tRuns\t")
	require.Contains(t, header, "TimePerStep")
}
