// Package experiment drives repeated episodes of an Engine against a real
// (possibly different) simulator and aggregates the resulting
// reward/cost statistics, mirroring a doubling sweep over simulation
// counts.
//
// Grounded on original_source/src/experiment.cpp and experiment.h's
// EXPERIMENT class. The per-run concurrency (errgroup + a GOMAXPROCS-sized
// semaphore) is an enrichment over the original's sequential MultiRun loop,
// grounded on the teacher's trainer.go rescore function, which fans
// independent work out the same way.
package experiment

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/term"
	"k8s.io/klog/v2"

	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/search"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
	"github.com/jpfeifer-lab/ccpomcp/internal/stats"
)

// Params configures one Experiment, mirroring EXPERIMENT::PARAMS's fields
// and defaults.
type Params struct {
	// NumRuns is how many independent episodes MultiRun executes at each
	// sweep level.
	NumRuns int
	// NumSteps bounds how many steps a single episode may take against
	// the real simulator.
	NumSteps int
	// SimSteps records the search simulator's effective horizon;
	// DiscountedReturn sets it, and search.Params.MaxDepth, from
	// simulator.Horizon.
	SimSteps int
	// TimeOut is the wall-clock budget for one MultiRun call.
	TimeOut time.Duration
	// MinDoubles and MaxDoubles bound the doubling sweep DiscountedReturn
	// runs: simulation counts range over 2^MinDoubles .. 2^MaxDoubles.
	MinDoubles, MaxDoubles int
	// TransformDoubles offsets the particle-reinvigoration target from
	// the sweep level: NumTransforms = max(1, 2^(level+TransformDoubles)).
	TransformDoubles int
	// TransformAttempts scales MaxAttempts from NumTransforms.
	TransformAttempts int
	// Accuracy feeds simulator.Horizon's discounted-tail cutoff.
	Accuracy float64
	// UndiscountedHorizon is the step bound used when discount == 1.
	UndiscountedHorizon int
	// AutoExploration derives ExplorationConstant from the simulator's
	// RewardRange (or 0, under RAVE) instead of trusting the caller's
	// search.Params value.
	AutoExploration bool
}

// DefaultParams returns the same defaults as EXPERIMENT::PARAMS's
// constructor.
func DefaultParams() Params {
	return Params{
		NumRuns:             1000,
		NumSteps:             100000,
		SimSteps:             1000,
		TimeOut:              3600 * time.Second,
		MinDoubles:           0,
		MaxDoubles:           20,
		TransformDoubles:     -4,
		TransformAttempts:    1000,
		Accuracy:             0.01,
		UndiscountedHorizon:  1000,
		AutoExploration:      true,
	}
}

// Results accumulates the per-episode statistics RESULTS held in the
// original: wall-clock time, step counts, and both the undiscounted and
// discounted reward/cost returns, each as a running mean/variance.
type Results struct {
	mu sync.Mutex

	Time, TimeSteps                     stats.Accumulator
	UndiscountedReward, UndiscountedCost stats.Accumulator
	DiscountedReward, DiscountedCost     stats.Accumulator
}

func (r *Results) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Time.Clear()
	r.TimeSteps.Clear()
	r.UndiscountedReward.Clear()
	r.UndiscountedCost.Clear()
	r.DiscountedReward.Clear()
	r.DiscountedCost.Clear()
}

func (r *Results) add(elapsed time.Duration, steps int, undiscounted, discounted rc.RC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Time.Add(elapsed.Seconds())
	r.TimeSteps.Add(float64(steps))
	r.UndiscountedReward.Add(undiscounted.R)
	r.UndiscountedCost.Add(undiscounted.C)
	r.DiscountedReward.Add(discounted.R)
	r.DiscountedCost.Add(discounted.C)
}

func (r *Results) totalTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.Time.Total() * float64(time.Second))
}

// Factory constructs a fresh, independently-seeded Simulator instance.
// MultiRun calls this once per episode so concurrent runs never share
// mutable simulator state -- each goroutine owns its Engine, its belief
// particles, and the simulator instance that backs them.
type Factory[S any] func(r *rng.Source) simulator.Simulator[S]

// Experiment repeatedly runs a search Engine against a simulator built
// from newSim, scoring episodes against a (possibly different) simulator
// built from newReal -- mirroring EXPERIMENT's Real/Simulator distinction,
// which lets a planner reason about an approximate model while being
// graded against the true dynamics.
type Experiment[S any] struct {
	newReal, newSim Factory[S]
	params          Params
	searchParams    search.Params
	results         Results
}

// New constructs an Experiment, applying EXPERIMENT's AutoExploration
// rule: when enabled, ExplorationConstant is derived from the simulator's
// RewardRange (0 under RAVE, since RAVE's own bias constant takes over),
// overriding whatever searchParams.ExplorationConstant the caller passed.
func New[S any](newReal, newSim Factory[S], params Params, searchParams search.Params) *Experiment[S] {
	if params.AutoExploration {
		probe := newSim(rng.New(0))
		if searchParams.UseRave {
			searchParams.ExplorationConstant = 0
		} else {
			searchParams.ExplorationConstant = probe.RewardRange()
		}
	}
	return &Experiment[S]{
		newReal:      newReal,
		newSim:       newSim,
		params:       params,
		searchParams: searchParams,
	}
}

// RunOutcome summarizes a single episode.
type RunOutcome struct {
	Steps                                int
	UndiscountedReward, UndiscountedCost float64
	DiscountedReward, DiscountedCost     float64
	FinalLambda                          float64
	OutOfParticles                       bool
}

// Run plays one episode to completion (or to params.NumSteps), folding
// its statistics into the Experiment's shared Results. If the engine runs
// out of particles, the rest of the episode is played with
// simulator.SelectRandom instead of the planner. seed derives every source of randomness
// this run touches -- the real simulator, the search simulator, and the
// engine's own sampling -- so two Run calls with the same seed replay
// identically.
func (e *Experiment[S]) Run(seed uint64) RunOutcome {
	start := time.Now()

	real := e.newReal(rng.New(seed * 4))
	sim := e.newSim(rng.New(seed*4 + 1))
	eng := search.New[S](sim, e.searchParams, rng.New(seed*4+2))
	defer eng.Close()
	r := rng.New(seed*4 + 3)

	state := real.CreateStartState()
	defer real.FreeState(state)

	var undiscounted, discounted rc.RC
	discount := 1.0
	terminal := false
	outOfParticles := false
	step := 0

	for ; step < e.params.NumSteps; step++ {
		p := eng.SelectAction()
		action := p.SampleAction(r)

		observation, result, term := real.Step(state, action)
		terminal = term

		undiscounted = undiscounted.Add(result)
		discounted = discounted.Add(result.Scale(discount))
		discount *= real.Discount()

		next := eng.NextAdmissibleCost(p, action, result)
		eng.SetAdmissibleCost(next)

		if terminal {
			break
		}
		if !eng.Update(action, observation, result) {
			outOfParticles = true
			step++
			break
		}
		if time.Since(start) > e.params.TimeOut {
			break
		}
	}

	finalLambda := eng.Lambda()

	if outOfParticles {
		klog.V(2).Infof("experiment: particle deprivation at step %d, falling back to SelectRandom", step)
		h := eng.History().Clone()
		status := eng.Status()
		for ; step < e.params.NumSteps && !terminal; step++ {
			action := simulator.SelectRandom[S](real, state, h, status, r)
			observation, result, term := real.Step(state, action)
			terminal = term

			undiscounted = undiscounted.Add(result)
			discounted = discounted.Add(result.Scale(discount))
			discount *= real.Discount()

			h.Append(action, observation)
		}
	}

	elapsed := time.Since(start)
	e.results.add(elapsed, step, undiscounted, discounted)

	return RunOutcome{
		Steps:              step,
		UndiscountedReward: undiscounted.R,
		UndiscountedCost:   undiscounted.C,
		DiscountedReward:   discounted.R,
		DiscountedCost:     discounted.C,
		FinalLambda:        finalLambda,
		OutOfParticles:      outOfParticles,
	}
}

// MultiRun runs params.NumRuns episodes, fanning them out across an
// errgroup bounded by a GOMAXPROCS-sized semaphore -- each episode owns
// its own Engine and Simulator instances via Run's per-seed Factory
// calls, so no state is shared across goroutines. Stops early, the same
// way EXPERIMENT::MultiRun's sequential loop does, once the accumulated
// wall-clock time exceeds params.TimeOut.
func (e *Experiment[S]) MultiRun(ctx context.Context, baseSeed uint64) error {
	sem := semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))
	g, gctx := errgroup.WithContext(ctx)

	for n := 0; n < e.params.NumRuns; n++ {
		if e.results.totalTime() > e.params.TimeOut {
			klog.Infof("experiment: stopping after %d/%d runs, time budget exhausted", n, e.params.NumRuns)
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		seed := baseSeed + uint64(n)
		g.Go(func() error {
			defer sem.Release(1)
			e.Run(seed)
			return gctx.Err()
		})
	}
	return g.Wait()
}

// Row is one line of a DiscountedReturn sweep report, matching the
// external TSV contract column-for-column.
type Row struct {
	Simulations                         int
	TimeSteps                           float64
	Runs                                int
	UndiscRewardMean, UndiscRewardErr   float64
	UndiscCostMean, UndiscCostErr       float64
	DiscRewardMean, DiscRewardErr       float64
	DiscCostMean, DiscCostErr           float64
	Time, TimePerStep                   float64
}

// DiscountedReturn sweeps NumSimulations over 2^MinDoubles..2^MaxDoubles,
// setting MaxDepth from the search simulator's horizon and deriving
// NumStartStates/NumTransforms/MaxAttempts from the level the way
// EXPERIMENT::DiscountedReturn does, and running a fresh MultiRun batch
// at each level. summary, if non-nil, receives a human-readable rendering
// of each row as it completes.
func (e *Experiment[S]) DiscountedReturn(ctx context.Context, baseSeed uint64, summary io.Writer) ([]Row, error) {
	probeReal := e.newReal(rng.New(baseSeed))
	probeSim := e.newSim(rng.New(baseSeed))
	e.searchParams.MaxDepth = probeSim.Horizon(e.params.Accuracy, e.params.UndiscountedHorizon)
	e.params.SimSteps = probeSim.Horizon(e.params.Accuracy, e.params.UndiscountedHorizon)
	e.params.NumSteps = probeReal.Horizon(e.params.Accuracy, e.params.UndiscountedHorizon)

	var rows []Row
	for level := e.params.MinDoubles; level <= e.params.MaxDoubles; level++ {
		numSimulations := 1 << uint(level)

		transformLevel := level + e.params.TransformDoubles
		numTransforms := 1
		if transformLevel > 0 {
			numTransforms = 1 << uint(transformLevel)
		}

		e.searchParams.NumSimulations = numSimulations
		e.searchParams.NumStartStates = numSimulations
		e.searchParams.NumTransforms = numTransforms
		e.searchParams.MaxAttempts = numTransforms * e.params.TransformAttempts

		e.results.clear()
		if err := e.MultiRun(ctx, baseSeed+uint64(level)*uint64(e.params.NumRuns)); err != nil {
			return rows, err
		}

		row := e.toRow(numSimulations)
		rows = append(rows, row)
		if summary != nil {
			printSummary(summary, row)
		}

		if ctx.Err() != nil {
			break
		}
	}
	return rows, nil
}

// PrintSummary renders row via the same styled, human-readable format
// DiscountedReturn uses for each sweep level -- exposed so callers
// driving a single MultiRun batch outside of a sweep get the same
// ambient summary output.
func PrintSummary(w io.Writer, row Row) {
	printSummary(w, row)
}

// Summary returns the current Results as a Row, using the configured
// search NumSimulations as its Simulations column -- useful after a
// single MultiRun batch outside of a DiscountedReturn sweep.
func (e *Experiment[S]) Summary() Row {
	return e.toRow(e.searchParams.NumSimulations)
}

func (e *Experiment[S]) toRow(numSimulations int) Row {
	e.results.mu.Lock()
	defer e.results.mu.Unlock()

	runs := e.results.Time.Count()
	var timePerStep float64
	if steps := e.results.TimeSteps.Total(); steps > 0 {
		timePerStep = e.results.Time.Total() / steps
	}
	return Row{
		Simulations:      numSimulations,
		TimeSteps:        e.results.TimeSteps.Mean(),
		Runs:             runs,
		UndiscRewardMean: e.results.UndiscountedReward.Mean(),
		UndiscRewardErr:  e.results.UndiscountedReward.StdErr(),
		UndiscCostMean:   e.results.UndiscountedCost.Mean(),
		UndiscCostErr:    e.results.UndiscountedCost.StdErr(),
		DiscRewardMean:   e.results.DiscountedReward.Mean(),
		DiscRewardErr:    e.results.DiscountedReward.StdErr(),
		DiscCostMean:     e.results.DiscountedCost.Mean(),
		DiscCostErr:      e.results.DiscountedCost.StdErr(),
		Time:             e.results.Time.Total(),
		TimePerStep:      timePerStep,
	}
}

var reportColumns = []string{
	"Simulations", "TimeSteps", "Runs",
	"Undisc R mean", "Undisc R err", "Undisc C mean", "Undisc C err",
	"Disc R mean", "Disc R err", "Disc C mean", "Disc C err",
	"Time", "TimePerStep",
}

// WriteReport emits the machine-readable sweep report as tab-separated
// values, one header line followed by one line per Row.
func WriteReport(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintln(w, strings.Join(reportColumns, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		fields := []string{
			fmt.Sprintf("%d", row.Simulations),
			fmt.Sprintf("%.6f", row.TimeSteps),
			fmt.Sprintf("%d", row.Runs),
			fmt.Sprintf("%.6f", row.UndiscRewardMean),
			fmt.Sprintf("%.6f", row.UndiscRewardErr),
			fmt.Sprintf("%.6f", row.UndiscCostMean),
			fmt.Sprintf("%.6f", row.UndiscCostErr),
			fmt.Sprintf("%.6f", row.DiscRewardMean),
			fmt.Sprintf("%.6f", row.DiscRewardErr),
			fmt.Sprintf("%.6f", row.DiscCostMean),
			fmt.Sprintf("%.6f", row.DiscCostErr),
			fmt.Sprintf("%.6f", row.Time),
			fmt.Sprintf("%.6f", row.TimePerStep),
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}

var (
	summaryLabel = lipgloss.NewStyle().
			Background(lipgloss.Color("24")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)
	summaryValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// printSummary renders one Row as a styled one-line terminal summary,
// width-centered when a real terminal is attached. This is purely
// ambient, human-facing output -- the TSV rows from WriteReport are the
// machine-readable contract.
func printSummary(w io.Writer, row Row) {
	line := fmt.Sprintf("%s %s  %s %s  %s %s",
		summaryLabel.Render("sims"), summaryValue.Render(fmt.Sprintf("%d", row.Simulations)),
		summaryLabel.Render("R"), summaryValue.Render(fmt.Sprintf("%.3f±%.3f", row.DiscRewardMean, row.DiscRewardErr)),
		summaryLabel.Render("C"), summaryValue.Render(fmt.Sprintf("%.3f±%.3f", row.DiscCostMean, row.DiscCostErr)),
	)

	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > lipgloss.Width(line) {
			pad := (width - lipgloss.Width(line)) / 2
			fmt.Fprintln(w, strings.Repeat(" ", pad)+line)
			return
		}
	}
	fmt.Fprintln(w, line)
}
