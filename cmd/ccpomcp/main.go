// Command ccpomcp runs a CC-POMCP experiment against the rock-sample
// benchmark domain, sweeping simulation counts and reporting discounted
// and undiscounted reward/cost returns.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/jpfeifer-lab/ccpomcp/internal/experiment"
	"github.com/jpfeifer-lab/ccpomcp/internal/generics"
	"github.com/jpfeifer-lab/ccpomcp/internal/parameters"
	"github.com/jpfeifer-lab/ccpomcp/internal/profilers"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/rocksample"
	"github.com/jpfeifer-lab/ccpomcp/internal/search"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
	"github.com/jpfeifer-lab/ccpomcp/internal/ui/spinning"
)

var (
	flagDomain = flag.String("domain", "rocksample", "Domain to run: only \"rocksample\" is built in.")
	flagLayout = flag.String("layout", "7x8", "Rock-sample layout: one of 5x5, 5x7, 7x8, 11x11.")
	flagSeed   = flag.Uint64("seed", 0, "Base seed for the experiment's random streams.")
	flagOutput = flag.String("output", "", "TSV report path; defaults to stdout.")
	flagParams = flag.String("params", "", "Comma-separated search/experiment overrides, e.g. "+
		"\"min_doubles=0,max_doubles=12,use_rave=true,c_hat=5\".")
	flagQuiet = flag.Bool("quiet", false, "Suppress the human-readable per-level summary.")
	flagSweep = flag.Bool("sweep", true, "Run the full MinDoubles..MaxDoubles simulation-count "+
		"sweep; if false, run a single MultiRun batch at --params' num_simulations.")
)

func newRockSampleFactory(layout string) experiment.Factory[*rocksample.State] {
	return func(r *rng.Source) simulator.Simulator[*rocksample.State] {
		return must.M1(rocksample.NewStandardLayout(layout, r))
	}
}

func buildParams() (experiment.Params, search.Params) {
	expParams := experiment.DefaultParams()
	searchParams := search.DefaultParams()

	if *flagParams == "" {
		return expParams, searchParams
	}
	overrides := parameters.NewFromConfigString(*flagParams)

	expParams.NumRuns = must.M1(parameters.PopParamOr(overrides, "num_runs", expParams.NumRuns))
	expParams.MinDoubles = must.M1(parameters.PopParamOr(overrides, "min_doubles", expParams.MinDoubles))
	expParams.MaxDoubles = must.M1(parameters.PopParamOr(overrides, "max_doubles", expParams.MaxDoubles))
	expParams.TransformDoubles = must.M1(parameters.PopParamOr(overrides, "transform_doubles", expParams.TransformDoubles))
	expParams.TransformAttempts = must.M1(parameters.PopParamOr(overrides, "transform_attempts", expParams.TransformAttempts))
	expParams.Accuracy = must.M1(parameters.PopParamOr(overrides, "accuracy", expParams.Accuracy))
	timeOutSeconds := must.M1(parameters.PopParamOr(overrides, "timeout_s", int(expParams.TimeOut.Seconds())))
	expParams.TimeOut = time.Duration(timeOutSeconds) * time.Second

	searchParams.NumSimulations = must.M1(parameters.PopParamOr(overrides, "num_simulations", searchParams.NumSimulations))
	searchParams.NumStartStates = must.M1(parameters.PopParamOr(overrides, "num_start_states", searchParams.NumStartStates))
	searchParams.UseRave = must.M1(parameters.PopParamOr(overrides, "use_rave", searchParams.UseRave))
	searchParams.CHat = must.M1(parameters.PopParamOr(overrides, "c_hat", searchParams.CHat))
	searchParams.LambdaMax = must.M1(parameters.PopParamOr(overrides, "lambda_max", searchParams.LambdaMax))
	searchParams.ExpandCount = must.M1(parameters.PopParamOr(overrides, "expand_count", searchParams.ExpandCount))
	searchParams.DisableTree = must.M1(parameters.PopParamOr(overrides, "disable_tree", searchParams.DisableTree))
	baseline := must.M1(parameters.PopParamOr(overrides, "baseline", false))
	if baseline {
		searchParams.TreeAlgorithm = search.Baseline
	}

	for key := range generics.SortedKeys(overrides) {
		klog.Warningf("ccpomcp: unrecognized --params key %q ignored", key)
	}
	return expParams, searchParams
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 3*time.Second)
	defer cancel()

	profilers.Setup(ctx)
	defer profilers.OnQuit()

	if *flagDomain != "rocksample" {
		klog.Fatalf("ccpomcp: unsupported --domain=%q", *flagDomain)
	}

	expParams, searchParams := buildParams()
	factory := newRockSampleFactory(*flagLayout)
	exp := experiment.New[*rocksample.State](factory, factory, expParams, searchParams)

	out := os.Stdout
	if *flagOutput != "" {
		out = must.M1(os.Create(*flagOutput))
		defer out.Close()
	}

	var summary io.Writer
	if !*flagQuiet {
		summary = os.Stderr
	}

	var rows []experiment.Row
	var err error
	if *flagSweep {
		rows, err = exp.DiscountedReturn(ctx, *flagSeed, summary)
	} else {
		if err = exp.MultiRun(ctx, *flagSeed); err == nil {
			row := exp.Summary()
			rows = []experiment.Row{row}
			if summary != nil {
				experiment.PrintSummary(summary, row)
			}
		}
	}
	if err != nil {
		klog.Fatalf("ccpomcp: experiment failed: %+v", err)
	}
	must.M(experiment.WriteReport(out, rows))
	fmt.Fprintf(os.Stderr, "ccpomcp: wrote %d rows\n", len(rows))
}
