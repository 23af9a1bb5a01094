package search

import (
	"math"

	"github.com/jpfeifer-lab/ccpomcp/internal/node"
	"github.com/jpfeifer-lab/ccpomcp/internal/policy"
)

// ucbTableN and ucbTableSmallN size the precomputed UCB bias table: for
// (N, n) pairs inside these bounds, FastUCB is a lookup rather than a
// log/sqrt. Matches MCTS::UCB_N / MCTS::UCB_n.
const (
	ucbTableN      = 10000
	ucbTableSmallN = 100
)

// buildUCBTable precomputes exploration*sqrt(log(N+1)/n) for every (N, n)
// pair inside the table bounds, with n == 0 mapped to +Inf so an
// untried action always wins ties. Matches MCTS::InitFastUCB.
func buildUCBTable(exploration float64) [][]float64 {
	table := make([][]float64, ucbTableN)
	for N := range table {
		row := make([]float64, ucbTableSmallN)
		for n := range row {
			if n == 0 {
				row[n] = math.Inf(1)
			} else {
				row[n] = exploration * math.Sqrt(math.Log(float64(N+1))/float64(n))
			}
		}
		table[N] = row
	}
	return table
}

// fastUCB returns the UCB exploration bonus for a node visited N times
// whose child action has been visited n times, preferring the
// precomputed table when in range. Matches MCTS::FastUCB.
func (e *Engine[S]) fastUCB(N, n, logN float64) float64 {
	Ni, ni := int(N), int(n)
	if e.ucbTable != nil && Ni >= 0 && Ni < ucbTableN && ni >= 0 && ni < ucbTableSmallN {
		return e.ucbTable[Ni][ni]
	}
	if n == 0 {
		return math.Inf(1)
	}
	return e.params.ExplorationConstant * math.Sqrt(logN/n)
}

// greedyUCB picks the scalarized-value-maximizing action(s) at vnode --
// optionally adding the UCB exploration bonus (tree descent) or not (the
// final action commitment) -- and returns the stochastic Policy that
// mixes the lowest- and highest-cost action among those tied for best,
// weighted to meet the Engine's admissible cost bound exactly.
//
// Matches MCTS::GreedyUCB, with one deliberate omission: the original's
// alpha-vector blending branch is gated behind `assert(false) // test...`
// in its own source, meaning it has never actually executed for any
// shipped scenario -- HasAlpha() is always false here too, so that branch
// is not reproduced; see DESIGN.md.
func (e *Engine[S]) greedyUCB(vnode *node.VNode[S], ucb, stochastic bool) policy.Policy {
	numActions := e.sim.NumActions()

	var besta []int
	bestQ, bestQplus := math.Inf(-1), math.Inf(-1)
	N := vnode.Value.Count()
	logN := math.Log(N + 1)

	for action := 0; action < numActions; action++ {
		qnode := &vnode.Children[action]
		q := qnode.Value.Value().Scalarize(e.lambda)
		n := qnode.Value.Count()

		if e.params.UseRave && qnode.AMAF.Count() > 0 {
			n2 := qnode.AMAF.Count()
			beta := n2 / (n + n2 + e.params.RaveConstant*n*n2)
			q = (1.0-beta)*q + beta*qnode.AMAF.Value().Scalarize(e.lambda)
		}

		qplus := q
		if ucb {
			qplus += e.fastUCB(N, n, logN)
		}

		switch e.treeAlgorithm {
		case CCPOMCP:
			if qplus >= bestQplus {
				if qplus > bestQplus {
					besta = besta[:0]
				}
				bestQplus = qplus
				bestQ = q
				besta = append(besta, action)
			}
		case Baseline:
			if qnode.Value.Value().C < e.cHat && qplus >= bestQplus {
				if qplus > bestQplus {
					besta = besta[:0]
				}
				bestQplus = qplus
				bestQ = q
				besta = append(besta, action)
			}
		}
	}

	if e.treeAlgorithm == Baseline {
		if len(besta) == 0 {
			for {
				action := e.rng.IntN(numActions)
				child := &vnode.Children[action]
				if child.Value.Count() == 0 || child.Value.Value().R > math.Inf(-1) {
					return policy.Degenerate(action)
				}
			}
		}
		action := besta[e.rng.IntN(len(besta))]
		return policy.Degenerate(action)
	}

	// CCPOMCP: additionally widen the tied set by a depth-decaying bias
	// tolerance, then mix the tied actions' cost extremes.
	bestAction := besta[e.rng.IntN(len(besta))]

	biasConstant := math.Exp(-float64(e.treeDepth)) * 0.1
	minCost, maxCost := math.Inf(1), math.Inf(-1)
	minCostAction, maxCostAction := -1, -1

	bestActionN := vnode.Children[bestAction].Value.Count()
	bestActionBias := biasConstant * (math.Log(bestActionN+1) / (bestActionN + 1))

	for action := 0; action < numActions; action++ {
		qnode := &vnode.Children[action]
		qR := qnode.Value.Value().R
		qC := qnode.Value.Value().C
		q := qR - e.lambda*qC
		n := qnode.Value.Count()
		actionBias := biasConstant * (math.Log(n+1) / (n + 1))

		threshold := 0.0
		if stochastic {
			threshold = bestActionBias + actionBias
		}
		if math.Abs(bestQ-q) <= threshold {
			if qC < minCost {
				minCost = qC
				minCostAction = action
			}
			if qC > maxCost {
				maxCost = qC
				maxCostAction = action
			}
		}
	}

	return policy.New(minCost, maxCost, minCostAction, maxCostAction, e.cHat)
}
