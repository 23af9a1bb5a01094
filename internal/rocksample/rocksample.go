// Package rocksample implements the rock-sample POMDP benchmark as a
// concrete simulator.Simulator, supplementing the distilled specification
// with the one domain collaborator the original CC-POMCP paper evaluates
// against (specification §4.7).
//
// Grounded on original_source/src/rocksample.cpp and grid.h/coord.h --
// there is no corresponding header in the retrieved source tree, so the
// ROCKSAMPLE_STATE fields and action/observation numbering below are
// reconstructed from how rocksample.cpp itself uses them.
package rocksample

import (
	"math"

	"github.com/pkg/errors"

	"github.com/jpfeifer-lab/ccpomcp/internal/ccstatus"
	"github.com/jpfeifer-lab/ccpomcp/internal/coord"
	"github.com/jpfeifer-lab/ccpomcp/internal/history"
	"github.com/jpfeifer-lab/ccpomcp/internal/rc"
	"github.com/jpfeifer-lab/ccpomcp/internal/rng"
	"github.com/jpfeifer-lab/ccpomcp/internal/simulator"
)

// Action numbering mirrors COORD::E_NORTH..E_WEST followed by Sample and
// one CheckRock slot per rock, matching rocksample.cpp's action < E_SAMPLE
// / == E_SAMPLE / > E_SAMPLE branches.
const (
	ActionNorth = int(coord.North)
	ActionEast  = int(coord.East)
	ActionSouth = int(coord.South)
	ActionWest  = int(coord.West)
)

// ActionSample samples whatever rock sits under the agent.
const ActionSample = 4

const actionSample = ActionSample

// Observation numbering matches rocksample.cpp's E_NONE/E_GOOD/E_BAD.
const (
	ObsNone = iota
	ObsGood
	ObsBad
)

// CheckRockAction returns the action index that checks rock i.
func CheckRockAction(i int) int { return actionSample + 1 + i }

// rockEntry is the per-rock belief/bookkeeping carried inside a State,
// mirroring ROCKSAMPLE_STATE::ENTRY.
type rockEntry struct {
	Collected            bool
	Valuable             bool
	Count                int
	Measured             int
	ProbValuable         float64
	LikelihoodValuable   float64
	LikelihoodWorthless  float64
}

// State is the rock-sample domain state: the agent's position and every
// rock's hidden value plus accumulated belief statistics. Mirrors
// ROCKSAMPLE_STATE.
type State struct {
	AgentPos coord.Coord
	Rocks    []rockEntry
	Target   int
}

// Simulator implements simulator.Simulator[*State] for a fixed grid/rock
// layout. Mirrors ROCKSAMPLE.
type Simulator struct {
	size                   int
	numRocks               int
	rockPos                []coord.Coord
	grid                   []int // rock index per cell, -1 if none
	startPos               coord.Coord
	halfEfficiencyDistance float64
	uncertaintyCount       int
	discount               float64
	rewardRange            float64
	r                      *rng.Source
}

func (s *Simulator) cellIndex(c coord.Coord) int { return c.Y*s.size + c.X }

func (s *Simulator) rockAt(c coord.Coord) int {
	if c.X < 0 || c.Y < 0 || c.X >= s.size || c.Y >= s.size {
		return -1
	}
	return s.grid[s.cellIndex(c)]
}

func newBlankSimulator(size, numRocks int, r *rng.Source) *Simulator {
	grid := make([]int, size*size)
	for i := range grid {
		grid[i] = -1
	}
	return &Simulator{
		size:        size,
		numRocks:    numRocks,
		grid:        grid,
		discount:    0.95,
		rewardRange: 20,
		r:           r,
	}
}

func (s *Simulator) placeRocks(rocks []coord.Coord) {
	s.rockPos = s.rockPos[:0]
	for i, pos := range rocks {
		s.grid[s.cellIndex(pos)] = i
		s.rockPos = append(s.rockPos, pos)
	}
}

// NewStandardLayout builds one of the original paper's fixed grid/rock
// layouts by name ("5x5", "5x7", "7x8", "11x11"), matching
// ROCKSAMPLE::Init_5_5 and its siblings. r seeds the simulator's own
// stochastic draws (start-state rock values, sensor noise); the layout
// itself is fixed, not drawn from r.
func NewStandardLayout(name string, r *rng.Source) (*Simulator, error) {
	switch name {
	case "5x5":
		s := newBlankSimulator(5, 5, r)
		s.halfEfficiencyDistance = 4
		s.startPos = coord.Coord{X: 0, Y: 2}
		s.placeRocks([]coord.Coord{{X: 2, Y: 4}, {X: 0, Y: 4}, {X: 3, Y: 3}, {X: 2, Y: 2}, {X: 4, Y: 1}})
		return s, nil
	case "5x7":
		s := newBlankSimulator(5, 7, r)
		s.halfEfficiencyDistance = 20
		s.startPos = coord.Coord{X: 0, Y: 2}
		s.placeRocks([]coord.Coord{{X: 1, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 4, Y: 2}, {X: 0, Y: 3}, {X: 3, Y: 4}})
		return s, nil
	case "7x8":
		s := newBlankSimulator(7, 8, r)
		s.halfEfficiencyDistance = 20
		s.startPos = coord.Coord{X: 0, Y: 3}
		s.placeRocks([]coord.Coord{{X: 2, Y: 0}, {X: 0, Y: 1}, {X: 3, Y: 1}, {X: 6, Y: 3}, {X: 2, Y: 4}, {X: 3, Y: 4}, {X: 5, Y: 5}, {X: 1, Y: 6}})
		return s, nil
	case "11x11":
		s := newBlankSimulator(11, 11, r)
		s.halfEfficiencyDistance = 20
		s.startPos = coord.Coord{X: 0, Y: 5}
		s.placeRocks([]coord.Coord{
			{X: 0, Y: 3}, {X: 0, Y: 7}, {X: 1, Y: 8}, {X: 2, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 8},
			{X: 4, Y: 3}, {X: 5, Y: 8}, {X: 6, Y: 1}, {X: 9, Y: 3}, {X: 9, Y: 9},
		})
		return s, nil
	default:
		return nil, errors.Errorf("rocksample: unknown standard layout %q", name)
	}
}

// NewGeneral builds a grid with numRocks placed uniformly at random over
// size*size cells, using layoutSeed to make the layout itself
// reproducible independent of r (mirrors ROCKSAMPLE::InitGeneral's own
// RandomSeed(0) call, which reseeds the process-wide stream before
// scattering rocks regardless of the caller's own random source).
func NewGeneral(size, numRocks int, layoutSeed uint64, r *rng.Source) *Simulator {
	s := newBlankSimulator(size, numRocks, r)
	s.halfEfficiencyDistance = 20
	s.startPos = coord.Coord{X: 0, Y: size / 2}

	layoutRNG := rng.New(layoutSeed)
	rocks := make([]coord.Coord, 0, numRocks)
	for i := 0; i < numRocks; i++ {
		var pos coord.Coord
		for {
			pos = coord.Coord{X: layoutRNG.IntN(size), Y: layoutRNG.IntN(size)}
			if s.rockAt(pos) < 0 {
				break
			}
		}
		rocks = append(rocks, pos)
	}
	s.placeRocks(rocks)
	return s
}

// NumActions is NumRocks + 5 (four moves, sample, one check per rock).
func (s *Simulator) NumActions() int { return s.numRocks + 5 }

// NumObservations is 3 (none, good, bad).
func (s *Simulator) NumObservations() int { return 3 }

// Discount matches ROCKSAMPLE's constructor-set 0.95.
func (s *Simulator) Discount() float64 { return s.discount }

// RewardRange matches ROCKSAMPLE's constructor-set 20.
func (s *Simulator) RewardRange() float64 { return s.rewardRange }

// Horizon delegates to the shared discounted-horizon formula.
func (s *Simulator) Horizon(accuracy float64, undiscountedHorizon int) int {
	return simulator.Horizon(s.discount, accuracy, undiscountedHorizon)
}

// Knowledge returns the default Legal/Legal/10/(1,1) configuration; the
// original never overrides SIMULATOR::KNOWLEDGE for rock-sample.
func (s *Simulator) Knowledge() ccstatus.Knowledge { return ccstatus.DefaultKnowledge() }

// HasAlpha is always false: rock-sample never supplies an alpha-vector
// value function.
func (s *Simulator) HasAlpha() bool                      { return false }
func (s *Simulator) AlphaValue(*State) (float64, float64) { return 0, 0 }
func (s *Simulator) UpdateAlpha(*State)                  {}

// CreateStartState draws a fresh hidden rock-value assignment from the
// uniform Bernoulli(0.5) prior. Mirrors ROCKSAMPLE::CreateStartState.
func (s *Simulator) CreateStartState() *State {
	state := &State{AgentPos: s.startPos, Rocks: make([]rockEntry, s.numRocks)}
	for i := range state.Rocks {
		state.Rocks[i] = rockEntry{
			Valuable:            s.r.Bernoulli(0.5),
			ProbValuable:        0.5,
			LikelihoodValuable:  1.0,
			LikelihoodWorthless: 1.0,
		}
	}
	state.Target = s.SelectTarget(state)
	return state
}

// FreeState is a no-op: State is ordinary garbage-collected memory.
func (s *Simulator) FreeState(*State) {}

// Copy returns a deep copy of state.
func (s *Simulator) Copy(state *State) *State {
	clone := *state
	clone.Rocks = append([]rockEntry(nil), state.Rocks...)
	return &clone
}

// Validate panics if the agent's position has left the grid.
func (s *Simulator) Validate(state *State) {
	if state.AgentPos.X < 0 || state.AgentPos.Y < 0 || state.AgentPos.X >= s.size || state.AgentPos.Y >= s.size {
		panic(errors.Errorf("rocksample: agent position %v outside %dx%d grid", state.AgentPos, s.size, s.size))
	}
}

// sensorCorrectProbability is the rock-check sensor's probability of
// reporting the rock's true value, decaying with distance via
// HalfEfficiencyDistance. Mirrors rocksample.cpp's inline efficiency
// computation in Step/GetObservation.
func (s *Simulator) sensorCorrectProbability(agent, rock coord.Coord) float64 {
	distance := coord.EuclideanDistance(agent, rock)
	return (1 + math.Pow(2, -distance/s.halfEfficiencyDistance)) * 0.5
}

// getObservation draws a noisy check-rock observation. Mirrors
// ROCKSAMPLE::GetObservation.
func (s *Simulator) getObservation(state *State, rock int) int {
	efficiency := s.sensorCorrectProbability(state.AgentPos, s.rockPos[rock])
	correct := s.r.Bernoulli(efficiency)
	valuable := state.Rocks[rock].Valuable
	switch {
	case correct && valuable, !correct && !valuable:
		return ObsGood
	default:
		return ObsBad
	}
}

// Step applies action to state. Mirrors ROCKSAMPLE::Step, including the
// "cost is 1 whenever reward is negative" constrained-cost signal and the
// check action's likelihood-ratio belief update.
func (s *Simulator) Step(state *State, action int) (int, rc.RC, bool) {
	var result rc.RC
	observation := ObsNone

	switch {
	case action < actionSample:
		switch action {
		case ActionEast:
			if state.AgentPos.X+1 < s.size {
				state.AgentPos.X++
			} else {
				result.R = 10
				return ObsNone, result, true
			}
		case ActionNorth:
			if state.AgentPos.Y+1 < s.size {
				state.AgentPos.Y++
			} else {
				result.R = -100
			}
		case ActionSouth:
			if state.AgentPos.Y-1 >= 0 {
				state.AgentPos.Y--
			} else {
				result.R = -100
			}
		case ActionWest:
			if state.AgentPos.X-1 >= 0 {
				state.AgentPos.X--
			} else {
				result.R = -100
			}
		}
	case action == actionSample:
		rock := s.rockAt(state.AgentPos)
		if rock >= 0 && !state.Rocks[rock].Collected {
			state.Rocks[rock].Collected = true
			if state.Rocks[rock].Valuable {
				result.R = 10
			} else {
				result.R = -10
			}
		} else {
			result.R = -100
		}
	default:
		result.C = 1
		rock := action - actionSample - 1
		observation = s.getObservation(state, rock)
		entry := &state.Rocks[rock]
		entry.Measured++

		efficiency := s.sensorCorrectProbability(state.AgentPos, s.rockPos[rock])
		if observation == ObsGood {
			entry.Count++
			entry.LikelihoodValuable *= efficiency
			entry.LikelihoodWorthless *= 1.0 - efficiency
		} else {
			entry.Count--
			entry.LikelihoodWorthless *= efficiency
			entry.LikelihoodValuable *= 1.0 - efficiency
		}
		denom := 0.5*entry.LikelihoodValuable + 0.5*entry.LikelihoodWorthless
		entry.ProbValuable = (0.5 * entry.LikelihoodValuable) / denom
	}

	if state.Target < 0 || state.AgentPos == s.rockPos[state.Target] {
		state.Target = s.SelectTarget(state)
	}

	if result.R < 0 {
		result.C = 1
	}

	if result.R == -100 {
		panic("rocksample: Step reached an illegal-move branch GenerateLegal should have excluded")
	}

	return observation, result, false
}

// LocalMove perturbs state to stay consistent with the real observation
// recorded at the end of h, for particle reinvigoration. Mirrors
// ROCKSAMPLE::LocalMove.
func (s *Simulator) LocalMove(state *State, h *history.History, stepObs int, _ ccstatus.Status) bool {
	rock := s.r.IntN(s.numRocks)
	state.Rocks[rock].Valuable = !state.Rocks[rock].Valuable

	last := h.Back()
	if last.Action > actionSample {
		rock = last.Action - actionSample - 1
		realObs := last.Observation

		newObs := s.getObservation(state, rock)
		if newObs != realObs {
			return false
		}

		if realObs == ObsGood && stepObs == ObsBad {
			state.Rocks[rock].Count += 2
		}
		if realObs == ObsBad && stepObs == ObsGood {
			state.Rocks[rock].Count -= 2
		}
	}
	return true
}

// GenerateLegal returns every action the grid boundary and collected-rock
// bookkeeping still allow. Mirrors ROCKSAMPLE::GenerateLegal.
func (s *Simulator) GenerateLegal(state *State, _ *history.History, _ ccstatus.Status) []int {
	var legal []int
	if state.AgentPos.Y+1 < s.size {
		legal = append(legal, ActionNorth)
	}
	legal = append(legal, ActionEast)
	if state.AgentPos.Y-1 >= 0 {
		legal = append(legal, ActionSouth)
	}
	if state.AgentPos.X-1 >= 0 {
		legal = append(legal, ActionWest)
	}
	if rock := s.rockAt(state.AgentPos); rock >= 0 && !state.Rocks[rock].Collected {
		legal = append(legal, actionSample)
	}
	for rock := 0; rock < s.numRocks; rock++ {
		if !state.Rocks[rock].Collected {
			legal = append(legal, CheckRockAction(rock))
		}
	}
	return legal
}

// GeneratePreferred implements the non-blind preferred-action heuristic:
// sample a rock with net-positive evidence, otherwise head toward
// interesting rocks (or east if every remaining rock looks bad), and
// consider checking any rock whose evidence is still ambiguous. Mirrors
// ROCKSAMPLE::GeneratePreferred with UseBlindPolicy == false.
func (s *Simulator) GeneratePreferred(state *State, h *history.History, _ ccstatus.Status) []int {
	netEvidence := func(rock int) int {
		total := 0
		for t := 0; t < h.Len(); t++ {
			entry := h.At(t)
			if entry.Action != CheckRockAction(rock) {
				continue
			}
			if entry.Observation == ObsGood {
				total++
			}
			if entry.Observation == ObsBad {
				total--
			}
		}
		return total
	}

	if rock := s.rockAt(state.AgentPos); rock >= 0 && !state.Rocks[rock].Collected {
		if netEvidence(rock) > 0 {
			return []int{actionSample}
		}
	}

	allBad := true
	var northInteresting, southInteresting, westInteresting, eastInteresting bool
	for rock := 0; rock < s.numRocks; rock++ {
		if state.Rocks[rock].Collected {
			continue
		}
		if netEvidence(rock) < 0 {
			continue
		}
		allBad = false
		pos := s.rockPos[rock]
		if pos.Y > state.AgentPos.Y {
			northInteresting = true
		}
		if pos.Y < state.AgentPos.Y {
			southInteresting = true
		}
		if pos.X < state.AgentPos.X {
			westInteresting = true
		}
		if pos.X > state.AgentPos.X {
			eastInteresting = true
		}
	}

	if allBad {
		return []int{ActionEast}
	}

	var actions []int
	if state.AgentPos.Y+1 < s.size && northInteresting {
		actions = append(actions, ActionNorth)
	}
	if eastInteresting {
		actions = append(actions, ActionEast)
	}
	if state.AgentPos.Y-1 >= 0 && southInteresting {
		actions = append(actions, ActionSouth)
	}
	if state.AgentPos.X-1 >= 0 && westInteresting {
		actions = append(actions, ActionWest)
	}

	for rock := 0; rock < s.numRocks; rock++ {
		entry := state.Rocks[rock]
		if !entry.Collected && entry.ProbValuable != 0.0 && entry.ProbValuable != 1.0 &&
			entry.Measured < 5 && absInt(entry.Count) < 2 {
			actions = append(actions, CheckRockAction(rock))
		}
	}
	return actions
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// SelectTarget is preserved verbatim from ROCKSAMPLE::SelectTarget,
// including its apparent bug: bestRock is initialized to -1 and the loop
// that tracks bestDist never assigns into it, so this always returns -1
// regardless of which rock is actually nearest. Specification §9 calls
// out not to guess the original author's intent here, so the dead
// tracking logic (bestDist, the distance/UncertaintyCount comparison) is
// kept as-is rather than "fixed".
func (s *Simulator) SelectTarget(state *State) int {
	bestDist := s.size * 2
	bestRock := -1
	for rock := 0; rock < s.numRocks; rock++ {
		if !state.Rocks[rock].Collected && state.Rocks[rock].Count >= s.uncertaintyCount {
			dist := coord.ManhattanDistance(state.AgentPos, s.rockPos[rock])
			if dist < bestDist {
				bestDist = dist
			}
		}
	}
	return bestRock
}
