// Package ccstatus holds the small status/knowledge vocabulary shared by
// the simulator contract, the search tree and the rollout policy, per
// specification §6: "Status/Knowledge configuration".
//
// Grounded on original_source/src/simulator.h's SIMULATOR::STATUS and
// SIMULATOR::KNOWLEDGE structs.
package ccstatus

import "github.com/jpfeifer-lab/ccpomcp/internal/rc"

// Phase distinguishes tree descent from rollout, used to pick which
// KnowledgeLevel governs action generation.
type Phase int

const (
	Tree Phase = iota
	Rollout
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Tree:
		return "Tree"
	case Rollout:
		return "Rollout"
	default:
		return "Unknown"
	}
}

// Particles reports how a belief update went -- whether the real
// observation matched the retained subtree cleanly, required local
// transforms, or exhausted every particle.
type Particles int

const (
	Consistent Particles = iota
	Inconsistent
	Resampled
	OutOfParticles
)

// String implements fmt.Stringer.
func (p Particles) String() string {
	switch p {
	case Consistent:
		return "Consistent"
	case Inconsistent:
		return "Inconsistent"
	case Resampled:
		return "Resampled"
	case OutOfParticles:
		return "OutOfParticles"
	default:
		return "Unknown"
	}
}

// Status is mutable per-search bookkeeping threaded through action
// generation calls.
type Status struct {
	Phase     Phase
	Particles Particles
}

// KnowledgeLevel selects how much domain knowledge informs action
// generation -- independently tunable for tree priors and rollouts.
type KnowledgeLevel int

const (
	Pure KnowledgeLevel = iota
	Legal
	Smart
)

// String implements fmt.Stringer.
func (k KnowledgeLevel) String() string {
	switch k {
	case Pure:
		return "Pure"
	case Legal:
		return "Legal"
	case Smart:
		return "Smart"
	default:
		return "Unknown"
	}
}

// Knowledge configures the KnowledgeLevel used for tree-node priors versus
// default-policy rollouts, plus the seed count/value SMART priors use.
type Knowledge struct {
	TreeLevel    KnowledgeLevel
	RolloutLevel KnowledgeLevel
	SmartCount   float64
	SmartValue   rc.RC
}

// Level returns the KnowledgeLevel that applies in the given phase.
func (k Knowledge) Level(phase Phase) KnowledgeLevel {
	if phase == Tree {
		return k.TreeLevel
	}
	return k.RolloutLevel
}

// DefaultKnowledge matches the original's SIMULATOR::KNOWLEDGE defaults.
func DefaultKnowledge() Knowledge {
	return Knowledge{
		TreeLevel:    Legal,
		RolloutLevel: Legal,
		SmartCount:   10,
		SmartValue:   rc.RC{R: 1.0, C: 1.0},
	}
}
