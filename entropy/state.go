package entropy

/*
 * Entropy States
 *
 * One state is one candidate grammatical interpretation of a cell, with
 * a probability weight in [0,100]. Probability 0 marks an eliminated
 * state; collapse drives the surviving state to 100.
 */

import "fmt"

// ProbabilityMax is the weight of a fully observed state
const ProbabilityMax = 100

// State is a single candidate interpretation held by a cell
type State struct {
	ID          uint32
	Type        uint32 // grammatical state type, tagged by the grammar compiler
	Label       string
	Data        any
	Probability int // 0..100; 0 means eliminated
}

// NewState creates a state with the given weight
func NewState(id, stateType uint32, label string, probability int) *State {
	if probability < 0 {
		probability = 0
	}
	if probability > ProbabilityMax {
		probability = ProbabilityMax
	}
	return &State{
		ID:          id,
		Type:        stateType,
		Label:       label,
		Probability: probability,
	}
}

// Eliminated reports whether the state has been ruled out
func (s *State) Eliminated() bool {
	return s.Probability == 0
}

// Certain reports whether the state is fully decided either way
func (s *State) Certain() bool {
	return s.Probability == 0 || s.Probability == ProbabilityMax
}

// Clone returns an independent copy of the state
func (s *State) Clone() *State {
	clone := *s
	return &clone
}

func (s *State) String() string {
	return fmt.Sprintf("state %d %q p=%d", s.ID, s.Label, s.Probability)
}
