package entropy

/*
 * Entropy Cells
 *
 * A cell is one token position holding a superposition of candidate
 * states. Constraint validation eliminates states; collapse reduces the
 * superposition to exactly one survivor. Cell ids are dense and 0-based
 * within their field.
 */

import (
	"math"

	"github.com/IreGaddr/braggi/token"
)

// CellID indexes a cell within one field
type CellID int

// InvalidCell marks the absence of a cell reference
const InvalidCell CellID = -1

// Cell is one token position with its candidate states
type Cell struct {
	ID          CellID
	Pos         token.Position
	States      []*State
	Constraints []ConstraintID // constraints referencing this cell, in added order
}

// AddState appends a candidate state to the superposition
func (c *Cell) AddState(s *State) {
	c.States = append(c.States, s)
}

// StateCount returns the number of states still held by the cell
func (c *Cell) StateCount() int {
	return len(c.States)
}

// Collapsed reports whether the cell holds exactly one state
func (c *Cell) Collapsed() bool {
	return len(c.States) == 1
}

// Contradicted reports whether every state has been eliminated
func (c *Cell) Contradicted() bool {
	return len(c.States) == 0
}

// EliminateState removes the state at index i, preserving order
func (c *Cell) EliminateState(i int) {
	if i < 0 || i >= len(c.States) {
		return
	}
	c.States = append(c.States[:i], c.States[i+1:]...)
}

// EliminateStatesWhere removes every state the predicate rejects and
// returns the number removed
func (c *Cell) EliminateStatesWhere(keep func(*State) bool) int {
	kept := c.States[:0]
	removed := 0
	for _, s := range c.States {
		if keep(s) {
			kept = append(kept, s)
		} else {
			removed++
		}
	}
	c.States = kept
	return removed
}

// Entropy computes the Shannon entropy of the superposition over
// non-eliminated states with probabilities normalised to sum to one.
// Cells with at most one live state have zero entropy.
func (c *Cell) Entropy() float64 {
	total := 0
	live := 0
	for _, s := range c.States {
		if !s.Eliminated() {
			total += s.Probability
			live++
		}
	}
	if live <= 1 || total == 0 {
		return 0
	}

	entropy := 0.0
	for _, s := range c.States {
		if s.Eliminated() {
			continue
		}
		p := float64(s.Probability) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// SnapshotStates deep-copies the current state list so a collapse
// decision can be rolled back with the original probabilities intact
func (c *Cell) SnapshotStates() []*State {
	snap := make([]*State, len(c.States))
	for i, s := range c.States {
		snap[i] = s.Clone()
	}
	return snap
}

// RestoreStates replaces the cell's states from a snapshot
func (c *Cell) RestoreStates(snap []*State) {
	c.States = make([]*State, len(snap))
	for i, s := range snap {
		c.States[i] = s.Clone()
	}
}
