package wfc

/*
 * Wave Function Collapse Driver
 *
 * Runs a field to fixpoint: enforce all constraints, collapse the
 * lowest-entropy cell to a random surviving state, propagate, and
 * backtrack through the decision stack when a contradiction appears.
 *
 * The loop is single-threaded and has no suspension points; a
 * caller-supplied deadline is polled between enforcement passes only.
 * Every random choice flows through one seeded generator, so a run is
 * fully reproducible from its seed.
 */

import (
	"fmt"
	"time"

	"github.com/IreGaddr/braggi/entropy"
	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/token"
)

var wfcLog = log.NamedLogger("wfc", "driver")

// DefaultMaxRetries bounds the main loop when no ceiling is configured
const DefaultMaxRetries = 100

// Config controls one collapse run
type Config struct {
	Seed       uint32    // explicit RNG seed; 0 maps to a fixed default
	MaxRetries int       // main-loop ceiling; 0 means DefaultMaxRetries
	Deadline   time.Time // zero means unbounded
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Seed:       0,
		MaxRetries: DefaultMaxRetries,
	}
}

// Status classifies a collapse outcome
type Status uint8

const (
	StatusOK Status = iota
	StatusContradiction
	StatusExhausted
	StatusIncomplete
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusContradiction:
		return "contradiction"
	case StatusExhausted:
		return "exhausted"
	case StatusIncomplete:
		return "incomplete"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Result describes how a collapse run ended
type Result struct {
	Status     Status
	CellID     entropy.CellID
	Pos        token.Position
	Message    string
	Iterations int
	Backtracks int
	Seed       uint32
}

// Ok reports whether the run fully collapsed the field
func (r *Result) Ok() bool {
	return r.Status == StatusOK
}

// Decision records one collapse choice so it can be undone. The
// snapshot holds the cell's states before the collapse; Exhausted marks
// the state indices already tried against this configuration.
type Decision struct {
	CellID     entropy.CellID
	StateIndex int
	Snapshot   []*entropy.State
	Exhausted  map[int]bool
}

// Driver owns the decision stack and the seeded RNG for one or more
// collapse runs
type Driver struct {
	config    *Config
	rng       *RNG
	decisions []*Decision
}

// NewDriver creates a driver from a config; nil selects defaults
func NewDriver(config *Config) *Driver {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	return &Driver{
		config:    config,
		rng:       NewRNG(config.Seed),
		decisions: make([]*Decision, 0, 16),
	}
}

// RNG exposes the driver's generator so collaborators share one random
// stream per parse
func (d *Driver) RNG() *RNG {
	return d.rng
}

// Collapse runs the field to a terminal state
func (d *Driver) Collapse(f *entropy.Field) *Result {
	result := &Result{
		Status: StatusIncomplete,
		CellID: entropy.InvalidCell,
		Seed:   d.config.Seed,
	}
	if f == nil || f.CellCount() == 0 {
		result.Message = "empty field"
		return result
	}

	f.SetRandSource(d.rng)
	d.decisions = d.decisions[:0]

	// First contradiction seen, reported if the decision stack empties
	firstBad := entropy.InvalidCell
	var firstBadPos token.Position

	for iteration := 1; iteration <= d.config.MaxRetries; iteration++ {
		result.Iterations = iteration

		if !d.config.Deadline.IsZero() && time.Now().After(d.config.Deadline) {
			result.Message = "deadline exceeded, solution may be incomplete"
			wfcLog.Warnf("Collapse of field %s hit deadline at iteration %d", f.ID, iteration)
			return result
		}

		// Enforcement pass: apply every constraint until nothing moves
		for f.EnforceAll() {
			if f.HasContradiction() {
				break
			}
		}

		if f.HasContradiction() {
			if firstBad == entropy.InvalidCell {
				firstBad = f.ContradictionCell()
				if cell := f.Cell(firstBad); cell != nil {
					firstBadPos = cell.Pos
				}
			}
			if !d.backtrack(f, result) {
				result.Status = StatusContradiction
				result.CellID = firstBad
				result.Pos = firstBadPos
				result.Message = fmt.Sprintf("contradiction at cell %d, decision stack exhausted", firstBad)
				return result
			}
			continue
		}

		if f.FullyCollapsed() {
			result.Status = StatusOK
			wfcLog.Debugf("Field %s collapsed in %d iterations, %d backtracks",
				f.ID, result.Iterations, result.Backtracks)
			return result
		}

		cell := f.FindLowestEntropyCell()
		if cell == nil {
			// Multi-state cells remain but none carries positive
			// entropy; nothing further can be decided
			result.Message = "no collapsible cell with positive entropy"
			return result
		}

		decision := &Decision{
			CellID:    cell.ID,
			Snapshot:  cell.SnapshotStates(),
			Exhausted: make(map[int]bool, len(cell.States)),
		}
		decision.StateIndex = d.rng.Intn(len(cell.States))
		d.decisions = append(d.decisions, decision)

		if err := f.CollapseCell(cell.ID, decision.StateIndex); err != nil {
			result.Message = fmt.Sprintf("collapse failed: %v", err)
			return result
		}
		f.Propagate(cell.ID)

		if f.HasContradiction() {
			if firstBad == entropy.InvalidCell {
				firstBad = f.ContradictionCell()
				if c := f.Cell(firstBad); c != nil {
					firstBadPos = c.Pos
				}
			}
			if !d.backtrack(f, result) {
				result.Status = StatusContradiction
				result.CellID = firstBad
				result.Pos = firstBadPos
				result.Message = fmt.Sprintf("contradiction at cell %d, decision stack exhausted", firstBad)
				return result
			}
		}
	}

	result.Status = StatusExhausted
	result.Message = "retry ceiling reached, solution may be incomplete"
	wfcLog.Warnf("Collapse of field %s exceeded %d retries", f.ID, d.config.MaxRetries)
	return result
}

// backtrack unwinds the decision stack: restore the top cell's states,
// mark the tried state exhausted, and retry a different state in the
// same frame; frames with nothing left to try are popped. Returns false
// once the stack is empty.
func (d *Driver) backtrack(f *entropy.Field, result *Result) bool {
	for len(d.decisions) > 0 {
		top := d.decisions[len(d.decisions)-1]
		cell := f.Cell(top.CellID)
		if cell == nil {
			d.decisions = d.decisions[:len(d.decisions)-1]
			continue
		}

		cell.RestoreStates(top.Snapshot)
		f.ClearContradiction()
		top.Exhausted[top.StateIndex] = true
		result.Backtracks++

		candidates := make([]int, 0, len(top.Snapshot))
		for i := range top.Snapshot {
			if !top.Exhausted[i] {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			// Every state of this frame failed; unwind further
			d.decisions = d.decisions[:len(d.decisions)-1]
			wfcLog.Debugf("Cell %d exhausted, unwinding", top.CellID)
			continue
		}

		top.StateIndex = candidates[d.rng.Intn(len(candidates))]
		if err := f.CollapseCell(top.CellID, top.StateIndex); err != nil {
			d.decisions = d.decisions[:len(d.decisions)-1]
			continue
		}
		f.Propagate(top.CellID)
		if f.HasContradiction() {
			// The retry also failed; loop to mark it exhausted
			continue
		}
		return true
	}
	return false
}

// DecisionDepth returns the current decision stack depth
func (d *Driver) DecisionDepth() int {
	return len(d.decisions)
}
