package entropy

/*
 * Entropy Field
 *
 * The field holds every cell and constraint of one parse. Constraint
 * application is snapshot-diffed: a constraint "changed" the field iff
 * some cell's state count moved. Propagation is a FIFO breadth-first
 * sweep over the cells a changed constraint names, deduplicated with an
 * enqueued set, so orderings are observable and reproducible.
 */

import (
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/token"
)

var fieldLog = log.NamedLogger("entropy", "field")

// CollapseRandom selects a surviving state uniformly at random
const CollapseRandom = -1

// RandSource supplies the random choices made during collapse. The WFC
// driver installs its seeded generator here; the field never seeds
// implicitly.
type RandSource interface {
	Intn(n int) int
}

// Field is the full superposition state of one parse
type Field struct {
	ID       uuid.UUID
	SourceID int

	cells       []*Cell
	constraints []*Constraint

	hasContradiction  bool
	contradictionCell CellID

	errorHandler ErrorHandler
	rand         RandSource
	destroyed    bool
}

// NewField creates an empty field for the given source
func NewField(sourceID int) *Field {
	id, _ := uuid.NewV4()
	return &Field{
		ID:                id,
		SourceID:          sourceID,
		cells:             make([]*Cell, 0, 16),
		constraints:       make([]*Constraint, 0, 16),
		contradictionCell: InvalidCell,
	}
}

// SetErrorHandler installs the contradiction callback
func (f *Field) SetErrorHandler(handler ErrorHandler) {
	f.errorHandler = handler
}

// SetRandSource installs the random source used by random collapse
func (f *Field) SetRandSource(r RandSource) {
	f.rand = r
}

// AddCell appends a cell at the given source position and returns it.
// Cell ids are dense and 0-based in creation order.
func (f *Field) AddCell(pos token.Position) *Cell {
	cell := &Cell{
		ID:          CellID(len(f.cells)),
		Pos:         pos,
		States:      make([]*State, 0, 4),
		Constraints: make([]ConstraintID, 0, 4),
	}
	f.cells = append(f.cells, cell)
	return cell
}

// Cell returns the cell with the given id, or nil when out of range
func (f *Field) Cell(id CellID) *Cell {
	if id < 0 || int(id) >= len(f.cells) {
		return nil
	}
	return f.cells[id]
}

// CellCount returns the number of cells in the field
func (f *Field) CellCount() int {
	return len(f.cells)
}

// Cells returns the field's cells in id order
func (f *Field) Cells() []*Cell {
	return f.cells
}

// Constraints returns the field's constraints in added order
func (f *Field) Constraints() []*Constraint {
	return f.constraints
}

// AddConstraint registers a constraint, assigns its id, and records the
// back-reference on every cell it names. Every named cell must exist.
func (f *Field) AddConstraint(c *Constraint) error {
	for _, id := range c.Cells {
		if id < 0 || int(id) >= len(f.cells) {
			return fmt.Errorf("%w: cell %d", ErrConstraintCellRange, id)
		}
	}
	c.ID = ConstraintID(len(f.constraints))
	f.constraints = append(f.constraints, c)
	for _, id := range c.Cells {
		f.cells[id].Constraints = append(f.cells[id].Constraints, c.ID)
	}
	return nil
}

// Constraint returns the constraint with the given id, or nil
func (f *Field) Constraint(id ConstraintID) *Constraint {
	if id < 0 || int(id) >= len(f.constraints) {
		return nil
	}
	return f.constraints[id]
}

// ApplyConstraint runs one constraint's validator and reports whether
// any referenced cell's state count changed. Contradictions discovered
// here mark the field and fire the error handler.
func (f *Field) ApplyConstraint(c *Constraint) bool {
	if c == nil || c.Validate == nil {
		return false
	}

	before := make([]int, len(c.Cells))
	for i, id := range c.Cells {
		before[i] = f.cells[id].StateCount()
	}

	c.Validate(c, f)

	changed := false
	for i, id := range c.Cells {
		cell := f.cells[id]
		if cell.StateCount() != before[i] {
			changed = true
		}
		if cell.Contradicted() {
			f.markContradiction(cell, c)
		}
	}
	return changed
}

// markContradiction records the first contradicted cell and reports it
func (f *Field) markContradiction(cell *Cell, c *Constraint) {
	if f.hasContradiction {
		return
	}
	f.hasContradiction = true
	f.contradictionCell = cell.ID

	msg := fmt.Sprintf("cell %d has no viable states", cell.ID)
	hint := ""
	if c != nil {
		hint = fmt.Sprintf("last constraint applied: %s", c.Description)
	}
	fieldLog.Debugf("Contradiction at cell %d (%s)", cell.ID, hint)
	if f.errorHandler != nil {
		f.errorHandler(CategoryContradiction, SeverityError, cell.Pos, msg, hint)
	}
}

// ReportError forwards a reportable condition to the installed error
// handler, if any
func (f *Field) ReportError(category Category, severity Severity, pos token.Position, message, hint string) {
	if f.errorHandler != nil {
		f.errorHandler(category, severity, pos, message, hint)
	}
}

// ClearContradiction resets contradiction bookkeeping after a backtrack
// has restored the offending cell
func (f *Field) ClearContradiction() {
	f.hasContradiction = false
	f.contradictionCell = InvalidCell
}

// HasContradiction reports whether some cell has zero states
func (f *Field) HasContradiction() bool {
	return f.hasContradiction
}

// ContradictionCell returns the first contradicted cell id, or
// InvalidCell
func (f *Field) ContradictionCell() CellID {
	return f.contradictionCell
}

// Propagate runs a FIFO breadth-first sweep from the given cell: each
// popped cell has every constraint referencing it applied; when an
// application changes any state count, the other cells that constraint
// names are enqueued (once per residence in the queue). Returns true iff
// anything changed. Stops early once a contradiction is found.
func (f *Field) Propagate(from CellID) bool {
	if from < 0 || int(from) >= len(f.cells) {
		return false
	}

	queue := make([]CellID, 0, 16)
	enqueued := make(map[CellID]struct{}, 16)
	queue = append(queue, from)
	enqueued[from] = struct{}{}

	anyChange := false
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		delete(enqueued, id)

		cell := f.cells[id]
		for _, cid := range cell.Constraints {
			c := f.constraints[cid]
			if !f.ApplyConstraint(c) {
				continue
			}
			anyChange = true
			if f.hasContradiction {
				return true
			}
			// Enqueue order follows the constraint's cell list
			for _, other := range c.Cells {
				if other == id {
					continue
				}
				if _, in := enqueued[other]; in {
					continue
				}
				queue = append(queue, other)
				enqueued[other] = struct{}{}
			}
		}
	}
	return anyChange
}

// EnforceAll applies every constraint once in added order and reports
// whether any state count changed
func (f *Field) EnforceAll() bool {
	changed := false
	for _, c := range f.constraints {
		if f.ApplyConstraint(c) {
			changed = true
		}
		if f.hasContradiction {
			return true
		}
	}
	return changed
}

// FindLowestEntropyCell returns the cell with the smallest positive
// entropy among cells holding more than one state, breaking ties by the
// lowest cell id. Collapsed and contradicted cells are never returned.
func (f *Field) FindLowestEntropyCell() *Cell {
	var best *Cell
	bestEntropy := 0.0
	for _, cell := range f.cells {
		if cell.StateCount() <= 1 {
			continue
		}
		e := cell.Entropy()
		if e <= 0 {
			continue
		}
		if best == nil || e < bestEntropy {
			best = cell
			bestEntropy = e
		}
	}
	return best
}

// CollapseCell reduces a cell to exactly one state. Passing
// CollapseRandom picks uniformly at random among the current states via
// the installed random source. The surviving state is driven to full
// probability; the other state records held by the cell are dropped.
func (f *Field) CollapseCell(id CellID, stateIndex int) error {
	cell := f.Cell(id)
	if cell == nil {
		return fmt.Errorf("%w: %d", ErrInvalidCellID, id)
	}
	if cell.Contradicted() {
		return fmt.Errorf("%w: cell %d", ErrCellContradicted, id)
	}

	if stateIndex == CollapseRandom {
		if f.rand == nil {
			return ErrNoRandSource
		}
		stateIndex = f.rand.Intn(len(cell.States))
	}
	if stateIndex < 0 || stateIndex >= len(cell.States) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidStateIndex, stateIndex, len(cell.States))
	}

	chosen := cell.States[stateIndex]
	chosen.Probability = ProbabilityMax
	cell.States = []*State{chosen}
	return nil
}

// FullyCollapsed reports whether every cell holds exactly one state. A
// field with no cells reports false.
func (f *Field) FullyCollapsed() bool {
	for _, cell := range f.cells {
		if !cell.Collapsed() {
			return false
		}
	}
	return len(f.cells) > 0
}

// Destroy tears the field down. Repeated destroys are detected, logged,
// and ignored.
func (f *Field) Destroy() {
	if f.destroyed {
		fieldLog.Warnf("Double destroy of field %s detected, ignoring", f.ID)
		return
	}
	f.destroyed = true
	f.cells = nil
	f.constraints = nil
	f.errorHandler = nil
	f.rand = nil
}

// Destroyed reports whether the field has been torn down
func (f *Field) Destroyed() bool {
	return f.destroyed
}
