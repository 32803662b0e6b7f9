package entropy

/*
 * Entropy Constraints
 *
 * A constraint names the cells it affects and carries a validator that
 * may eliminate states from those cells. Validators return false when
 * the constraint is violated outright; eliminating states down to zero
 * is how contradictions arise.
 */

import "fmt"

// ConstraintID indexes a constraint within one field
type ConstraintID int

// Kind categorises constraints
type Kind uint8

const (
	Syntax Kind = iota
	Semantic
	TypeCheck
	Region
	Regime
	Periscope
	Custom
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "SYNTAX"
	case Semantic:
		return "SEMANTIC"
	case TypeCheck:
		return "TYPE"
	case Region:
		return "REGION"
	case Regime:
		return "REGIME"
	case Periscope:
		return "PERISCOPE"
	case Custom:
		return "CUSTOM"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ValidatorFunc checks a constraint against the field. It may eliminate
// states from the constraint's cells; returning false reports a violated
// constraint.
type ValidatorFunc func(c *Constraint, f *Field) bool

// Constraint binds a validator to an ordered list of affected cells
type Constraint struct {
	ID          ConstraintID
	Kind        Kind
	Cells       []CellID
	Validate    ValidatorFunc
	Context     any
	Description string
}

// NewConstraint creates a constraint over the given cells
func NewConstraint(kind Kind, validate ValidatorFunc, description string, cells ...CellID) *Constraint {
	c := &Constraint{
		Kind:        kind,
		Cells:       make([]CellID, 0, len(cells)),
		Validate:    validate,
		Description: description,
	}
	for _, id := range cells {
		c.AddCellID(id)
	}
	return c
}

// AddCellID appends a cell reference, keeping the list an ordered set
func (c *Constraint) AddCellID(id CellID) {
	for _, existing := range c.Cells {
		if existing == id {
			return
		}
	}
	c.Cells = append(c.Cells, id)
}

// References reports whether the constraint names the given cell
func (c *Constraint) References(id CellID) bool {
	for _, existing := range c.Cells {
		if existing == id {
			return true
		}
	}
	return false
}

func (c *Constraint) String() string {
	return fmt.Sprintf("%s constraint %d (%s) over %v", c.Kind, c.ID, c.Description, c.Cells)
}
