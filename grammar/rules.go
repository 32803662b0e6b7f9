package grammar

/*
 * Structural Rules
 *
 * Each compiled constraint carries a Rule in its context describing the
 * structural relation it enforces. The structural validator dispatches
 * on the rule kind and eliminates cell states accordingly.
 */

import (
	"fmt"

	"github.com/IreGaddr/braggi/entropy"
)

// RuleKind tags the structural relation a constraint enforces
type RuleKind uint8

const (
	// RuleCandidacy asserts a cell still holds at least one state
	RuleCandidacy RuleKind = iota
	// RulePosition restricts a cell to the states a sequence position
	// allows
	RulePosition
	// RuleExclusion restricts a cell to the union of an ordered
	// choice's alternatives
	RuleExclusion
	// RuleAdjacency defers a span opener restriction until the
	// preceding cells have collapsed
	RuleAdjacency
	// RuleCardinality records a zero-or-more / zero-or-one span
	RuleCardinality
	// RuleBias carries an embedded constraint pattern's bias weight
	RuleBias
)

func (k RuleKind) String() string {
	switch k {
	case RuleCandidacy:
		return "candidacy"
	case RulePosition:
		return "position"
	case RuleExclusion:
		return "exclusion"
	case RuleAdjacency:
		return "adjacency"
	case RuleCardinality:
		return "cardinality"
	case RuleBias:
		return "bias"
	}
	return fmt.Sprintf("RuleKind(%d)", uint8(k))
}

// Rule is the structural payload carried in a constraint's context
type Rule struct {
	Kind    RuleKind
	Target  entropy.CellID
	Allowed map[uint32]bool  // state types admitted at Target
	Prereq  []entropy.CellID // adjacency: cells that must collapse first
	Min     int              // cardinality lower bound
	Max     int              // cardinality upper bound, -1 for unbounded
	Bias    int
}

// StructuralValidator enforces the rule carried by a compiled
// constraint. Constraints without a rule fall back to a contiguity
// check over their cell ids.
func StructuralValidator(c *entropy.Constraint, f *entropy.Field) bool {
	rule, ok := c.Context.(*Rule)
	if !ok {
		return contiguous(c.Cells)
	}

	switch rule.Kind {
	case RuleCandidacy:
		cell := f.Cell(rule.Target)
		return cell != nil && !cell.Contradicted()

	case RulePosition, RuleExclusion:
		cell := f.Cell(rule.Target)
		if cell == nil {
			return false
		}
		cell.EliminateStatesWhere(func(s *entropy.State) bool {
			return rule.Allowed[s.Type]
		})
		return !cell.Contradicted()

	case RuleAdjacency:
		for _, pre := range rule.Prereq {
			cell := f.Cell(pre)
			if cell == nil || !cell.Collapsed() {
				return true // not yet decidable
			}
		}
		cell := f.Cell(rule.Target)
		if cell == nil {
			return false
		}
		cell.EliminateStatesWhere(func(s *entropy.State) bool {
			return rule.Allowed[s.Type]
		})
		return !cell.Contradicted()

	case RuleCardinality, RuleBias:
		return true
	}
	return true
}

func contiguous(cells []entropy.CellID) bool {
	for i := 1; i < len(cells); i++ {
		if cells[i] != cells[i-1]+1 {
			return false
		}
	}
	return true
}
