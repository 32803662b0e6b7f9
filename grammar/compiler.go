package grammar

/*
 * Grammar Compiler
 *
 * Lowers a pattern library and a token stream into a seeded entropy
 * field: one cell per token, initial states drawn from the token
 * patterns each token could belong to, and syntax constraints encoding
 * the start pattern's structure.
 *
 * Structural lowering:
 * - Sequence: one position restriction per token-leaf sub; a trailing
 *   composite sub becomes a deferred adjacency constraint on its opener
 *   set, gated on the leading cells collapsing
 * - Superposition: a mutual-exclusion restriction over the union of its
 *   alternatives' openers
 * - Repetition/Optional: a cardinality constraint over the remaining
 *   span
 * - Reference: resolved lazily through the library, never expanded
 *   eagerly
 * - Constraint patterns: lowered to custom constraints carrying their
 *   bias
 *
 * The compiler is pure with respect to the field it produces; it writes
 * no state outside of it beyond registering tokens with the periscope.
 */

import (
	"fmt"

	"github.com/IreGaddr/braggi/entropy"
	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/pattern"
	"github.com/IreGaddr/braggi/periscope"
	"github.com/IreGaddr/braggi/token"
)

var grammarLog = log.NamedLogger("grammar", "compiler")

// compiler carries the per-run lowering state
type compiler struct {
	lib        *pattern.Library
	ps         *periscope.Periscope
	field      *entropy.Field
	typeByName map[string]uint32
	nextState  uint32
}

// Compile builds a seeded field for the token stream under the
// library's start pattern. Tokens are registered with the periscope as
// cells are created; constraint validators dispatch through the
// periscope when one is supplied.
func Compile(lib *pattern.Library, tokens []*token.Token, ps *periscope.Periscope) (*entropy.Field, error) {
	if lib == nil {
		return nil, ErrNilLibrary
	}
	if err := lib.Validate(); err != nil {
		return nil, fmt.Errorf("library validation: %w", err)
	}
	start, ok := lib.Start()
	if !ok {
		return nil, pattern.ErrNoStartPattern
	}

	c := &compiler{
		lib:        lib,
		ps:         ps,
		field:      entropy.NewField(0),
		typeByName: make(map[string]uint32, lib.Len()),
	}
	for i, name := range lib.Names() {
		c.typeByName[name] = uint32(i)
	}

	if err := c.seedCells(tokens); err != nil {
		return nil, err
	}
	if err := c.emit(start, 0, len(tokens)); err != nil {
		return nil, err
	}

	grammarLog.Debugf("Compiled %d tokens into %d cells, %d constraints",
		len(tokens), c.field.CellCount(), len(c.field.Constraints()))
	return c.field, nil
}

// seedCells creates one cell per token with the full candidate set and
// a candidacy constraint so empty superpositions surface as
// contradictions
func (c *compiler) seedCells(tokens []*token.Token) error {
	startName := c.lib.StartName()
	for _, tok := range tokens {
		cell := c.field.AddCell(tok.Pos)

		candidates := c.lib.MatchCandidates(tok)
		weight := entropy.ProbabilityMax
		if len(candidates) > 0 {
			weight = entropy.ProbabilityMax / len(candidates)
			if weight == 0 {
				weight = 1
			}
		}
		for _, name := range candidates {
			label := fmt.Sprintf("%s/%s", startName, name)
			cell.AddState(entropy.NewState(c.nextState, c.typeByName[name], label, weight))
			c.nextState++
		}
		if len(candidates) == 0 {
			grammarLog.Debugf("Token %s has no candidate patterns", tok)
		}

		if c.ps != nil {
			c.ps.RegisterToken(tok, cell.ID)
		}

		candidacy := entropy.NewConstraint(entropy.Syntax, c.validator(),
			fmt.Sprintf("candidacy of cell %d", cell.ID), cell.ID)
		candidacy.Context = &Rule{Kind: RuleCandidacy, Target: cell.ID}
		if err := c.field.AddConstraint(candidacy); err != nil {
			return err
		}
	}
	return nil
}

// validator returns the dispatch function compiled constraints use: the
// periscope entry point when one is wired, the structural validator
// directly otherwise
func (c *compiler) validator() entropy.ValidatorFunc {
	if c.ps != nil {
		return c.ps.Validate
	}
	return StructuralValidator
}

// emit lowers one pattern over the cell span [start, end)
func (c *compiler) emit(p *pattern.Pattern, start, end int) error {
	resolved, err := c.lib.Resolve(p)
	if err != nil {
		return err
	}
	if start >= end {
		return nil
	}

	switch resolved.Kind {
	case pattern.KindToken:
		return c.emitPosition(resolved, start)

	case pattern.KindGroup:
		if len(resolved.Subs) == 1 {
			return c.emit(resolved.Subs[0], start, end)
		}
		return nil

	case pattern.KindSequence:
		return c.emitSequence(resolved, start, end)

	case pattern.KindSuperposition:
		return c.emitExclusion(resolved, start)

	case pattern.KindRepetition, pattern.KindOptional:
		return c.emitCardinality(resolved, start, end)

	case pattern.KindConstraint:
		return c.emitBias(resolved, start, end)
	}
	return nil
}

// emitPosition restricts one cell to a single token pattern
func (c *compiler) emitPosition(p *pattern.Pattern, at int) error {
	constraint := entropy.NewConstraint(entropy.Syntax, c.validator(),
		fmt.Sprintf("position %d expects %s", at, p.Name), entropy.CellID(at))
	constraint.Context = &Rule{
		Kind:    RulePosition,
		Target:  entropy.CellID(at),
		Allowed: map[uint32]bool{c.typeByName[p.Name]: true},
	}
	return c.field.AddConstraint(constraint)
}

// emitSequence walks a sequence's subs positionally. Token-leaf subs
// restrict one cell each; an ordered choice restricts its cell to the
// alternatives' union; a trailing composite becomes a deferred
// adjacency on its opener set; repetition hands the rest of the span to
// a cardinality bound.
func (c *compiler) emitSequence(seq *pattern.Pattern, start, end int) error {
	cur := start
	for i, sub := range seq.Subs {
		if cur >= end {
			break
		}
		resolved, err := c.lib.Resolve(sub)
		if err != nil {
			return err
		}
		last := i == len(seq.Subs)-1

		switch resolved.Kind {
		case pattern.KindToken:
			if err := c.emitPosition(resolved, cur); err != nil {
				return err
			}
			cur++

		case pattern.KindSuperposition:
			if err := c.emitExclusion(resolved, cur); err != nil {
				return err
			}
			cur++

		case pattern.KindRepetition, pattern.KindOptional:
			if err := c.emitCardinality(resolved, cur, end); err != nil {
				return err
			}
			cur = end

		case pattern.KindConstraint:
			if err := c.emitBias(resolved, cur, end); err != nil {
				return err
			}

		case pattern.KindGroup, pattern.KindSequence:
			if !last && resolved.Kind == pattern.KindSequence {
				// Inner sequence mid-span: one cell per sub
				innerEnd := cur + len(resolved.Subs)
				if innerEnd > end {
					innerEnd = end
				}
				if err := c.emitSequence(resolved, cur, innerEnd); err != nil {
					return err
				}
				cur = innerEnd
				continue
			}
			// Trailing composite: adjacency on its opener set, gated
			// on everything before it settling
			if err := c.emitAdjacency(seq, resolved, start, cur, end); err != nil {
				return err
			}
			cur = end
		}
	}
	return nil
}

// emitAdjacency defers a composite's opener restriction until the
// leading cells of the sequence have collapsed
func (c *compiler) emitAdjacency(seq, sub *pattern.Pattern, seqStart, subStart, end int) error {
	openers, err := c.openerSet(sub, make(map[*pattern.Pattern]bool))
	if err != nil {
		return err
	}

	prereq := make([]entropy.CellID, 0, subStart-seqStart)
	cells := make([]entropy.CellID, 0, subStart-seqStart+1)
	for i := seqStart; i < subStart; i++ {
		prereq = append(prereq, entropy.CellID(i))
		cells = append(cells, entropy.CellID(i))
	}
	cells = append(cells, entropy.CellID(subStart))

	constraint := entropy.NewConstraint(entropy.Syntax, c.validator(),
		fmt.Sprintf("%s must open %s at cell %d", seq.Name, sub.Name, subStart), cells...)
	constraint.Context = &Rule{
		Kind:    RuleAdjacency,
		Target:  entropy.CellID(subStart),
		Allowed: openers,
		Prereq:  prereq,
	}
	return c.field.AddConstraint(constraint)
}

// emitExclusion restricts one cell to the union of an ordered choice's
// opener sets
func (c *compiler) emitExclusion(p *pattern.Pattern, at int) error {
	allowed := make(map[uint32]bool, len(p.Subs))
	for _, alt := range p.Subs {
		openers, err := c.openerSet(alt, make(map[*pattern.Pattern]bool))
		if err != nil {
			return err
		}
		for t := range openers {
			allowed[t] = true
		}
	}

	constraint := entropy.NewConstraint(entropy.Syntax, c.validator(),
		fmt.Sprintf("choice %s at cell %d", p.Name, at), entropy.CellID(at))
	constraint.Context = &Rule{
		Kind:    RuleExclusion,
		Target:  entropy.CellID(at),
		Allowed: allowed,
	}
	return c.field.AddConstraint(constraint)
}

// emitCardinality records a zero-or-more / zero-or-one bound over a
// span. The bound itself is structural bookkeeping; it never eliminates.
func (c *compiler) emitCardinality(p *pattern.Pattern, start, end int) error {
	max := -1
	if p.Kind == pattern.KindOptional {
		max = 1
	}
	cells := make([]entropy.CellID, 0, end-start)
	for i := start; i < end; i++ {
		cells = append(cells, entropy.CellID(i))
	}
	constraint := entropy.NewConstraint(entropy.Syntax, c.validator(),
		fmt.Sprintf("%s spans cells %d..%d", p.Name, start, end-1), cells...)
	constraint.Context = &Rule{
		Kind:   RuleCardinality,
		Target: entropy.CellID(start),
		Min:    0,
		Max:    max,
	}
	return c.field.AddConstraint(constraint)
}

// emitBias lowers an embedded constraint pattern to a custom constraint
func (c *compiler) emitBias(p *pattern.Pattern, start, end int) error {
	cells := make([]entropy.CellID, 0, end-start)
	for i := start; i < end; i++ {
		cells = append(cells, entropy.CellID(i))
	}
	constraint := entropy.NewConstraint(entropy.Custom, c.validator(),
		fmt.Sprintf("%s bias %d", p.Name, p.Bias), cells...)
	constraint.Context = &Rule{Kind: RuleBias, Bias: p.Bias}
	return c.field.AddConstraint(constraint)
}

// openerSet collects the state types that can begin a pattern
func (c *compiler) openerSet(p *pattern.Pattern, visiting map[*pattern.Pattern]bool) (map[uint32]bool, error) {
	resolved, err := c.lib.Resolve(p)
	if err != nil {
		return nil, err
	}
	if visiting[resolved] {
		return map[uint32]bool{}, nil
	}
	visiting[resolved] = true

	openers := make(map[uint32]bool, 2)
	switch resolved.Kind {
	case pattern.KindToken:
		openers[c.typeByName[resolved.Name]] = true

	case pattern.KindSequence, pattern.KindGroup:
		if len(resolved.Subs) > 0 {
			inner, err := c.openerSet(resolved.Subs[0], visiting)
			if err != nil {
				return nil, err
			}
			for t := range inner {
				openers[t] = true
			}
		}

	case pattern.KindSuperposition:
		for _, alt := range resolved.Subs {
			inner, err := c.openerSet(alt, visiting)
			if err != nil {
				return nil, err
			}
			for t := range inner {
				openers[t] = true
			}
		}

	case pattern.KindRepetition, pattern.KindOptional:
		if len(resolved.Subs) > 0 {
			inner, err := c.openerSet(resolved.Subs[0], visiting)
			if err != nil {
				return nil, err
			}
			for t := range inner {
				openers[t] = true
			}
		}
	}
	return openers, nil
}
