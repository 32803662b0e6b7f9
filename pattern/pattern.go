package pattern

/*
 * Constraint Pattern Grammar
 *
 * The structural grammar representation that the grammar compiler lowers
 * into entropy constraints. Patterns form a DAG: sub-pattern slices hold
 * borrowed references, and named back-edges are expressed as Reference
 * patterns resolved on demand through the library, never by materialised
 * expansion. Cycles live only on Reference edges.
 */

import (
	"fmt"

	"github.com/IreGaddr/braggi/token"
)

// Kind tags the pattern variants
type Kind uint8

const (
	KindToken Kind = iota
	KindSequence
	KindSuperposition
	KindRepetition
	KindOptional
	KindGroup
	KindReference
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindSequence:
		return "sequence"
	case KindSuperposition:
		return "superposition"
	case KindRepetition:
		return "repetition"
	case KindOptional:
		return "optional"
	case KindGroup:
		return "group"
	case KindReference:
		return "reference"
	case KindConstraint:
		return "constraint"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ConstraintClass tags Constraint-kind patterns with the constraint
// category they lower to
type ConstraintClass uint8

const (
	ClassSyntax ConstraintClass = iota
	ClassSemantic
	ClassType
	ClassRegion
	ClassRegime
	ClassPeriscope
	ClassCustom
)

func (c ConstraintClass) String() string {
	switch c {
	case ClassSyntax:
		return "SYNTAX"
	case ClassSemantic:
		return "SEMANTIC"
	case ClassType:
		return "TYPE"
	case ClassRegion:
		return "REGION"
	case ClassRegime:
		return "REGIME"
	case ClassPeriscope:
		return "PERISCOPE"
	case ClassCustom:
		return "CUSTOM"
	}
	return fmt.Sprintf("ConstraintClass(%d)", uint8(c))
}

// Pattern is one node of the grammar DAG. Every pattern carries a unique
// name used for back-reference through the library.
type Pattern struct {
	Name string
	Kind Kind

	// Token variant
	TokenType  token.Type
	Literal    string // empty means any text of the type
	HasLiteral bool

	// Composite variants: borrowed references, never owned
	Subs []*Pattern

	// Reference variant
	RefName string

	// Constraint variant
	Class ConstraintClass
	Bias  int
}

// NewTokenPattern matches a single token of the given type. A non-empty
// literal additionally pins the token text.
func NewTokenPattern(name string, tokType token.Type, literal string) *Pattern {
	return &Pattern{
		Name:       name,
		Kind:       KindToken,
		TokenType:  tokType,
		Literal:    literal,
		HasLiteral: literal != "",
	}
}

// NewSequence matches its sub-patterns in order
func NewSequence(name string, subs ...*Pattern) *Pattern {
	return &Pattern{Name: name, Kind: KindSequence, Subs: subs}
}

// NewSuperposition is an ordered choice between its sub-patterns
func NewSuperposition(name string, subs ...*Pattern) *Pattern {
	return &Pattern{Name: name, Kind: KindSuperposition, Subs: subs}
}

// NewRepetition matches its sub-pattern zero or more times
func NewRepetition(name string, sub *Pattern) *Pattern {
	return &Pattern{Name: name, Kind: KindRepetition, Subs: []*Pattern{sub}}
}

// NewOptional matches its sub-pattern zero or one time
func NewOptional(name string, sub *Pattern) *Pattern {
	return &Pattern{Name: name, Kind: KindOptional, Subs: []*Pattern{sub}}
}

// NewGroup names an inner pattern without changing what it matches
func NewGroup(name string, inner *Pattern) *Pattern {
	return &Pattern{Name: name, Kind: KindGroup, Subs: []*Pattern{inner}}
}

// NewReference is a named back-edge resolved through the library
func NewReference(name, target string) *Pattern {
	return &Pattern{Name: name, Kind: KindReference, RefName: target}
}

// NewConstraintPattern embeds a constraint class with a bias weight
func NewConstraintPattern(name string, class ConstraintClass, bias int) *Pattern {
	return &Pattern{Name: name, Kind: KindConstraint, Class: class, Bias: bias}
}

// Matches reports whether the pattern is a Token variant matching the
// given token: the type must be equal and the literal, when pinned, must
// equal the token text
func Matches(p *Pattern, tok *token.Token) bool {
	if p == nil || tok == nil || p.Kind != KindToken {
		return false
	}
	if p.TokenType != tok.Type {
		return false
	}
	if p.HasLiteral && p.Literal != tok.Text {
		return false
	}
	return true
}

func (p *Pattern) String() string {
	switch p.Kind {
	case KindToken:
		if p.HasLiteral {
			return fmt.Sprintf("%s(%s %q)", p.Name, p.TokenType, p.Literal)
		}
		return fmt.Sprintf("%s(%s)", p.Name, p.TokenType)
	case KindReference:
		return fmt.Sprintf("%s → %s", p.Name, p.RefName)
	default:
		return fmt.Sprintf("%s[%s/%d]", p.Name, p.Kind, len(p.Subs))
	}
}

// destroy clears the pattern's owned fields. Sub-pattern slices hold
// borrowed references, so teardown must not recurse into them; the
// library tears every owned pattern down in a single pass instead.
func (p *Pattern) destroy() {
	p.Subs = nil
	p.Literal = ""
	p.RefName = ""
}
