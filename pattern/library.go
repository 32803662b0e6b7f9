package pattern

/*
 * Constraint Pattern Library
 *
 * Name-indexed registry of patterns with a designated start pattern.
 * The library owns the patterns added to it and destroys them in one
 * pass on teardown; sub-pattern arrays are borrowed, shared structure
 * is legal, and Reference edges are resolved lazily by name.
 */

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/token"
)

var libraryLog = log.NamedLogger("pattern", "library")

// Library maps pattern names to patterns and designates a start pattern
type Library struct {
	patterns  map[string]*Pattern
	order     []string // insertion order, for deterministic walks
	startName string
	destroyed bool
}

// NewLibrary creates an empty pattern library
func NewLibrary() *Library {
	return &Library{
		patterns: make(map[string]*Pattern, 16),
		order:    make([]string, 0, 16),
	}
}

// Load builds a library from a start-pattern name and a set of named
// patterns. This is the loader entry point used by compiler drivers.
func Load(start string, patterns ...*Pattern) (*Library, error) {
	lib := NewLibrary()
	for _, p := range patterns {
		if err := lib.Add(p); err != nil {
			return nil, err
		}
	}
	if err := lib.SetStart(start); err != nil {
		return nil, err
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Add registers a pattern under its name. Names are unique.
func (l *Library) Add(p *Pattern) error {
	if p == nil {
		return ErrNilPattern
	}
	if p.Name == "" {
		return ErrUnnamedPattern
	}
	if _, exists := l.patterns[p.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	l.patterns[p.Name] = p
	l.order = append(l.order, p.Name)
	return nil
}

// Get returns the pattern registered under name
func (l *Library) Get(name string) (*Pattern, bool) {
	p, ok := l.patterns[name]
	return p, ok
}

// SetStart designates the start pattern; it must already be registered
func (l *Library) SetStart(name string) error {
	if _, ok := l.patterns[name]; !ok {
		return fmt.Errorf("%w: start pattern %q", ErrUnresolvedReference, name)
	}
	l.startName = name
	return nil
}

// Start returns the designated start pattern
func (l *Library) Start() (*Pattern, bool) {
	if l.startName == "" {
		return nil, false
	}
	return l.Get(l.startName)
}

// StartName returns the designated start pattern's name
func (l *Library) StartName() string {
	return l.startName
}

// Len returns the number of registered patterns
func (l *Library) Len() int {
	return len(l.patterns)
}

// Names returns the registered names in insertion order
func (l *Library) Names() []string {
	names := make([]string, len(l.order))
	copy(names, l.order)
	return names
}

// Resolve follows a Reference pattern to its target. Non-reference
// patterns resolve to themselves.
func (l *Library) Resolve(p *Pattern) (*Pattern, error) {
	seen := make(map[string]bool)
	for p != nil && p.Kind == KindReference {
		if seen[p.RefName] {
			return nil, fmt.Errorf("%w: reference cycle through %q", ErrUnresolvedReference, p.RefName)
		}
		seen[p.RefName] = true
		target, ok := l.patterns[p.RefName]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnresolvedReference, p.RefName)
		}
		p = target
	}
	return p, nil
}

// Validate checks that the start pattern exists and that every Reference
// reachable from a registered pattern resolves in the library
func (l *Library) Validate() error {
	if l.startName == "" {
		return ErrNoStartPattern
	}
	if _, ok := l.patterns[l.startName]; !ok {
		return fmt.Errorf("%w: start pattern %q", ErrUnresolvedReference, l.startName)
	}

	visited := make(map[*Pattern]bool)
	for _, name := range l.order {
		if err := l.checkReferences(l.patterns[name], visited); err != nil {
			return err
		}
	}
	return nil
}

// checkReferences walks the pattern DAG. Shared sub-patterns are visited
// once; Reference edges are checked for presence, not expanded, so
// cyclic grammars validate fine.
func (l *Library) checkReferences(p *Pattern, visited map[*Pattern]bool) error {
	if p == nil || visited[p] {
		return nil
	}
	visited[p] = true

	if p.Kind == KindReference {
		if _, ok := l.patterns[p.RefName]; !ok {
			return fmt.Errorf("%w: %q referenced by %q", ErrUnresolvedReference, p.RefName, p.Name)
		}
		return nil
	}
	for _, sub := range p.Subs {
		if err := l.checkReferences(sub, visited); err != nil {
			return err
		}
	}
	return nil
}

// Dump renders the library as a tree: the root names the start pattern
// and every registered pattern is a top-level branch in insertion order.
// Reference edges are shown by name and never expanded.
func (l *Library) Dump() string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("library (start=%s)", l.startName))
	for _, name := range l.order {
		p := l.patterns[name]
		branch := tree.AddBranch(p.String())
		l.dumpInto(branch, p, make(map[*Pattern]bool))
	}
	return tree.String()
}

func (l *Library) dumpInto(branch treeprint.Tree, p *Pattern, visited map[*Pattern]bool) {
	if visited[p] {
		branch.AddNode(fmt.Sprintf("%s (shared)", p.Name))
		return
	}
	visited[p] = true
	for _, sub := range p.Subs {
		if sub.Kind == KindReference {
			branch.AddNode(sub.String())
			continue
		}
		child := branch.AddBranch(sub.String())
		l.dumpInto(child, sub, visited)
	}
}

// MatchCandidates returns the names of registered patterns whose Token
// variant matches the given token. The grammar compiler uses this to
// seed cell state superpositions.
func (l *Library) MatchCandidates(tok *token.Token) []string {
	candidates := make([]string, 0, 4)
	for _, name := range l.order {
		if Matches(l.patterns[name], tok) {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

// Destroy tears down every owned pattern in a single pass. Sub-pattern
// arrays are borrowed, so no recursion happens; repeated destroys are
// logged no-ops.
func (l *Library) Destroy() {
	if l.destroyed {
		libraryLog.Warnf("Double destroy of pattern library detected, ignoring")
		return
	}
	l.destroyed = true
	for _, name := range l.order {
		l.patterns[name].destroy()
	}
	l.patterns = nil
	l.order = nil
}
