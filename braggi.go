// Package braggi is a compiler front-end that parses by wave function
// collapse over constraint contracts: token positions become cells
// holding superpositions of grammatical states, grammar patterns lower
// to constraints, and iterative propagation with entropy-minimising
// collapse drives the field to a single derivation or a reported
// contradiction.
package braggi

/*
 * Parse Pipeline
 *
 * Wires the subsystems the way a compiler driver consumes them: a
 * parse-scoped arena backs an ECS world, the periscope registers tokens
 * and guards constraint validation with region-lifetime contracts, the
 * grammar compiler seeds an entropy field from the pattern library, and
 * the WFC driver collapses it.
 */

import (
	"fmt"
	"time"

	"github.com/IreGaddr/braggi/ecs"
	"github.com/IreGaddr/braggi/entropy"
	"github.com/IreGaddr/braggi/grammar"
	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/pattern"
	"github.com/IreGaddr/braggi/periscope"
	"github.com/IreGaddr/braggi/region"
	"github.com/IreGaddr/braggi/token"
	"github.com/IreGaddr/braggi/wfc"
)

var parseLog = log.NamedLogger("braggi", "parse")

// DefaultArenaSize backs the parse-scoped world when no size is given
const DefaultArenaSize = 64 * 1024

type parseConfig struct {
	seed         uint32
	maxRetries   int
	deadline     time.Time
	errorHandler entropy.ErrorHandler
	arenaSize    int
	contracts    []*periscope.Contract
}

// Option adjusts one parse run
type Option func(*parseConfig)

// WithSeed pins the RNG seed so the run is reproducible
func WithSeed(seed uint32) Option {
	return func(c *parseConfig) { c.seed = seed }
}

// WithMaxRetries overrides the collapse retry ceiling
func WithMaxRetries(n int) Option {
	return func(c *parseConfig) { c.maxRetries = n }
}

// WithDeadline bounds the run; the driver polls it between enforcement
// passes
func WithDeadline(t time.Time) Option {
	return func(c *parseConfig) { c.deadline = t }
}

// WithErrorHandler installs the contradiction callback
func WithErrorHandler(h entropy.ErrorHandler) Option {
	return func(c *parseConfig) { c.errorHandler = h }
}

// WithArenaSize sizes the parse-scoped arena
func WithArenaSize(n int) Option {
	return func(c *parseConfig) { c.arenaSize = n }
}

// WithContract adds a region-lifetime contract to the periscope
func WithContract(contract *periscope.Contract) Option {
	return func(c *parseConfig) { c.contracts = append(c.contracts, contract) }
}

// Parse runs the full pipeline over a token stream. The returned field
// exposes the collapsed states; its lifetime ends with Teardown on the
// returned parse.
func Parse(lib *pattern.Library, tokens []*token.Token, opts ...Option) (*Parsed, error) {
	cfg := &parseConfig{
		maxRetries: wfc.DefaultMaxRetries,
		arenaSize:  DefaultArenaSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	arena, err := region.Create(cfg.arenaSize, region.SEQ)
	if err != nil {
		return nil, fmt.Errorf("parse arena: %w", err)
	}
	world := ecs.NewWorldInRegion(ecs.DefaultWorldConfig(), arena)

	builder := periscope.NewBuilder(world).WithValidator(grammar.StructuralValidator)
	for _, contract := range cfg.contracts {
		builder.WithContract(contract)
	}
	ps, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("periscope: %w", err)
	}

	field, err := grammar.Compile(lib, tokens, ps)
	if err != nil {
		return nil, fmt.Errorf("grammar compile: %w", err)
	}
	if cfg.errorHandler != nil {
		field.SetErrorHandler(cfg.errorHandler)
	}

	driver := wfc.NewDriver(&wfc.Config{
		Seed:       cfg.seed,
		MaxRetries: cfg.maxRetries,
		Deadline:   cfg.deadline,
	})
	result := driver.Collapse(field)
	parseLog.Debugf("Parse finished: %s after %d iterations, %d backtracks",
		result.Status, result.Iterations, result.Backtracks)

	return &Parsed{
		Result:    result,
		Field:     field,
		Periscope: ps,
		World:     world,
		Arena:     arena,
	}, nil
}

// Parsed bundles one parse run's collapsed field with the machinery
// that produced it
type Parsed struct {
	Result    *wfc.Result
	Field     *entropy.Field
	Periscope *periscope.Periscope
	World     *ecs.World
	Arena     *region.Region
}

// Ok reports whether the parse fully collapsed
func (p *Parsed) Ok() bool {
	return p.Result.Ok()
}

// Teardown reclaims everything the parse allocated: the field, the
// world (and with it the arena), in one pass. Safe to call repeatedly.
func (p *Parsed) Teardown() {
	p.Field.Destroy()
	p.World.Destroy()
	p.Arena.Destroy()
}
