package periscope

/*
 * Periscope
 *
 * Validates constraints under region-lifetime contracts. The periscope
 * owns the token↔cell registry, the contract vector, and the validator
 * dispatched for every constraint check. Tokens, cells, and validators
 * ride the ECS substrate as entities so outside systems can observe
 * them.
 *
 * The periscope self-heals: a missing contract vector is recreated, a
 * run with zero valid contracts synthesises a default one, and a missing
 * validator falls back to the built-in adjacency validator. Validation
 * is therefore always reachable without a null dereference.
 */

import (
	"fmt"

	"github.com/IreGaddr/braggi/ecs"
	"github.com/IreGaddr/braggi/entropy"
	"github.com/IreGaddr/braggi/log"
	"github.com/IreGaddr/braggi/token"
)

var periscopeLog = log.NamedLogger("periscope", "validator")

// TokenComponent attaches a lexed token to an entity
type TokenComponent struct {
	Tok    *token.Token
	CellID entropy.CellID
}

// CellComponent attaches an entropy cell reference to an entity
type CellComponent struct {
	CellID entropy.CellID
}

// ValidatorComponent marks an entity as a validator participant
type ValidatorComponent struct {
	Name string
}

// Mapping links one token to its cell and carrier entity. Uniqueness is
// by token pointer identity.
type Mapping struct {
	Tok    *token.Token
	CellID entropy.CellID
	Entity ecs.EntityID
}

// TokenCell pairs a token with a cell id for batch registration
type TokenCell struct {
	Tok    *token.Token
	CellID entropy.CellID
}

// Periscope owns the registry, contracts, and validator dispatch
type Periscope struct {
	world *ecs.World

	tokenType     ecs.TypeID
	cellType      ecs.TypeID
	validatorType ecs.TypeID

	mappings []*Mapping
	byToken  map[*token.Token]*Mapping

	contracts []*Contract
	validator entropy.ValidatorFunc
}

// Builder assembles a periscope. Build installs a default contract when
// none was supplied and the adjacency validator when no validator was
// supplied, so Validate is reachable on any built periscope.
type Builder struct {
	world     *ecs.World
	validator entropy.ValidatorFunc
	contracts []*Contract
}

// NewBuilder starts building a periscope over the given world
func NewBuilder(world *ecs.World) *Builder {
	return &Builder{world: world}
}

// WithValidator installs the constraint validator
func (b *Builder) WithValidator(v entropy.ValidatorFunc) *Builder {
	b.validator = v
	return b
}

// WithContract adds a prebuilt contract
func (b *Builder) WithContract(c *Contract) *Builder {
	b.contracts = append(b.contracts, c)
	return b
}

// Build wires component types and returns the periscope
func (b *Builder) Build() (*Periscope, error) {
	if b.world == nil {
		return nil, ErrNilWorld
	}

	p := &Periscope{
		world:    b.world,
		mappings: make([]*Mapping, 0, 16),
		byToken:  make(map[*token.Token]*Mapping, 16),
	}

	var err error
	p.tokenType, err = b.world.RegisterComponentType(ecs.ComponentTypeDesc{
		Name: "periscope.token",
		New:  func() any { return &TokenComponent{CellID: entropy.InvalidCell} },
	})
	if err != nil {
		return nil, fmt.Errorf("register token component: %w", err)
	}
	p.cellType, err = b.world.RegisterComponentType(ecs.ComponentTypeDesc{
		Name: "periscope.cell",
		New:  func() any { return &CellComponent{CellID: entropy.InvalidCell} },
	})
	if err != nil {
		return nil, fmt.Errorf("register cell component: %w", err)
	}
	p.validatorType, err = b.world.RegisterComponentType(ecs.ComponentTypeDesc{
		Name: "periscope.validator",
		New:  func() any { return &ValidatorComponent{} },
	})
	if err != nil {
		return nil, fmt.Errorf("register validator component: %w", err)
	}

	p.validator = b.validator
	if p.validator == nil {
		p.validator = AdjacencyValidator
		periscopeLog.Debugf("No validator supplied, installing adjacency default")
	}

	p.contracts = append(p.contracts, b.contracts...)
	if len(p.contracts) == 0 {
		p.contracts = append(p.contracts, p.defaultContract())
	}
	return p, nil
}

// World returns the backing ECS world
func (p *Periscope) World() *ecs.World {
	return p.world
}

// TokenComponentType returns the registered token component id
func (p *Periscope) TokenComponentType() ecs.TypeID { return p.tokenType }

// CellComponentType returns the registered cell component id
func (p *Periscope) CellComponentType() ecs.TypeID { return p.cellType }

// ValidatorComponentType returns the registered validator component id
func (p *Periscope) ValidatorComponentType() ecs.TypeID { return p.validatorType }

// defaultContract synthesises a permissive contract carried by a fresh
// validator entity
func (p *Periscope) defaultContract() *Contract {
	validatorEntity := p.world.CreateEntity()
	if comp := p.world.AddComponent(validatorEntity, p.validatorType); comp != nil {
		comp.(*ValidatorComponent).Name = "default"
	}
	return NewContract(validatorEntity, validatorEntity, GuaranteeCrossRegionAdjacency)
}

// RegisterToken inserts or updates the mapping for a token. New tokens
// get a carrier entity holding the token and cell components.
func (p *Periscope) RegisterToken(tok *token.Token, cellID entropy.CellID) *Mapping {
	if tok == nil {
		return nil
	}
	if m, ok := p.byToken[tok]; ok {
		m.CellID = cellID
		if comp := p.world.GetComponent(m.Entity, p.tokenType); comp != nil {
			comp.(*TokenComponent).CellID = cellID
		}
		if comp := p.world.GetComponent(m.Entity, p.cellType); comp != nil {
			comp.(*CellComponent).CellID = cellID
		}
		return m
	}

	entity := p.world.CreateEntity()
	if comp := p.world.AddComponent(entity, p.tokenType); comp != nil {
		tc := comp.(*TokenComponent)
		tc.Tok = tok
		tc.CellID = cellID
	}
	if comp := p.world.AddComponent(entity, p.cellType); comp != nil {
		comp.(*CellComponent).CellID = cellID
	}

	m := &Mapping{Tok: tok, CellID: cellID, Entity: entity}
	p.mappings = append(p.mappings, m)
	p.byToken[tok] = m
	return m
}

// RegisterTokenBatch registers every pair; outcome is independent of
// order as long as no token repeats
func (p *Periscope) RegisterTokenBatch(pairs []TokenCell) {
	for _, pair := range pairs {
		p.RegisterToken(pair.Tok, pair.CellID)
	}
}

// CellIDForToken returns the mapped cell id for a token. Unmapped
// tokens fall back to their source line bounded by the field's cell
// count, then to cell 0.
func (p *Periscope) CellIDForToken(tok *token.Token, f *entropy.Field) entropy.CellID {
	if tok == nil || f == nil {
		return 0
	}
	if m, ok := p.byToken[tok]; ok {
		return m.CellID
	}
	if tok.Pos.Line >= 0 && tok.Pos.Line < f.CellCount() {
		return entropy.CellID(tok.Pos.Line)
	}
	return 0
}

// MappingCount returns the number of registered tokens
func (p *Periscope) MappingCount() int {
	return len(p.mappings)
}

// Mappings returns the registry in registration order
func (p *Periscope) Mappings() []*Mapping {
	return p.mappings
}

// CreateContract builds, registers, and returns a new contract
func (p *Periscope) CreateContract(regionEntity, validatorEntity ecs.EntityID, guarantees GuaranteeFlags) *Contract {
	c := NewContract(regionEntity, validatorEntity, guarantees)
	p.contracts = append(p.contracts, c)
	return c
}

// RegisterContract accepts an externally built contract
func (p *Periscope) RegisterContract(c *Contract) {
	if c == nil {
		return
	}
	p.contracts = append(p.contracts, c)
}

// Contracts returns the contract vector; it is appended to, never
// reordered, so indices stay stable for the parse
func (p *Periscope) Contracts() []*Contract {
	return p.contracts
}

// RevokeContract invalidates the contract at index i, keeping it in the
// vector
func (p *Periscope) RevokeContract(i int) {
	if i < 0 || i >= len(p.contracts) {
		return
	}
	p.contracts[i].Revoke()
}

// admits reports whether the contract allows the constraint to proceed
// to validation
func (c *Contract) admits(constraint *entropy.Constraint) bool {
	if !c.Valid {
		return false
	}
	if c.Guarantees.Has(GuaranteeRegimeChecked) && !c.RegimeCompatible() {
		return false
	}
	if len(constraint.Cells) > 1 {
		if c.Guarantees.Has(GuaranteeSequentialOnly) {
			return false
		}
		if !c.Guarantees.Has(GuaranteeCrossRegionAdjacency) {
			return false
		}
	}
	return true
}

// Validate is the periscope entry point for constraint checks.
//
// Syntax constraints consult the contract vector first: when at least
// one valid contract admits the constraint, or no contract has an
// opinion, validation proceeds through the installed validator. A
// constraint turned away purely by a regime-checked contract is a
// contract violation: it is reported at the constraint's boundary cell
// and rejected without reaching the validator. All other constraint
// kinds go straight to the validator.
func (p *Periscope) Validate(constraint *entropy.Constraint, f *entropy.Field) bool {
	if constraint == nil || f == nil {
		return false
	}

	// Self-heal: a periscope that lost its vector recreates it
	if p.contracts == nil {
		periscopeLog.Warnf("Contract vector missing, recreating")
		p.contracts = make([]*Contract, 0, 4)
	}

	validCount := 0
	for _, c := range p.contracts {
		if c.Valid {
			validCount++
		}
	}
	if validCount == 0 {
		periscopeLog.Debugf("No valid contracts, synthesising default")
		p.contracts = append(p.contracts, p.defaultContract())
	}

	if p.validator == nil {
		periscopeLog.Debugf("No validator installed, falling back to adjacency default")
		p.validator = AdjacencyValidator
	}

	if constraint.Kind != entropy.Syntax {
		return p.validator(constraint, f)
	}

	admitted := false
	regimeRejected := false
	for _, c := range p.contracts {
		if !c.Valid {
			continue
		}
		if c.Guarantees.Has(GuaranteeRegimeChecked) && !c.RegimeCompatible() {
			regimeRejected = true
			continue
		}
		if c.admits(constraint) {
			admitted = true
			break
		}
	}

	if admitted {
		return p.validator(constraint, f)
	}
	if regimeRejected {
		p.reportContractViolation(constraint, f)
		return false
	}
	// No contract had an opinion either way; fall through to the
	// validator rather than failing the parse
	return p.validator(constraint, f)
}

// reportContractViolation surfaces a rejected constraint at its
// boundary cell
func (p *Periscope) reportContractViolation(constraint *entropy.Constraint, f *entropy.Field) {
	pos := token.Position{}
	cellID := entropy.InvalidCell
	if len(constraint.Cells) > 0 {
		cellID = constraint.Cells[0]
		if cell := f.Cell(cellID); cell != nil {
			pos = cell.Pos
		}
	}
	periscopeLog.Debugf("Contract violation for %s at cell %d", constraint.Kind, cellID)
	f.ReportError(entropy.CategoryContractViolation, entropy.SeverityError, pos,
		fmt.Sprintf("region lifetime contract rejected %s constraint %d", constraint.Kind, constraint.ID),
		"check regime pairing and contract direction")
}

// AdjacencyValidator is the built-in fallback validator: a constraint
// holds when the cells it names form a contiguous ascending run. It
// never eliminates states.
func AdjacencyValidator(c *entropy.Constraint, f *entropy.Field) bool {
	if len(c.Cells) < 2 {
		return true
	}
	for i := 1; i < len(c.Cells); i++ {
		if c.Cells[i] != c.Cells[i-1]+1 {
			return false
		}
	}
	return true
}
