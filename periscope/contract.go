package periscope

/*
 * Region Lifetime Contracts
 *
 * A contract authorises a region/validator entity pair to take part in
 * constraint validation, under guarantee flags and a regime pairing.
 * Contracts move fresh → valid → revoked; revoked contracts stay in the
 * vector so indices held elsewhere remain stable, they are just ignored.
 */

import (
	"fmt"

	"github.com/IreGaddr/braggi/ecs"
	"github.com/IreGaddr/braggi/region"
)

// GuaranteeFlags qualify what a contract vouches for
type GuaranteeFlags uint32

const (
	// GuaranteeCrossRegionAdjacency admits constraints spanning more
	// than one cell across region boundaries
	GuaranteeCrossRegionAdjacency GuaranteeFlags = 1 << iota
	// GuaranteeRegimeChecked requires the contract's regime pairing to
	// pass the compatibility matrix before admission
	GuaranteeRegimeChecked
	// GuaranteeSequentialOnly restricts admission to single-cell
	// constraints
	GuaranteeSequentialOnly
)

// Has reports whether all given flag bits are set
func (g GuaranteeFlags) Has(flags GuaranteeFlags) bool {
	return g&flags == flags
}

// Contract authorises one region/validator pair
type Contract struct {
	RegionEntity    ecs.EntityID
	ValidatorEntity ecs.EntityID
	Guarantees      GuaranteeFlags
	Valid           bool

	// Regime pairing checked when GuaranteeRegimeChecked is set
	SourceRegime region.Regime
	TargetRegime region.Regime
	Direction    region.Direction
}

// NewContract creates a valid contract with the given guarantees
func NewContract(regionEntity, validatorEntity ecs.EntityID, guarantees GuaranteeFlags) *Contract {
	return &Contract{
		RegionEntity:    regionEntity,
		ValidatorEntity: validatorEntity,
		Guarantees:      guarantees,
		Valid:           true,
		SourceRegime:    region.RAND,
		TargetRegime:    region.RAND,
	}
}

// WithRegimes sets the contract's regime pairing
func (c *Contract) WithRegimes(source, target region.Regime, dir region.Direction) *Contract {
	c.SourceRegime = source
	c.TargetRegime = target
	c.Direction = dir
	return c
}

// RegimeCompatible reports whether the contract's regime pairing passes
// the compatibility matrix
func (c *Contract) RegimeCompatible() bool {
	return region.Compatible(c.SourceRegime, c.TargetRegime, c.Direction)
}

// Revoke invalidates the contract in place; it stays in the vector
func (c *Contract) Revoke() {
	c.Valid = false
}

func (c *Contract) String() string {
	state := "valid"
	if !c.Valid {
		state = "revoked"
	}
	return fmt.Sprintf("contract region=%d validator=%d %s→%s/%s %s",
		c.RegionEntity, c.ValidatorEntity, c.SourceRegime, c.TargetRegime, c.Direction, state)
}
