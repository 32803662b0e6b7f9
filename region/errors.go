package region

import "errors"

// Arena allocation and lifecycle errors
var (
	ErrInvalidSize       = errors.New("region size must be positive")
	ErrRegionFull        = errors.New("region out of space")
	ErrNotLastAllocation = errors.New("realloc is only valid for the most recent allocation")
	ErrDestroyed         = errors.New("region has been destroyed")
)
