package pattern

import "errors"

// Library registration and resolution errors
var (
	ErrNilPattern          = errors.New("nil pattern")
	ErrUnnamedPattern      = errors.New("pattern requires a name")
	ErrDuplicateName       = errors.New("pattern name already registered")
	ErrNoStartPattern      = errors.New("library has no start pattern")
	ErrUnresolvedReference = errors.New("unresolved pattern reference")
)
