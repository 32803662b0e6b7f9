package grammar

import "errors"

// Compilation errors
var (
	ErrNilLibrary = errors.New("grammar compiler requires a pattern library")
)
