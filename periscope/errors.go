package periscope

import "errors"

// Builder and registration errors
var (
	ErrNilWorld = errors.New("periscope requires an ecs world")
)
