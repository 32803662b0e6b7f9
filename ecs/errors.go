package ecs

import "errors"

// World construction and registration errors
var (
	ErrTooManyComponentTypes  = errors.New("component type limit reached")
	ErrDuplicateComponentType = errors.New("component type name already registered")
	ErrNilConstructor         = errors.New("component type requires a constructor")
)
