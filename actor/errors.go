package actor

import "errors"

var (
	// ErrInvalidMass is returned when a dynamic body ends up with a non-positive mass.
	ErrInvalidMass = errors.New("actor: dynamic body requires a positive mass")

	// ErrDegenerateShape is returned for shapes with zero or negative extent.
	ErrDegenerateShape = errors.New("actor: degenerate shape")

	// ErrNoShape is returned when a body is created without any shape.
	ErrNoShape = errors.New("actor: body has no shape")
)
