package narrowphase

import "errors"

var (
	ErrZeroDirection = errors.New("narrowphase: zero ray direction")
	ErrMiss          = errors.New("narrowphase: shapes never touch along the direction")
	ErrNotConverged  = errors.New("narrowphase: ray cast did not converge")
)
