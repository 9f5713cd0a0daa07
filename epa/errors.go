package epa

import "errors"

var (
	ErrInvalidSimplex    = errors.New("epa: simplex must be a tetrahedron")
	ErrDegenerateSimplex = errors.New("epa: cannot build a tetrahedron from the simplex")
	ErrNotConverged      = errors.New("epa: failed to converge")
)
