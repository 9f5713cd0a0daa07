package constraint

import "errors"

var (
	// ErrInvalidBodies is returned when a joint is given a nil body or twice the same one
	ErrInvalidBodies = errors.New("constraint: joint requires two distinct bodies")

	ErrFixedBodies = errors.New("constraint: joint between two fixed bodies")
)
