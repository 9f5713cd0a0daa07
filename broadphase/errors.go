package broadphase

import "errors"

var (
	ErrCapacityExceeded = errors.New("broadphase: maximum number of shapes reached")
	ErrDuplicateShape   = errors.New("broadphase: shape already added")
	ErrUnknownShape     = errors.New("broadphase: shape not found")
)
