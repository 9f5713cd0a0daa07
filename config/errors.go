package config

import "errors"

var (
	ErrInvalidTimestep = errors.New("config: timestep must be positive")
	ErrInvalidSubsteps = errors.New("config: substeps must be at least 1")
	ErrInvalidWorkers  = errors.New("config: workers must be at least 1")
	// ErrInvalidCapacity is returned for a broad phase that cannot hold a single shape
	ErrInvalidCapacity = errors.New("config: broadphase capacity must be positive")
	ErrInvalidContact  = errors.New("config: invalid contact settings")
	ErrInvalidSolver   = errors.New("config: invalid solver settings")
	ErrInvalidSleep    = errors.New("config: invalid sleep thresholds")
)
