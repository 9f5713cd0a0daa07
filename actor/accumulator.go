package actor

import "github.com/go-gl/mathgl/mgl64"

// Accumulator is a linear/angular velocity change carried by a body.
// It is a value type: every update returns a new Accumulator.
type Accumulator struct {
	Velocity mgl64.Vec3
	Omega    mgl64.Vec3
}

// AddScaled returns a + s*(linear, angular)
func (a Accumulator) AddScaled(linear, angular mgl64.Vec3, s float64) Accumulator {
	return Accumulator{
		Velocity: a.Velocity.Add(linear.Mul(s)),
		Omega:    a.Omega.Add(angular.Mul(s)),
	}
}

// Add returns the sum of both accumulators
func (a Accumulator) Add(other Accumulator) Accumulator {
	return Accumulator{Velocity: a.Velocity.Add(other.Velocity), Omega: a.Omega.Add(other.Omega)}
}

// Sub returns a - other
func (a Accumulator) Sub(other Accumulator) Accumulator {
	return Accumulator{Velocity: a.Velocity.Sub(other.Velocity), Omega: a.Omega.Sub(other.Omega)}
}

// Scale returns s*a
func (a Accumulator) Scale(s float64) Accumulator {
	return Accumulator{Velocity: a.Velocity.Mul(s), Omega: a.Omega.Mul(s)}
}

// IsZero reports whether both components are exactly zero
func (a Accumulator) IsZero() bool {
	return a.Velocity == (mgl64.Vec3{}) && a.Omega == (mgl64.Vec3{})
}
