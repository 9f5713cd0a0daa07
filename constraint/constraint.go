// Package constraint lowers contacts and joints to solver rows, and applies
// the forces that feed the External accumulators before a solve.
package constraint

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultBaumgarte is the fraction of the position error corrected per step
	DefaultBaumgarte = 0.2
	// DefaultMaxCorrection caps the correction velocity (m/s)
	DefaultMaxCorrection = 2.0
	// DefaultRestitutionThreshold is the approach speed under which contacts do not bounce
	DefaultRestitutionThreshold = 0.5
)

// Params are shared by every constraint of a step
type Params struct {
	Timestep             float64
	Baumgarte            float64
	MaxCorrection        float64
	RestitutionThreshold float64
}

func DefaultParams(timestep float64) Params {
	return Params{
		Timestep:             timestep,
		Baumgarte:            DefaultBaumgarte,
		MaxCorrection:        DefaultMaxCorrection,
		RestitutionThreshold: DefaultRestitutionThreshold,
	}
}

// correction turns a position error into a bounded velocity
func (p Params) correction(err float64) float64 {
	v := p.Baumgarte * err / p.Timestep
	return max(-p.MaxCorrection, min(v, p.MaxCorrection))
}

// BodyIndex gives the position of each body in the list handed to the solver
type BodyIndex map[*actor.Body]int

// Constraint is anything producing solver rows
type Constraint interface {
	// Lower appends the rows of the constraint and returns how many were added
	Lower(rows *solver.Rows, index BodyIndex, params Params) int
	Bodies() (*actor.Body, *actor.Body)
}

// Force contributes to the External accumulators before the solve
type Force interface {
	Apply(dt float64)
}

// GravityForce accelerates a body without waking it up
type GravityForce struct {
	Body    *actor.Body
	Gravity mgl64.Vec3
}

func NewGravityForce(body *actor.Body, gravity mgl64.Vec3) *GravityForce {
	return &GravityForce{Body: body, Gravity: gravity}
}

func (g *GravityForce) Apply(dt float64) {
	if g.Body.Fixed() || g.Body.Sleeping {
		return
	}
	g.Body.External = g.Body.External.AddScaled(g.Gravity, mgl64.Vec3{}, dt)
}

// ImpulseForce acts once: the magnitude is reset after it has been applied.
// Point is given in the body frame.
type ImpulseForce struct {
	Body      *actor.Body
	Point     mgl64.Vec3
	Direction mgl64.Vec3
	Magnitude float64
}

func NewImpulseForce(body *actor.Body, point, direction mgl64.Vec3, magnitude float64) *ImpulseForce {
	if direction.Len() > 0 {
		direction = direction.Normalize()
	}
	return &ImpulseForce{Body: body, Point: point, Direction: direction, Magnitude: magnitude}
}

func (f *ImpulseForce) Apply(dt float64) {
	if f.Magnitude == 0 {
		return
	}
	f.Body.ApplyImpulse(f.Body.Transform.Apply(f.Point), f.Direction.Mul(f.Magnitude))
	f.Magnitude = 0
}

// jacobian returns the blocks of the relative velocity of two points along
// axis: (vB + ωB×rB - vA - ωA×rA)·axis
func jacobian(rA, rB, axis mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	return axis.Mul(-1), rA.Cross(axis).Mul(-1), axis, rB.Cross(axis)
}

func velocityOf(body *actor.Body) actor.Accumulator {
	return actor.Accumulator{Velocity: body.Velocity, Omega: body.Omega}
}
