package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic
)

// Body is a rigid body owning one or more shapes. Its origin is treated as
// the centre of mass.
type Body struct {
	ID        int
	Transform Transform

	Velocity mgl64.Vec3 // Linear velocity (m/s)
	Omega    mgl64.Vec3 // Angular velocity (rad/s)

	// Delta is the velocity change produced by the solver
	Delta Accumulator
	// Search and Previous are solver scratch space
	Search   Accumulator
	Previous Accumulator
	// External is the velocity change from forces applied before the solve
	External Accumulator

	Mass           float64
	InverseMass    float64
	Inertia        mgl64.Mat3 // body frame
	InverseInertia mgl64.Mat3 // body frame

	LinearDamping  float64
	AngularDamping float64

	BodyType   BodyType
	Sleeping   bool
	SleepTimer float64
	// Trigger bodies report contacts through events but are never pushed
	Trigger bool

	Shapes []Shape
}

// NewBody creates a body owning shapes. density is used to calculate mass
// for dynamic bodies (ignored for static).
func NewBody(id int, transform Transform, bodyType BodyType, density float64, shapes ...Shape) (*Body, error) {
	if len(shapes) == 0 {
		return nil, ErrNoShape
	}
	if transform.Rotation == (mgl64.Quat{}) {
		transform.Rotation = mgl64.QuatIdent()
		transform.InverseRotation = mgl64.QuatIdent()
	}

	body := &Body{
		ID:        id,
		Transform: transform,
		BodyType:  bodyType,
		Shapes:    shapes,
	}

	for i, shape := range shapes {
		if err := shape.Validate(); err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		shape.SetBody(body)
	}

	if bodyType == BodyTypeStatic {
		body.Mass = math.Inf(1)
		return body, nil
	}

	var inertia mgl64.Mat3
	for _, shape := range shapes {
		mass := shape.ComputeMass(density)
		rotation, translation := shape.LocalTransform()
		local := rotation.Mul3(shape.ComputeInertia(mass)).Mul3(rotation.Transpose())

		// parallel axis: m * (|t|² I - t tᵀ)
		offset := mgl64.Ident3().Mul(translation.Dot(translation)).Sub(translation.OuterProd3(translation))
		inertia = inertia.Add(local).Add(offset.Mul(mass))
		body.Mass += mass
	}

	if !(body.Mass > 0) || math.IsInf(body.Mass, 0) {
		return nil, fmt.Errorf("mass %v: %w", body.Mass, ErrInvalidMass)
	}
	if inertia.Det() <= 0 {
		return nil, fmt.Errorf("singular inertia: %w", ErrInvalidMass)
	}

	body.InverseMass = 1.0 / body.Mass
	body.Inertia = inertia
	body.InverseInertia = inertia.Inv()

	return body, nil
}

// Fixed reports whether the body is immovable
func (b *Body) Fixed() bool {
	return b.BodyType == BodyTypeStatic
}

// Bounds returns the union of the shapes' bounds
func (b *Body) Bounds() AABB {
	box := b.Shapes[0].Bounds()
	for _, shape := range b.Shapes[1:] {
		other := shape.Bounds()
		for k := 0; k < 3; k++ {
			box.Min[k] = min(box.Min[k], other.Min[k])
			box.Max[k] = max(box.Max[k], other.Max[k])
		}
	}
	return box
}

// InverseInertiaWorld returns R * I⁻¹ * Rᵀ, zero for fixed bodies
func (b *Body) InverseInertiaWorld() mgl64.Mat3 {
	if b.Fixed() {
		return mgl64.Mat3{}
	}

	R := b.Transform.RotationMatrix()
	return R.Mul3(b.InverseInertia).Mul3(R.Transpose())
}

// ApplyForce adds the velocity change of a force applied at a world point
// during dt to the External accumulator.
func (b *Body) ApplyForce(point, force mgl64.Vec3, dt float64) {
	b.ApplyImpulse(point, force.Mul(dt))
}

// ApplyImpulse adds the velocity change of an impulse applied at a world
// point to the External accumulator.
func (b *Body) ApplyImpulse(point, impulse mgl64.Vec3) {
	if b.Fixed() {
		return
	}
	b.Awake()

	torque := point.Sub(b.Transform.Position).Cross(impulse)
	b.External = b.External.AddScaled(impulse.Mul(b.InverseMass), b.InverseInertiaWorld().Mul3x1(torque), 1)
}

// ResetDeltas clears every accumulator before a new solve
func (b *Body) ResetDeltas() {
	b.Delta = Accumulator{}
	b.Search = Accumulator{}
	b.Previous = Accumulator{}
	b.External = Accumulator{}
}

// Advance applies the external and solver velocity changes, then integrates
// the pose over dt.
func (b *Body) Advance(dt float64) {
	if b.Fixed() || b.Sleeping {
		return
	}

	b.Velocity = b.Velocity.Add(b.External.Velocity).Add(b.Delta.Velocity)
	b.Omega = b.Omega.Add(b.External.Omega).Add(b.Delta.Omega)

	b.Velocity = b.Velocity.Mul(math.Exp(-b.LinearDamping * dt))
	b.Omega = b.Omega.Mul(math.Exp(-b.AngularDamping * dt))

	b.Transform.Position = b.Transform.Position.Add(b.Velocity.Mul(dt))

	omegaQuat := mgl64.Quat{V: b.Omega, W: 0}
	qDot := omegaQuat.Mul(b.Transform.Rotation).Scale(0.5)
	b.Transform.Rotation = b.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	b.Transform.InverseRotation = b.Transform.Rotation.Inverse()
}

// TrySleep puts the body to sleep once both velocities stayed below
// velocityThreshold for timeThreshold seconds.
func (b *Body) TrySleep(dt float64, timeThreshold float64, velocityThreshold float64) {
	if b.Fixed() {
		return
	}
	if b.Velocity.Len() < velocityThreshold && b.Omega.Len() < velocityThreshold {
		b.SleepTimer += dt
		if b.SleepTimer >= timeThreshold {
			b.Sleep()
		}
	} else {
		b.Awake()
	}
}

func (b *Body) Sleep() {
	b.Sleeping = true
	b.SleepTimer = 0.0

	b.ResetDeltas()
	b.Velocity = mgl64.Vec3{}
	b.Omega = mgl64.Vec3{}
}

func (b *Body) Awake() {
	b.Sleeping = false
	b.SleepTimer = 0.0
}
