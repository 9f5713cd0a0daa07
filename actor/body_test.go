package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewBody_Errors(t *testing.T) {
	tests := []struct {
		name    string
		density float64
		shapes  []Shape
		wantErr error
	}{
		{"no shape", 1, nil, ErrNoShape},
		{"zero density", 0, []Shape{NewBox(mgl64.Vec3{1, 1, 1})}, ErrInvalidMass},
		{"negative density", -2, []Shape{NewSphere(1)}, ErrInvalidMass},
		{"degenerate shape", 1, []Shape{NewSphere(-1)}, ErrDegenerateShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBody(1, NewTransform(), BodyTypeDynamic, tt.density, tt.shapes...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewBody() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewBody_Static(t *testing.T) {
	box := NewBox(mgl64.Vec3{10, 1, 10})
	body := mustBody(t, mgl64.Vec3{}, BodyTypeStatic, box)

	if !body.Fixed() {
		t.Error("static body should be fixed")
	}
	if body.InverseMass != 0 || !math.IsInf(body.Mass, 1) {
		t.Errorf("static mass = %v, inverse = %v", body.Mass, body.InverseMass)
	}
	if body.InverseInertiaWorld() != (mgl64.Mat3{}) {
		t.Error("static inverse inertia should be zero")
	}
	if box.Body() != body {
		t.Error("shape is not attached to its body")
	}
}

func TestNewBody_Composite(t *testing.T) {
	left := NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	left.SetLocalTransform(mgl64.Ident3(), mgl64.Vec3{-1, 0, 0})
	right := NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	right.SetLocalTransform(mgl64.Ident3(), mgl64.Vec3{1, 0, 0})

	body := mustBody(t, mgl64.Vec3{0, 2, 0}, BodyTypeDynamic, left, right)

	if !floatEqual(body.Mass, 2, 1e-9) {
		t.Errorf("Mass = %v, want 2", body.Mass)
	}
	// each cube contributes 1/6 about its centre, plus m*d² off the x axis
	want := mgl64.Vec3{2.0 / 6.0, 2.0/6.0 + 2, 2.0/6.0 + 2}
	if !vec3Equal(body.Inertia.Diag(), want, 1e-9) {
		t.Errorf("Inertia diagonal = %v, want %v", body.Inertia.Diag(), want)
	}
	if c := right.Center(); !vec3Equal(c, mgl64.Vec3{1, 2, 0}, 1e-9) {
		t.Errorf("right Center() = %v", c)
	}

	bounds := body.Bounds()
	if !floatEqual(bounds.Min.X(), -1.5-DefaultEnvelope, 1e-9) || !floatEqual(bounds.Max.X(), 1.5+DefaultEnvelope, 1e-9) {
		t.Errorf("Bounds() = %v", bounds)
	}
}

func TestBody_ApplyForce(t *testing.T) {
	body := mustBody(t, mgl64.Vec3{}, BodyTypeDynamic, NewBox(mgl64.Vec3{0.5, 0.5, 0.5}))
	dt := 0.1

	body.ApplyForce(mgl64.Vec3{}, mgl64.Vec3{10, 0, 0}, dt)
	if !vec3Equal(body.External.Velocity, mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("External.Velocity = %v, want (1,0,0)", body.External.Velocity)
	}
	if body.External.Omega != (mgl64.Vec3{}) {
		t.Errorf("force through the centre produced Omega = %v", body.External.Omega)
	}

	body.ResetDeltas()
	body.ApplyImpulse(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{1, 0, 0})
	// torque (0,0.5,0)x(1,0,0) = (0,0,-0.5), I = 1/6
	if !vec3Equal(body.External.Omega, mgl64.Vec3{0, 0, -3}, 1e-9) {
		t.Errorf("External.Omega = %v, want (0,0,-3)", body.External.Omega)
	}
}

func TestBody_Advance(t *testing.T) {
	tests := []struct {
		name     string
		bodyType BodyType
		sleeping bool
		wantPos  mgl64.Vec3
	}{
		{"dynamic", BodyTypeDynamic, false, mgl64.Vec3{0.3, 0, 0}},
		{"static", BodyTypeStatic, false, mgl64.Vec3{}},
		{"sleeping", BodyTypeDynamic, true, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mustBody(t, mgl64.Vec3{}, tt.bodyType, NewSphere(1))
			body.Sleeping = tt.sleeping
			body.Velocity = mgl64.Vec3{1, 0, 0}
			body.External = Accumulator{Velocity: mgl64.Vec3{1, 0, 0}}
			body.Delta = Accumulator{Velocity: mgl64.Vec3{1, 0, 0}}

			body.Advance(0.1)

			if !vec3Equal(body.Transform.Position, tt.wantPos, 1e-9) {
				t.Errorf("Position = %v, want %v", body.Transform.Position, tt.wantPos)
			}
		})
	}
}

func TestBody_AdvanceRotation(t *testing.T) {
	body := mustBody(t, mgl64.Vec3{}, BodyTypeDynamic, NewSphere(1))
	body.Omega = mgl64.Vec3{0, math.Pi, 0}

	for i := 0; i < 200; i++ {
		body.Advance(0.005)
	}

	q := body.Transform.Rotation
	if !floatEqual(q.Len(), 1, 1e-9) {
		t.Errorf("rotation not normalized: |q| = %v", q.Len())
	}
	// half a turn about y
	got := body.Transform.RotationMatrix().Mul3x1(mgl64.Vec3{1, 0, 0})
	if !vec3Equal(got, mgl64.Vec3{-1, 0, 0}, 0.05) {
		t.Errorf("rotated x axis = %v, want about (-1,0,0)", got)
	}
}

func TestBody_TrySleep(t *testing.T) {
	body := mustBody(t, mgl64.Vec3{}, BodyTypeDynamic, NewSphere(1))
	body.Velocity = mgl64.Vec3{0.01, 0, 0}

	body.TrySleep(0.3, 0.5, 0.05)
	if body.Sleeping {
		t.Fatal("body slept before the time threshold")
	}
	body.TrySleep(0.3, 0.5, 0.05)
	if !body.Sleeping {
		t.Fatal("body should sleep after the time threshold")
	}
	if body.Velocity != (mgl64.Vec3{}) {
		t.Errorf("sleeping body keeps Velocity = %v", body.Velocity)
	}

	body.Velocity = mgl64.Vec3{1, 0, 0}
	body.TrySleep(0.1, 0.5, 0.05)
	if body.Sleeping || body.SleepTimer != 0 {
		t.Errorf("fast body should be awake, Sleeping = %v, SleepTimer = %v", body.Sleeping, body.SleepTimer)
	}
}
