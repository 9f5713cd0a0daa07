package solver

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// NoCoupling marks a row whose bounds are fixed
const NoCoupling = -1

// Row is one scalar velocity constraint between two bodies:
//
//	J1·Δv1 + J2·Δω1 + J3·Δv2 + J4·Δω2 + B + Fext  complementary to  Lower <= Lambda <= Upper
//
// B1..B4 are the Jacobian blocks weighted by the inverse masses, so that a
// multiplier change dλ moves the body accumulators by B·dλ.
type Row struct {
	Body1, Body2 int // indices in the bodies given to Solve

	J1, J2, J3, J4 mgl64.Vec3
	B1, B2, B3, B4 mgl64.Vec3
	Diagonal       float64

	B    float64
	Fext float64

	Lower, Upper float64
	// Coupling is the index of the row bounding this one, or NoCoupling.
	// The bounds then become ±Mu*|Lambda| of that row.
	Coupling int
	Mu       float64

	Lambda float64

	// scratch, in normalised units
	d, residual  float64
	lower, upper float64
}

// NewRow builds an unbounded row from the Jacobian of the constraint on
// bodies a (index i1) and b (index i2).
func NewRow(a, b *actor.Body, i1, i2 int, j1, j2, j3, j4 mgl64.Vec3) Row {
	row := Row{
		Body1:    i1,
		Body2:    i2,
		J1:       j1,
		J2:       j2,
		J3:       j3,
		J4:       j4,
		B1:       j1.Mul(a.InverseMass),
		B2:       a.InverseInertiaWorld().Mul3x1(j2),
		B3:       j3.Mul(b.InverseMass),
		B4:       b.InverseInertiaWorld().Mul3x1(j4),
		Lower:    math.Inf(-1),
		Upper:    math.Inf(1),
		Coupling: NoCoupling,
	}
	row.Diagonal = j1.Dot(row.B1) + j2.Dot(row.B2) + j3.Dot(row.B3) + j4.Dot(row.B4)
	return row
}

// Velocity is the Jacobian applied to both accumulators
func (r *Row) Velocity(a, b actor.Accumulator) float64 {
	return r.J1.Dot(a.Velocity) + r.J2.Dot(a.Omega) + r.J3.Dot(b.Velocity) + r.J4.Dot(b.Omega)
}

// apply moves both accumulators by B·lambda
func (r *Row) apply(a, b *actor.Accumulator, lambda float64) {
	*a = a.AddScaled(r.B1, r.B2, lambda)
	*b = b.AddScaled(r.B3, r.B4, lambda)
}

// Rows is the arena holding every row of a tick. Coupling refers to rows
// by their index in the arena.
type Rows struct {
	rows []Row
}

func NewRows(capacity int) *Rows {
	return &Rows{rows: make([]Row, 0, capacity)}
}

// Add stores the row and returns its index
func (r *Rows) Add(row Row) int {
	r.rows = append(r.rows, row)
	return len(r.rows) - 1
}

func (r *Rows) At(i int) *Row { return &r.rows[i] }
func (r *Rows) Len() int      { return len(r.rows) }

// Reset empties the arena, keeping its storage
func (r *Rows) Reset() {
	r.rows = r.rows[:0]
}
