package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
)

// groundContact is a single point under the centre of a unit box resting on
// the ground. The ground is A, so the normal points up.
func groundContact(ground, box *actor.Body, depth, friction, restitution float64) *Contact {
	return &Contact{
		BodyA: ground,
		BodyB: box,
		Points: []contact.Point{
			{
				PointA:      mgl64.Vec3{0, 0, 0},
				PointB:      mgl64.Vec3{0, 0, 0},
				Normal:      mgl64.Vec3{0, 1, 0},
				Depth:       depth,
				Midpoint:    mgl64.Vec3{0, 0, 0},
				Friction:    friction,
				Restitution: restitution,
			},
		},
	}
}

func solve(t *testing.T, c Constraint, bodies ...*actor.Body) *solver.Rows {
	t.Helper()

	index := BodyIndex{}
	for i, body := range bodies {
		index[body] = i
	}
	rows := solver.NewRows(8)
	c.Lower(rows, index, DefaultParams(dt))
	solver.NewNNCG().Solve(rows, bodies)
	return rows
}

func TestContact_Lower_Rows(t *testing.T) {
	ground := createStaticBody(t, 0)
	box := createDynamicBody(t, 1, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{})

	c := groundContact(ground, box, 0, 0.4, 0)
	c.Points = append(c.Points, c.Points[0])
	c.Points[1].Midpoint = mgl64.Vec3{0.5, 0, 0.5}

	rows := solver.NewRows(8)
	added := c.Lower(rows, BodyIndex{ground: 0, box: 1}, DefaultParams(dt))

	if added != 6 || rows.Len() != 6 {
		t.Fatalf("Lower() added %d rows (len %d), want 6", added, rows.Len())
	}
	for i := 0; i < rows.Len(); i += 3 {
		normal := rows.At(i)
		if normal.Lower != 0 || !math.IsInf(normal.Upper, 1) || normal.Coupling != solver.NoCoupling {
			t.Errorf("row %d: bounds [%v, %v] coupling %d, want [0, +Inf] uncoupled", i, normal.Lower, normal.Upper, normal.Coupling)
		}
		for _, k := range []int{i + 1, i + 2} {
			friction := rows.At(k)
			if friction.Coupling != i {
				t.Errorf("row %d: Coupling = %d, want %d", k, friction.Coupling, i)
			}
			if friction.Mu != 0.4 {
				t.Errorf("row %d: Mu = %v, want 0.4", k, friction.Mu)
			}
		}
	}
	// the off-centre point has a lever arm
	if rows.At(3).J4 == (mgl64.Vec3{}) {
		t.Error("off-centre normal row has no angular part")
	}
}

func TestContact_Lower_UnknownBody(t *testing.T) {
	ground := createStaticBody(t, 0)
	box := createDynamicBody(t, 1, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{})

	rows := solver.NewRows(4)
	if added := groundContact(ground, box, 0, 0.5, 0).Lower(rows, BodyIndex{ground: 0}, DefaultParams(dt)); added != 0 {
		t.Errorf("Lower() = %d, want 0 for a body missing from the index", added)
	}
}

func TestContact_RestingBox(t *testing.T) {
	ground := createStaticBody(t, 0)
	box := createDynamicBody(t, 1, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{})
	NewGravityForce(box, mgl64.Vec3{0, -9.81, 0}).Apply(dt)

	rows := solve(t, groundContact(ground, box, 0, 0.5, 0), ground, box)

	if got, want := rows.At(0).Lambda, 9.81*dt; math.Abs(got-want) > 1e-12 {
		t.Errorf("normal Lambda = %v, want %v", got, want)
	}
	for k := 1; k < 3; k++ {
		if got := rows.At(k).Lambda; math.Abs(got) > 1e-12 {
			t.Errorf("friction row %d Lambda = %v, want 0", k, got)
		}
	}

	box.Advance(dt)
	if box.Velocity.Len() > 1e-12 {
		t.Errorf("Velocity = %v, want zero", box.Velocity)
	}
}

func TestContact_Restitution(t *testing.T) {
	tests := []struct {
		name        string
		velocity    float64
		restitution float64
		depth       float64
		expected    float64
	}{
		{"bounce", -2, 0.5, 0, 1},
		{"under threshold", -0.3, 0.5, 0, 0},
		{"inelastic", -2, 0, 0, 0},
		{"below the shell", -0.3, 0, 0.01, 0.2},
		{"gap closes at bounded speed", -0.4, 0, -0.01, -0.2},
		{"separating", 1, 0.5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ground := createStaticBody(t, 0)
			box := createDynamicBody(t, 1, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0, tt.velocity, 0})

			solve(t, groundContact(ground, box, tt.depth, 0.5, tt.restitution), ground, box)
			box.Advance(dt)

			if got := box.Velocity.Y(); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Velocity.Y = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestContact_Friction(t *testing.T) {
	tests := []struct {
		name     string
		slide    float64
		mu       float64
		saturate bool
	}{
		{"fast slide saturates", 2, 0.5, true},
		{"slow slide sticks", 0.01, 0.5, false},
		{"frictionless", 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ground := createStaticBody(t, 0)
			box := createDynamicBody(t, 1, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{tt.slide, 0, 0})
			NewGravityForce(box, mgl64.Vec3{0, -9.81, 0}).Apply(dt)

			rows := solve(t, groundContact(ground, box, 0, tt.mu, 0), ground, box)

			normal := rows.At(0).Lambda
			bound := tt.mu * normal
			for k := 1; k < 3; k++ {
				row := rows.At(k)
				if math.Abs(row.Upper-bound) > 1e-12 || math.Abs(row.Lower+bound) > 1e-12 {
					t.Errorf("row %d bounds = [%v, %v], want ±%v", k, row.Lower, row.Upper, bound)
				}
				if math.Abs(row.Lambda) > bound+1e-12 {
					t.Errorf("row %d Lambda = %v outside ±%v", k, row.Lambda, bound)
				}
			}

			// t1 is +x for an upward normal
			slide := rows.At(1).Lambda
			if tt.saturate {
				if math.Abs(slide+bound) > 1e-12 {
					t.Errorf("friction Lambda = %v, want %v", slide, -bound)
				}
				return
			}
			box.Advance(dt)
			rB := mgl64.Vec3{0, -0.5, 0}
			if v := box.Velocity.Add(box.Omega.Cross(rB)); math.Abs(v.X()) > 1e-9 {
				t.Errorf("contact point velocity = %v, want no slip", v)
			}
		})
	}
}

func BenchmarkContact_Lower(b *testing.B) {
	ground := createStaticBody(b, 0)
	box := createDynamicBody(b, 1, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{})
	c := groundContact(ground, box, 0, 0.5, 0)
	for i := 0; i < 3; i++ {
		c.Points = append(c.Points, c.Points[0])
	}
	index := BodyIndex{ground: 0, box: 1}
	params := DefaultParams(dt)
	rows := solver.NewRows(12)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rows.Reset()
		c.Lower(rows, index, params)
	}
}
