package constraint

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact lowers the points of one shape pair. Each point gives a normal row
// bounded to [0, ∞) and two friction rows coupled to it.
type Contact struct {
	BodyA  *actor.Body
	BodyB  *actor.Body
	Points []contact.Point
}

func (c *Contact) Bodies() (*actor.Body, *actor.Body) { return c.BodyA, c.BodyB }

func (c *Contact) Lower(rows *solver.Rows, index BodyIndex, params Params) int {
	i1, ok1 := index[c.BodyA]
	i2, ok2 := index[c.BodyB]
	if !ok1 || !ok2 {
		return 0
	}
	velocityA, velocityB := velocityOf(c.BodyA), velocityOf(c.BodyB)

	added := 0
	for _, point := range c.Points {
		rA := point.Midpoint.Sub(c.BodyA.Transform.Position)
		rB := point.Midpoint.Sub(c.BodyB.Transform.Position)

		j1, j2, j3, j4 := jacobian(rA, rB, point.Normal)
		normal := solver.NewRow(c.BodyA, c.BodyB, i1, i2, j1, j2, j3, j4)

		// negative when approaching
		approach := normal.Velocity(velocityA, velocityB)
		// a point still outside the shell lets the bodies close the gap
		target := params.correction(point.Depth)
		if approach < -params.RestitutionThreshold {
			target = max(target, -point.Restitution*approach)
		}

		normal.B = approach - target
		normal.Lower, normal.Upper = 0, math.Inf(1)
		normalIndex := rows.Add(normal)
		added++

		t1, t2 := actor.TangentBasis(point.Normal)
		for _, tangent := range [2]mgl64.Vec3{t1, t2} {
			j1, j2, j3, j4 := jacobian(rA, rB, tangent)
			friction := solver.NewRow(c.BodyA, c.BodyB, i1, i2, j1, j2, j3, j4)
			friction.B = friction.Velocity(velocityA, velocityB)
			friction.Coupling = normalIndex
			friction.Mu = point.Friction
			friction.Lower, friction.Upper = 0, 0
			rows.Add(friction)
			added++
		}
	}
	return added
}
