package constraint

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
)

var axes = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// BallJoint pins a point of BodyA to a point of BodyB. Anchors are stored in
// each body's frame.
type BallJoint struct {
	BodyA   *actor.Body
	BodyB   *actor.Body
	AnchorA mgl64.Vec3
	AnchorB mgl64.Vec3
}

// NewBallJoint joins both bodies at a world point
func NewBallJoint(a, b *actor.Body, anchor mgl64.Vec3) (*BallJoint, error) {
	if a == nil || b == nil || a == b {
		return nil, ErrInvalidBodies
	}
	if a.Fixed() && b.Fixed() {
		return nil, ErrFixedBodies
	}
	return &BallJoint{
		BodyA:   a,
		BodyB:   b,
		AnchorA: toLocal(a.Transform, anchor),
		AnchorB: toLocal(b.Transform, anchor),
	}, nil
}

func toLocal(transform actor.Transform, point mgl64.Vec3) mgl64.Vec3 {
	return transform.RotationMatrix().Transpose().Mul3x1(point.Sub(transform.Position))
}

func (j *BallJoint) Bodies() (*actor.Body, *actor.Body) { return j.BodyA, j.BodyB }

// Error is the world-space separation of both anchors
func (j *BallJoint) Error() mgl64.Vec3 {
	return j.BodyB.Transform.Apply(j.AnchorB).Sub(j.BodyA.Transform.Apply(j.AnchorA))
}

// Lower adds one unbounded row per world axis
func (j *BallJoint) Lower(rows *solver.Rows, index BodyIndex, params Params) int {
	i1, ok1 := index[j.BodyA]
	i2, ok2 := index[j.BodyB]
	if !ok1 || !ok2 {
		return 0
	}

	pA := j.BodyA.Transform.Apply(j.AnchorA)
	pB := j.BodyB.Transform.Apply(j.AnchorB)
	rA := pA.Sub(j.BodyA.Transform.Position)
	rB := pB.Sub(j.BodyB.Transform.Position)
	separation := pB.Sub(pA)
	velocityA, velocityB := velocityOf(j.BodyA), velocityOf(j.BodyB)

	for _, axis := range axes {
		j1, j2, j3, j4 := jacobian(rA, rB, axis)
		row := solver.NewRow(j.BodyA, j.BodyB, i1, i2, j1, j2, j3, j4)
		row.B = row.Velocity(velocityA, velocityB) + params.correction(separation.Dot(axis))
		rows.Add(row)
	}
	return len(axes)
}
