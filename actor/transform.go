package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and an orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform at the given position and rotation
func NewTransformAt(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	rotation = rotation.Normalize()
	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// RotationMatrix returns the orientation as a 3x3 rotation matrix
func (t Transform) RotationMatrix() mgl64.Mat3 {
	if t.Rotation == (mgl64.Quat{}) {
		return mgl64.Ident3()
	}
	return t.Rotation.Mat4().Mat3()
}

// Apply maps a body-space point to world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return t.RotationMatrix().Mul3x1(point).Add(t.Position)
}
