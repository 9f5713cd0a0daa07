package actor

const (
	// DefaultFriction and DefaultRestitution are assigned to every shape built
	// through a constructor.
	DefaultFriction    = 0.5
	DefaultRestitution = 0.7
)

// Material carries the contact coefficients of a shape. Both values are in
// [0,1] by convention but are not clamped.
type Material struct {
	Friction    float64
	Restitution float64
}

// DefaultMaterial returns the material given to shapes that do not set one
func DefaultMaterial() Material {
	return Material{Friction: DefaultFriction, Restitution: DefaultRestitution}
}

// Combine picks the weaker coefficient of both materials
func Combine(a, b Material) Material {
	return Material{
		Friction:    min(a.Friction, b.Friction),
		Restitution: min(a.Restitution, b.Restitution),
	}
}
