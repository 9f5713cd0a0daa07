// Package contact turns the narrow-phase result of a shape pair into a small
// set of contact points.
//
// A Generator is created when the broad phase reports a new overlapping pair
// and is run once per tick until the pair separates. Two generators exist:
// the support map generator clips the extremal features of both shapes, and
// the sphere generator reduces the sphere to its centre and yields at most
// one point.
package contact

import (
	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultFeatureTolerance = 0.09
	DefaultEpsilon          = 1e-7
	DefaultMaxIterations    = 32

	// rayEpsilon is the distance at which the ray cast reports touching
	rayEpsilon = 1e-5
	// mergeTolerance is the distance under which two points are the same contact
	mergeTolerance = 1e-6
)

// Point is a single contact between shapes A and B.
type Point struct {
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	// Normal is the unit direction from A towards B
	Normal mgl64.Vec3
	// Distance is the signed separation along Normal, negative when penetrating
	Distance float64
	// Depth is the distance below the shell, half the envelope
	Depth       float64
	Envelope    float64
	Midpoint    mgl64.Vec3
	Restitution float64
	Friction    float64
}

// Options configure a generator. Zero values are replaced by defaults.
type Options struct {
	// Envelope overrides the largest envelope of both shapes when positive
	Envelope         float64
	FeatureTolerance float64
	Epsilon          float64
	MaxIterations    int
}

func DefaultOptions() Options {
	return Options{
		FeatureTolerance: DefaultFeatureTolerance,
		Epsilon:          DefaultEpsilon,
		MaxIterations:    DefaultMaxIterations,
	}
}

func (o Options) withDefaults(a, b actor.Shape) Options {
	if o.Envelope <= 0 {
		o.Envelope = max(a.Envelope(), b.Envelope())
	}
	if o.FeatureTolerance <= 0 {
		o.FeatureTolerance = DefaultFeatureTolerance
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Generator produces the contacts of one shape pair.
type Generator interface {
	// Run recomputes the contacts from the current poses and reports
	// whether there are any.
	Run() bool
	Contacts() []Point
	// Shapes returns the pair in the order the contact normals refer to
	Shapes() (actor.Shape, actor.Shape)
}

// New selects the generator for the pair. A pair involving a sphere gets the
// sphere generator, with the sphere as second shape.
func New(a, b actor.Shape, opts Options) Generator {
	switch {
	case b.Type() == actor.ShapeTypeSphere:
		return NewSphereGenerator(a, b.(*actor.Sphere), opts)
	case a.Type() == actor.ShapeTypeSphere:
		return NewSphereGenerator(b, a.(*actor.Sphere), opts)
	default:
		return NewSupportMapGenerator(a, b, opts)
	}
}

// appendUnique adds p unless a contact with the same witness points exists
func appendUnique(points []Point, p Point) []Point {
	for _, q := range points {
		if q.PointA.Sub(p.PointA).Len() < mergeTolerance && q.PointB.Sub(p.PointB).Len() < mergeTolerance {
			return points
		}
	}
	return append(points, p)
}
