package contact

import (
	"errors"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/epa"
	"github.com/akmonengine/quill/narrowphase"
)

// SphereGenerator handles a convex shape against a sphere. The sphere is
// replaced by its centre in the distance query, which keeps GJK away from the
// slow convergence of curved support maps, and the radius is subtracted
// afterwards. It yields at most one contact.
type SphereGenerator struct {
	shape    actor.Shape
	sphere   *actor.Sphere
	opts     Options
	material actor.Material
	contacts []Point
}

func NewSphereGenerator(shape actor.Shape, sphere *actor.Sphere, opts Options) *SphereGenerator {
	return &SphereGenerator{
		shape:    shape,
		sphere:   sphere,
		opts:     opts.withDefaults(shape, sphere),
		material: actor.Combine(shape.Material(), sphere.Material()),
		contacts: make([]Point, 0, 1),
	}
}

func (g *SphereGenerator) Shapes() (actor.Shape, actor.Shape) { return g.shape, g.sphere }
func (g *SphereGenerator) Contacts() []Point                  { return g.contacts }

func (g *SphereGenerator) Run() bool {
	g.contacts = g.contacts[:0]

	centre := actor.Point{Position: g.sphere.Center()}
	result, err := narrowphase.Query(g.shape, centre, narrowphase.Options{
		Envelope:      g.sphere.Radius + g.opts.Envelope,
		Epsilon:       g.opts.Epsilon,
		MaxIterations: g.opts.MaxIterations,
	})
	if err != nil && !errors.Is(err, epa.ErrNotConverged) {
		return false
	}

	distance := result.Distance - g.sphere.Radius
	if distance >= g.opts.Envelope {
		return false
	}

	pb := centre.Position.Sub(result.Normal.Mul(g.sphere.Radius))
	g.contacts = append(g.contacts, Point{
		PointA:      result.PointA,
		PointB:      pb,
		Normal:      result.Normal,
		Distance:    distance,
		Depth:       g.opts.Envelope/2 - distance,
		Envelope:    g.opts.Envelope,
		Midpoint:    result.PointA.Add(pb).Mul(0.5),
		Restitution: g.material.Restitution,
		Friction:    g.material.Friction,
	})
	return true
}
