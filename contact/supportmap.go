package contact

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/narrowphase"
	"github.com/go-gl/mathgl/mgl64"
)

// SupportMapGenerator handles any pair of convex shapes.
//
// Penetrating or touching pairs get their normal from a ray cast along the
// line joining the shape centres, the EPA normal being the fallback. Pairs
// within the envelope use the GJK normal. The contacts then come from the
// features of both shapes facing each other: vertices of one shape inside
// the face of the other, and crossing edges.
type SupportMapGenerator struct {
	a, b     actor.Shape
	opts     Options
	material actor.Material
	contacts []Point
}

func NewSupportMapGenerator(a, b actor.Shape, opts Options) *SupportMapGenerator {
	return &SupportMapGenerator{
		a:        a,
		b:        b,
		opts:     opts.withDefaults(a, b),
		material: actor.Combine(a.Material(), b.Material()),
		contacts: make([]Point, 0, 8),
	}
}

func (g *SupportMapGenerator) Shapes() (actor.Shape, actor.Shape) { return g.a, g.b }
func (g *SupportMapGenerator) Contacts() []Point                  { return g.contacts }

func (g *SupportMapGenerator) Run() bool {
	g.contacts = g.contacts[:0]

	result, _ := narrowphase.Query(g.a, g.b, narrowphase.Options{
		Envelope:      g.opts.Envelope,
		Epsilon:       g.opts.Epsilon,
		MaxIterations: g.opts.MaxIterations,
	})

	switch {
	case result.Penetrating || result.Distance < g.opts.Epsilon:
		pa, pb, normal := result.PointA, result.PointB, result.Normal
		direction := g.b.Center().Sub(g.a.Center())
		if hit, err := narrowphase.RayCast(g.a, g.b, direction, g.opts.Envelope, rayEpsilon); err == nil {
			pa, pb, normal = hit.PointA, hit.PointB, hit.Normal
		}
		g.generate(pa, pb, normal)
	case result.Distance < g.opts.Envelope:
		g.generate(result.PointA, result.PointB, result.Normal)
	}

	return len(g.contacts) > 0
}

// generate clips the feature of A facing B against the feature of B facing
// A, both projected on the plane orthogonal to normal.
func (g *SupportMapGenerator) generate(pa, pb, normal mgl64.Vec3) {
	faceA := g.a.SupportFeature(normal, g.opts.FeatureTolerance)
	faceB := g.b.SupportFeature(normal.Mul(-1), g.opts.FeatureTolerance)

	plane := newContactPlane(pa.Add(pb).Mul(0.5), normal)
	polygonA := plane.projectAll(faceA)
	polygonB := plane.projectAll(faceB)

	// vertices of A inside the face of B
	if len(faceB) > 2 {
		faceNormal := polygonNormal(faceB, normal)
		for i, vertex := range faceA {
			if !inside(polygonA[i], polygonB) {
				continue
			}
			along := normal.Dot(faceNormal)
			if along*along < 1e-12 {
				continue
			}
			t := faceB[0].Sub(vertex).Dot(faceNormal) / along
			g.add(vertex, vertex.Add(normal.Mul(t)), normal, t, plane.lift(polygonA[i]))
		}
	}

	// vertices of B inside the face of A
	if len(faceA) > 2 {
		faceNormal := polygonNormal(faceA, normal)
		for i, vertex := range faceB {
			if !inside(polygonB[i], polygonA) {
				continue
			}
			along := normal.Dot(faceNormal)
			if along*along < 1e-12 {
				continue
			}
			t := vertex.Sub(faceA[0]).Dot(faceNormal) / along
			g.add(vertex.Sub(normal.Mul(t)), vertex, normal, t, plane.lift(polygonB[i]))
		}
	}

	// crossing edges
	if len(faceA) > 1 && len(faceB) > 1 {
		for _, edgeA := range edges(len(faceA)) {
			a0, a1 := faceA[edgeA[0]], faceA[edgeA[1]]
			da := polygonA[edgeA[1]].Sub(polygonA[edgeA[0]])

			for _, edgeB := range edges(len(faceB)) {
				b0, b1 := faceB[edgeB[0]], faceB[edgeB[1]]
				db := polygonB[edgeB[1]].Sub(polygonB[edgeB[0]])

				det := cross2(da, db)
				if det*det < 1e-14 {
					continue
				}
				r := polygonB[edgeB[0]].Sub(polygonA[edgeA[0]])
				alpha := cross2(r, db) / det
				beta := cross2(r, da) / det
				if alpha <= 0 || alpha >= 1 || beta <= 0 || beta >= 1 {
					continue
				}

				onA := a0.Add(a1.Sub(a0).Mul(alpha))
				onB := b0.Add(b1.Sub(b0).Mul(beta))
				midpoint := plane.lift(polygonA[edgeA[0]].Add(da.Mul(alpha)))
				g.add(onA, onB, normal, onB.Sub(onA).Dot(normal), midpoint)
			}
		}
	}

	// point against point, or parallel segments: keep the witness pair
	if len(g.contacts) == 0 {
		g.add(pa, pb, normal, pb.Sub(pa).Dot(normal), plane.origin)
	}
}

func (g *SupportMapGenerator) add(pa, pb, normal mgl64.Vec3, distance float64, midpoint mgl64.Vec3) {
	if !finite(distance) || distance >= g.opts.Envelope {
		return
	}
	if !finite3(pa) || !finite3(pb) || !finite3(normal) || !finite3(midpoint) {
		return
	}
	g.contacts = appendUnique(g.contacts, Point{
		PointA:      pa,
		PointB:      pb,
		Normal:      normal,
		Distance:    distance,
		Depth:       g.opts.Envelope/2 - distance,
		Envelope:    g.opts.Envelope,
		Midpoint:    midpoint,
		Restitution: g.material.Restitution,
		Friction:    g.material.Friction,
	})
}

// contactPlane is the orthonormal frame (normal, t1, t2) centred on the
// midpoint of the witness points.
type contactPlane struct {
	origin mgl64.Vec3
	t1, t2 mgl64.Vec3
}

func newContactPlane(origin, normal mgl64.Vec3) contactPlane {
	t1, t2 := actor.TangentBasis(normal)
	return contactPlane{origin: origin, t1: t1, t2: t2}
}

func (p contactPlane) project(point mgl64.Vec3) mgl64.Vec2 {
	d := point.Sub(p.origin)
	return mgl64.Vec2{d.Dot(p.t1), d.Dot(p.t2)}
}

func (p contactPlane) projectAll(points []mgl64.Vec3) []mgl64.Vec2 {
	projected := make([]mgl64.Vec2, len(points))
	for i, point := range points {
		projected[i] = p.project(point)
	}
	return projected
}

// lift maps plane coordinates back to world space
func (p contactPlane) lift(q mgl64.Vec2) mgl64.Vec3 {
	return p.origin.Add(p.t1.Mul(q.X())).Add(p.t2.Mul(q.Y()))
}

func cross2(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// inside reports whether p lies in the convex polygon, boundary included.
// The polygon may be wound either way.
func inside(p mgl64.Vec2, polygon []mgl64.Vec2) bool {
	const tolerance = 1e-9

	positive, negative := false, false
	previous := polygon[len(polygon)-1]
	for _, q := range polygon {
		switch c := cross2(q.Sub(previous), p.Sub(previous)); {
		case c > tolerance:
			positive = true
		case c < -tolerance:
			negative = true
		}
		if positive && negative {
			return false
		}
		previous = q
	}
	return true
}

// polygonNormal uses Newell's method, so collinear or repeated vertices do
// not matter. A face without area gets fallback.
func polygonNormal(face []mgl64.Vec3, fallback mgl64.Vec3) mgl64.Vec3 {
	var n mgl64.Vec3
	origin := face[0]
	previous := face[len(face)-1].Sub(origin)
	for _, v := range face {
		current := v.Sub(origin)
		n = n.Add(previous.Cross(current))
		previous = current
	}
	if length := n.Len(); length > 1e-12 {
		return n.Mul(1 / length)
	}
	return fallback
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finite3(v mgl64.Vec3) bool {
	return finite(v.X()) && finite(v.Y()) && finite(v.Z())
}

// edges lists the index pairs of a closed polygon; a segment has one edge
func edges(n int) [][2]int {
	if n == 2 {
		return [][2]int{{0, 1}}
	}
	result := make([][2]int, n)
	for i := range n {
		result[i] = [2]int{(i + n - 1) % n, i}
	}
	return result
}
