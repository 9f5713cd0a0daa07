// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm.
//
// GJK computes the point of the Minkowski difference A - B closest to the
// origin. The difference is never built: the algorithm only queries support
// points along a search direction, growing a simplex of at most four vertices
// and reducing it each iteration to the smallest sub-simplex that supports the
// closest point. Each vertex keeps the two support points it was built from,
// so the barycentric weights of the closest point also give the witness
// points on A and on B.
//
// If the origin ends up inside the simplex (Count == 4) or at a distance
// below the tolerance, the shapes are penetrating and the simplex is the seed
// for EPA.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
//   - Ericson: "Real-Time Collision Detection" (2004), closest point on triangle
package gjk

import (
	"sync"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// degenerate is the volume or area below which a simplex is considered flat
const degenerate = 1e-14

// Vertex is a point of the Minkowski difference with its two support points
type Vertex struct {
	P mgl64.Vec3 // A - B
	A mgl64.Vec3
	B mgl64.Vec3
}

// Simplex represents a set of 1-4 points in the Minkowski difference space.
// Lambdas are the barycentric weights of the closest point over the first
// Count vertices.
type Simplex struct {
	Vertices   [4]Vertex
	Lambdas    [4]float64
	Count      int
	Iterations int
}

func (s *Simplex) Reset() {
	s.Count = 0
	s.Iterations = 0
}

// Witnesses returns the closest points on A and on B
func (s *Simplex) Witnesses() (mgl64.Vec3, mgl64.Vec3) {
	var pa, pb mgl64.Vec3
	for i := 0; i < s.Count; i++ {
		pa = pa.Add(s.Vertices[i].A.Mul(s.Lambdas[i]))
		pb = pb.Add(s.Vertices[i].B.Mul(s.Lambdas[i]))
	}
	return pa, pb
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport computes a support point in the Minkowski difference (A - B):
// furthestPoint(A, direction) - furthestPoint(B, -direction)
func MinkowskiSupport(a, b actor.SupportMap, direction mgl64.Vec3) Vertex {
	supportA := a.SupportPoint(direction)
	supportB := b.SupportPoint(direction.Mul(-1))
	return Vertex{P: supportA.Sub(supportB), A: supportA, B: supportB}
}

// Closest returns the closest points of a and b. The search stops early once
// the shapes are proven to be further apart than envelope, in which case the
// returned points are only an estimate with a distance above envelope.
// epsilon is the relative convergence tolerance. The final simplex is left
// in state for Penetrating and EPA.
func Closest(a, b actor.SupportMap, envelope, epsilon float64, maxIterations int, state *Simplex) (mgl64.Vec3, mgl64.Vec3) {
	state.Reset()

	state.Vertices[0] = MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
	state.Lambdas[0] = 1
	state.Count = 1
	v := state.Vertices[0].P

	for state.Iterations < maxIterations {
		state.Iterations++

		vv := v.Dot(v)
		if vv < epsilon*epsilon {
			break
		}

		w := MinkowskiSupport(a, b, v.Mul(-1))
		vw := v.Dot(w.P)

		// separating plane found further than the envelope
		if vw > 0 && vw*vw > vv*envelope*envelope {
			break
		}
		if state.contains(w) {
			break
		}
		if vv-vw <= epsilon*vv {
			break
		}

		backup := *state
		state.Vertices[state.Count] = w
		state.Count++

		next, ok := state.solve()
		if !ok || next.Dot(next) >= vv {
			// no progress, keep the last valid simplex
			*state = backup
			break
		}
		v = next

		if state.Count == 4 {
			break
		}
	}

	return state.Witnesses()
}

// Penetrating reports whether the result of Closest means the shapes overlap:
// the witness points coincide or the simplex encloses the origin.
func Penetrating(pa, pb mgl64.Vec3, state *Simplex, epsilon float64) bool {
	return pa.Sub(pb).LenSqr() < epsilon*epsilon || state.Count == 4
}

// Intersect is the boolean query: it reports whether a and b overlap.
func Intersect(a, b actor.SupportMap, state *Simplex) bool {
	const epsilon = 1e-9

	pa, pb := Closest(a, b, 0, epsilon, 64, state)
	return Penetrating(pa, pb, state, epsilon)
}

func (s *Simplex) contains(w Vertex) bool {
	for i := 0; i < s.Count; i++ {
		if s.Vertices[i].P.Sub(w.P).LenSqr() < degenerate {
			return true
		}
	}
	return false
}

// solve reduces the simplex to the sub-simplex supporting the point closest
// to the origin, sets the barycentric weights and returns that point.
// It reports false when the simplex is degenerate.
func (s *Simplex) solve() (mgl64.Vec3, bool) {
	switch s.Count {
	case 1:
		s.Lambdas[0] = 1
		return s.Vertices[0].P, true
	case 2:
		return s.solveSegment(), true
	case 3:
		return s.solveTriangle(), true
	case 4:
		return s.solveTetrahedron()
	}
	return mgl64.Vec3{}, false
}

func (s *Simplex) keep1(a Vertex) mgl64.Vec3 {
	s.Vertices[0] = a
	s.Lambdas[0] = 1
	s.Count = 1
	return a.P
}

func (s *Simplex) keep2(a, b Vertex, t float64) mgl64.Vec3 {
	s.Vertices[0], s.Vertices[1] = a, b
	s.Lambdas[0], s.Lambdas[1] = 1-t, t
	s.Count = 2
	return a.P.Mul(1 - t).Add(b.P.Mul(t))
}

func (s *Simplex) keep3(a, b, c Vertex, v, w float64) mgl64.Vec3 {
	s.Vertices[0], s.Vertices[1], s.Vertices[2] = a, b, c
	s.Lambdas[0], s.Lambdas[1], s.Lambdas[2] = 1-v-w, v, w
	s.Count = 3
	return a.P.Mul(1 - v - w).Add(b.P.Mul(v)).Add(c.P.Mul(w))
}

func (s *Simplex) solveSegment() mgl64.Vec3 {
	a, b := s.Vertices[0], s.Vertices[1]
	ab := b.P.Sub(a.P)

	denom := ab.Dot(ab)
	if denom < degenerate {
		return s.keep1(b)
	}

	t := -a.P.Dot(ab) / denom
	switch {
	case t <= 0:
		return s.keep1(a)
	case t >= 1:
		return s.keep1(b)
	}
	return s.keep2(a, b, t)
}

// solveTriangle follows the Voronoi region tests of Ericson's
// ClosestPtPointTriangle with the query point at the origin.
func (s *Simplex) solveTriangle() mgl64.Vec3 {
	a, b, c := s.Vertices[0], s.Vertices[1], s.Vertices[2]
	ab := b.P.Sub(a.P)
	ac := c.P.Sub(a.P)

	ap := a.P.Mul(-1)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return s.keep1(a)
	}

	bp := b.P.Mul(-1)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return s.keep1(b)
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return s.keep2(a, b, d1/(d1-d3))
	}

	cp := c.P.Mul(-1)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return s.keep1(c)
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return s.keep2(a, c, d2/(d2-d6))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		return s.keep2(b, c, (d4-d3)/((d4-d3)+(d5-d6)))
	}

	sum := va + vb + vc
	if sum < degenerate {
		// collinear: the closest point lies on one of the edges
		return s.closestEdge(a, b, c)
	}
	return s.keep3(a, b, c, vb/sum, vc/sum)
}

func (s *Simplex) closestEdge(a, b, c Vertex) mgl64.Vec3 {
	var best Simplex
	var bestPoint mgl64.Vec3
	bestDist := -1.0

	for _, edge := range [3][2]Vertex{{a, b}, {b, c}, {a, c}} {
		candidate := Simplex{Count: 2}
		candidate.Vertices[0], candidate.Vertices[1] = edge[0], edge[1]
		p := candidate.solveSegment()
		if d := p.Dot(p); bestDist < 0 || d < bestDist {
			best, bestPoint, bestDist = candidate, p, d
		}
	}

	s.Vertices, s.Lambdas, s.Count = best.Vertices, best.Lambdas, best.Count
	return bestPoint
}

// volume is six times the signed volume of the tetrahedron p0..p3
func volume(p0, p1, p2, p3 mgl64.Vec3) float64 {
	return p1.Sub(p0).Dot(p2.Sub(p0).Cross(p3.Sub(p0)))
}

func (s *Simplex) solveTetrahedron() (mgl64.Vec3, bool) {
	a, b, c, d := s.Vertices[0], s.Vertices[1], s.Vertices[2], s.Vertices[3]

	faces := [4]struct {
		weight  float64
		a, b, c Vertex
	}{
		{-1, b, c, d},
		{-1, a, c, d},
		{-1, a, b, d},
		{-1, a, b, c},
	}

	// a flat tetrahedron is searched on all four of its triangles
	total := volume(a.P, b.P, c.P, d.P)
	if total*total >= degenerate {
		var origin mgl64.Vec3
		faces[0].weight = volume(origin, b.P, c.P, d.P) / total
		faces[1].weight = volume(a.P, origin, c.P, d.P) / total
		faces[2].weight = volume(a.P, b.P, origin, d.P) / total
		faces[3].weight = volume(a.P, b.P, c.P, origin) / total

		if faces[0].weight >= 0 && faces[1].weight >= 0 && faces[2].weight >= 0 && faces[3].weight >= 0 {
			s.Lambdas = [4]float64{faces[0].weight, faces[1].weight, faces[2].weight, faces[3].weight}
			return origin, true
		}
	}

	// origin outside: the closest point is on a face whose opposite
	// barycentric weight is negative
	var best Simplex
	var bestPoint mgl64.Vec3
	bestDist := -1.0
	for _, face := range faces {
		if face.weight >= 0 {
			continue
		}
		candidate := Simplex{Count: 3}
		candidate.Vertices[0], candidate.Vertices[1], candidate.Vertices[2] = face.a, face.b, face.c
		p := candidate.solveTriangle()
		if dist := p.Dot(p); bestDist < 0 || dist < bestDist {
			best, bestPoint, bestDist = candidate, p, dist
		}
	}
	if bestDist < 0 {
		return mgl64.Vec3{}, false
	}

	s.Vertices, s.Lambdas, s.Count = best.Vertices, best.Lambdas, best.Count
	return bestPoint, true
}
