// Package narrowphase combines GJK and EPA into the distance queries used by
// contact generation.
//
// Query returns the signed distance between two convex support maps with the
// witness points and a unit normal pointing from A towards B. RayCast
// translates B along a direction by conservative advancement until it just
// touches A; it recovers a stable normal for deeply penetrating or touching
// pairs where the GJK witness points coincide.
package narrowphase

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/epa"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultEpsilon       = 1e-7
	DefaultMaxIterations = 32

	rayMaxIterations = 64
)

// Options tune the GJK stage of a query.
type Options struct {
	// Envelope bounds the search: beyond it GJK stops early and Distance is
	// only an estimate greater than Envelope.
	Envelope float64
	// Epsilon is the relative convergence tolerance and the distance under
	// which the shapes are considered touching.
	Epsilon       float64
	MaxIterations int
}

func DefaultOptions() Options {
	return Options{
		Envelope:      actor.DefaultEnvelope,
		Epsilon:       DefaultEpsilon,
		MaxIterations: DefaultMaxIterations,
	}
}

// Result of a distance query.
type Result struct {
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	// Normal is the unit direction from A towards B
	Normal mgl64.Vec3
	// Distance is negative when the shapes penetrate
	Distance    float64
	Penetrating bool
	Iterations  int
}

// Query runs GJK, then EPA when the shapes penetrate. An EPA failure is
// returned with the best estimate available.
func Query(a, b actor.SupportMap, opts Options) (Result, error) {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)

	pa, pb := gjk.Closest(a, b, opts.Envelope, opts.Epsilon, opts.MaxIterations, simplex)
	result := Result{PointA: pa, PointB: pb, Iterations: simplex.Iterations}

	if !gjk.Penetrating(pa, pb, simplex, opts.Epsilon) {
		delta := pb.Sub(pa)
		result.Distance = delta.Len()
		result.Normal = normalize(delta)
		return result, nil
	}

	result.Penetrating = true
	pa, pb, err := epa.Expand(a, b, simplex)
	if err != nil && !errors.Is(err, epa.ErrNotConverged) {
		// keep the GJK points, the normal stays undefined
		result.Normal = mgl64.Vec3{1, 0, 0}
		return result, err
	}

	// moving B by pa - pb separates the shapes
	translation := pa.Sub(pb)
	result.PointA, result.PointB = pa, pb
	result.Distance = -translation.Len()
	result.Normal = normalize(translation)
	return result, err
}

// Hit is the touching configuration found by RayCast.
type Hit struct {
	// PointA and PointB are the witness points with B at its actual
	// position, so PointB lies inside A when the shapes penetrate.
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	Normal mgl64.Vec3
	// T is the translation of B along the direction that makes the shapes touch
	T          float64
	Iterations int
}

// translated is a support map shifted by a constant offset
type translated struct {
	shape  actor.SupportMap
	offset mgl64.Vec3
}

func (t *translated) SupportPoint(direction mgl64.Vec3) mgl64.Vec3 {
	return t.shape.SupportPoint(direction).Add(t.offset)
}

// RayCast finds how far B has to be translated along direction to touch A.
// B is first moved beyond A along the direction, by envelope past the last
// point of A, then brought back by conservative advancement until the
// distance drops below epsilon. ErrMiss is returned when B would slide past
// A without touching it.
func RayCast(a, b actor.SupportMap, direction mgl64.Vec3, envelope, epsilon float64) (Hit, error) {
	if direction.LenSqr() < 1e-24 {
		return Hit{}, ErrZeroDirection
	}
	u := direction.Normalize()

	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)

	slack := math.Max(envelope, 2*epsilon)
	t := a.SupportPoint(u).Dot(u) - b.SupportPoint(u.Mul(-1)).Dot(u) + slack
	moved := &translated{shape: b}

	var hit Hit
	normal := u
	for hit.Iterations = 1; hit.Iterations <= rayMaxIterations; hit.Iterations++ {
		moved.offset = u.Mul(t)
		pa, pb := gjk.Closest(a, moved, math.Inf(1), 1e-12, DefaultMaxIterations*2, simplex)

		delta := pb.Sub(pa)
		distance := delta.Len()
		if distance > 1e-12 {
			normal = delta.Mul(1 / distance)
		}

		if distance <= epsilon {
			hit.PointA = pa
			hit.PointB = pb.Sub(moved.offset)
			hit.Normal = normal
			hit.T = t
			return hit, nil
		}

		closing := normal.Dot(u)
		if closing <= epsilon {
			return hit, ErrMiss
		}
		// normal separates the shapes at distance, and moving B by s along
		// -u closes that plane gap by s*closing at most: the step stays short
		// of the first contact
		t -= (distance - epsilon/2) / closing
	}

	return hit, fmt.Errorf("%d iterations: %w", rayMaxIterations, ErrNotConverged)
}

// normalize falls back to +X on a zero vector
func normalize(v mgl64.Vec3) mgl64.Vec3 {
	length := v.Len()
	if length < 1e-15 {
		return mgl64.Vec3{1, 0, 0}
	}
	return v.Mul(1 / length)
}
