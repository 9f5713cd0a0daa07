// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK reports a penetration. The polytope starts from GJK's
// final simplex, blown up to a tetrahedron when GJK stopped with fewer
// vertices, and is expanded toward the boundary of the Minkowski difference
// until the face closest to the origin no longer moves. That face gives the
// Minimum Translation Vector and, through the barycentric coordinates of the
// origin's projection, the witness points on both shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"fmt"
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// EPAMaxIterations limits polytope expansion to prevent infinite loops.
	// Typical convergence: 5-15 iterations for simple shapes.
	EPAMaxIterations = 64

	// EPAConvergenceTolerance defines when EPA has converged.
	// If the distance to a new support point improves by less than this threshold,
	// we've found the closest face to the origin.
	EPAConvergenceTolerance = 1e-4

	// EPAMinFaceDistance is the distance given to zero-area faces
	EPAMinFaceDistance = 0.0001

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	// This helps with numerical stability and axis-aligned collisions.
	NormalSnapThreshold = 1e-8

	polytopeInitialCapacity = 16
)

var blowUpDirections = [6]mgl64.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Expand computes the witness points of the minimum translation: moving B
// by pa - pb separates the shapes. state is the simplex left by
// gjk.Closest; it is completed in place when it has fewer than 4 vertices.
//
// When the expansion does not converge the best estimate is returned along
// with ErrNotConverged.
func Expand(a, b actor.SupportMap, state *gjk.Simplex) (mgl64.Vec3, mgl64.Vec3, error) {
	// fallback estimate for the error paths
	pa, pb := state.Witnesses()

	if state.Count < 4 && !blowUp(a, b, state) {
		return pa, pb, ErrDegenerateSimplex
	}

	builder := polytopeBuilderPool.Get().(*PolytopeBuilder)
	defer polytopeBuilderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(state); err != nil {
		return pa, pb, err
	}

	for i := 0; i < EPAMaxIterations; i++ {
		closestIndex := builder.FindClosestFaceIndex()
		if closestIndex < 0 {
			break
		}
		closest := &builder.faces[closestIndex]

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		distance := support.P.Dot(closest.Normal)

		if distance-closest.Distance < EPAConvergenceTolerance {
			pa, pb = closest.Witnesses()
			return pa, pb, nil
		}

		builder.AddPointAndRebuildFaces(support, closestIndex)
	}

	if closestIndex := builder.FindClosestFaceIndex(); closestIndex >= 0 {
		pa, pb = builder.faces[closestIndex].Witnesses()
	}
	return pa, pb, fmt.Errorf("%d iterations: %w", EPAMaxIterations, ErrNotConverged)
}

// blowUp completes a simplex of 1 to 3 vertices into a tetrahedron. It
// reports false when the Minkowski difference is too flat to span a volume.
func blowUp(a, b actor.SupportMap, state *gjk.Simplex) bool {
	const tolerance = 1e-10

	if state.Count == 0 {
		state.Vertices[0] = gjk.MinkowskiSupport(a, b, blowUpDirections[0])
		state.Count = 1
	}

	if state.Count == 1 {
		for _, d := range blowUpDirections {
			w := gjk.MinkowskiSupport(a, b, d)
			if w.P.Sub(state.Vertices[0].P).LenSqr() > tolerance {
				state.Vertices[1] = w
				state.Count = 2
				break
			}
		}
		if state.Count != 2 {
			return false
		}
	}

	if state.Count == 2 {
		line := state.Vertices[1].P.Sub(state.Vertices[0].P).Normalize()

		// least aligned axis gives a perpendicular direction
		axis := mgl64.Vec3{1, 0, 0}
		if math.Abs(line.Y()) < math.Abs(line.X()) && math.Abs(line.Y()) <= math.Abs(line.Z()) {
			axis = mgl64.Vec3{0, 1, 0}
		} else if math.Abs(line.Z()) < math.Abs(line.X()) {
			axis = mgl64.Vec3{0, 0, 1}
		}
		direction := line.Cross(axis).Normalize()
		rotation := mgl64.QuatRotate(math.Pi/3, line)

		for k := 0; k < 6; k++ {
			w := gjk.MinkowskiSupport(a, b, direction)
			offset := w.P.Sub(state.Vertices[0].P)
			if offset.Cross(line).LenSqr() > tolerance {
				state.Vertices[2] = w
				state.Count = 3
				break
			}
			direction = rotation.Rotate(direction)
		}
		if state.Count != 3 {
			return false
		}
	}

	p0 := state.Vertices[0].P
	normal := state.Vertices[1].P.Sub(p0).Cross(state.Vertices[2].P.Sub(p0))
	if normal.LenSqr() < tolerance {
		return false
	}

	for _, d := range [2]mgl64.Vec3{normal, normal.Mul(-1)} {
		w := gjk.MinkowskiSupport(a, b, d)
		if offset := w.P.Sub(p0).Dot(normal); offset*offset > tolerance*normal.LenSqr() {
			state.Vertices[3] = w
			state.Count = 4
			return true
		}
	}
	return false
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero.
//
// This improves numerical stability for axis-aligned collisions (box on ground)
// by preventing tiny floating-point errors from causing jitter in tangent directions.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	const threshold = NormalSnapThreshold

	x := normal[0]
	y := normal[1]
	z := normal[2]

	if math.Abs(x) < threshold {
		x = 0
	}
	if math.Abs(y) < threshold {
		y = 0
	}
	if math.Abs(z) < threshold {
		z = 0
	}

	clamped := mgl64.Vec3{x, y, z}

	length := math.Sqrt(clamped.Dot(clamped))
	if length > 1e-8 {
		clamped = clamped.Mul(1.0 / length)
	} else {
		// If all components were clamped to zero, return default
		return mgl64.Vec3{0, 1, 0}
	}

	return clamped
}
