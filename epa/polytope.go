package epa

import (
	"math"
	"sync"

	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope. Its vertices keep the support points
// on both shapes so the witness points can be recovered.
type Face struct {
	Vertices   [3]gjk.Vertex
	Normal     mgl64.Vec3 // points outward
	Distance   float64    // signed distance of the plane to the origin
	Degenerate bool
}

// Witnesses returns the points on A and on B whose difference is the
// projection of the origin on the face plane.
func (f *Face) Witnesses() (mgl64.Vec3, mgl64.Vec3) {
	u, v, w := f.barycentric(f.Normal.Mul(f.Distance))

	pa := f.Vertices[0].A.Mul(u).Add(f.Vertices[1].A.Mul(v)).Add(f.Vertices[2].A.Mul(w))
	pb := f.Vertices[0].B.Mul(u).Add(f.Vertices[1].B.Mul(v)).Add(f.Vertices[2].B.Mul(w))
	return pa, pb
}

// barycentric returns the coordinates of p, assumed in the face plane
func (f *Face) barycentric(p mgl64.Vec3) (float64, float64, float64) {
	a, b, c := f.Vertices[0].P, f.Vertices[1].P, f.Vertices[2].P
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-18 {
		return 1, 0, 0
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w
}

// PolytopeBuilder manages polytope expansion with dynamic buffers and initial capacity.
type PolytopeBuilder struct {
	// Stores all faces in the current polytope
	faces []Face

	// Point deduplication buffer for centroid calculation
	// Uses sorted slice with binary search for deduplication
	uniquePoints []mgl64.Vec3

	// Normalized edges (A < B) with occurrence count
	edges []EdgeEntry

	visibleIndices []int
}

// EdgeEntry represents an edge with occurrence counting for boundary detection.
// An edge is a boundary edge if it appears exactly once (count == 1).
// Edges are normalized so A < B lexicographically for consistent deduplication.
type EdgeEntry struct {
	A, B  gjk.Vertex
	Count int
}

// polytopeBuilderPool is the single sync.Pool for PolytopeBuilder instances.
var polytopeBuilderPool = sync.Pool{
	New: func() interface{} {
		return &PolytopeBuilder{
			faces:          make([]Face, 0, polytopeInitialCapacity),
			uniquePoints:   make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			edges:          make([]EdgeEntry, 0, polytopeInitialCapacity),
			visibleIndices: make([]int, 0, polytopeInitialCapacity),
		}
	},
}

// Reset prepares the builder for reuse by clearing all slices.
func (b *PolytopeBuilder) Reset() {
	b.faces = b.faces[:0]
	b.uniquePoints = b.uniquePoints[:0]
	b.edges = b.edges[:0]
	b.visibleIndices = b.visibleIndices[:0]
}

// BuildInitialFaces creates the 4 faces of a tetrahedron simplex
func (b *PolytopeBuilder) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return ErrInvalidSimplex
	}

	p0, p1, p2, p3 := simplex.Vertices[0], simplex.Vertices[1], simplex.Vertices[2], simplex.Vertices[3]
	b.faces = append(b.faces,
		createFaceOutward(p0, p1, p2, p3.P), // Face ABC, opposite point is D
		createFaceOutward(p0, p2, p3, p1.P), // Face ACD, opposite point is B
		createFaceOutward(p0, p3, p1, p2.P), // Face ADB, opposite point is C
		createFaceOutward(p1, p3, p2, p0.P), // Face BDC, opposite point is A
	)

	return nil
}

// createFaceOutward creates a Face with normal pointing outward from the polytope.
// Uses the opposite point as a reference to determine the correct normal orientation.
func createFaceOutward(p0, p1, p2 gjk.Vertex, oppositePoint mgl64.Vec3) Face {
	face := Face{Vertices: [3]gjk.Vertex{p0, p1, p2}}

	normal := p1.P.Sub(p0.P).Cross(p2.P.Sub(p0.P))

	normalLength := normal.Len()
	if normalLength < 1e-10 {
		// zero area
		face.Normal = mgl64.Vec3{0, 1, 0}
		face.Distance = EPAMinFaceDistance
		face.Degenerate = true
		return face
	}
	normal = normal.Mul(1.0 / normalLength)

	// If normal points TOWARDS the opposite point, it's pointing INWARD
	if normal.Dot(oppositePoint.Sub(p0.P)) > 0 {
		normal = normal.Mul(-1)
	}

	face.Normal = snapNormalToAxis(normal)
	face.Distance = p0.P.Dot(face.Normal)

	return face
}

// FindClosestFaceIndex returns the index of the face closest to the origin,
// ignoring degenerate faces unless nothing else is left.
// Returns -1 if no faces exist.
func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	closestIndex := -1
	for i := range b.faces {
		if b.faces[i].Degenerate {
			continue
		}
		if closestIndex < 0 || b.faces[i].Distance < b.faces[closestIndex].Distance {
			closestIndex = i
		}
	}
	if closestIndex < 0 && len(b.faces) > 0 {
		return 0
	}

	return closestIndex
}

// calculateCentroid computes the average of the unique polytope vertices
func (b *PolytopeBuilder) calculateCentroid() mgl64.Vec3 {
	b.uniquePoints = b.uniquePoints[:0]

	for i := range b.faces {
		for _, vertex := range b.faces[i].Vertices {
			point := vertex.P

			insertIdx := b.findPointInsertionIndex(point)
			if insertIdx < len(b.uniquePoints) && vec3Equal(b.uniquePoints[insertIdx], point) {
				continue
			}

			b.uniquePoints = append(b.uniquePoints, mgl64.Vec3{})
			copy(b.uniquePoints[insertIdx+1:], b.uniquePoints[insertIdx:])
			b.uniquePoints[insertIdx] = point
		}
	}

	if len(b.uniquePoints) == 0 {
		return mgl64.Vec3{0, 0, 0}
	}

	var sum mgl64.Vec3
	for _, p := range b.uniquePoints {
		sum = sum.Add(p)
	}

	return sum.Mul(1.0 / float64(len(b.uniquePoints)))
}

// findPointInsertionIndex performs binary search in the sorted uniquePoints
func (b *PolytopeBuilder) findPointInsertionIndex(point mgl64.Vec3) int {
	left, right := 0, len(b.uniquePoints)

	for left < right {
		mid := (left + right) / 2
		if compareVec3(b.uniquePoints[mid], point) < 0 {
			left = mid + 1
		} else {
			right = mid
		}
	}

	return left
}

// findBoundaryEdges collects the edges of the visible faces. Edges shared by
// two visible faces are internal (count 2).
func (b *PolytopeBuilder) findBoundaryEdges() {
	b.edges = b.edges[:0]

	for _, faceIdx := range b.visibleIndices {
		face := &b.faces[faceIdx]

		edges := [3][2]gjk.Vertex{
			{face.Vertices[0], face.Vertices[1]},
			{face.Vertices[1], face.Vertices[2]},
			{face.Vertices[2], face.Vertices[0]},
		}

		for _, edge := range edges {
			edgeA, edgeB := edge[0], edge[1]
			if compareVec3(edgeA.P, edgeB.P) > 0 {
				edgeA, edgeB = edgeB, edgeA
			}

			if edgeIdx := b.findEdgeIndex(edgeA.P, edgeB.P); edgeIdx >= 0 {
				b.edges[edgeIdx].Count++
			} else {
				b.edges = append(b.edges, EdgeEntry{A: edgeA, B: edgeB, Count: 1})
			}
		}
	}
}

// findEdgeIndex performs linear search for an edge in the edges buffer.
// Linear search is efficient for small edge counts (typically < 30).
func (b *PolytopeBuilder) findEdgeIndex(edgeA, edgeB mgl64.Vec3) int {
	for i := range b.edges {
		if vec3Equal(b.edges[i].A.P, edgeA) && vec3Equal(b.edges[i].B.P, edgeB) {
			return i
		}
	}
	return -1
}

// findVisibleFaces populates visibleIndices with faces visible from the support point.
func (b *PolytopeBuilder) findVisibleFaces(support mgl64.Vec3) {
	b.visibleIndices = b.visibleIndices[:0]

	for i := range b.faces {
		face := &b.faces[i]
		if support.Sub(face.Vertices[0].P).Dot(face.Normal) > 0 {
			b.visibleIndices = append(b.visibleIndices, i)
		}
	}
}

// removeVisibleFaces removes faces marked in visibleIndices using swap-with-last pattern.
// Indices are sorted descending to prevent index invalidation during removal.
func (b *PolytopeBuilder) removeVisibleFaces() {
	for i := 0; i < len(b.visibleIndices)-1; i++ {
		for j := i + 1; j < len(b.visibleIndices); j++ {
			if b.visibleIndices[i] < b.visibleIndices[j] {
				b.visibleIndices[i], b.visibleIndices[j] = b.visibleIndices[j], b.visibleIndices[i]
			}
		}
	}

	for _, idx := range b.visibleIndices {
		if idx < len(b.faces) {
			b.faces[idx] = b.faces[len(b.faces)-1]
			b.faces = b.faces[:len(b.faces)-1]
		}
	}
}

// addBoundaryFaces connects every boundary edge to the support point
func (b *PolytopeBuilder) addBoundaryFaces(support gjk.Vertex, centroid mgl64.Vec3) {
	for i := range b.edges {
		edge := &b.edges[i]
		if edge.Count != 1 {
			continue
		}
		b.faces = append(b.faces, createFaceOutward(edge.A, edge.B, support, centroid))
	}
}

// AddPointAndRebuildFaces expands the polytope by adding a support point:
// visible faces are removed and their boundary is connected to the point.
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support gjk.Vertex, closestIndex int) {
	// the new point lies outside, so the old centroid stays inside
	centroid := b.calculateCentroid()

	b.findVisibleFaces(support.P)

	// Safety: don't remove all faces
	if len(b.visibleIndices) >= len(b.faces) || len(b.visibleIndices) == 0 {
		b.visibleIndices = b.visibleIndices[:0]
		b.visibleIndices = append(b.visibleIndices, closestIndex)
	}

	b.findBoundaryEdges()
	b.removeVisibleFaces()
	b.addBoundaryFaces(support, centroid)
}

// vec3Equal performs exact equality check for point deduplication.
func vec3Equal(a, b mgl64.Vec3) bool {
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2]
}

func compareVec3(a, b mgl64.Vec3) int {
	// Compare vectors lexicographically (x, then y, then z)
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
