package actor

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultEnvelope is the shell thickness given to shapes built through a constructor
const DefaultEnvelope = 0.125

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypeConvexHull
	ShapeTypeCapsule
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "sphere"
	case ShapeTypeBox:
		return "box"
	case ShapeTypeConvexHull:
		return "hull"
	case ShapeTypeCapsule:
		return "capsule"
	}
	return fmt.Sprintf("ShapeType(%d)", int(t))
}

// SupportMap is the only query GJK and EPA need from a convex set
type SupportMap interface {
	// SupportPoint returns the world-space point extremal along direction
	SupportPoint(direction mgl64.Vec3) mgl64.Vec3
}

// Shape is the interface that all collision shapes must implement
type Shape interface {
	SupportMap
	// SupportFeature returns the face, edge or vertex extremal along direction,
	// as world-space points ordered counter-clockwise around direction.
	// Vertices within tolerance of the extremal one are part of the feature.
	SupportFeature(direction mgl64.Vec3, tolerance float64) []mgl64.Vec3
	// Bounds returns the world-space box of the shape grown by its envelope
	Bounds() AABB
	// ComputeMass calculates the mass of the shape given a density
	ComputeMass(density float64) float64
	// ComputeInertia returns the inertia tensor in the shape's local frame
	ComputeInertia(mass float64) mgl64.Mat3
	Type() ShapeType
	Validate() error

	ID() uint64
	Body() *Body
	SetBody(body *Body)
	Center() mgl64.Vec3
	Envelope() float64
	Material() Material
	LocalTransform() (mgl64.Mat3, mgl64.Vec3)
}

var shapeIDs atomic.Uint64

// ShapeBase holds what every shape shares: its owning body, the transform
// relative to that body, the envelope and the material.
type ShapeBase struct {
	id               uint64
	body             *Body
	localRotation    mgl64.Mat3
	localTranslation mgl64.Vec3
	envelope         float64
	material         Material
}

func newShapeBase() ShapeBase {
	return ShapeBase{
		id:            shapeIDs.Add(1),
		localRotation: mgl64.Ident3(),
		envelope:      DefaultEnvelope,
		material:      DefaultMaterial(),
	}
}

// ID returns a process-wide unique identifier. Shapes built without a
// constructor get theirs when attached to a body, so the ID is never
// written once the shape is in a world.
func (s *ShapeBase) ID() uint64 { return s.id }

func (s *ShapeBase) Body() *Body { return s.body }

func (s *ShapeBase) SetBody(body *Body) {
	if s.id == 0 {
		s.id = shapeIDs.Add(1)
	}
	s.body = body
}

func (s *ShapeBase) Envelope() float64  { return s.envelope }
func (s *ShapeBase) Material() Material { return s.material }

func (s *ShapeBase) SetEnvelope(envelope float64) { s.envelope = envelope }
func (s *ShapeBase) SetMaterial(material Material) { s.material = material }

// SetLocalTransform places the shape relative to its body
func (s *ShapeBase) SetLocalTransform(rotation mgl64.Mat3, translation mgl64.Vec3) {
	s.localRotation = rotation
	s.localTranslation = translation
}

func (s *ShapeBase) LocalTransform() (mgl64.Mat3, mgl64.Vec3) {
	return s.rotation(), s.localTranslation
}

func (s *ShapeBase) rotation() mgl64.Mat3 {
	if s.localRotation == (mgl64.Mat3{}) {
		return mgl64.Ident3()
	}
	return s.localRotation
}

// worldRotation composes body and local rotations
func (s *ShapeBase) worldRotation() mgl64.Mat3 {
	if s.body == nil {
		return s.rotation()
	}
	return s.body.Transform.RotationMatrix().Mul3(s.rotation())
}

// Center returns the world position of the shape's origin
func (s *ShapeBase) Center() mgl64.Vec3 {
	if s.body == nil {
		return s.localTranslation
	}
	return s.body.Transform.Apply(s.localTranslation)
}

func (s *ShapeBase) toWorld(local mgl64.Vec3) mgl64.Vec3 {
	return s.worldRotation().Mul3x1(local).Add(s.Center())
}

func (s *ShapeBase) toLocalDirection(direction mgl64.Vec3) mgl64.Vec3 {
	return s.worldRotation().Transpose().Mul3x1(direction)
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	ShapeBase
	HalfExtents mgl64.Vec3
}

func NewBox(halfExtents mgl64.Vec3) *Box {
	return &Box{ShapeBase: newShapeBase(), HalfExtents: halfExtents}
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) Validate() error {
	if b.HalfExtents.X() <= 0 || b.HalfExtents.Y() <= 0 || b.HalfExtents.Z() <= 0 {
		return fmt.Errorf("box half extents %v: %w", b.HalfExtents, ErrDegenerateShape)
	}
	return nil
}

func (b *Box) corners() [8]mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	return [8]mgl64.Vec3{
		{-hx, -hy, -hz},
		{+hx, -hy, -hz},
		{-hx, +hy, -hz},
		{+hx, +hy, -hz},
		{-hx, -hy, +hz},
		{+hx, -hy, +hz},
		{-hx, +hy, +hz},
		{+hx, +hy, +hz},
	}
}

func (b *Box) worldCorners() []mgl64.Vec3 {
	corners := b.corners()
	world := make([]mgl64.Vec3, len(corners))
	for i, c := range corners {
		world[i] = b.toWorld(c)
	}
	return world
}

func (b *Box) Bounds() AABB {
	return boundsOf(b.worldCorners()).Grow(b.envelope)
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()

	return density * volume
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (dimension1² + dimension2²)
	factor := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

// SupportPoint picks the positive half extent on a zero direction component
func (b *Box) SupportPoint(direction mgl64.Vec3) mgl64.Vec3 {
	local := b.toLocalDirection(direction)
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if local.X() < 0 {
		hx = -hx
	}
	if local.Y() < 0 {
		hy = -hy
	}
	if local.Z() < 0 {
		hz = -hz
	}

	return b.toWorld(mgl64.Vec3{hx, hy, hz})
}

func (b *Box) SupportFeature(direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	return extremalFeature(b.worldCorners(), direction, tolerance)
}

// Sphere represents a spherical collision shape
type Sphere struct {
	ShapeBase
	Radius float64
}

func NewSphere(radius float64) *Sphere {
	return &Sphere{ShapeBase: newShapeBase(), Radius: radius}
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

func (s *Sphere) Validate() error {
	if s.Radius <= 0 {
		return fmt.Errorf("sphere radius %v: %w", s.Radius, ErrDegenerateShape)
	}
	return nil
}

// Bounds is not affected by rotation, only by position
func (s *Sphere) Bounds() AABB {
	c := s.Center()
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: c.Sub(r), Max: c.Add(r)}.Grow(s.envelope)
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	// Volume of sphere = (4/3) * π * r³
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)

	return density * volume
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

// SupportPoint returns the centre on a zero direction
func (s *Sphere) SupportPoint(direction mgl64.Vec3) mgl64.Vec3 {
	l := direction.Len()
	if l < 1e-12 {
		return s.Center()
	}
	return s.Center().Add(direction.Mul(s.Radius / l))
}

func (s *Sphere) SupportFeature(direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	return []mgl64.Vec3{s.SupportPoint(direction)}
}

// ConvexHull is the convex hull of a point cloud given in the shape's frame
type ConvexHull struct {
	ShapeBase
	Vertices []mgl64.Vec3
}

func NewConvexHull(vertices []mgl64.Vec3) *ConvexHull {
	return &ConvexHull{ShapeBase: newShapeBase(), Vertices: vertices}
}

func (h *ConvexHull) Type() ShapeType { return ShapeTypeConvexHull }

func (h *ConvexHull) Validate() error {
	if len(h.Vertices) < 4 {
		return fmt.Errorf("hull with %d vertices: %w", len(h.Vertices), ErrDegenerateShape)
	}
	ext := h.localBounds()
	size := ext.Max.Sub(ext.Min)
	if size.X() <= 0 || size.Y() <= 0 || size.Z() <= 0 {
		return fmt.Errorf("flat hull %v: %w", size, ErrDegenerateShape)
	}
	return nil
}

func (h *ConvexHull) localBounds() AABB {
	return boundsOf(h.Vertices)
}

func (h *ConvexHull) worldVertices() []mgl64.Vec3 {
	world := make([]mgl64.Vec3, len(h.Vertices))
	for i, v := range h.Vertices {
		world[i] = h.toWorld(v)
	}
	return world
}

func (h *ConvexHull) Bounds() AABB {
	return boundsOf(h.worldVertices()).Grow(h.envelope)
}

// ComputeMass approximates the hull by its local bounding box
func (h *ConvexHull) ComputeMass(density float64) float64 {
	size := h.localBounds()
	ext := size.Max.Sub(size.Min)
	return density * ext.X() * ext.Y() * ext.Z()
}

func (h *ConvexHull) ComputeInertia(mass float64) mgl64.Mat3 {
	size := h.localBounds()
	box := Box{HalfExtents: size.Max.Sub(size.Min).Mul(0.5)}
	return box.ComputeInertia(mass)
}

// SupportPoint keeps the lowest vertex index on ties
func (h *ConvexHull) SupportPoint(direction mgl64.Vec3) mgl64.Vec3 {
	local := h.toLocalDirection(direction)
	best := 0
	bestDot := math.Inf(-1)
	for i, v := range h.Vertices {
		if d := v.Dot(local); d > bestDot {
			best, bestDot = i, d
		}
	}
	return h.toWorld(h.Vertices[best])
}

func (h *ConvexHull) SupportFeature(direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	return extremalFeature(h.worldVertices(), direction, tolerance)
}

// Capsule is a segment along the local z axis swept by a sphere.
// Length is the distance between the two cap centres.
type Capsule struct {
	ShapeBase
	Radius float64
	Length float64
}

func NewCapsule(radius, length float64) *Capsule {
	c := &Capsule{ShapeBase: newShapeBase(), Radius: radius, Length: length}
	c.envelope = 0.225
	return c
}

func (c *Capsule) Type() ShapeType { return ShapeTypeCapsule }

func (c *Capsule) Validate() error {
	if c.Radius <= 0 || c.Length < 0 {
		return fmt.Errorf("capsule radius %v length %v: %w", c.Radius, c.Length, ErrDegenerateShape)
	}
	return nil
}

// endpoints returns the world-space cap centres, +z first
func (c *Capsule) endpoints() (mgl64.Vec3, mgl64.Vec3) {
	half := 0.5 * c.Length
	return c.toWorld(mgl64.Vec3{0, 0, half}), c.toWorld(mgl64.Vec3{0, 0, -half})
}

func (c *Capsule) Bounds() AABB {
	p1, p2 := c.endpoints()
	return boundsOf([]mgl64.Vec3{p1, p2}).Grow(c.Radius + c.envelope)
}

// ComputeMass uses the cylinder plus the two hemispheres
func (c *Capsule) ComputeMass(density float64) float64 {
	cylinder := math.Pi * c.Radius * c.Radius * c.Length
	sphere := (4.0 / 3.0) * math.Pi * c.Radius * c.Radius * c.Radius
	return density * (cylinder + sphere)
}

func (c *Capsule) ComputeInertia(mass float64) mgl64.Mat3 {
	r, l := c.Radius, c.Length
	cylinder := math.Pi * r * r * l
	sphere := (4.0 / 3.0) * math.Pi * r * r * r
	total := cylinder + sphere
	if total == 0 {
		return mgl64.Mat3{}
	}
	mc := mass * cylinder / total
	ms := mass * sphere / total

	// hemispheres translated to each end along z
	ixx := mc*(3*r*r+l*l)/12.0 + ms*((2.0/5.0)*r*r+0.25*l*l)
	izz := 0.5*mc*r*r + (2.0/5.0)*ms*r*r
	return mgl64.Diag3(mgl64.Vec3{ixx, ixx, izz})
}

// SupportPoint picks the +z cap on a zero axial component
func (c *Capsule) SupportPoint(direction mgl64.Vec3) mgl64.Vec3 {
	p1, p2 := c.endpoints()
	p := p1
	if direction.Dot(p2) > direction.Dot(p1) {
		p = p2
	}
	l := direction.Len()
	if l < 1e-12 {
		return p
	}
	return p.Add(direction.Mul(c.Radius / l))
}

// SupportFeature returns the side segment when the direction is nearly
// perpendicular to the axis, the cap point otherwise
func (c *Capsule) SupportFeature(direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	l := direction.Len()
	if l < 1e-12 {
		return []mgl64.Vec3{c.SupportPoint(direction)}
	}
	d := direction.Mul(1 / l)
	p1, p2 := c.endpoints()
	if math.Abs(p1.Sub(p2).Dot(d)) <= tolerance {
		offset := d.Mul(c.Radius)
		return []mgl64.Vec3{p1.Add(offset), p2.Add(offset)}
	}
	return []mgl64.Vec3{c.SupportPoint(direction)}
}

// Point is a support map made of a single world-space point
type Point struct {
	Position mgl64.Vec3
}

func (p Point) SupportPoint(direction mgl64.Vec3) mgl64.Vec3 {
	return p.Position
}

// extremalFeature keeps every vertex within tolerance of the support value
// along direction and orders them counter-clockwise around it.
func extremalFeature(vertices []mgl64.Vec3, direction mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	if len(vertices) == 0 {
		return nil
	}
	d := direction
	if l := d.Len(); l > 1e-12 {
		d = d.Mul(1 / l)
	} else {
		d = mgl64.Vec3{1, 0, 0}
	}

	best := math.Inf(-1)
	for _, v := range vertices {
		best = max(best, v.Dot(d))
	}

	feature := make([]mgl64.Vec3, 0, 4)
	for _, v := range vertices {
		if v.Dot(d) >= best-tolerance {
			feature = append(feature, v)
		}
	}
	if len(feature) < 3 {
		return feature
	}

	var centroid mgl64.Vec3
	for _, v := range feature {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Mul(1 / float64(len(feature)))

	t1, t2 := TangentBasis(d)
	sort.SliceStable(feature, func(i, j int) bool {
		pi, pj := feature[i].Sub(centroid), feature[j].Sub(centroid)
		return math.Atan2(pi.Dot(t2), pi.Dot(t1)) < math.Atan2(pj.Dot(t2), pj.Dot(t1))
	})
	return feature
}

// TangentBasis returns two unit vectors completing normal into a
// right-handed orthonormal frame (t1, t2, normal).
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
