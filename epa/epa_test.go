package epa

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

func createBox(t testing.TB, position mgl64.Vec3, halfExtents mgl64.Vec3) actor.Shape {
	box := actor.NewBox(halfExtents)
	if _, err := actor.NewBody(1, actor.NewTransformAt(position, mgl64.QuatIdent()), actor.BodyTypeDynamic, 1.0, box); err != nil {
		t.Fatalf("NewBody() error = %v", err)
	}
	return box
}

func createSphere(t testing.TB, position mgl64.Vec3, radius float64) actor.Shape {
	sphere := actor.NewSphere(radius)
	if _, err := actor.NewBody(1, actor.NewTransformAt(position, mgl64.QuatIdent()), actor.BodyTypeDynamic, 1.0, sphere); err != nil {
		t.Fatalf("NewBody() error = %v", err)
	}
	return sphere
}

func vec3ApproxEqual(a, b mgl64.Vec3, tolerance float64) bool {
	return a.Sub(b).Len() < tolerance
}

func isNormalized(v mgl64.Vec3, tolerance float64) bool {
	return math.Abs(v.Len()-1.0) < tolerance
}

func TestSnapNormalToAxis(t *testing.T) {
	tests := []struct {
		name     string
		input    mgl64.Vec3
		expected mgl64.Vec3
	}{
		{"small x component", mgl64.Vec3{1e-9, 1.0, 0.0}, mgl64.Vec3{0.0, 1.0, 0.0}},
		{"small z component", mgl64.Vec3{0.0, 1.0, 1e-9}, mgl64.Vec3{0.0, 1.0, 0.0}},
		{"diagonal normal", mgl64.Vec3{1.0, 1.0, 1.0}.Normalize(), mgl64.Vec3{1.0, 1.0, 1.0}.Normalize()},
		{"near zero vector", mgl64.Vec3{1e-9, 1e-9, 1e-9}, mgl64.Vec3{0.0, 1.0, 0.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := snapNormalToAxis(tt.input)

			if !vec3ApproxEqual(result, tt.expected, 1e-6) {
				t.Errorf("snapNormalToAxis(%v) = %v, want %v", tt.input, result, tt.expected)
			}
			if !isNormalized(result, 1e-6) {
				t.Errorf("result is not normalized: length = %v", result.Len())
			}
		})
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name      string
		a, b      actor.Shape
		normal    mgl64.Vec3
		depth     float64
		tolerance float64
	}{
		{
			name:      "boxes overlapping on x",
			a:         createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}),
			b:         createBox(t, mgl64.Vec3{1.5, 0.2, -0.1}, mgl64.Vec3{1, 1, 1}),
			normal:    mgl64.Vec3{1, 0, 0},
			depth:     0.5,
			tolerance: 1e-4,
		},
		{
			name:      "box resting into ground",
			a:         createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0.5, 10}),
			b:         createBox(t, mgl64.Vec3{0.3, 0.9, 0.1}, mgl64.Vec3{0.5, 0.5, 0.5}),
			normal:    mgl64.Vec3{0, 1, 0},
			depth:     0.1,
			tolerance: 1e-4,
		},
		{
			name:      "spheres",
			a:         createSphere(t, mgl64.Vec3{0, 0, 0}, 1),
			b:         createSphere(t, mgl64.Vec3{0, 0, 1.5}, 1),
			normal:    mgl64.Vec3{0, 0, 1},
			depth:     0.5,
			tolerance: 1e-2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := &gjk.Simplex{}
			pa, pb := gjk.Closest(tt.a, tt.b, math.Inf(1), 1e-9, 64, simplex)
			if !gjk.Penetrating(pa, pb, simplex, 1e-9) {
				t.Fatalf("shapes should be penetrating")
			}

			pa, pb, err := Expand(tt.a, tt.b, simplex)
			if err != nil && !errors.Is(err, ErrNotConverged) {
				t.Fatalf("Expand() error = %v", err)
			}

			mtv := pa.Sub(pb)
			if math.Abs(mtv.Len()-tt.depth) > tt.tolerance {
				t.Errorf("depth = %v, want %v", mtv.Len(), tt.depth)
			}
			if !vec3ApproxEqual(mtv.Normalize(), tt.normal, 10*tt.tolerance) {
				t.Errorf("normal = %v, want %v", mtv.Normalize(), tt.normal)
			}
		})
	}
}

func TestExpand_WitnessesOnSurfaces(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1})

	simplex := &gjk.Simplex{}
	gjk.Closest(a, b, math.Inf(1), 1e-9, 64, simplex)
	pa, pb, err := Expand(a, b, simplex)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	// deepest point of A inside B, deepest point of B inside A
	if math.Abs(pa.Y()-1) > 1e-6 {
		t.Errorf("pa = %v, want y = 1", pa)
	}
	if math.Abs(pb.Y()-0.8) > 1e-6 {
		t.Errorf("pb = %v, want y = 0.8", pb)
	}
}

func TestExpand_BlowsUpSmallSimplex(t *testing.T) {
	a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := createBox(t, mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{1, 1, 1})

	simplex := &gjk.Simplex{}
	simplex.Vertices[0] = gjk.MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
	simplex.Lambdas[0] = 1
	simplex.Count = 1

	pa, pb, err := Expand(a, b, simplex)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if simplex.Count != 4 {
		t.Errorf("simplex Count = %d, want 4", simplex.Count)
	}
	if !vec3ApproxEqual(pa.Sub(pb), mgl64.Vec3{1.5, 0, 0}, 1e-4) {
		t.Errorf("translation = %v, want (1.5,0,0)", pa.Sub(pb))
	}
}

func TestExpand_DegenerateSimplex(t *testing.T) {
	a := actor.Point{Position: mgl64.Vec3{1, 2, 3}}
	b := actor.Point{Position: mgl64.Vec3{1, 2, 3}}

	simplex := &gjk.Simplex{}
	gjk.Closest(a, b, math.Inf(1), 1e-9, 64, simplex)

	_, _, err := Expand(a, b, simplex)
	if !errors.Is(err, ErrDegenerateSimplex) {
		t.Errorf("Expand() error = %v, want ErrDegenerateSimplex", err)
	}
}

func TestBuildInitialFaces(t *testing.T) {
	simplex := &gjk.Simplex{Count: 4}
	for i, p := range []mgl64.Vec3{{1, 1, 1}, {-1, -1, 1}, {-1, 1, -1}, {1, -1, -1}} {
		simplex.Vertices[i] = gjk.Vertex{P: p, A: p}
	}

	builder := &PolytopeBuilder{}
	if err := builder.BuildInitialFaces(simplex); err != nil {
		t.Fatalf("BuildInitialFaces() error = %v", err)
	}
	if len(builder.faces) != 4 {
		t.Fatalf("got %d faces, want 4", len(builder.faces))
	}
	for _, face := range builder.faces {
		if face.Distance <= 0 {
			t.Errorf("face %v has distance %v, normal should point away from the origin", face.Vertices, face.Distance)
		}
		if !isNormalized(face.Normal, 1e-9) {
			t.Errorf("face normal %v is not normalized", face.Normal)
		}
	}

	if err := builder.BuildInitialFaces(&gjk.Simplex{Count: 3}); !errors.Is(err, ErrInvalidSimplex) {
		t.Errorf("BuildInitialFaces() error = %v, want ErrInvalidSimplex", err)
	}
}

func TestCalculateCentroid(t *testing.T) {
	builder := &PolytopeBuilder{}
	simplex := &gjk.Simplex{Count: 4}
	for i, p := range []mgl64.Vec3{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}, {0, 0, 0}} {
		simplex.Vertices[i] = gjk.Vertex{P: p}
	}
	if err := builder.BuildInitialFaces(simplex); err != nil {
		t.Fatal(err)
	}

	// each vertex counted once despite appearing in three faces
	if got := builder.calculateCentroid(); !vec3ApproxEqual(got, mgl64.Vec3{0.5, 0.5, 0.5}, 1e-12) {
		t.Errorf("calculateCentroid() = %v, want (0.5,0.5,0.5)", got)
	}
}

func TestFaceWitnesses(t *testing.T) {
	face := Face{
		Vertices: [3]gjk.Vertex{
			{P: mgl64.Vec3{-1, 1, -1}, A: mgl64.Vec3{0, 0, 0}, B: mgl64.Vec3{1, -1, 1}},
			{P: mgl64.Vec3{1, 1, -1}, A: mgl64.Vec3{2, 0, 0}, B: mgl64.Vec3{1, -1, 1}},
			{P: mgl64.Vec3{0, 1, 1}, A: mgl64.Vec3{1, 0, 2}, B: mgl64.Vec3{1, -1, 1}},
		},
		Normal:   mgl64.Vec3{0, 1, 0},
		Distance: 1,
	}

	pa, pb := face.Witnesses()
	if !vec3ApproxEqual(pa.Sub(pb), mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("pa - pb = %v, want (0,1,0)", pa.Sub(pb))
	}
}

func BenchmarkExpand_Boxes(b *testing.B) {
	boxA := createBox(b, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	boxB := createBox(b, mgl64.Vec3{1.5, 0.3, 0.2}, mgl64.Vec3{1, 1, 1})
	simplex := &gjk.Simplex{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gjk.Closest(boxA, boxB, math.Inf(1), 1e-9, 64, simplex)
		Expand(boxA, boxB, simplex)
	}
}
