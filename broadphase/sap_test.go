package broadphase

import (
	"math/rand"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
)

func sphereAt(position mgl64.Vec3) *actor.Sphere {
	s := actor.NewSphere(0.5)
	s.SetLocalTransform(mgl64.Ident3(), position)
	return s
}

func moveTo(s *actor.Sphere, position mgl64.Vec3) {
	s.SetLocalTransform(mgl64.Ident3(), position)
}

func TestNewPair_Unordered(t *testing.T) {
	g := NewWithT(t)
	a := sphereAt(mgl64.Vec3{})
	b := sphereAt(mgl64.Vec3{})

	g.Expect(NewPair(a, b)).To(Equal(NewPair(b, a)))
	g.Expect(NewPair(a, b).A.ID()).To(BeNumerically("<", NewPair(a, b).B.ID()))

	seen := map[Pair]bool{NewPair(a, b): true}
	g.Expect(seen).To(HaveKey(NewPair(b, a)))
}

func TestSweepAndPrune_OverlapLifecycle(t *testing.T) {
	g := NewWithT(t)
	sap := New(0)
	a := sphereAt(mgl64.Vec3{0, 0, 0})
	b := sphereAt(mgl64.Vec3{0.8, 0, 0})

	g.Expect(sap.Add(a)).To(Succeed())
	g.Expect(sap.Add(b)).To(Succeed())
	sap.Run()

	g.Expect(sap.Events()).To(ConsistOf(Event{Kind: Overlap, Pair: NewPair(a, b)}))
	g.Expect(sap.Overlapping()).To(ConsistOf(NewPair(a, b)))

	// still overlapping: nothing new
	moveTo(b, mgl64.Vec3{0.9, 0.1, 0})
	sap.Run()
	g.Expect(sap.Events()).To(BeEmpty())

	moveTo(b, mgl64.Vec3{5, 0, 0})
	sap.Run()
	g.Expect(sap.Events()).To(ConsistOf(Event{Kind: Separation, Pair: NewPair(a, b)}))
	g.Expect(sap.Overlapping()).To(BeEmpty())

	sap.Run()
	g.Expect(sap.Events()).To(BeEmpty())

	// separated on y only, then on z only
	moveTo(b, mgl64.Vec3{0, 5, 0})
	sap.Run()
	g.Expect(sap.Events()).To(BeEmpty())
	moveTo(b, mgl64.Vec3{0, 0, 0.5})
	sap.Run()
	g.Expect(sap.Events()).To(ConsistOf(Event{Kind: Overlap, Pair: NewPair(a, b)}))
}

func TestSweepAndPrune_Capacity(t *testing.T) {
	g := NewWithT(t)
	sap := New(2)

	g.Expect(sap.Add(sphereAt(mgl64.Vec3{}))).To(Succeed())
	g.Expect(sap.Full()).To(BeFalse())
	g.Expect(sap.Add(sphereAt(mgl64.Vec3{}))).To(Succeed())
	g.Expect(sap.Full()).To(BeTrue())

	err := sap.Add(sphereAt(mgl64.Vec3{}))
	g.Expect(err).To(MatchError(ErrCapacityExceeded))
	g.Expect(sap.Len()).To(Equal(2))
}

func TestSweepAndPrune_AddTwice(t *testing.T) {
	g := NewWithT(t)
	sap := New(0)
	a := sphereAt(mgl64.Vec3{})

	g.Expect(sap.Add(a)).To(Succeed())
	g.Expect(sap.Add(a)).To(MatchError(ErrDuplicateShape))
	g.Expect(sap.Len()).To(Equal(1))
}

func TestSweepAndPrune_Remove(t *testing.T) {
	g := NewWithT(t)
	sap := New(0)
	a := sphereAt(mgl64.Vec3{0, 0, 0})
	b := sphereAt(mgl64.Vec3{0.5, 0, 0})
	c := sphereAt(mgl64.Vec3{0, 0.5, 0})
	far := sphereAt(mgl64.Vec3{10, 0, 0})
	for _, s := range []actor.Shape{a, b, c, far} {
		g.Expect(sap.Add(s)).To(Succeed())
	}
	sap.Run()
	g.Expect(sap.Events()).To(HaveLen(3))

	g.Expect(sap.Remove(a)).To(Succeed())
	g.Expect(sap.Events()).To(Equal([]Event{
		{Kind: Separation, Pair: NewPair(a, b)},
		{Kind: Separation, Pair: NewPair(a, c)},
	}))
	g.Expect(sap.Overlapping()).To(ConsistOf(NewPair(b, c)))
	g.Expect(sap.Len()).To(Equal(3))

	g.Expect(sap.Remove(a)).To(MatchError(ErrUnknownShape))

	// remaining arrays are still consistent
	moveTo(far, mgl64.Vec3{0.25, 0.25, 0})
	sap.Run()
	g.Expect(sap.Events()).To(ConsistOf(
		Event{Kind: Overlap, Pair: NewPair(b, far)},
		Event{Kind: Overlap, Pair: NewPair(c, far)},
	))
}

func TestSweepAndPrune_SkipsFixedBodies(t *testing.T) {
	g := NewWithT(t)
	sap := New(0)
	ground := actor.NewBox(mgl64.Vec3{5, 0.5, 5})
	body, err := actor.NewBody(1, actor.NewTransform(), actor.BodyTypeStatic, 1, ground)
	g.Expect(err).NotTo(HaveOccurred())
	ball := sphereAt(mgl64.Vec3{0, 0.9, 0})

	g.Expect(sap.Add(ground)).To(Succeed())
	g.Expect(sap.Add(ball)).To(Succeed())
	sap.Run()
	g.Expect(sap.Overlapping()).To(HaveLen(1))

	// moving a fixed body without waking it is not seen
	body.Transform.Position = mgl64.Vec3{0, 100, 0}
	sap.Run()
	g.Expect(sap.Overlapping()).To(HaveLen(1))
}

// The incremental result must match a brute-force test of every pair
func TestSweepAndPrune_MatchesBruteForce(t *testing.T) {
	g := NewWithT(t)
	rng := rand.New(rand.NewSource(42))
	sap := New(0)

	randomPosition := func() mgl64.Vec3 {
		return mgl64.Vec3{rng.Float64() * 6, rng.Float64() * 6, rng.Float64() * 6}
	}

	spheres := make([]*actor.Sphere, 60)
	for i := range spheres {
		spheres[i] = sphereAt(randomPosition())
		g.Expect(sap.Add(spheres[i])).To(Succeed())
	}

	live := map[Pair]bool{}
	for step := 0; step < 20; step++ {
		for _, s := range spheres {
			c := s.Center()
			moveTo(s, c.Add(mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}))
		}
		sap.Run()

		for _, event := range sap.Events() {
			if event.Kind == Overlap {
				g.Expect(live).NotTo(HaveKey(event.Pair))
				live[event.Pair] = true
			} else {
				g.Expect(live).To(HaveKey(event.Pair))
				delete(live, event.Pair)
			}
		}

		var expected []Pair
		for i := range spheres {
			for j := i + 1; j < len(spheres); j++ {
				if spheres[i].Bounds().Overlaps(spheres[j].Bounds()) {
					expected = append(expected, NewPair(spheres[i], spheres[j]))
				}
			}
		}
		g.Expect(sap.Overlapping()).To(ConsistOf(expected))
		g.Expect(live).To(HaveLen(len(expected)))
	}
}

func BenchmarkSweepAndPrune_Run(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	sap := New(0)
	spheres := make([]*actor.Sphere, 500)
	for i := range spheres {
		spheres[i] = sphereAt(mgl64.Vec3{rng.Float64() * 30, rng.Float64() * 30, rng.Float64() * 30})
		_ = sap.Add(spheres[i])
	}
	sap.Run()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, s := range spheres {
			moveTo(s, s.Center().Add(mgl64.Vec3{rng.Float64()*0.1 - 0.05, 0, 0}))
		}
		sap.Run()
		sap.Events()
	}
}
