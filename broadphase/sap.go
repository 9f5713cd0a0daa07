// Package broadphase prunes shape pairs with a three-axis sweep and prune.
//
// Every shape contributes a begin and an end endpoint per axis. Run refreshes
// the endpoint values from the shapes' bounds and insertion-sorts each axis;
// since bodies move little between ticks the arrays stay nearly sorted and the
// sort is close to linear. Each swap of a begin with an end of another shape
// flips that pair's overlap bit for the axis, so a pair overlaps exactly when
// its three bits are set. Transitions into and out of that state are queued as
// events and drained with Events.
package broadphase

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/akmonengine/quill/actor"
)

// DefaultMaxShapes bounds the number of shapes a SweepAndPrune accepts
const DefaultMaxShapes = 2500

const allAxes uint8 = 0b111

// Pair is an unordered pair of shapes. NewPair orders the shapes by ID so
// that the same two shapes always give the same key.
type Pair struct {
	A, B actor.Shape
}

func NewPair(a, b actor.Shape) Pair {
	if b.ID() < a.ID() {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Contains reports whether shape is one of the pair
func (p Pair) Contains(shape actor.Shape) bool {
	return p.A == shape || p.B == shape
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.A.ID(), p.B.ID())
}

func comparePairs(a, b Pair) int {
	if c := cmp.Compare(a.A.ID(), b.A.ID()); c != 0 {
		return c
	}
	return cmp.Compare(a.B.ID(), b.B.ID())
}

type EventKind int

const (
	Overlap EventKind = iota
	Separation
)

func (k EventKind) String() string {
	if k == Overlap {
		return "overlap"
	}
	return "separation"
}

// Event reports a pair entering or leaving the overlapping state
type Event struct {
	Kind EventKind
	Pair Pair
}

type endpoint struct {
	shape actor.Shape
	begin bool
	value float64
}

// SweepAndPrune keeps the sorted endpoint arrays and the per-pair axis
// overlap bits. It is not safe for concurrent use.
type SweepAndPrune struct {
	maxShapes int
	shapes    []actor.Shape
	axes      [3][]endpoint
	masks     map[Pair]uint8
	touched   map[Pair]uint8
	events    []Event
}

// New creates a sweep and prune accepting at most maxShapes shapes,
// DefaultMaxShapes when maxShapes <= 0.
func New(maxShapes int) *SweepAndPrune {
	if maxShapes <= 0 {
		maxShapes = DefaultMaxShapes
	}
	sap := &SweepAndPrune{
		maxShapes: maxShapes,
		shapes:    make([]actor.Shape, 0, 64),
		masks:     make(map[Pair]uint8),
		touched:   make(map[Pair]uint8),
	}
	for axis := range sap.axes {
		sap.axes[axis] = make([]endpoint, 0, 128)
	}
	return sap
}

func (s *SweepAndPrune) Len() int   { return len(s.shapes) }
func (s *SweepAndPrune) Full() bool { return len(s.shapes) >= s.maxShapes }

// Add appends the endpoints of shape at the end of every axis. The shape
// takes its place on the next Run.
func (s *SweepAndPrune) Add(shape actor.Shape) error {
	if s.Full() {
		return fmt.Errorf("shape %d: %w", shape.ID(), ErrCapacityExceeded)
	}
	if slices.Contains(s.shapes, shape) {
		return fmt.Errorf("shape %d: %w", shape.ID(), ErrDuplicateShape)
	}

	s.shapes = append(s.shapes, shape)
	bounds := shape.Bounds()
	for axis := range s.axes {
		s.axes[axis] = append(s.axes[axis],
			endpoint{shape: shape, begin: true, value: bounds.Min[axis]},
			endpoint{shape: shape, begin: false, value: bounds.Max[axis]},
		)
	}
	return nil
}

// Remove drops shape from every axis and queues a separation event for each
// pair it was overlapping with.
func (s *SweepAndPrune) Remove(shape actor.Shape) error {
	index := slices.Index(s.shapes, shape)
	if index < 0 {
		return fmt.Errorf("shape %d: %w", shape.ID(), ErrUnknownShape)
	}
	s.shapes = slices.Delete(s.shapes, index, index+1)

	for axis := range s.axes {
		s.axes[axis] = slices.DeleteFunc(s.axes[axis], func(e endpoint) bool {
			return e.shape == shape
		})
	}

	var separated []Pair
	for pair, mask := range s.masks {
		if !pair.Contains(shape) {
			continue
		}
		if mask == allAxes {
			separated = append(separated, pair)
		}
		delete(s.masks, pair)
	}
	slices.SortFunc(separated, comparePairs)
	for _, pair := range separated {
		s.events = append(s.events, Event{Kind: Separation, Pair: pair})
	}
	return nil
}

// Run refreshes every endpoint and restores the order of each axis, then
// queues the overlap and separation events caused by the moves, ordered by
// pair.
func (s *SweepAndPrune) Run() {
	bounds := make(map[actor.Shape]actor.AABB, len(s.shapes))
	for _, shape := range s.shapes {
		if body := shape.Body(); body != nil && (body.Fixed() || body.Sleeping) {
			continue
		}
		bounds[shape] = shape.Bounds()
	}

	for axis := range s.axes {
		endpoints := s.axes[axis]
		for i := range endpoints {
			box, ok := bounds[endpoints[i].shape]
			if !ok {
				continue
			}
			if endpoints[i].begin {
				endpoints[i].value = box.Min[axis]
			} else {
				endpoints[i].value = box.Max[axis]
			}
		}
		s.sortAxis(axis)
	}
	s.flush()
}

// sortAxis is an insertion sort; only strictly greater neighbours are
// swapped so equal values keep their order.
func (s *SweepAndPrune) sortAxis(axis int) {
	endpoints := s.axes[axis]
	bit := uint8(1) << axis

	for i := 1; i < len(endpoints); i++ {
		moving := endpoints[i]
		j := i - 1
		for ; j >= 0 && endpoints[j].value > moving.value; j-- {
			passed := endpoints[j]
			if passed.shape != moving.shape && passed.begin != moving.begin {
				pair := NewPair(passed.shape, moving.shape)
				if moving.begin {
					// begin moved before the other's end
					s.setBit(pair, bit)
				} else {
					// end moved before the other's begin
					s.clearBit(pair, bit)
				}
			}
			endpoints[j+1] = passed
		}
		endpoints[j+1] = moving
	}
}

func (s *SweepAndPrune) setBit(pair Pair, bit uint8) {
	old := s.masks[pair]
	s.touch(pair, old)
	s.masks[pair] = old | bit
}

func (s *SweepAndPrune) clearBit(pair Pair, bit uint8) {
	old := s.masks[pair]
	s.touch(pair, old)
	if mask := old &^ bit; mask == 0 {
		delete(s.masks, pair)
	} else {
		s.masks[pair] = mask
	}
}

// touch remembers the mask a pair had before the current Run
func (s *SweepAndPrune) touch(pair Pair, mask uint8) {
	if _, ok := s.touched[pair]; !ok {
		s.touched[pair] = mask
	}
}

// flush queues one event per pair whose overlapping state changed during
// the Run. A pair crossing one axis after another within a Run does not
// produce transient events.
func (s *SweepAndPrune) flush() {
	changed := make([]Pair, 0, len(s.touched))
	for pair, before := range s.touched {
		if (before == allAxes) != (s.masks[pair] == allAxes) {
			changed = append(changed, pair)
		}
	}
	clear(s.touched)

	slices.SortFunc(changed, comparePairs)
	for _, pair := range changed {
		kind := Separation
		if s.masks[pair] == allAxes {
			kind = Overlap
		}
		s.events = append(s.events, Event{Kind: kind, Pair: pair})
	}
}

// Events returns the queued events and empties the queue
func (s *SweepAndPrune) Events() []Event {
	events := s.events
	s.events = nil
	return events
}

// Overlapping returns the currently overlapping pairs ordered by shape IDs
func (s *SweepAndPrune) Overlapping() []Pair {
	pairs := make([]Pair, 0, len(s.masks))
	for pair, mask := range s.masks {
		if mask == allAxes {
			pairs = append(pairs, pair)
		}
	}
	slices.SortFunc(pairs, comparePairs)
	return pairs
}
