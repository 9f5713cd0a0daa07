package quill

import (
	"unsafe"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/constraint"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
	ON_OVERLAP
	ON_SEPARATION
)

type pairKey struct {
	bodyA *actor.Body
	bodyB *actor.Body
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(bodyA, bodyB *actor.Body) pairKey {
	ptrA := uintptr(unsafe.Pointer(bodyA))
	ptrB := uintptr(unsafe.Pointer(bodyB))

	if ptrB < ptrA {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

func (p pairKey) atRest() bool {
	return (p.bodyA.Sleeping || p.bodyA.Fixed()) && (p.bodyB.Sleeping || p.bodyB.Fixed())
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events
type CollisionEnterEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.Body
	BodyB *actor.Body
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.Body
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.Body
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// Broad-phase events, one per pair of shapes whose bounds start or stop
// overlapping
type OverlapEvent struct {
	ShapeA actor.Shape
	ShapeB actor.Shape
}

func (e OverlapEvent) Type() EventType { return ON_OVERLAP }

type SeparationEvent struct {
	ShapeA actor.Shape
	ShapeB actor.Shape
}

func (e SeparationEvent) Type() EventType { return ON_SEPARATION }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool

	sleepStates map[*actor.Body]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		sleepStates:         make(map[*actor.Body]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContacts marks the body pairs touching during a substep and returns
// the contacts that take part in the solve, triggers excluded.
func (e *Events) recordContacts(contacts []*constraint.Contact) []*constraint.Contact {
	n := 0
	for _, c := range contacts {
		pair := makePairKey(c.BodyA, c.BodyB)
		e.currentActivePairs[pair] = true

		if !c.BodyA.Trigger && !c.BodyB.Trigger {
			contacts[n] = c
			n++
		}
	}

	return contacts[:n]
}

// recordBroadphase buffers the overlap and separation events of a Run
func (e *Events) recordBroadphase(events []broadphase.Event) {
	for _, event := range events {
		if event.Kind == broadphase.Overlap {
			e.buffer = append(e.buffer, OverlapEvent{ShapeA: event.Pair.A, ShapeB: event.Pair.B})
		} else {
			e.buffer = append(e.buffer, SeparationEvent{ShapeA: event.Pair.A, ShapeB: event.Pair.B})
		}
	}
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
// Should be called after all substeps
func (e *Events) processCollisionEvents() {
	// Detect Enter and Stay events
	for pair := range e.currentActivePairs {
		// Skip if both bodies are at rest, to avoid spamming events
		if pair.atRest() {
			continue
		}

		isTrigger := pair.bodyA.Trigger || pair.bodyB.Trigger

		if e.previousActivePairs[pair] {
			if isTrigger {
				e.buffer = append(e.buffer, TriggerStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			}
		} else {
			if isTrigger {
				e.buffer = append(e.buffer, TriggerEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			}
		}
	}

	// Detect Exit events
	for pair := range e.previousActivePairs {
		if e.currentActivePairs[pair] {
			continue
		}
		// sleeping pairs are not tested, they are not leaving either
		if pair.atRest() {
			e.currentActivePairs[pair] = true
			continue
		}

		if pair.bodyA.Trigger || pair.bodyB.Trigger {
			e.buffer = append(e.buffer, TriggerExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(bodies []*actor.Body) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.Sleeping
			continue
		}

		if !trackedState && body.Sleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !body.Sleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// forget drops every trace of a removed body
func (e *Events) forget(body *actor.Body) {
	delete(e.sleepStates, body)
	for pair := range e.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.currentActivePairs, pair)
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
