// Package quill steps a world of rigid bodies: sweep and prune pair pruning,
// per-pair contact generation, lowering of contacts, joints and forces to
// solver rows, NNCG solve and integration.
package quill

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/config"
	"github.com/akmonengine/quill/constraint"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_WORKERS = 1

type World struct {
	// List of all rigid bodies in the world
	Bodies []*actor.Body
	// Gravity acceleration (m/s², or N/kg)
	Gravity  mgl64.Vec3
	Substeps int
	Workers  int

	Events Events
	Logger *slog.Logger

	config      *config.Config
	broadphase  *broadphase.SweepAndPrune
	generators  map[broadphase.Pair]contact.Generator
	constraints []constraint.Constraint
	forces      []constraint.Force

	nncg  *solver.NNCG
	rows  *solver.Rows
	index constraint.BodyIndex

	contacts []*constraint.Contact
	stats    solver.Stats
}

// NewWorld creates an empty world from a validated configuration, the
// defaults when cfg is nil.
func NewWorld(cfg *config.Config) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &World{
		Gravity:    cfg.Gravity,
		Substeps:   cfg.Substeps,
		Workers:    cfg.Workers,
		Events:     NewEvents(),
		Logger:     slog.New(slog.DiscardHandler),
		config:     cfg,
		broadphase: broadphase.New(cfg.Broadphase.MaxShapes),
		generators: make(map[broadphase.Pair]contact.Generator),
		nncg:       cfg.NNCG(),
		rows:       solver.NewRows(256),
		index:      make(constraint.BodyIndex),
	}, nil
}

// AddBody adds a rigid body and its shapes to the world. Nothing is added
// when the broad phase cannot take every shape.
func (w *World) AddBody(body *actor.Body) error {
	if _, ok := w.index[body]; ok {
		return fmt.Errorf("body %d: %w", body.ID, ErrBodyExists)
	}

	for i, shape := range body.Shapes {
		if err := w.broadphase.Add(shape); err != nil {
			for _, added := range body.Shapes[:i] {
				_ = w.broadphase.Remove(added)
			}
			return fmt.Errorf("body %d: %w", body.ID, err)
		}
	}

	w.index[body] = len(w.Bodies)
	w.Bodies = append(w.Bodies, body)
	return nil
}

// RemoveBody removes a rigid body, its shapes, and the constraints and forces
// attached to it
func (w *World) RemoveBody(body *actor.Body) error {
	k, ok := w.index[body]
	if !ok {
		return fmt.Errorf("body %d: %w", body.ID, ErrUnknownBody)
	}

	for _, shape := range body.Shapes {
		if err := w.broadphase.Remove(shape); err != nil {
			return fmt.Errorf("body %d: %w", body.ID, err)
		}
	}

	w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)
	delete(w.index, body)
	for i, b := range w.Bodies[k:] {
		w.index[b] = k + i
	}

	w.constraints = slices.DeleteFunc(w.constraints, func(c constraint.Constraint) bool {
		a, b := c.Bodies()
		return a == body || b == body
	})
	w.forces = slices.DeleteFunc(w.forces, func(f constraint.Force) bool {
		return forceBody(f) == body
	})
	w.Events.forget(body)
	return nil
}

func forceBody(f constraint.Force) *actor.Body {
	switch force := f.(type) {
	case *constraint.GravityForce:
		return force.Body
	case *constraint.ImpulseForce:
		return force.Body
	}
	return nil
}

// AddConstraint adds a joint between two bodies of the world
func (w *World) AddConstraint(c constraint.Constraint) error {
	a, b := c.Bodies()
	if _, ok := w.index[a]; !ok {
		return ErrForeignBody
	}
	if _, ok := w.index[b]; !ok {
		return ErrForeignBody
	}
	w.constraints = append(w.constraints, c)
	return nil
}

// AddForce adds a force applied before every solve
func (w *World) AddForce(f constraint.Force) {
	w.forces = append(w.forces, f)
}

// Contacts returns the contacts solved during the last substep. The points
// are owned by the generators and overwritten by the next Step.
func (w *World) Contacts() []*constraint.Contact {
	return w.contacts
}

// Stats returns the solver statistics of the last substep
func (w *World) Stats() solver.Stats {
	return w.stats
}

func (w *World) Step(dt float64) {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)
	w.Substeps = max(1, w.Substeps)
	h := dt / float64(w.Substeps)

	params := w.config.Params()
	params.Timestep = h

	for range w.Substeps {
		w.applyForces(h)

		// Phase 1: Broad phase, pairs entering or leaving the overlap
		w.updatePairs()

		// Phase 2: Narrow phase, contacts of every overlapping pair
		contacts := w.detectCollision(h)
		contacts = w.Events.recordContacts(contacts)
		w.contacts = contacts

		// Phase 3: Solver
		w.solve(params, contacts)

		// Phase 4: Update Position & Velocity
		w.update(h)

		if w.config.Sleep.Enabled {
			w.trySleep(h)
		}
	}

	w.Events.processSleepEvents(w.Bodies)
	w.Events.flush()
}

func (w *World) applyForces(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.Body) {
		body.ResetDeltas()
		gravity := constraint.GravityForce{Body: body, Gravity: w.Gravity}
		gravity.Apply(h)
	})

	for _, force := range w.forces {
		force.Apply(h)
	}
}

func (w *World) updatePairs() {
	w.broadphase.Run()
	events := w.broadphase.Events()
	w.Events.recordBroadphase(events)

	for _, event := range events {
		pair := event.Pair
		if event.Kind == broadphase.Separation {
			delete(w.generators, pair)
			continue
		}

		a, b := pair.A.Body(), pair.B.Body()
		if a == b || (a.Fixed() && b.Fixed()) {
			continue
		}
		w.generators[pair] = contact.New(pair.A, pair.B, w.config.ContactOptions())
	}
}

type pairRun struct {
	generator contact.Generator
	bodyA     *actor.Body
	bodyB     *actor.Body
	found     bool
}

func (w *World) detectCollision(h float64) []*constraint.Contact {
	runs := make([]*pairRun, 0, len(w.generators))
	for _, pair := range w.broadphase.Overlapping() {
		generator, ok := w.generators[pair]
		if !ok {
			continue
		}
		a, b := generator.Shapes()
		run := &pairRun{generator: generator, bodyA: a.Body(), bodyB: b.Body()}
		if resting(run.bodyA) && resting(run.bodyB) {
			continue
		}
		runs = append(runs, run)
	}

	task(w.Workers, runs, func(run *pairRun) {
		run.found = run.generator.Run()
	})

	contacts := make([]*constraint.Contact, 0, len(runs))
	for _, run := range runs {
		if !run.found {
			continue
		}
		// a moving body touching a sleeping one wakes it up
		if !run.bodyA.Trigger && !run.bodyB.Trigger {
			w.wake(run.bodyA, h)
			w.wake(run.bodyB, h)
		}
		contacts = append(contacts, &constraint.Contact{
			BodyA:  run.bodyA,
			BodyB:  run.bodyB,
			Points: run.generator.Contacts(),
		})
	}
	return contacts
}

func resting(body *actor.Body) bool {
	return body.Fixed() || body.Sleeping
}

// wake also gives the body the gravity applyForces skipped while it slept,
// so it enters the solve with a full substep of external velocity.
func (w *World) wake(body *actor.Body, h float64) {
	if !body.Sleeping {
		return
	}
	body.Awake()
	gravity := constraint.GravityForce{Body: body, Gravity: w.Gravity}
	gravity.Apply(h)
}

func (w *World) solve(params constraint.Params, contacts []*constraint.Contact) {
	w.rows.Reset()

	for _, c := range contacts {
		c.Lower(w.rows, w.index, params)
	}
	for _, c := range w.constraints {
		a, b := c.Bodies()
		if resting(a) && resting(b) {
			continue
		}
		w.wake(a, params.Timestep)
		w.wake(b, params.Timestep)
		c.Lower(w.rows, w.index, params)
	}

	w.stats = w.nncg.Solve(w.rows, w.Bodies)

	w.Logger.Debug("substep solved",
		slog.Int("pairs", len(w.generators)),
		slog.Int("contacts", len(contacts)),
		slog.Int("rows", w.rows.Len()),
		slog.Int("iterations", w.stats.Iterations),
		slog.Int("restarts", w.stats.Restarts),
		slog.Float64("residual", w.stats.Residual),
	)
}

func (w *World) update(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.Body) {
		body.Advance(h)
	})
}

// trySleep sets the body to sleep if its velocity is lower than the threshold, for a given duration
// this method is too simple to use a task, it slows down in multiple goroutines
func (w *World) trySleep(h float64) {
	for _, body := range w.Bodies {
		body.TrySleep(h, w.config.Sleep.Time, w.config.Sleep.Velocity)
	}
}
