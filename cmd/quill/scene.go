package main

import (
	"fmt"
	"math"
	"slices"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// scene fills a world and returns the body whose trajectory is followed
type scene func(world *quill.World, bodies int) (*actor.Body, error)

var scenes = map[string]scene{
	"drop":     dropScene,
	"stack":    stackScene,
	"pendulum": pendulumScene,
	"spheres":  spheresScene,
	"capsules": capsuleScene,
}

func sceneNames() []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func addBody(world *quill.World, id int, position mgl64.Vec3, rotation mgl64.Quat, bodyType actor.BodyType, shape actor.Shape) (*actor.Body, error) {
	body, err := actor.NewBody(id, actor.NewTransformAt(position, rotation), bodyType, 1.0, shape)
	if err != nil {
		return nil, fmt.Errorf("body %d: %w", id, err)
	}
	if err := world.AddBody(body); err != nil {
		return nil, err
	}
	return body, nil
}

func addGround(world *quill.World) error {
	_, err := addBody(world, 0, mgl64.Vec3{0, -0.5, 0}, mgl64.QuatIdent(), actor.BodyTypeStatic, actor.NewBox(mgl64.Vec3{20, 0.5, 20}))
	return err
}

// dropScene is a tilted cube falling on the ground
func dropScene(world *quill.World, _ int) (*actor.Body, error) {
	if err := addGround(world); err != nil {
		return nil, err
	}
	rotation := mgl64.QuatRotate(mgl64.DegToRad(35), mgl64.Vec3{0, 0, 1}).Mul(mgl64.QuatRotate(mgl64.DegToRad(20), mgl64.Vec3{1, 0, 0}))
	return addBody(world, 1, mgl64.Vec3{0, 4, 0}, rotation, actor.BodyTypeDynamic, actor.NewBox(mgl64.Vec3{1, 1, 1}))
}

// stackScene piles unit boxes on top of each other
func stackScene(world *quill.World, bodies int) (*actor.Body, error) {
	if err := addGround(world); err != nil {
		return nil, err
	}
	var top *actor.Body
	for i := range bodies {
		y := 0.5 + actor.DefaultEnvelope/2 + float64(i)*(1+actor.DefaultEnvelope/2)
		body, err := addBody(world, i+1, mgl64.Vec3{0, y, 0}, mgl64.QuatIdent(), actor.BodyTypeDynamic, actor.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}))
		if err != nil {
			return nil, err
		}
		top = body
	}
	return top, nil
}

// pendulumScene hangs a chain of boxes from a fixed anchor with ball joints
func pendulumScene(world *quill.World, bodies int) (*actor.Body, error) {
	const length = 1.0
	anchor, err := addBody(world, 0, mgl64.Vec3{0, 10, 0}, mgl64.QuatIdent(), actor.BodyTypeStatic, actor.NewBox(mgl64.Vec3{0.1, 0.1, 0.1}))
	if err != nil {
		return nil, err
	}

	previous := anchor
	for i := range bodies {
		position := mgl64.Vec3{float64(i+1) * length, 10, 0}
		body, err := addBody(world, i+1, position, mgl64.QuatIdent(), actor.BodyTypeDynamic, actor.NewBox(mgl64.Vec3{0.2, 0.2, 0.2}))
		if err != nil {
			return nil, err
		}
		joint, err := constraint.NewBallJoint(previous, body, position.Sub(mgl64.Vec3{length, 0, 0}))
		if err != nil {
			return nil, err
		}
		if err := world.AddConstraint(joint); err != nil {
			return nil, err
		}
		previous = body
	}
	return previous, nil
}

// spheresScene drops a ring of spheres on the ground, the first one gets a
// sideways kick
func spheresScene(world *quill.World, bodies int) (*actor.Body, error) {
	if err := addGround(world); err != nil {
		return nil, err
	}
	var first *actor.Body
	for i := range bodies {
		angle := 2 * math.Pi * float64(i) / float64(max(bodies, 1))
		position := mgl64.Vec3{3 * math.Cos(angle), 1 + 0.5*float64(i), 3 * math.Sin(angle)}
		body, err := addBody(world, i+1, position, mgl64.QuatIdent(), actor.BodyTypeDynamic, actor.NewSphere(0.5))
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = body
			world.AddForce(constraint.NewImpulseForce(body, mgl64.Vec3{}, mgl64.Vec3{-1, 0, 0}, 2))
		}
	}
	return first, nil
}

// capsuleScene drops capsules across a convex hull ramp
func capsuleScene(world *quill.World, bodies int) (*actor.Body, error) {
	if err := addGround(world); err != nil {
		return nil, err
	}
	ramp := actor.NewConvexHull([]mgl64.Vec3{
		{-2, 0, -2}, {2, 0, -2}, {-2, 0, 2}, {2, 0, 2},
		{-2, 1.5, -2}, {-2, 1.5, 2},
	})
	if _, err := addBody(world, 1, mgl64.Vec3{0, 0.01, 0}, mgl64.QuatIdent(), actor.BodyTypeStatic, ramp); err != nil {
		return nil, err
	}

	var last *actor.Body
	for i := range bodies {
		position := mgl64.Vec3{-1, 3 + float64(i)*1.2, -1 + float64(i%3)}
		body, err := addBody(world, i+2, position, mgl64.QuatIdent(), actor.BodyTypeDynamic, actor.NewCapsule(0.3, 1))
		if err != nil {
			return nil, err
		}
		last = body
	}
	return last, nil
}
