package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/transform"
)

// Controlled marks the camera the keyboard and mouse drive. Speed is in
// radians of arc per second.
type Controlled struct {
	Speed float64
}

// Input is the singleton the window fills before each tick. Move is a
// direction in the camera's local frame. Look is the mouse motion in
// pixels since the last tick and is consumed by CameraControllerSystem.
type Input struct {
	Move           mgl64.Vec3
	Look           mgl64.Vec2
	ViewportHeight float64
}

// CameraControllerSystem flies controlled cameras. Motion is applied on
// the right, in the camera's own frame, so it must run before propagation.
type CameraControllerSystem struct {
	Cameras ecs.Query[struct {
		*Controlled
		Local *transform.Transform
	}]
	Input ecs.Singleton[Input]
}

func (s *CameraControllerSystem) Execute(frame *ecs.UpdateFrame) error {
	in := s.Input.Get()
	if in == nil {
		return nil
	}

	look := transform.Identity()
	if in.Look != (mgl64.Vec2{}) && in.ViewportHeight > 0 {
		// a full viewport height of mouse travel turns the camera by π/4
		d := in.Look.Mul(math.Pi / 4 / in.ViewportHeight)
		look = transform.FromRotation(mgl64.Quat{W: 1, V: mgl64.Vec3{-d[1], -d[0], 0}}.Normalize())
	}
	in.Look = mgl64.Vec2{}

	for item := range s.Cameras.Iter() {
		step := transform.FromSmallTranslation(in.Move.Mul(item.Speed * frame.DeltaTime))
		*item.Local = item.Local.Mul(step).Mul(look)
	}
	return nil
}
