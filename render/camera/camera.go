// Package camera provides cameras on the 3-sphere: the spherical
// perspective projection, render layers, and the per-camera ordered list of
// visible entities.
package camera

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/transform"
)

// Camera3D is the name given to cameras spawned without one.
const Camera3D = "Camera3d"

// Camera is the per-camera render state. ProjectionMatrix is written by
// CameraSystem.
type Camera struct {
	Name             string
	ProjectionMatrix mgl64.Mat4
	DepthCalculation DepthCalculation
}

// Viewport is the singleton describing the surface cameras render into.
// CameraSystem refreshes every projection when its size changes.
type Viewport struct {
	Width, Height float64
}

// CameraSystem keeps Camera.ProjectionMatrix current for cameras using the
// projection component P. Matrices are recomputed when the Viewport size
// changes and for cameras that have never been computed.
type CameraSystem[P any, PT interface {
	*P
	CameraProjection
}] struct {
	Cameras ecs.Query[struct {
		*Camera
		Projection *P
	}]
	Viewport ecs.Singleton[Viewport]

	last    Viewport
	hasLast bool
}

// PerspectiveCameraSystem drives cameras with a PerspectiveProjection.
type PerspectiveCameraSystem = CameraSystem[PerspectiveProjection, *PerspectiveProjection]

func (s *CameraSystem[P, PT]) Execute(frame *ecs.UpdateFrame) error {
	resized := false
	if vp := s.Viewport.Get(); vp != nil && vp.Width > 0 && vp.Height > 0 {
		resized = !s.hasLast || *vp != s.last
		s.last, s.hasLast = *vp, true
	}

	for item := range s.Cameras.Iter() {
		if !resized && item.Camera.ProjectionMatrix != (mgl64.Mat4{}) {
			continue
		}
		projection := PT(item.Projection)
		if resized {
			projection.Update(s.last.Width, s.last.Height)
		}
		m, err := projection.ProjectionMatrix()
		if err != nil {
			return err
		}
		item.Camera.ProjectionMatrix = m
		item.Camera.DepthCalculation = projection.DepthCalculation()
	}
	return nil
}

// SpawnPerspectiveCamera creates a camera entity named name (Camera3D when
// empty) with the default projection, an empty visible list and the given
// local pose.
func SpawnPerspectiveCamera(storage *ecs.Storage, name string, pose transform.Transform, extra ...any) ecs.Entity {
	if name == "" {
		name = Camera3D
	}
	components := append([]any{
		Camera{Name: name},
		DefaultPerspectiveProjection(),
		VisibleEntities{},
		pose,
		transform.FromLocal(pose),
	}, extra...)
	return storage.Spawn(components...)
}

// RegisterComponents registers every component type this package defines.
func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Camera](registry)
	ecs.RegisterComponent[PerspectiveProjection](registry)
	ecs.RegisterComponent[VisibleEntities](registry)
	ecs.RegisterComponent[Visible](registry)
	ecs.RegisterComponent[OutsideFrustum](registry)
	ecs.RegisterComponent[RenderLayers](registry)
}

// AddSystems registers the camera, active camera and visibility systems.
// Call it after transform.AddSystems so they read propagated poses.
func AddSystems(scheduler *ecs.Scheduler, workers int) {
	scheduler.Register(&ActiveCamerasSystem{})
	scheduler.RegisterNamed("CameraSystem", &PerspectiveCameraSystem{})
	scheduler.Register(&VisibleEntitiesSystem{Workers: workers})
}
