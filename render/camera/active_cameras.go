package camera

import (
	"slices"

	"github.com/plus3/spherical/ecs"
)

// ActiveCameras maps camera names to the entity currently bound to each.
// Renderers look cameras up here by name. Only names added with Add are
// tracked.
type ActiveCameras struct {
	names    []string
	bindings map[string]ecs.Entity
}

// NewActiveCameras tracks the given names, Camera3D when none are given.
func NewActiveCameras(names ...string) ActiveCameras {
	if len(names) == 0 {
		names = []string{Camera3D}
	}
	a := ActiveCameras{}
	for _, n := range names {
		a.Add(n)
	}
	return a
}

func (a *ActiveCameras) Add(name string) {
	if a.bindings == nil {
		a.bindings = make(map[string]ecs.Entity)
	}
	if slices.Contains(a.names, name) {
		return
	}
	a.names = append(a.names, name)
	a.bindings[name] = ecs.Invalid
}

func (a *ActiveCameras) Names() []string {
	return a.names
}

// Get returns the camera bound to name, if any.
func (a *ActiveCameras) Get(name string) (ecs.Entity, bool) {
	e, ok := a.bindings[name]
	if !ok || e == ecs.Invalid {
		return ecs.Invalid, false
	}
	return e, true
}

func (a *ActiveCameras) set(name string, e ecs.Entity) {
	a.bindings[name] = e
}

// ActiveCamerasSystem binds every tracked name to the first live camera
// carrying it. A binding is kept until its camera dies or is renamed.
type ActiveCamerasSystem struct {
	Cameras ecs.Query[struct {
		ecs.Entity
		*Camera
	}]
	Active ecs.Singleton[ActiveCameras]
}

func (s *ActiveCamerasSystem) Execute(frame *ecs.UpdateFrame) error {
	active := s.Active.Get()
	if active == nil {
		return nil
	}

	for _, name := range active.names {
		if e, ok := active.Get(name); ok {
			if c, alive := ecs.Get[Camera](frame.Storage, e); alive && c.Name == name {
				continue
			}
		}
		active.set(name, ecs.Invalid)
		for item := range s.Cameras.Iter() {
			if item.Camera.Name == name {
				active.set(name, item.Entity)
				break
			}
		}
	}
	return nil
}
