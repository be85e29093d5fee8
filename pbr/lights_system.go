package pbr

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/transform"
)

// MaxLights is the number of lights LightUniforms holds. Extra lights are
// dropped in entity order.
const MaxLights = 10

// LightUniforms is the singleton a renderer uploads each frame.
type LightUniforms struct {
	Ambient mgl32.Vec4
	Count   int
	Lights  [MaxLights]LightRaw
}

// LightsSystem rebuilds LightUniforms from every Light with a world pose.
type LightsSystem struct {
	Lights ecs.Query[struct {
		ecs.Entity
		*Light
		Global *transform.GlobalTransform
	}]
	Ambient  ecs.Singleton[AmbientLight]
	Uniforms ecs.Singleton[LightUniforms]
}

func (s *LightsSystem) Execute(frame *ecs.UpdateFrame) error {
	uniforms := s.Uniforms.Get()
	if uniforms == nil {
		return nil
	}

	uniforms.Ambient = mgl32.Vec4{}
	if ambient := s.Ambient.Get(); ambient != nil {
		uniforms.Ambient = ambient.Color.Mul(ambient.Brightness)
	}

	uniforms.Count = 0
	for item := range s.Lights.Iter() {
		if uniforms.Count == MaxLights {
			break
		}
		raw, err := NewLightRaw(item.Light, *item.Global)
		if err != nil {
			return fmt.Errorf("entity %s: %w", item.Entity, err)
		}
		uniforms.Lights[uniforms.Count] = raw
		uniforms.Count++
	}
	clear(uniforms.Lights[uniforms.Count:])
	return nil
}

func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Light](registry)
}

// AddSystems creates the ambient and uniform singletons when missing and
// registers LightsSystem. Call it after transform.AddSystems.
func AddSystems(scheduler *ecs.Scheduler, storage *ecs.Storage) {
	ecs.NewSingleton(storage, DefaultAmbientLight())
	ecs.NewSingleton[LightUniforms](storage)
	scheduler.Register(&LightsSystem{})
}
