// Package pbr packs point lights on the 3-sphere into shader-ready uniforms.
package pbr

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
)

// Light is a point light. DepthNear and DepthFar are angular distances
// along the light's view geodesic bounding its shadow projection.
type Light struct {
	Color     mgl32.Vec4
	Fov       float64
	DepthNear float64
	DepthFar  float64
	Intensity float32
	Range     float32
}

func DefaultLight() Light {
	return Light{
		Color:     mgl32.Vec4{1, 1, 1, 1},
		Fov:       mgl64.DegToRad(60),
		DepthNear: 0.1,
		DepthFar:  1.57,
		Intensity: 200,
		Range:     20,
	}
}

// Projection is the light's shadow projection: square, with the depth
// bounds clamped away from 0 and π.
func (l *Light) Projection() camera.PerspectiveProjection {
	tanNear, tanFar := camera.AngularBounds(l.DepthNear, l.DepthFar)
	return camera.PerspectiveProjection{
		Fov:         l.Fov,
		AspectRatio: 1,
		TanNear:     tanNear,
		TanFar:      tanFar,
	}
}

// LightRaw is the GPU layout of one light.
type LightRaw struct {
	Proj  mgl32.Mat4
	Pos   mgl32.Vec4
	Color mgl32.Vec4
}

// NewLightRaw packs a light at the given world pose. Pos is scaled by
// 1/Range so that dot(pos, pos) is the attenuation term. Color is
// premultiplied by intensity, alpha included.
func NewLightRaw(light *Light, global transform.GlobalTransform) (LightRaw, error) {
	projection := light.Projection()
	proj, err := projection.ProjectionMatrix()
	if err != nil {
		return LightRaw{}, fmt.Errorf("light projection: %w", err)
	}

	pos := global.Position().Mul(1 / float64(light.Range))
	return LightRaw{
		Proj:  mat4To32(proj.Mul4(global.ComputeMatrix())),
		Pos:   vec4To32(pos),
		Color: light.Color.Mul(light.Intensity),
	}, nil
}

// AmbientLight is the singleton ambient term. Color is premultiplied by
// Brightness before upload.
type AmbientLight struct {
	Color      mgl32.Vec4
	Brightness float32
}

func DefaultAmbientLight() AmbientLight {
	return AmbientLight{Color: mgl32.Vec4{1, 1, 1, 1}, Brightness: 0.05}
}

func mat4To32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func vec4To32(v mgl64.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
}
