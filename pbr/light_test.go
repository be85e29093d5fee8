package pbr_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/pbr"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLight(t *testing.T) {
	l := pbr.DefaultLight()
	assert.InDelta(t, math.Pi/3, l.Fov, 1e-12)
	assert.Equal(t, 0.1, l.DepthNear)
	assert.Equal(t, 1.57, l.DepthFar)
	assert.Equal(t, float32(200), l.Intensity)
	assert.Equal(t, float32(20), l.Range)

	p := l.Projection()
	assert.Equal(t, 1.0, p.AspectRatio)
	assert.InDelta(t, math.Tan(0.1), p.TanNear, 1e-12)
	assert.InDelta(t, math.Tan(1.57), p.TanFar, 1e-9)
}

func TestNewLightRaw(t *testing.T) {
	l := pbr.DefaultLight()
	l.Color = mgl32.Vec4{0.5, 0.25, 1, 1}
	l.Intensity = 2
	l.Range = 4

	global := transform.GlobalFromTranslation(mgl64.Vec3{0.25, 0.25, 0.75})
	raw, err := pbr.NewLightRaw(&l, global)
	require.NoError(t, err)

	assert.Equal(t, mgl32.Vec4{1, 0.5, 2, 2}, raw.Color)

	pos := global.Position()
	for i := range pos {
		assert.InDelta(t, pos[i]/4, float64(raw.Pos[i]), 1e-6)
	}

	projection := l.Projection()
	proj, err := projection.ProjectionMatrix()
	require.NoError(t, err)
	want := proj.Mul4(global.ComputeMatrix())
	for i := range want {
		assert.InDelta(t, want[i], float64(raw.Proj[i]), 1e-4)
	}
}

func TestNewLightRawClampsDepth(t *testing.T) {
	l := pbr.DefaultLight()
	l.DepthNear = 0
	l.DepthFar = math.Pi

	raw, err := pbr.NewLightRaw(&l, transform.GlobalIdentity())
	require.NoError(t, err)
	for _, v := range raw.Proj {
		assert.False(t, math.IsInf(float64(v), 0) || math.IsNaN(float64(v)))
	}
}

func TestNewLightRawDegenerate(t *testing.T) {
	l := pbr.DefaultLight()
	l.Fov = 0

	_, err := pbr.NewLightRaw(&l, transform.GlobalIdentity())
	assert.ErrorIs(t, err, camera.ErrDegenerateProjection)
}

func TestLightsSystem(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	transform.RegisterComponents(registry)
	pbr.RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	scheduler := ecs.NewScheduler(storage)
	transform.AddSystems(scheduler)
	pbr.AddSystems(scheduler, storage)

	for i := 0; i < pbr.MaxLights+3; i++ {
		transform.Spawn(storage, transform.FromTranslation(mgl64.Vec3{0.1 * float64(i), 0, 0}), ecs.Invalid, pbr.DefaultLight())
	}
	// lights without a world pose are ignored
	storage.Spawn(pbr.DefaultLight())

	require.NoError(t, scheduler.Once(0))

	uniforms := ecs.NewSingleton[pbr.LightUniforms](storage).Get()
	require.NotNil(t, uniforms)
	assert.Equal(t, pbr.MaxLights, uniforms.Count)
	assert.Equal(t, mgl32.Vec4{0.05, 0.05, 0.05, 0.05}, uniforms.Ambient)
	assert.Equal(t, float32(1)/20, uniforms.Lights[0].Pos[3])
	assert.Equal(t, mgl32.Vec4{200, 200, 200, 200}, uniforms.Lights[0].Color)

	ecs.NewSingleton[pbr.AmbientLight](storage).Get().Brightness = 0
	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, mgl32.Vec4{}, uniforms.Ambient)
}
