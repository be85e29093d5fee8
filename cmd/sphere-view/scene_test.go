package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/biquat"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/pbr"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScene(t *testing.T) {
	cfg, err := LoadScene(filepath.Join("testdata", "scene.json"))
	require.NoError(t, err)

	require.Len(t, cfg.Nodes, 4)
	assert.Nil(t, cfg.Nodes[0].Cube)
	assert.Equal(t, DefaultCubeSize, cfg.Nodes[1].Cube.Size)
	assert.Equal(t, 0.2, cfg.Nodes[2].Cube.Size)
	assert.Equal(t, pbr.DefaultLight().Range, cfg.Lights[0].Range)
	assert.Equal(t, 60.0, cfg.Camera.FovDeg)
	assert.Equal(t, DefaultTanNear, cfg.Camera.TanNear)
	assert.Equal(t, DefaultCameraSpeed, cfg.Camera.Speed)
}

func TestLoadSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"bad json", `{"nodes": [`, "parse"},
		{"forward parent", `{"nodes": [{"pose": [], "parent": 0}]}`, "parent 0 must index an earlier node"},
		{"both step kinds", `{"nodes": [{"pose": [{"translate": [0,0,0], "rotate": [0,0,0,1]}]}]}`, "exactly one of"},
		{"empty step", `{"camera": {"pose": [{}]}}`, "camera: step 0"},
		{"zero rotation", `{"nodes": [{"pose": [{"rotate": [0,0,0,0]}]}]}`, "zero rotation"},
		{"negative size", `{"nodes": [{"pose": [], "cube": {"size": -1}}]}`, "cube size"},
		{"layer out of range", `{"nodes": [{"pose": [], "cube": {"layers": [40]}}]}`, "layer 40"},
		{"negative range", `{"lights": [{"pose": [], "range": -2}]}`, "range must be > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scene.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.json), 0o644))

			_, err := LoadScene(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPoseTransform(t *testing.T) {
	pose := PoseCfg{translate(0.3, 0, 0), rotate(0, 0, 1, 1)}
	want := transform.FromTranslation(mgl64.Vec3{0.3, 0, 0}).
		Mul(transform.FromRotation(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})))
	assert.True(t, pose.Transform().Biquat.AbsDiffEq(want.Biquat, 1e-12))

	assert.Equal(t, transform.Identity(), PoseCfg(nil).Transform())
}

func TestDefaultScene(t *testing.T) {
	cfg := DefaultScene()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Nodes, 36)

	cubes := 0
	for _, node := range cfg.Nodes {
		if node.Cube != nil {
			cubes++
			require.NotNil(t, node.Parent)
		}
	}
	assert.Equal(t, 30, cubes)
}

func TestSpawnScene(t *testing.T) {
	storage, scheduler := newWorld(2, 1)
	cfg, err := LoadScene(filepath.Join("testdata", "scene.json"))
	require.NoError(t, err)

	cam, err := cfg.Spawn(storage)
	require.NoError(t, err)
	ecs.NewSingleton[camera.Viewport](storage).Get().Width = 800
	ecs.NewSingleton[camera.Viewport](storage).Get().Height = 400

	require.NoError(t, scheduler.Once(0))

	active, ok := ecs.NewSingleton[camera.ActiveCameras](storage).Get().Get(camera.Camera3D)
	require.True(t, ok)
	assert.Equal(t, cam, active)

	projection, ok := ecs.Get[camera.PerspectiveProjection](storage, cam)
	require.True(t, ok)
	assert.InDelta(t, math.Pi/3, projection.Fov, 1e-12)
	assert.Equal(t, 2.0, projection.AspectRatio)

	// the layer 1 cube is not seen by the default camera; the transparent
	// cube is listed last
	visible, ok := ecs.Get[camera.VisibleEntities](storage, cam)
	require.True(t, ok)
	require.Equal(t, 2, visible.Len())
	last, ok := ecs.Get[camera.Visible](storage, visible.Entities[1].Entity)
	require.True(t, ok)
	assert.True(t, last.IsTransparent)

	// children inherit the anchor's rotation about Z
	child := visible.Entities[0].Entity
	global, ok := ecs.Get[transform.GlobalTransform](storage, child)
	require.True(t, ok)
	pos := global.Position()
	assert.InDelta(t, math.Sin(0.4), pos[2], 1e-6)
	assert.InDelta(t, math.Cos(0.4), pos[3], 1e-6)

	uniforms := ecs.NewSingleton[pbr.LightUniforms](storage).Get()
	assert.Equal(t, 1, uniforms.Count)
	assert.InDelta(t, 0.1, float64(uniforms.Ambient[0]), 1e-6)
}

func TestCameraController(t *testing.T) {
	storage, scheduler := newWorld(1, 0)
	cam := camera.SpawnPerspectiveCamera(storage, "", transform.Identity(), Controlled{Speed: 1})

	input := ecs.NewSingleton[Input](storage).Get()
	input.Move = mgl64.Vec3{0, 0, -1}
	require.NoError(t, scheduler.Once(0.1))

	local, ok := ecs.Get[transform.Transform](storage, cam)
	require.True(t, ok)
	want := transform.FromSmallTranslation(mgl64.Vec3{0, 0, -0.1})
	assert.True(t, local.Biquat.AbsDiffEq(want.Biquat, 1e-12), "got %v", local.Biquat)

	// mouse motion is consumed once and rotates about the camera's origin
	input.Move = mgl64.Vec3{}
	input.ViewportHeight = 100
	input.Look = mgl64.Vec2{100, 0}
	require.NoError(t, scheduler.Once(0.1))
	assert.Equal(t, mgl64.Vec2{}, input.Look)

	before := want.MulVec4(biquat.W)
	after := local.MulVec4(biquat.W)
	assert.True(t, before.ApproxEqualThreshold(after, 1e-12))
	assert.False(t, local.Biquat.AbsDiffEq(want.Biquat, 1e-6))
}
