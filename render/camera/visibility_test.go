package camera_test

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/biquat"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entitiesOf(v *camera.VisibleEntities) []ecs.Entity {
	ids := make([]ecs.Entity, 0, v.Len())
	for _, e := range v.Entities {
		ids = append(ids, e.Entity)
	}
	return ids
}

func poseAt(v mgl64.Vec3) *transform.GlobalTransform {
	g := transform.GlobalFromTranslation(v)
	return &g
}

func origin() camera.CameraView {
	return camera.CameraView{Position: biquat.W, Layers: camera.DefaultRenderLayers}
}

func TestVisibleEntitiesOrderByDistance(t *testing.T) {
	d1, d2, d3 := ecs.NewEntity(1, 1), ecs.NewEntity(2, 1), ecs.NewEntity(3, 1)
	candidates := []camera.Candidate{
		{Entity: d3, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{0, 0, 1.0})},
		{Entity: d1, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{0.1, 0, 0})},
		{Entity: d2, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{0, 0.5, 0})},
	}

	var out camera.VisibleEntities
	camera.ComputeVisibleEntities(origin(), candidates, &out)
	assert.Equal(t, []ecs.Entity{d1, d2, d3}, entitiesOf(&out))
	assert.InDelta(t, 2-2*math.Cos(0.1), out.Entities[0].Order, 1e-12)

	candidates[2].Visible.IsTransparent = true
	camera.ComputeVisibleEntities(origin(), candidates, &out)
	assert.Equal(t, []ecs.Entity{d1, d3, d2}, entitiesOf(&out))
}

func TestVisibleEntitiesTransparentBackToFront(t *testing.T) {
	near, far, opaque := ecs.NewEntity(1, 1), ecs.NewEntity(2, 1), ecs.NewEntity(3, 1)
	glass := camera.Visible{IsVisible: true, IsTransparent: true}
	candidates := []camera.Candidate{
		{Entity: near, Visible: glass, Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{0.2, 0, 0})},
		{Entity: far, Visible: glass, Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{2, 0, 0})},
		{Entity: opaque, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{3, 0, 0})},
	}

	var out camera.VisibleEntities
	camera.ComputeVisibleEntities(origin(), candidates, &out)
	assert.Equal(t, []ecs.Entity{opaque, far, near}, entitiesOf(&out))
}

func TestVisibleEntitiesFiltering(t *testing.T) {
	shown := ecs.NewEntity(1, 1)
	hidden := ecs.NewEntity(2, 1)
	culled := ecs.NewEntity(3, 1)
	otherLayer := ecs.NewEntity(4, 1)

	candidates := []camera.Candidate{
		{Entity: shown, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers},
		{Entity: hidden, Visible: camera.Visible{IsVisible: false}, Layers: camera.DefaultRenderLayers},
		{Entity: culled, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers, OutsideFrustum: true},
		{Entity: otherLayer, Visible: camera.DefaultVisible(), Layers: camera.Layers(2)},
	}

	out := camera.VisibleEntities{Entities: []camera.VisibleEntity{{Entity: ecs.NewEntity(9, 9)}}}
	camera.ComputeVisibleEntities(origin(), candidates, &out)
	assert.Equal(t, []ecs.Entity{shown}, entitiesOf(&out))

	layered := origin()
	layered.Layers = camera.Layers(0, 2)
	camera.ComputeVisibleEntities(layered, candidates, &out)
	assert.Equal(t, []ecs.Entity{shown, otherLayer}, entitiesOf(&out))
}

func TestVisibleEntitiesWithoutPose(t *testing.T) {
	a, b, c := ecs.NewEntity(1, 1), ecs.NewEntity(2, 1), ecs.NewEntity(3, 1)
	candidates := []camera.Candidate{
		{Entity: a, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers},
		{Entity: b, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers},
		{Entity: c, Visible: camera.DefaultVisible(), Layers: camera.DefaultRenderLayers, Global: poseAt(mgl64.Vec3{0.2, 0, 0})},
	}

	var out camera.VisibleEntities
	camera.ComputeVisibleEntities(origin(), candidates, &out)
	require.Len(t, out.Entities, 3)
	assert.Equal(t, camera.VisibleEntity{Entity: a, Order: 0}, out.Entities[0])
	assert.Equal(t, c, out.Entities[1].Entity)
	assert.Equal(t, camera.VisibleEntity{Entity: b, Order: camera.NoPoseOrderStep}, out.Entities[2])
}

type scene struct {
	storage   *ecs.Storage
	scheduler *ecs.Scheduler
}

func newScene(workers int) *scene {
	registry := ecs.NewComponentRegistry()
	transform.RegisterComponents(registry)
	camera.RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	scheduler := ecs.NewScheduler(storage)
	transform.AddSystems(scheduler)
	camera.AddSystems(scheduler, workers)
	return &scene{storage: storage, scheduler: scheduler}
}

func (s *scene) spawnVisible(at mgl64.Vec3, extra ...any) ecs.Entity {
	return transform.Spawn(s.storage, transform.FromTranslation(at), ecs.Invalid,
		append([]any{camera.DefaultVisible()}, extra...)...)
}

func (s *scene) visible(t *testing.T, cam ecs.Entity) []ecs.Entity {
	t.Helper()
	v, ok := ecs.Get[camera.VisibleEntities](s.storage, cam)
	require.True(t, ok)
	return entitiesOf(v)
}

func TestVisibleEntitiesSystem(t *testing.T) {
	for _, workers := range []int{1, 4} {
		s := newScene(workers)

		cam := camera.SpawnPerspectiveCamera(s.storage, "", transform.Identity())
		ui := camera.SpawnPerspectiveCamera(s.storage, "ui", transform.Identity(), camera.Layers(1))

		far := s.spawnVisible(mgl64.Vec3{0, 0, 1})
		near := s.spawnVisible(mgl64.Vec3{0.1, 0, 0})
		overlay := s.spawnVisible(mgl64.Vec3{0.3, 0, 0}, camera.Layers(1))
		s.spawnVisible(mgl64.Vec3{0.2, 0, 0}, camera.OutsideFrustum{})

		// a child inherits its parent's pose before visibility runs
		child := transform.Spawn(s.storage, transform.FromTranslation(mgl64.Vec3{0, 0, -0.8}), far, camera.DefaultVisible())

		require.NoError(t, s.scheduler.Once(0))
		assert.Equal(t, []ecs.Entity{near, child, far}, s.visible(t, cam), "workers=%d", workers)
		assert.Equal(t, []ecs.Entity{overlay}, s.visible(t, ui), "workers=%d", workers)

		s.storage.Despawn(near)
		require.NoError(t, s.scheduler.Once(0))
		assert.Equal(t, []ecs.Entity{child, far}, s.visible(t, cam), "workers=%d", workers)
	}
}

func TestVisibleEntitiesWarnsOnZDifference(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	transform.RegisterComponents(registry)
	camera.RegisterComponents(registry)
	storage := ecs.NewStorage(registry)

	var buf bytes.Buffer
	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&camera.VisibleEntitiesSystem{Log: log.New(&buf, "", 0)})

	cam := camera.SpawnPerspectiveCamera(storage, "legacy", transform.Identity())
	ecs.Set(storage, cam, camera.Camera{Name: "legacy", DepthCalculation: camera.DepthZDifference})
	a := transform.Spawn(storage, transform.FromTranslation(mgl64.Vec3{0.5, 0, 0}), ecs.Invalid, camera.DefaultVisible())
	b := transform.Spawn(storage, transform.FromTranslation(mgl64.Vec3{0.1, 0, 0}), ecs.Invalid, camera.DefaultVisible())
	ecs.Set(storage, a, transform.GlobalFromTranslation(mgl64.Vec3{0.5, 0, 0}))
	ecs.Set(storage, b, transform.GlobalFromTranslation(mgl64.Vec3{0.1, 0, 0}))

	require.NoError(t, scheduler.Once(0))
	assert.Contains(t, buf.String(), "warning: camera "+cam.String()+" (legacy) uses ZDifference depth")

	// later ticks stay quiet for the same camera
	require.NoError(t, scheduler.Once(0))
	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, 1, strings.Count(buf.String(), "uses ZDifference depth"))

	v, _ := ecs.Get[camera.VisibleEntities](storage, cam)
	assert.Equal(t, []ecs.Entity{b, a}, entitiesOf(v))
}

func TestCameraSystemTracksViewport(t *testing.T) {
	s := newScene(1)
	cam := camera.SpawnPerspectiveCamera(s.storage, "", transform.Identity())

	require.NoError(t, s.scheduler.Once(0))
	c, _ := ecs.Get[camera.Camera](s.storage, cam)
	assert.NotEqual(t, mgl64.Mat4{}, c.ProjectionMatrix)
	assert.InDelta(t, c.ProjectionMatrix.At(1, 1), c.ProjectionMatrix.At(0, 0), 1e-12)

	viewport := ecs.NewSingleton[camera.Viewport](s.storage, camera.Viewport{Width: 1280, Height: 640})
	require.NoError(t, s.scheduler.Once(0))
	p, _ := ecs.Get[camera.PerspectiveProjection](s.storage, cam)
	assert.Equal(t, 2.0, p.AspectRatio)
	assert.InDelta(t, c.ProjectionMatrix.At(1, 1)/2, c.ProjectionMatrix.At(0, 0), 1e-12)

	viewport.Get().Height = 1280
	require.NoError(t, s.scheduler.Once(0))
	assert.Equal(t, 1.0, p.AspectRatio)

	// a degenerate projection fails the tick
	p.Fov = 0
	viewport.Get().Width = 640
	err := s.scheduler.Once(0)
	assert.ErrorIs(t, err, camera.ErrDegenerateProjection)
	assert.Contains(t, err.Error(), "system CameraSystem")
}

func TestActiveCameras(t *testing.T) {
	s := newScene(1)
	ecs.NewSingleton(s.storage, camera.NewActiveCameras(camera.Camera3D, "minimap"))

	main := camera.SpawnPerspectiveCamera(s.storage, "", transform.Identity())
	camera.SpawnPerspectiveCamera(s.storage, "other", transform.Identity())

	require.NoError(t, s.scheduler.Once(0))
	active := ecs.NewSingleton[camera.ActiveCameras](s.storage).Get()

	got, ok := active.Get(camera.Camera3D)
	require.True(t, ok)
	assert.Equal(t, main, got)
	_, ok = active.Get("minimap")
	assert.False(t, ok)
	_, ok = active.Get("other")
	assert.False(t, ok, "untracked names are not bound")

	replacement := camera.SpawnPerspectiveCamera(s.storage, "", transform.Identity())
	s.storage.Despawn(main)
	require.NoError(t, s.scheduler.Once(0))
	got, ok = active.Get(camera.Camera3D)
	require.True(t, ok)
	assert.Equal(t, replacement, got)
	assert.Equal(t, []string{camera.Camera3D, "minimap"}, active.Names())
}
