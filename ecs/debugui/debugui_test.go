package debugui_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/biquat"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/ecs/debugui"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorld(t *testing.T) (*ecs.Storage, *ecs.Scheduler) {
	t.Helper()
	registry := ecs.NewComponentRegistry()
	transform.RegisterComponents(registry)
	camera.RegisterComponents(registry)
	debugui.RegisterDebugUIComponents(registry)
	storage := ecs.NewStorage(registry)

	scheduler := ecs.NewScheduler(storage)
	transform.AddSystems(scheduler)
	camera.AddSystems(scheduler, 1)
	return storage, scheduler
}

// ============================================================================
// Hierarchy
// ============================================================================

func TestBuildHierarchy(t *testing.T) {
	storage, scheduler := newWorld(t)

	root := transform.Spawn(storage, transform.FromTranslation(mgl64.Vec3{0.1, 0, 0}), ecs.Invalid)
	child := transform.Spawn(storage, transform.Identity(), root)
	grandchild := transform.Spawn(storage, transform.Identity(), child)
	sibling := transform.Spawn(storage, transform.Identity(), root)
	cam := camera.SpawnPerspectiveCamera(storage, "main", transform.Identity())
	storage.Spawn(camera.DefaultVisible())

	require.NoError(t, scheduler.Once(0))

	forest := debugui.BuildHierarchy(storage)
	require.Len(t, forest, 2)

	assert.Equal(t, root, forest[0].Entity)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, child, forest[0].Children[0].Entity)
	assert.Equal(t, sibling, forest[0].Children[1].Entity)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, grandchild, forest[0].Children[0].Children[0].Entity)

	// world poses are copied from the propagated GlobalTransform
	assert.True(t, forest[0].Children[0].Children[0].HasPose)
	assert.InDelta(t, math.Sin(0.1), forest[0].Children[0].Children[0].Position[0], 1e-9)

	assert.Equal(t, cam, forest[1].Entity)
	assert.Contains(t, forest[1].Label, "[camera main]")
}

func TestBuildHierarchySurvivesCycles(t *testing.T) {
	storage, _ := newWorld(t)

	a := storage.Spawn(transform.Identity(), transform.GlobalIdentity())
	b := storage.Spawn(transform.Identity(), transform.GlobalIdentity(), transform.Parent{Entity: a})
	storage.AddComponent(a, transform.Parent{Entity: b})
	storage.AddComponent(a, transform.Children{Entities: []ecs.Entity{b}})
	storage.AddComponent(b, transform.Children{Entities: []ecs.Entity{a}})

	forest := debugui.BuildHierarchy(storage)
	require.Len(t, forest, 1)
	assert.Equal(t, a, forest[0].Entity)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, b, forest[0].Children[0].Entity)
	assert.Empty(t, forest[0].Children[0].Children)
}

func TestBuildHierarchyDeadParentIsRoot(t *testing.T) {
	storage, scheduler := newWorld(t)

	parent := transform.Spawn(storage, transform.Identity(), ecs.Invalid)
	child := transform.Spawn(storage, transform.Identity(), parent)
	require.NoError(t, scheduler.Once(0))

	storage.Despawn(parent)
	forest := debugui.BuildHierarchy(storage)
	require.Len(t, forest, 1)
	assert.Equal(t, child, forest[0].Entity)
}

// ============================================================================
// Visibility
// ============================================================================

func TestCollectCameraVisibility(t *testing.T) {
	storage, scheduler := newWorld(t)
	ecs.NewSingleton(storage, camera.NewActiveCameras())

	cam := camera.SpawnPerspectiveCamera(storage, "", transform.Identity())
	ui := camera.SpawnPerspectiveCamera(storage, "ui", transform.Identity(), camera.Layers(1))

	near := transform.Spawn(storage, transform.FromTranslation(mgl64.Vec3{0.1, 0, 0}), ecs.Invalid, camera.DefaultVisible())
	glass := transform.Spawn(storage, transform.FromTranslation(mgl64.Vec3{0.2, 0, 0}), ecs.Invalid,
		camera.Visible{IsVisible: true, IsTransparent: true})

	require.NoError(t, scheduler.Once(0))

	views := debugui.CollectCameraVisibility(storage)
	require.Len(t, views, 2)

	main := views[0]
	assert.Equal(t, cam, main.Entity)
	assert.Equal(t, camera.Camera3D, main.Name)
	assert.Equal(t, []string{camera.Camera3D}, main.ActiveAs)
	assert.Equal(t, camera.DefaultRenderLayers, main.Layers)
	require.Len(t, main.Entries, 2)
	assert.Equal(t, near, main.Entries[0].Entity)
	assert.Equal(t, glass, main.Entries[1].Entity)
	assert.Equal(t, []bool{false, true}, main.Transparent)

	assert.Equal(t, ui, views[1].Entity)
	assert.Empty(t, views[1].ActiveAs)
	assert.Equal(t, camera.Layers(1), views[1].Layers)
	assert.Empty(t, views[1].Entries)
}

// ============================================================================
// Component inspector helpers
// ============================================================================

func TestPoseSummary(t *testing.T) {
	local := transform.Identity()
	summary, ok := debugui.PoseSummary(&local)
	require.True(t, ok)
	assert.Equal(t, "origin -> (0.0000, 0.0000, 0.0000, 1.0000) normalized=true", summary)

	global := transform.GlobalIdentity()
	global.Biquat = global.Biquat.Scale(2)
	summary, ok = debugui.PoseSummary(&global)
	require.True(t, ok)
	assert.Contains(t, summary, "normalized=false")

	_, ok = debugui.PoseSummary(&camera.Camera{})
	assert.False(t, ok)
}

func TestReflectionCache(t *testing.T) {
	cache := debugui.NewReflectionCache()

	fields := cache.GetFields(reflect.TypeFor[camera.Candidate]())
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"Entity", "Visible", "Layers", "OutsideFrustum", "Global"}, names)

	assert.Equal(t, debugui.FieldEntity, fields[0].Kind)
	assert.Equal(t, debugui.FieldStruct, fields[1].Kind)
	assert.Equal(t, debugui.FieldValue, fields[3].Kind)

	global := fields[4]
	assert.True(t, global.Pointer)
	assert.Equal(t, debugui.FieldStruct, global.Kind)
	assert.Equal(t, reflect.TypeFor[transform.GlobalTransform](), global.Type)

	assert.Nil(t, cache.GetFields(reflect.TypeFor[float64]()))
	assert.Equal(t, 2, cache.Len())

	// repeated lookups hit the cache
	cache.GetFields(reflect.TypeFor[camera.Candidate]())
	assert.Equal(t, 2, cache.Len())

	matrix := cache.GetFields(reflect.TypeFor[camera.Camera]())
	require.Len(t, matrix, 3)
	assert.Equal(t, debugui.FieldVector, matrix[1].Kind)

	pose := cache.GetFields(reflect.TypeFor[biquat.Biquaternion]())
	require.Len(t, pose, 2)
	assert.Equal(t, debugui.FieldQuat, pose[0].Kind)
	assert.Equal(t, debugui.FieldQuat, pose[1].Kind)
	assert.Equal(t, 4, cache.Len())
}

// ============================================================================
// ImguiSystem wiring
// ============================================================================

func TestSpawnDebugUI(t *testing.T) {
	storage, scheduler := newWorld(t)
	debugui.SpawnDebugUI(storage, scheduler)

	items := ecs.NewView[struct{ *debugui.ImguiItem }](storage)
	count := 0
	for _, item := range items.Iter() {
		assert.NotNil(t, item.Render)
		count++
	}
	assert.Equal(t, 4, count)
	assert.True(t, ecs.NewSingleton[debugui.ImguiInputState](storage).Exists())
}
