package debugui

import (
	"testing"

	"github.com/plus3/spherical/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browserPosition struct{ X, Y float64 }
type browserTag struct{}

func TestEntityBrowserCache(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[browserPosition](registry)
	ecs.RegisterComponent[browserTag](registry)
	storage := ecs.NewStorage(registry)

	a := storage.Spawn(browserPosition{})
	b := storage.Spawn(browserPosition{}, browserTag{})
	c := storage.Spawn(browserTag{})

	eb := NewEntityBrowserComponent(10)
	eb.rebuildCacheIfNeeded(storage)
	require.Len(t, eb.cache.entities, 3)
	assert.Equal(t, a, eb.cache.entities[0].ID)
	assert.Equal(t, []string{"debugui.browserPosition", "debugui.browserTag"}, eb.cache.entities[1].ComponentTypes)

	eb.filterText = "TAG"
	filtered := eb.getFilteredEntities()
	require.Len(t, filtered, 2)
	assert.Equal(t, b, filtered[0].ID)
	assert.Equal(t, c, filtered[1].ID)

	eb.filterText = ""
	eb.cache.sortColumn = 2
	eb.cache.sortAscending = false
	eb.sortEntities()
	assert.Equal(t, b, eb.cache.entities[0].ID)

	// despawning changes the live count and drops the cache
	storage.Despawn(b)
	eb.rebuildCacheIfNeeded(storage)
	require.Len(t, eb.cache.entities, 2)
	for _, info := range eb.cache.entities {
		assert.NotEqual(t, b, info.ID)
	}
}

func TestPerformanceStatsHistory(t *testing.T) {
	ps := NewPerformanceStatsComponent(4)
	for _, dt := range []float32{0.01, 0.02, 0.03, 0.04, 0.05} {
		ps.Record(dt)
	}
	// the first sample was overwritten
	assert.InDelta(t, 35.0, ps.AverageFrameTime(), 1e-4)
	assert.Equal(t, 1, ps.frameIndex)
}
