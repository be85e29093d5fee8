package debugui

import "github.com/plus3/spherical/ecs"

// SpawnDebugUI spawns one ImguiItem per inspector window. The windows share
// a selection: picking an entity in the hierarchy or visibility window
// selects it in the browser and the component inspector. scheduler may be
// nil, in which case the system timings table is hidden. The ImguiInputState
// singleton is created when missing.
func SpawnDebugUI(storage *ecs.Storage, scheduler *ecs.Scheduler) {
	browser := NewEntityBrowserComponent(100)
	inspector := NewComponentInspectorComponent()
	hierarchy := NewHierarchyViewerComponent()
	visibility := NewVisibilityViewerComponent()
	perf := NewPerformanceStatsComponent(120)
	timer := NewFrameTimer()

	ecs.NewSingleton[ImguiInputState](storage)

	storage.Spawn(ImguiItem{Render: func() {
		browser.Render(storage)
		inspector.Render(storage, browser.GetSelectedEntity())
	}})
	storage.Spawn(ImguiItem{Render: func() {
		if picked := hierarchy.Render(storage); picked != nil {
			browser.SetSelectedEntity(*picked)
		}
	}})
	storage.Spawn(ImguiItem{Render: func() {
		if picked := visibility.Render(storage); picked != nil {
			browser.SetSelectedEntity(*picked)
		}
	}})
	storage.Spawn(ImguiItem{Render: func() {
		perf.Render(storage, scheduler, timer.GetDeltaTime())
	}})
}

func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
	ecs.RegisterComponent[ImguiInputState](registry)
}
