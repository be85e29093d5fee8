package debugui

import (
	"github.com/plus3/spherical/ecs"
)

type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	selectedEntity     ecs.Entity
	filterText         string
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	selectedEntity ecs.Entity
}

type HierarchyViewerComponent struct {
	cache *HierarchyCache
}

type VisibilityViewerComponent struct {
	selectedCamera ecs.Entity
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}
