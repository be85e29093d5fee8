// Command sphere-view flies a camera through a scene laid out on the
// 3-sphere. Cubes are drawn as shaded squares in the order the visibility
// pass produces; -debug adds the ImGui inspectors.
package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/ecs/debugui"
	debugui_ebiten "github.com/plus3/spherical/ecs/debugui/ebiten"
	"github.com/plus3/spherical/pbr"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
)

const title = "sphere-view"

func main() {
	scenePath := flag.String("scene", "", "JSON scene file. The built-in ring scene is used when empty.")
	width := flag.Int("width", 1280, "Initial window width.")
	height := flag.Int("height", 720, "Initial window height.")
	debug := flag.Bool("debug", false, "Show the ImGui entity, hierarchy and visibility inspectors.")
	workers := flag.Int("workers", 1, "Goroutines used for per-camera visibility.")
	normalizeEvery := flag.Uint64("normalize-every", 60, "Renormalize local transforms every N ticks.")
	flag.Parse()

	scene := DefaultScene()
	if *scenePath != "" {
		var err error
		if scene, err = LoadScene(*scenePath); err != nil {
			log.Fatalf("Failed to load scene: %v", err)
		}
	}

	storage, scheduler := newWorld(*workers, *normalizeEvery)

	var backend *debugui_ebiten.ImguiBackend
	if *debug {
		b := debugui_ebiten.NewImguiBackend(title, *width, *height)
		backend = &b
		scheduler.Register(&debugui.ImguiSystem{})
		debugui.SpawnDebugUI(storage, scheduler)
	} else {
		ebiten.SetWindowTitle(title)
		ebiten.SetWindowSize(*width, *height)
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if _, err := scene.Spawn(storage); err != nil {
		log.Fatalf("Failed to spawn scene: %v", err)
	}
	log.Printf("Spawned %d entities", storage.Len())

	if err := ebiten.RunGame(NewGame(storage, scheduler, backend)); err != nil {
		log.Fatalf("sphere-view: %v", err)
	}
}

// newWorld registers every component and system the viewer runs. The
// controller moves the camera before normalization and propagation, and
// cameras, visibility and lights read the propagated poses.
func newWorld(workers int, normalizeEvery uint64) (*ecs.Storage, *ecs.Scheduler) {
	registry := ecs.NewComponentRegistry()
	transform.RegisterComponents(registry)
	camera.RegisterComponents(registry)
	pbr.RegisterComponents(registry)
	debugui.RegisterDebugUIComponents(registry)
	ecs.RegisterComponent[Cube](registry)
	ecs.RegisterComponent[Controlled](registry)

	storage := ecs.NewStorage(registry)
	ecs.NewSingleton[Input](storage)
	ecs.NewSingleton(storage, camera.NewActiveCameras())

	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&CameraControllerSystem{})
	scheduler.Register(&transform.NormalizeSystem{Interval: normalizeEvery})
	transform.AddSystems(scheduler)
	camera.AddSystems(scheduler, workers)
	pbr.AddSystems(scheduler, storage)
	return storage, scheduler
}
