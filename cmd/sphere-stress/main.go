// Command sphere-stress drives propagation, parent updates, visibility and
// light packing over a generated transform forest and prints a report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/render/camera"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	depth := flag.Int("depth", 4, "Levels in the transform hierarchy.")
	cameras := flag.Int("cameras", 4, "Cameras running the visibility pass.")
	lights := flag.Int("lights", 4, "Point lights packed each tick.")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "Goroutines used for per-camera visibility.")
	churn := flag.Float64("churn", 0.01, "Fraction of non-root entities reparented and of leaves respawned per tick.")
	seed := flag.Uint64("seed", 1, "Seed for the generated world.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	log.Println("Starting spherical stress test...")

	cfg := Config{
		Entities: *entityCount,
		Depth:    *depth,
		Cameras:  *cameras,
		Lights:   *lights,
		Workers:  *workers,
		Churn:    *churn,
		Seed:     *seed,
	}

	log.Printf("Populating storage with %d entities over %d levels...\n", cfg.Entities, cfg.Depth)
	world := NewWorld(cfg)
	log.Println("Population complete.")

	report := &Report{
		Duration:       *duration,
		Config:         cfg,
		GCPauseMetrics: *gcPauseMetrics,
	}

	log.Printf("Running simulation for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	if err := Run(ctx, world, report); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	log.Println("Simulation finished.")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}

// Run ticks the world until ctx is done and fills the result half of
// report. A system error ends the run early and is returned.
func Run(ctx context.Context, world *World, report *Report) error {
	runtime.ReadMemStats(&report.MemStatsStart)

	startTime := time.Now()
	lastFrameTime := startTime
	var runErr error

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			err := world.Scheduler.Once(deltaTime.Seconds())
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
			if err != nil {
				runErr = err
				break Loop
			}
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	report.FinalEntities = world.Storage.Len()
	report.Reparented = world.Churn.Reparented
	report.Respawned = world.Churn.Respawned
	report.Scheduler = world.Scheduler.GetStats()

	var visible int
	for _, cam := range world.Cameras {
		if v, ok := ecs.Get[camera.VisibleEntities](world.Storage, cam); ok {
			visible += v.Len()
		}
	}
	if len(world.Cameras) > 0 {
		report.VisiblePerCam = float64(visible) / float64(len(world.Cameras))
	}

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return nil
	}
	return runErr
}
