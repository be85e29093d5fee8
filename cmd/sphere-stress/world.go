package main

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kamstrup/intmap"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/pbr"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
)

// Config sizes the generated world.
type Config struct {
	Entities int
	Depth    int
	Cameras  int
	Lights   int
	Workers  int
	Churn    float64
	Seed     uint64
}

// Spin rotates an entity about its own origin every tick.
type Spin struct {
	Rate float64
}

// World is the generated scene plus its scheduler.
type World struct {
	Storage   *ecs.Storage
	Scheduler *ecs.Scheduler
	Cameras   []ecs.Entity
	Levels    [][]ecs.Entity
	Churn     *ChurnSystem
}

// NewWorld spreads cfg.Entities across cfg.Depth levels of a transform
// forest. Every entity parents to a random entity of the level above and
// is visible on one of two layers. Cameras alternate between those layers.
func NewWorld(cfg Config) *World {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	registry := ecs.NewComponentRegistry()
	transform.RegisterComponents(registry)
	camera.RegisterComponents(registry)
	pbr.RegisterComponents(registry)
	ecs.RegisterComponent[Spin](registry)
	storage := ecs.NewStorage(registry)

	churn := &ChurnSystem{Rate: cfg.Churn, rng: rng}
	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&SpinSystem{})
	scheduler.Register(churn)
	transform.AddSystems(scheduler)
	camera.AddSystems(scheduler, cfg.Workers)
	pbr.AddSystems(scheduler, storage)

	w := &World{Storage: storage, Scheduler: scheduler, Churn: churn}

	depth := max(cfg.Depth, 1)
	perLevel := max(cfg.Entities/depth, 1)
	for level := range depth {
		var row []ecs.Entity
		for range perLevel {
			parent := ecs.Invalid
			if level > 0 {
				above := w.Levels[level-1]
				parent = above[rng.IntN(len(above))]
			}
			row = append(row, spawnNode(storage, rng, parent))
		}
		w.Levels = append(w.Levels, row)
	}
	churn.levels = w.Levels

	for i := range cfg.Cameras {
		pose := randomTranslation(rng, math.Pi)
		w.Cameras = append(w.Cameras, camera.SpawnPerspectiveCamera(storage, "", pose, camera.Layers(camera.Layer(i%2))))
	}
	for range cfg.Lights {
		transform.Spawn(storage, randomTranslation(rng, math.Pi), ecs.Invalid, pbr.DefaultLight())
	}

	return w
}

func spawnNode(storage *ecs.Storage, rng *rand.Rand, parent ecs.Entity) ecs.Entity {
	visible := camera.DefaultVisible()
	visible.IsTransparent = rng.IntN(4) == 0
	return transform.Spawn(storage, randomTranslation(rng, 0.5), parent,
		visible,
		camera.Layers(camera.Layer(rng.IntN(2))),
		Spin{Rate: rng.Float64() - 0.5},
	)
}

func randomTranslation(rng *rand.Rand, maxAngle float64) transform.Transform {
	v := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	if v.Len() == 0 {
		return transform.Identity()
	}
	return transform.FromTranslation(v.Normalize().Mul(rng.Float64() * maxAngle))
}

// SpinSystem turns every spinning entity about its local Y axis.
type SpinSystem struct {
	Spinning ecs.Query[struct {
		*Spin
		Local *transform.Transform
	}]
}

func (s *SpinSystem) Execute(frame *ecs.UpdateFrame) error {
	for item := range s.Spinning.Iter() {
		q := mgl64.QuatRotate(item.Rate*frame.DeltaTime, mgl64.Vec3{0, 1, 0})
		*item.Local = item.Local.Mul(transform.FromRotation(q))
	}
	return nil
}

// ChurnSystem reparents a Rate fraction of the non-root entities each tick
// and despawns then respawns as many leaves, so the parent-update pass has
// real work. Reparenting writes Parent directly; despawns and spawns go
// through Commands.
type ChurnSystem struct {
	Rate float64

	Reparented int64
	Respawned  int64

	rng    *rand.Rand
	levels [][]ecs.Entity
}

func (s *ChurnSystem) Execute(frame *ecs.UpdateFrame) error {
	if s.Rate <= 0 || len(s.levels) < 2 {
		return nil
	}

	storage := frame.Storage
	for level := 1; level < len(s.levels); level++ {
		row, above := s.levels[level], s.levels[level-1]
		n := int(s.Rate * float64(len(row)))
		for range n {
			child := row[s.rng.IntN(len(row))]
			parent := above[s.rng.IntN(len(above))]
			if storage.Alive(child) && storage.Alive(parent) {
				ecs.Set(storage, child, transform.Parent{Entity: parent})
				s.Reparented++
			}
		}
	}

	leaves := s.levels[len(s.levels)-1]
	parents := s.levels[len(s.levels)-2]
	n := int(s.Rate * float64(len(leaves)))
	picked := intmap.New[int, bool](n)
	for range n {
		i := s.rng.IntN(len(leaves))
		if picked.Has(i) {
			continue
		}
		picked.Put(i, true)
		old := leaves[i]
		parent := parents[s.rng.IntN(len(parents))]
		frame.Commands.Despawn(old)

		// the replacement's id is only known once commands flush
		frame.Commands.Defer(func() {
			leaves[i] = spawnNode(storage, s.rng, parent)
		})
		s.Respawned++
	}
	return nil
}
