package camera

import (
	"cmp"
	"log"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kamstrup/intmap"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/transform"
	"golang.org/x/sync/errgroup"
)

// Visible marks an entity as a draw candidate.
type Visible struct {
	IsVisible     bool
	IsTransparent bool
}

func DefaultVisible() Visible {
	return Visible{IsVisible: true}
}

// OutsideFrustum is set on entities culled by an earlier pass; visibility
// skips them.
type OutsideFrustum struct{}

// VisibleEntity is one entry of a camera's draw list. Order is the sort key:
// squared ambient distance to the camera, or a synthetic value for entities
// without a world pose.
type VisibleEntity struct {
	Entity ecs.Entity
	Order  float64
}

// VisibleEntities is a camera's draw list: opaque entities front to back,
// then transparent entities back to front. It is rebuilt every tick.
type VisibleEntities struct {
	Entities []VisibleEntity
}

func (v *VisibleEntities) Len() int {
	return len(v.Entities)
}

// NoPoseOrderStep separates the synthetic sort keys of consecutive
// candidates that have no world pose.
const NoPoseOrderStep = 0.1

// CameraView is what the visibility pass needs to know about one camera.
type CameraView struct {
	Position mgl64.Vec4
	Layers   RenderLayers
}

// Candidate is one potentially visible entity. Global is nil for entities
// without a world pose.
type Candidate struct {
	Entity         ecs.Entity
	Visible        Visible
	Layers         RenderLayers
	OutsideFrustum bool
	Global         *transform.GlobalTransform
}

// ComputeVisibleEntities rebuilds out for one camera. out is cleared first
// and only out is written, so distinct cameras may run concurrently over
// the same candidates.
func ComputeVisibleEntities(view CameraView, candidates []Candidate, out *VisibleEntities) {
	out.Entities = out.Entities[:0]

	noPoseOrder := 0.0
	var transparent []VisibleEntity

	for i := range candidates {
		c := &candidates[i]
		if !c.Visible.IsVisible || c.OutsideFrustum {
			continue
		}
		if !view.Layers.Intersects(c.Layers) {
			continue
		}

		var order float64
		if c.Global != nil {
			d := view.Position.Sub(c.Global.Position())
			order = d.Dot(d)
		} else {
			order = noPoseOrder
			noPoseOrder += NoPoseOrderStep
		}

		entry := VisibleEntity{Entity: c.Entity, Order: order}
		if c.Visible.IsTransparent {
			transparent = append(transparent, entry)
		} else {
			out.Entities = append(out.Entities, entry)
		}
	}

	slices.SortStableFunc(out.Entities, func(a, b VisibleEntity) int {
		return cmp.Compare(a.Order, b.Order)
	})
	slices.SortStableFunc(transparent, func(a, b VisibleEntity) int {
		return cmp.Compare(b.Order, a.Order)
	})

	out.Entities = append(out.Entities, transparent...)
}

// VisibleEntitiesSystem rebuilds every camera's VisibleEntities from the
// propagated world poses. With Workers > 1 cameras are processed
// concurrently, at most Workers at a time.
type VisibleEntitiesSystem struct {
	Cameras ecs.Query[struct {
		ecs.Entity
		*Camera
		Global  *transform.GlobalTransform
		Visible *VisibleEntities
		Layers  *RenderLayers `ecs:"optional"`
	}]
	Candidates ecs.Query[struct {
		ecs.Entity
		*Visible
		Layers  *RenderLayers              `ecs:"optional"`
		Global  *transform.GlobalTransform `ecs:"optional"`
		Outside *OutsideFrustum            `ecs:"optional"`
	}]

	Workers int
	Log     *log.Logger

	candidates []Candidate
	// cameras already warned about ZDifference depth
	warned *intmap.Map[ecs.Entity, bool]
}

func (s *VisibleEntitiesSystem) logger() *log.Logger {
	if s.Log != nil {
		return s.Log
	}
	return log.Default()
}

func (s *VisibleEntitiesSystem) Execute(frame *ecs.UpdateFrame) error {
	if s.warned == nil {
		s.warned = intmap.New[ecs.Entity, bool](4)
	}

	s.candidates = s.candidates[:0]
	for item := range s.Candidates.Iter() {
		s.candidates = append(s.candidates, Candidate{
			Entity:         item.Entity,
			Visible:        *item.Visible,
			Layers:         layersOrDefault(item.Layers),
			OutsideFrustum: item.Outside != nil,
			Global:         item.Global,
		})
	}

	var g errgroup.Group
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}

	for item := range s.Cameras.Iter() {
		if item.Camera.DepthCalculation == DepthZDifference && !s.warned.Has(item.Entity) {
			s.warned.Put(item.Entity, true)
			s.logger().Printf("warning: camera %s (%s) uses ZDifference depth, which has no meaning on the sphere; ordering by distance", item.Entity, item.Camera.Name)
		}

		view := CameraView{
			Position: item.Global.Position(),
			Layers:   layersOrDefault(item.Layers),
		}
		out := item.Visible
		if s.Workers <= 1 {
			ComputeVisibleEntities(view, s.candidates, out)
			continue
		}
		g.Go(func() error {
			ComputeVisibleEntities(view, s.candidates, out)
			return nil
		})
	}
	return g.Wait()
}

func layersOrDefault(l *RenderLayers) RenderLayers {
	if l == nil {
		return DefaultRenderLayers
	}
	return *l
}
