package transform

import (
	"github.com/plus3/spherical/ecs"
)

// NormalizeSystem renormalises every local pose once every Interval ticks
// (every tick when Interval is 0) to bound accumulated drift from repeated
// composition. It is never registered by AddSystems; pick a cadence that
// suits how often poses are edited.
type NormalizeSystem struct {
	Interval   uint64
	Transforms ecs.Query[struct{ *Transform }]
}

func (s *NormalizeSystem) Execute(frame *ecs.UpdateFrame) error {
	if s.Interval > 1 && frame.Tick%s.Interval != 0 {
		return nil
	}
	for item := range s.Transforms.Iter() {
		*item.Transform = item.Transform.Normalize()
	}
	return nil
}
