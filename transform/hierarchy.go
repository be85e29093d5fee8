package transform

import (
	"slices"

	"github.com/plus3/spherical/ecs"
)

// Parent points at the entity whose world pose this entity's Transform is
// relative to. It is a lookup, not ownership: the parent may be despawned
// and the child then propagates as a root.
type Parent struct {
	Entity ecs.Entity
}

// Children is the ordered list of child ids owned by a parent. Propagation
// visits children in this order. ParentUpdateSystem maintains it from the
// Parent components.
type Children struct {
	Entities []ecs.Entity
}

// PreviousParent records the parent ParentUpdateSystem last saw.
type PreviousParent struct {
	Entity ecs.Entity
}

func (c *Children) Contains(e ecs.Entity) bool {
	return slices.Contains(c.Entities, e)
}

// Remove drops every occurrence of e and reports whether any was found.
func (c *Children) Remove(e ecs.Entity) bool {
	n := len(c.Entities)
	c.Entities = slices.DeleteFunc(c.Entities, func(id ecs.Entity) bool { return id == e })
	return len(c.Entities) != n
}

// RegisterComponents registers every component type this package defines.
func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[GlobalTransform](registry)
	ecs.RegisterComponent[Parent](registry)
	ecs.RegisterComponent[Children](registry)
	ecs.RegisterComponent[PreviousParent](registry)
}

// AddSystems registers the hierarchy maintenance and propagation systems in
// the order they must run. Systems that read GlobalTransform must be
// registered afterwards.
func AddSystems(scheduler *ecs.Scheduler) {
	scheduler.Register(&ParentUpdateSystem{})
	scheduler.Register(&PropagateSystem{})
}

// Spawn creates an entity with a local pose, an identity world pose and,
// when parent is valid, a Parent link. The parent's Children list is filled
// in by ParentUpdateSystem.
func Spawn(storage *ecs.Storage, local Transform, parent ecs.Entity, extra ...any) ecs.Entity {
	components := append([]any{local, GlobalIdentity()}, extra...)
	if parent != ecs.Invalid {
		components = append(components, Parent{Entity: parent})
	}
	return storage.Spawn(components...)
}
