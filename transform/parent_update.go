package transform

import (
	"reflect"

	"github.com/plus3/spherical/ecs"
)

var previousParentType = reflect.TypeFor[PreviousParent]()

// ParentUpdateSystem keeps every Children list in step with the Parent
// components. It edits the store directly rather than through Commands so
// that propagation later in the same tick sees the new links.
type ParentUpdateSystem struct {
	Linked ecs.Query[struct {
		ecs.Entity
		*Parent
		Previous *PreviousParent `ecs:"optional"`
	}]
	Unlinked ecs.Query[struct {
		ecs.Entity
		*PreviousParent
		Parent *Parent `ecs:"optional"`
	}]
	Parents ecs.Query[struct {
		ecs.Entity
		*Children
	}]
}

func (s *ParentUpdateSystem) Execute(frame *ecs.UpdateFrame) error {
	storage := frame.Storage

	for item := range s.Unlinked.Iter() {
		if item.Parent != nil {
			continue
		}
		detach(storage, item.PreviousParent.Entity, item.Entity)
		storage.RemoveComponent(item.Entity, previousParentType)
	}

	for item := range s.Linked.Iter() {
		if item.Previous != nil && item.Previous.Entity == item.Parent.Entity {
			continue
		}
		if item.Previous != nil {
			detach(storage, item.Previous.Entity, item.Entity)
		}
		attach(storage, item.Parent.Entity, item.Entity)
		ecs.Set(storage, item.Entity, PreviousParent{Entity: item.Parent.Entity})
	}

	for item := range s.Parents.Iter() {
		pruneDead(storage, item.Children)
	}
	return nil
}

func attach(storage *ecs.Storage, parent, child ecs.Entity) {
	if !storage.Alive(parent) {
		return
	}
	children, ok := ecs.Get[Children](storage, parent)
	if !ok {
		ecs.Set(storage, parent, Children{Entities: []ecs.Entity{child}})
		return
	}
	if !children.Contains(child) {
		children.Entities = append(children.Entities, child)
	}
}

func detach(storage *ecs.Storage, parent, child ecs.Entity) {
	if children, ok := ecs.Get[Children](storage, parent); ok {
		children.Remove(child)
	}
}

func pruneDead(storage *ecs.Storage, children *Children) {
	live := children.Entities[:0]
	for _, id := range children.Entities {
		if storage.Alive(id) {
			live = append(live, id)
		}
	}
	clear(children.Entities[len(live):])
	children.Entities = live
}
