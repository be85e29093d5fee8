package ecs

import (
	"iter"
	"reflect"

	"github.com/kamstrup/intmap"
)

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage instance has its own ComponentRegistry, allowing multiple
// independent worlds to coexist without interference.
type ComponentRegistry struct {
	factories map[reflect.Type]func() componentStorage
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]func() componentStorage),
	}
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
// Registering the same type twice is a no-op.
func RegisterComponent[T any](r *ComponentRegistry) {
	t := reflect.TypeFor[T]()
	if _, ok := r.factories[t]; ok {
		return
	}
	r.factories[t] = func() componentStorage {
		return newGenericComponentStorage[T]()
	}
}

// IsRegistered reports whether a component type has been registered.
func (r *ComponentRegistry) IsRegistered(t reflect.Type) bool {
	_, ok := r.factories[t]
	return ok
}

// getFactory returns the factory function for a given component type.
// Returns nil if the type is not registered.
func (r *ComponentRegistry) getFactory(t reflect.Type) func() componentStorage {
	return r.factories[t]
}

// componentStorage is the type-erased column holding every instance of one
// component type, keyed by entity.
type componentStorage interface {
	Insert(e Entity, item any) bool
	Delete(e Entity) bool
	Get(e Entity) any
	Has(e Entity) bool
	Len() int
	Iter() iter.Seq[Entity]
	Type() reflect.Type
}

const (
	genericBlockSize = 64
)

// genericComponentStorage stores components of type T in fixed-size blocks.
// Blocks are allocated individually so pointers handed out by Get stay valid
// while the column grows.
type genericComponentStorage[T any] struct {
	blocks    []*[genericBlockSize]T
	owners    []*[genericBlockSize]Entity
	slots     *intmap.Map[Entity, int]
	freeSlots []int
	nextIndex int
}

func newGenericComponentStorage[T any]() *genericComponentStorage[T] {
	return &genericComponentStorage[T]{
		slots: intmap.New[Entity, int](genericBlockSize),
	}
}

// Insert stores item for e, replacing any previous value.
// Returns false if item is not a T or *T.
func (cs *genericComponentStorage[T]) Insert(e Entity, item any) bool {
	var concreteItem T
	if ptr, ok := item.(*T); ok {
		concreteItem = *ptr
	} else if val, ok := item.(T); ok {
		concreteItem = val
	} else {
		return false
	}

	if index, ok := cs.slots.Get(e); ok {
		cs.blocks[index/genericBlockSize][index%genericBlockSize] = concreteItem
		return true
	}

	var index int
	if len(cs.freeSlots) > 0 {
		index = cs.freeSlots[len(cs.freeSlots)-1]
		cs.freeSlots = cs.freeSlots[:len(cs.freeSlots)-1]
	} else {
		index = cs.nextIndex
		cs.nextIndex++
		if index/genericBlockSize >= len(cs.blocks) {
			cs.blocks = append(cs.blocks, new([genericBlockSize]T))
			cs.owners = append(cs.owners, new([genericBlockSize]Entity))
		}
	}

	blockIdx := index / genericBlockSize
	slotIdx := index % genericBlockSize
	cs.blocks[blockIdx][slotIdx] = concreteItem
	cs.owners[blockIdx][slotIdx] = e
	cs.slots.Put(e, index)
	return true
}

// Get returns a pointer to the component owned by e, or nil.
func (cs *genericComponentStorage[T]) Get(e Entity) any {
	index, ok := cs.slots.Get(e)
	if !ok {
		return nil
	}
	return &cs.blocks[index/genericBlockSize][index%genericBlockSize]
}

// Delete clears the slot owned by e and makes it reusable.
func (cs *genericComponentStorage[T]) Delete(e Entity) bool {
	index, ok := cs.slots.Get(e)
	if !ok {
		return false
	}

	blockIdx := index / genericBlockSize
	slotIdx := index % genericBlockSize

	var zero T
	cs.blocks[blockIdx][slotIdx] = zero
	cs.owners[blockIdx][slotIdx] = Invalid
	cs.slots.Del(e)
	cs.freeSlots = append(cs.freeSlots, index)
	return true
}

// Has checks if e owns a component in this column.
func (cs *genericComponentStorage[T]) Has(e Entity) bool {
	return cs.slots.Has(e)
}

func (cs *genericComponentStorage[T]) Len() int {
	return cs.slots.Len()
}

func (cs *genericComponentStorage[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

// Iter yields owners in slot order.
func (cs *genericComponentStorage[T]) Iter() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := 0; i < cs.nextIndex; i++ {
			owner := cs.owners[i/genericBlockSize][i%genericBlockSize]
			if owner == Invalid {
				continue
			}
			if !yield(owner) {
				return
			}
		}
	}
}
