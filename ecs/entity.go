package ecs

import "fmt"

// Entity is a stable handle into the storage arena. The lower 32 bits hold the
// arena index and the upper 32 bits the generation of that slot, so a handle to
// a despawned entity never aliases whatever later reuses its index.
type Entity uint64

// Invalid is never returned by Spawn. Generations start at 1.
const Invalid Entity = 0

// NewEntity creates an Entity from an arena index and a generation
func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index extracts the arena index
func (e Entity) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the slot generation
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}
