package ecs

import "reflect"

// Commands buffers structural changes requested while systems run. The
// Scheduler flushes them after the last system of a tick, so no system sees
// entities appear or disappear halfway through its own iteration.
type Commands struct {
	spawns   [][]any
	despawns []Entity
	adds     []addComponentCommand
	removes  []removeComponentCommand
	defers   []func()
}

func newCommands() *Commands {
	return &Commands{}
}

type addComponentCommand struct {
	entity    Entity
	component any
}

type removeComponentCommand struct {
	entity   Entity
	compType reflect.Type
}

// Defer queues a function to run after all structural changes are applied.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Spawn queues an entity spawn with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, components)
}

// Despawn queues an entity removal.
func (c *Commands) Despawn(entity Entity) {
	c.despawns = append(c.despawns, entity)
}

// AddComponent queues a component insertion (or replacement).
func (c *Commands) AddComponent(entity Entity, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal.
func (c *Commands) RemoveComponent(entity Entity, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.despawns) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies all queued operations to storage and resets the buffer.
// Order: despawns, removals, additions, spawns, deferred functions.
func (c *Commands) Flush(storage *Storage) {
	for _, e := range c.despawns {
		storage.Despawn(e)
	}

	// operations on despawned entities fail the liveness check and are dropped
	for _, cmd := range c.removes {
		storage.RemoveComponent(cmd.entity, cmd.compType)
	}

	for _, cmd := range c.adds {
		storage.AddComponent(cmd.entity, cmd.component)
	}

	for _, components := range c.spawns {
		storage.Spawn(components...)
	}

	for _, fn := range c.defers {
		fn()
	}

	c.Reset()
}

// Reset drops all queued operations without applying them.
func (c *Commands) Reset() {
	c.spawns = c.spawns[:0]
	c.despawns = c.despawns[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
}
