package ecs

import "iter"

// Query wraps a View with a per-tick snapshot of the matching entities.
// The Scheduler calls Execute before every run of the owning system, so a
// system iterates over the entities that matched when it started, even if it
// queues structural changes through Commands.
type Query[T any] struct {
	view    *View[T]
	storage *Storage

	cachedEntities   []Entity
	cachedComponents []T
	cacheValid       bool
}

// NewQuery creates a new Query bound to storage.
func NewQuery[T any](storage *Storage) *Query[T] {
	q := &Query[T]{}
	q.Init(storage)
	return q
}

// Init initializes or re-initializes the Query with a storage.
// Called by the Scheduler during system registration.
func (q *Query[T]) Init(storage *Storage) {
	q.view = NewView[T](storage)
	q.storage = storage
	q.cacheValid = false
}

// Execute rebuilds the entity and component snapshot.
func (q *Query[T]) Execute() {
	q.cachedEntities = q.cachedEntities[:0]
	q.cachedComponents = q.cachedComponents[:0]

	for id, item := range q.view.Iter() {
		q.cachedEntities = append(q.cachedEntities, id)
		q.cachedComponents = append(q.cachedComponents, item)
	}

	q.cacheValid = true
}

// Get fills the view for a single entity, bypassing the snapshot.
func (q *Query[T]) Get(e Entity) *T {
	return q.view.Get(e)
}

// Len returns the number of entities in the snapshot.
func (q *Query[T]) Len() int {
	return len(q.cachedEntities)
}

// Iter returns an iterator over the snapshot. Embed an Entity field in T to
// receive entity ids.
// Panics if Execute() has not been called.
func (q *Query[T]) Iter() iter.Seq[T] {
	if !q.cacheValid {
		panic("Query.Iter() called before Query.Execute()")
	}

	return func(yield func(T) bool) {
		for i := range q.cachedComponents {
			if !yield(q.cachedComponents[i]) {
				return
			}
		}
	}
}

// Entries returns an iterator over entity ids and component data.
// Panics if Execute() has not been called.
func (q *Query[T]) Entries() iter.Seq2[Entity, T] {
	if !q.cacheValid {
		panic("Query.Entries() called before Query.Execute()")
	}

	return func(yield func(Entity, T) bool) {
		for i := range q.cachedEntities {
			if !yield(q.cachedEntities[i], q.cachedComponents[i]) {
				return
			}
		}
	}
}
