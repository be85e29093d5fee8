package ecs

import (
	"iter"
	"reflect"
	"sort"
	"unsafe"
)

// Storage is the entity arena plus one column per registered component type.
// Entity handles are stable: adding or removing components never moves an
// entity, so other components can hold Entity values as references.
type Storage struct {
	registry    *ComponentRegistry
	generations []uint32
	alive       []bool
	freeIndices []uint32
	liveCount   int

	columns    map[reflect.Type]componentStorage
	singletons map[reflect.Type]*singletonEntry
}

type singletonEntry struct {
	value   reflect.Value
	dataPtr unsafe.Pointer
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		registry:   registry,
		columns:    make(map[reflect.Type]componentStorage),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
}

// Registry returns the component registry backing this storage
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

// Spawn creates a new entity with the provided components
func (s *Storage) Spawn(components ...any) Entity {
	var index uint32
	if n := len(s.freeIndices); n > 0 {
		index = s.freeIndices[n-1]
		s.freeIndices = s.freeIndices[:n-1]
	} else {
		index = uint32(len(s.generations))
		s.generations = append(s.generations, 0)
		s.alive = append(s.alive, false)
	}

	s.generations[index]++
	s.alive[index] = true
	s.liveCount++

	e := NewEntity(index, s.generations[index])
	for _, comp := range components {
		s.AddComponent(e, comp)
	}
	return e
}

// Alive reports whether e refers to a live entity
func (s *Storage) Alive(e Entity) bool {
	index := e.Index()
	if int(index) >= len(s.generations) {
		return false
	}
	return s.alive[index] && s.generations[index] == e.Generation()
}

// Despawn removes the entity and all of its components
func (s *Storage) Despawn(e Entity) bool {
	if !s.Alive(e) {
		return false
	}

	for _, column := range s.columns {
		column.Delete(e)
	}

	index := e.Index()
	s.alive[index] = false
	s.freeIndices = append(s.freeIndices, index)
	s.liveCount--
	return true
}

// AddComponent attaches component to e, replacing an existing component of the
// same type. Returns false if e is not alive.
func (s *Storage) AddComponent(e Entity, component any) bool {
	if !s.Alive(e) {
		return false
	}

	compType := componentType(component)
	return s.column(compType).Insert(e, component)
}

// RemoveComponent detaches the component of the given type from e
func (s *Storage) RemoveComponent(e Entity, compType reflect.Type) bool {
	if !s.Alive(e) {
		return false
	}

	column, ok := s.columns[compType]
	if !ok {
		return false
	}
	return column.Delete(e)
}

// GetComponent returns a pointer to the component for the given entity and
// component type, or nil
func (s *Storage) GetComponent(e Entity, compType reflect.Type) any {
	if !s.Alive(e) {
		return nil
	}

	column, ok := s.columns[compType]
	if !ok {
		return nil
	}
	return column.Get(e)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(e Entity, compType reflect.Type) bool {
	if !s.Alive(e) {
		return false
	}

	column, ok := s.columns[compType]
	if !ok {
		return false
	}
	return column.Has(e)
}

// ComponentTypes returns the types of every component attached to e, sorted by name
func (s *Storage) ComponentTypes(e Entity) []reflect.Type {
	if !s.Alive(e) {
		return nil
	}

	types := make([]reflect.Type, 0, 4)
	for t, column := range s.columns {
		if column.Has(e) {
			types = append(types, t)
		}
	}
	sort.Sort(byTypeName(types))
	return types
}

// Entities iterates over every live entity in index order
func (s *Storage) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for index, alive := range s.alive {
			if !alive {
				continue
			}
			if !yield(NewEntity(uint32(index), s.generations[index])) {
				return
			}
		}
	}
}

// Len returns the number of live entities
func (s *Storage) Len() int {
	return s.liveCount
}

// column returns the storage column for compType, creating it on first use.
func (s *Storage) column(compType reflect.Type) componentStorage {
	column, ok := s.columns[compType]
	if ok {
		return column
	}

	factory := s.registry.getFactory(compType)
	if factory == nil {
		panic("component type " + compType.String() + " not registered")
	}
	column = factory()
	s.columns[compType] = column
	return column
}

// AddSingleton stores value as the single instance of its type, replacing any
// previous instance. Pointers previously returned for that type stay valid and
// observe the new value.
func (s *Storage) AddSingleton(value any) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if entry, ok := s.singletons[v.Type()]; ok {
		entry.value.Elem().Set(v)
		return
	}

	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	s.singletons[v.Type()] = &singletonEntry{
		value:   ptr,
		dataPtr: ptr.UnsafePointer(),
	}
}

// ReadSingleton points *out at the stored singleton. out must be a **T.
// Returns false if no singleton of type T exists.
func (s *Storage) ReadSingleton(out any) bool {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Ptr {
		panic("ReadSingleton expects a pointer to a pointer")
	}

	elemType := v.Elem().Type().Elem()
	entry := s.getSingletonEntry(elemType)
	if entry == nil {
		return false
	}
	v.Elem().Set(entry.value)
	return true
}

// RemoveSingleton deletes the singleton of the given type
func (s *Storage) RemoveSingleton(t reflect.Type) {
	delete(s.singletons, t)
}

func (s *Storage) getSingletonEntry(t reflect.Type) *singletonEntry {
	return s.singletons[t]
}

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

// componentType returns the value type of a component, dereferencing pointers
func componentType(component any) reflect.Type {
	compType := reflect.TypeOf(component)
	if compType == nil {
		panic("component cannot be nil")
	}

	if compType.Kind() == reflect.Ptr {
		compType = compType.Elem()
	}

	// Components can be structs or primitives (int, string, etc.)
	// But not pointers, maps, channels, or functions (those aren't value types)
	if compType.Kind() == reflect.Ptr || compType.Kind() == reflect.Map ||
		compType.Kind() == reflect.Chan || compType.Kind() == reflect.Func {
		panic("components cannot be pointers, maps, channels, or functions")
	}
	return compType
}

// ComponentReader is the read side of Storage used by tooling
type ComponentReader interface {
	GetComponent(Entity, reflect.Type) any
}

// ReadComponent returns the component of type T for the entity, or nil
func ReadComponent[T any](reader ComponentReader, e Entity) *T {
	comp := reader.GetComponent(e, reflect.TypeFor[T]())
	if comp == nil {
		return nil
	}
	return comp.(*T)
}

// Get is the typed accessor for tooling and tests
func Get[T any](s *Storage, e Entity) (*T, bool) {
	comp := ReadComponent[T](s, e)
	return comp, comp != nil
}

// Set stores value as e's component of type T
func Set[T any](s *Storage, e Entity, value T) bool {
	return s.AddComponent(e, value)
}

// Has reports whether e carries a component of type T
func Has[T any](s *Storage, e Entity) bool {
	return s.HasComponent(e, reflect.TypeFor[T]())
}
