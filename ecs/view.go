package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

// eface mirrors the runtime layout of an interface value, used to pull the
// component pointer out of the `any` returned by a column without reflection.
type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

var entityType = reflect.TypeFor[Entity]()

// View represents a query for entities with a specific combination of components.
// The type T should be a struct with embedded pointer fields for each component type.
// An embedded Entity field receives the id of the matched entity.
// Named fields can be marked as optional using the `ecs:"optional"` struct tag.
type View[T any] struct {
	storage     *Storage
	types       []reflect.Type
	optional    []bool
	fieldOffset []uintptr

	// offset of the embedded Entity field, -1 if absent
	entityOffset int
}

// NewView creates a new view for the given struct type
func NewView[T any](storage *Storage) *View[T] {
	structType := reflect.TypeFor[T]()

	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{
		storage:      storage,
		types:        make([]reflect.Type, 0, structType.NumField()),
		optional:     make([]bool, 0, structType.NumField()),
		fieldOffset:  make([]uintptr, 0, structType.NumField()),
		entityOffset: -1,
	}

	hasRequired := false
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == entityType {
			if v.entityOffset != -1 {
				panic("View struct may only contain one Entity field")
			}
			v.entityOffset = int(field.Offset)
			continue
		}

		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		// Embedded fields are always required
		isOptional := false
		if !field.Anonymous {
			tag := field.Tag.Get("ecs")
			if tag != "" {
				if tag == "optional" {
					isOptional = true
				} else {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
			}
		}
		if !isOptional {
			hasRequired = true
		}

		v.types = append(v.types, field.Type.Elem())
		v.optional = append(v.optional, isOptional)
		v.fieldOffset = append(v.fieldOffset, field.Offset)
	}

	if !hasRequired {
		panic("View struct needs at least one required component")
	}

	return v
}

// Fill populates the provided struct pointer with component data for the given entity.
// Returns false if the entity is dead or missing any required components.
// Optional components are set to nil if not present.
func (v *View[T]) Fill(e Entity, ptr *T) bool {
	if !v.storage.Alive(e) {
		return false
	}

	// Use unsafe.Pointer to directly access the struct's memory
	// This avoids reflection overhead in the hot path
	structPtr := unsafe.Pointer(ptr)

	for i, componentType := range v.types {
		fieldPtr := unsafe.Add(structPtr, v.fieldOffset[i])

		var component any
		if column, ok := v.storage.columns[componentType]; ok {
			component = column.Get(e)
		}

		if component == nil {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		*(*unsafe.Pointer)(fieldPtr) = (*eface)(unsafe.Pointer(&component)).data
	}

	if v.entityOffset >= 0 {
		*(*Entity)(unsafe.Add(structPtr, v.entityOffset)) = e
	}

	return true
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components
func (v *View[T]) Get(e Entity) *T {
	var result T
	if !v.Fill(e, &result) {
		return nil
	}
	return &result
}

// driver picks the smallest required column; iteration walks only its owners.
// Returns nil when a required column does not exist yet (nothing can match).
func (v *View[T]) driver() componentStorage {
	var best componentStorage
	for i, t := range v.types {
		if v.optional[i] {
			continue
		}
		column, ok := v.storage.columns[t]
		if !ok {
			return nil
		}
		if best == nil || column.Len() < best.Len() {
			best = column
		}
	}
	return best
}

// Iter returns an iterator over all entities that have all the required components.
// Optional components are set to nil if not present.
func (v *View[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		driver := v.driver()
		if driver == nil {
			return
		}

		var result T
		for e := range driver.Iter() {
			if !v.Fill(e, &result) {
				continue
			}
			if !yield(e, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs (without entity IDs)
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Spawn creates a new entity with components copied out of the view struct.
// Nil optional fields are skipped.
func (v *View[T]) Spawn(data T) Entity {
	structPtr := unsafe.Pointer(&data)

	components := make([]any, 0, len(v.types))
	for i, componentType := range v.types {
		componentPtr := *(*unsafe.Pointer)(unsafe.Add(structPtr, v.fieldOffset[i]))
		if componentPtr == nil {
			if !v.optional[i] {
				panic("required component is nil in View.Spawn")
			}
			continue
		}
		components = append(components, reflect.NewAt(componentType, componentPtr).Elem().Interface())
	}

	return v.storage.Spawn(components...)
}
