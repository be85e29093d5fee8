package debugui

import (
	"reflect"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/ecs"
)

// FieldKind selects the widget the inspector draws for a field.
type FieldKind int

const (
	FieldValue FieldKind = iota
	FieldEntity
	FieldQuat
	FieldVector
	FieldStruct
	FieldSlice
	FieldMap
	FieldFunc
)

// FieldInfo is one exported field. Type is the pointee type for pointer
// fields.
type FieldInfo struct {
	Name    string
	Type    reflect.Type
	Index   int
	Pointer bool
	Kind    FieldKind
}

// ReflectionCache holds the inspectable fields of each component type.
type ReflectionCache struct {
	fields sync.Map // reflect.Type -> []FieldInfo
}

func NewReflectionCache() *ReflectionCache {
	return &ReflectionCache{}
}

// GetFields returns the exported fields of t in declaration order, or nil
// for non-struct types.
func (rc *ReflectionCache) GetFields(t reflect.Type) []FieldInfo {
	if cached, ok := rc.fields.Load(t); ok {
		return cached.([]FieldInfo)
	}

	var fields []FieldInfo
	if t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			info := elemInfo(field.Type)
			info.Name = field.Name
			info.Index = i
			fields = append(fields, info)
		}
	}

	actual, _ := rc.fields.LoadOrStore(t, fields)
	return actual.([]FieldInfo)
}

func (rc *ReflectionCache) Len() int {
	n := 0
	rc.fields.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// elemInfo classifies a field or array element type, unwrapping one pointer.
func elemInfo(t reflect.Type) FieldInfo {
	info := FieldInfo{Type: t}
	if t.Kind() == reflect.Pointer {
		info.Pointer = true
		info.Type = t.Elem()
	}
	info.Kind = classify(info.Type)
	return info
}

func classify(t reflect.Type) FieldKind {
	switch t {
	case reflect.TypeFor[ecs.Entity]():
		return FieldEntity
	case reflect.TypeFor[mgl64.Quat]():
		return FieldQuat
	}
	switch t.Kind() {
	case reflect.Array:
		return FieldVector
	case reflect.Struct:
		return FieldStruct
	case reflect.Slice:
		return FieldSlice
	case reflect.Map:
		return FieldMap
	case reflect.Func:
		return FieldFunc
	}
	return FieldValue
}

var globalReflectionCache = NewReflectionCache()
