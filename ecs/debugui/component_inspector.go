package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/biquat"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/transform"
)

func NewComponentInspectorComponent() ComponentInspectorComponent {
	return ComponentInspectorComponent{}
}

// Render edits the selected entity's components in place. Every widget
// writes straight through the pointer the storage hands out.
func (ci *ComponentInspectorComponent) Render(storage *ecs.Storage, selected ecs.Entity) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ci.selectedEntity = selected

	if ci.selectedEntity == ecs.Invalid {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}

	if !storage.Alive(ci.selectedEntity) {
		imgui.Text(fmt.Sprintf("Entity %s was despawned", ci.selectedEntity))
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Entity: %s", ci.selectedEntity))
	imgui.Separator()

	for _, compType := range storage.ComponentTypes(ci.selectedEntity) {
		component := storage.GetComponent(ci.selectedEntity, compType)
		if component == nil {
			continue
		}

		if imgui.TreeNodeStr(compType.String()) {
			if summary, ok := PoseSummary(component); ok {
				imgui.Text(summary)
			}
			if local, ok := component.(*transform.Transform); ok && imgui.Button("Normalize") {
				*local = local.Normalize()
			}
			ci.renderComponent(component, compType)
			imgui.TreePop()
		}
	}

	imgui.End()
}

// PoseSummary describes where a Transform or GlobalTransform puts the
// origin of the sphere and whether it is still normalized.
func PoseSummary(component any) (string, bool) {
	var b biquat.Biquaternion
	switch c := component.(type) {
	case *transform.Transform:
		b = c.Biquat
	case *transform.GlobalTransform:
		b = c.Biquat
	default:
		return "", false
	}

	p := b.MulVec4(biquat.W)
	return fmt.Sprintf("origin -> (%.4f, %.4f, %.4f, %.4f) normalized=%t",
		p[0], p[1], p[2], p[3], b.IsNormalized()), true
}

func (ci *ComponentInspectorComponent) renderComponent(component any, compType reflect.Type) {
	val := reflect.ValueOf(component)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	ci.renderFields(val, compType)
}

func (ci *ComponentInspectorComponent) renderFields(val reflect.Value, t reflect.Type) {
	for _, field := range globalReflectionCache.GetFields(t) {
		fieldVal := val.Field(field.Index)
		if field.Pointer {
			if fieldVal.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.Name))
				continue
			}
			fieldVal = fieldVal.Elem()
		}
		ci.renderField(field.Name, fieldVal, field)
	}
}

func (ci *ComponentInspectorComponent) renderField(name string, val reflect.Value, field FieldInfo) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}

	switch field.Kind {
	case FieldEntity:
		// a handle, not a number
		imgui.Text(fmt.Sprintf("%s: %s", name, ecs.Entity(val.Uint())))

	case FieldQuat:
		q := val.Interface().(mgl64.Quat)
		if imgui.TreeNodeStr(fmt.Sprintf("%s: %.4f + (%.4f, %.4f, %.4f) |q|=%.6f##%s",
			name, q.W, q.V[0], q.V[1], q.V[2], q.Len(), name)) {
			ci.renderFields(val, field.Type)
			imgui.TreePop()
		}

	case FieldVector:
		// vectors and matrices from mathgl
		if imgui.TreeNodeStr(fmt.Sprintf("%s [%d]", name, val.Len())) {
			elem := elemInfo(field.Type.Elem())
			for i := 0; i < val.Len(); i++ {
				ci.renderField(fmt.Sprintf("%s[%d]", name, i), val.Index(i), elem)
			}
			imgui.TreePop()
		}

	case FieldStruct:
		if imgui.TreeNodeStr(name) {
			ci.renderFields(val, field.Type)
			imgui.TreePop()
		}

	case FieldSlice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case FieldMap:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	case FieldFunc:
		imgui.Text(fmt.Sprintf("%s: func", name))

	default:
		ci.renderValue(name, val)
	}
}

func (ci *ComponentInspectorComponent) renderValue(name string, val reflect.Value) {
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) && val.CanSet() {
			val.SetInt(int64(v))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) && v >= 0 && val.CanSet() {
			val.SetUint(uint64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(fmt.Sprintf("##%s", name), &v) && val.CanSet() {
			val.SetFloat(float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) && val.CanSet() {
			val.SetBool(v)
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(fmt.Sprintf("##%s", name), "", &v, imgui.InputTextFlagsNone, nil) && val.CanSet() {
			val.SetString(v)
		}

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
	}
}
