package debugui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/render/camera"
)

// CameraVisibility is one camera's draw list as the viewer shows it.
type CameraVisibility struct {
	Entity      ecs.Entity
	Name        string
	ActiveAs    []string
	Layers      camera.RenderLayers
	Entries     []camera.VisibleEntity
	Transparent []bool
}

func NewVisibilityViewerComponent() VisibilityViewerComponent {
	return VisibilityViewerComponent{selectedCamera: ecs.Invalid}
}

// Render lists cameras and the draw order of the selected one. It returns
// the entity the user picked from the draw list, if any.
func (vv *VisibilityViewerComponent) Render(storage *ecs.Storage) *ecs.Entity {
	if !imgui.BeginV("Visibility", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return nil
	}

	cameras := CollectCameraVisibility(storage)
	if len(cameras) == 0 {
		imgui.Text("No cameras")
		imgui.End()
		return nil
	}

	selected := &cameras[0]
	for i := range cameras {
		cam := &cameras[i]
		if cam.Entity == vv.selectedCamera {
			selected = cam
		}
		label := fmt.Sprintf("%s %s (%d)", cam.Entity, cam.Name, len(cam.Entries))
		if len(cam.ActiveAs) > 0 {
			label += " active: " + strings.Join(cam.ActiveAs, ", ")
		}
		if imgui.SelectableBoolV(label, cam.Entity == vv.selectedCamera, imgui.SelectableFlagsNone, imgui.NewVec2(0, 0)) {
			vv.selectedCamera = cam.Entity
			selected = cam
		}
	}
	imgui.Separator()
	imgui.Text(fmt.Sprintf("Layers: %032b", uint32(selected.Layers)))

	var picked *ecs.Entity
	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsScrollY
	if imgui.BeginTableV("VisibleTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("#")
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Order")
		imgui.TableSetupColumn("Transparent")
		imgui.TableHeadersRow()

		for i, entry := range selected.Entries {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", i))
			imgui.TableNextColumn()
			if imgui.SelectableBoolV(entry.Entity.String(), false, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				e := entry.Entity
				picked = &e
			}
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%.6f", entry.Order))
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%t", selected.Transparent[i]))
		}
		imgui.EndTable()
	}

	imgui.End()
	return picked
}

// CollectCameraVisibility snapshots every camera that has a draw list, in
// entity order. Transparent is looked up from the current Visible
// components, so it reflects edits made since the list was built.
func CollectCameraVisibility(storage *ecs.Storage) []CameraVisibility {
	var active ecs.Singleton[camera.ActiveCameras]
	active.Init(storage)

	var out []CameraVisibility
	for entity := range storage.Entities() {
		cam, ok := ecs.Get[camera.Camera](storage, entity)
		if !ok {
			continue
		}
		visible, ok := ecs.Get[camera.VisibleEntities](storage, entity)
		if !ok {
			continue
		}

		view := CameraVisibility{
			Entity:      entity,
			Name:        cam.Name,
			Layers:      camera.DefaultRenderLayers,
			Entries:     append([]camera.VisibleEntity(nil), visible.Entities...),
			Transparent: make([]bool, len(visible.Entities)),
		}
		if layers, ok := ecs.Get[camera.RenderLayers](storage, entity); ok {
			view.Layers = *layers
		}
		for i, entry := range visible.Entities {
			if v, ok := ecs.Get[camera.Visible](storage, entry.Entity); ok {
				view.Transparent[i] = v.IsTransparent
			}
		}
		if table := active.Get(); table != nil {
			for _, name := range table.Names() {
				if bound, ok := table.Get(name); ok && bound == entity {
					view.ActiveAs = append(view.ActiveAs, name)
				}
			}
		}
		out = append(out, view)
	}
	return out
}
