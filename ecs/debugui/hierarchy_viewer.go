package debugui

import (
	"fmt"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/kamstrup/intmap"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
)

// HierarchyNode is one entity of the transform forest as the viewer shows it.
type HierarchyNode struct {
	Entity   ecs.Entity
	Label    string
	Position mgl64.Vec4
	HasPose  bool
	Children []HierarchyNode
}

type HierarchyCache struct {
	roots       []HierarchyNode
	autoRefresh bool
}

func NewHierarchyViewerComponent() HierarchyViewerComponent {
	return HierarchyViewerComponent{
		cache: &HierarchyCache{autoRefresh: true},
	}
}

// Render draws the forest and returns the entity the user picked, if any.
func (hv *HierarchyViewerComponent) Render(storage *ecs.Storage) *ecs.Entity {
	if !imgui.BeginV("Transform Hierarchy", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return nil
	}

	imgui.Checkbox("Auto refresh", &hv.cache.autoRefresh)
	imgui.SameLine()
	if imgui.Button("Refresh") || hv.cache.autoRefresh || hv.cache.roots == nil {
		hv.cache.roots = BuildHierarchy(storage)
	}
	imgui.Separator()

	var picked *ecs.Entity
	for i := range hv.cache.roots {
		if e := hv.renderNode(&hv.cache.roots[i]); e != nil {
			picked = e
		}
	}

	imgui.End()
	return picked
}

func (hv *HierarchyViewerComponent) renderNode(node *HierarchyNode) *ecs.Entity {
	var picked *ecs.Entity

	if imgui.Button(fmt.Sprintf("select##%s", node.Entity)) {
		e := node.Entity
		picked = &e
	}
	imgui.SameLine()

	label := node.Label
	if node.HasPose {
		p := node.Position
		label = fmt.Sprintf("%s (%.3f, %.3f, %.3f, %.3f)", label, p[0], p[1], p[2], p[3])
	}

	if len(node.Children) == 0 {
		imgui.BulletText(label)
		return picked
	}

	if imgui.TreeNodeStr(fmt.Sprintf("%s##%s", label, node.Entity)) {
		for i := range node.Children {
			if e := hv.renderNode(&node.Children[i]); e != nil {
				picked = e
			}
		}
		imgui.TreePop()
	}
	return picked
}

// BuildHierarchy walks Parent/Children links from every root. Roots are
// entities with a Transform whose Parent is missing or dead. A child is
// listed under a parent only when its Parent points back, and each entity
// is listed at most once, so stale or cyclic links cannot loop the walk.
// Entities stuck in a parent cycle never hang off a root and are appended
// as extra roots.
func BuildHierarchy(storage *ecs.Storage) []HierarchyNode {
	visited := intmap.New[ecs.Entity, bool](storage.Len())

	var roots []ecs.Entity
	var orphans []ecs.Entity
	for entity := range storage.Entities() {
		if !ecs.Has[transform.Transform](storage, entity) {
			continue
		}
		parent, ok := ecs.Get[transform.Parent](storage, entity)
		if !ok || !storage.Alive(parent.Entity) {
			roots = append(roots, entity)
		} else {
			orphans = append(orphans, entity)
		}
	}

	var build func(e ecs.Entity) HierarchyNode
	build = func(e ecs.Entity) HierarchyNode {
		visited.Put(e, true)
		node := describe(storage, e)

		children, ok := ecs.Get[transform.Children](storage, e)
		if !ok {
			return node
		}
		for _, child := range children.Entities {
			if visited.Has(child) || !storage.Alive(child) {
				continue
			}
			parent, ok := ecs.Get[transform.Parent](storage, child)
			if !ok || parent.Entity != e {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	forest := make([]HierarchyNode, 0, len(roots))
	for _, root := range roots {
		forest = append(forest, build(root))
	}
	for _, e := range orphans {
		if !visited.Has(e) {
			forest = append(forest, build(e))
		}
	}

	sort.SliceStable(forest, func(i, j int) bool {
		return forest[i].Entity.Index() < forest[j].Entity.Index()
	})
	return forest
}

func describe(storage *ecs.Storage, e ecs.Entity) HierarchyNode {
	node := HierarchyNode{Entity: e, Label: e.String()}
	if cam, ok := ecs.Get[camera.Camera](storage, e); ok {
		node.Label = fmt.Sprintf("%s [camera %s]", node.Label, cam.Name)
	}
	if global, ok := ecs.Get[transform.GlobalTransform](storage, e); ok {
		node.Position = global.Position()
		node.HasPose = true
	}
	return node
}
