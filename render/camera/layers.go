package camera

import "fmt"

// Layer indexes one bit of a RenderLayers mask.
type Layer = uint8

// TotalLayers is the number of layers a RenderLayers mask can hold.
const TotalLayers = 32

// RenderLayers is a bitmask of the layers an entity or camera belongs to.
// A camera sees an entity when their masks share a layer. Entities and
// cameras without the component belong to layer 0.
type RenderLayers uint32

// DefaultRenderLayers contains only layer 0.
const DefaultRenderLayers RenderLayers = 1

// Layers builds a mask containing the given layers.
func Layers(layers ...Layer) RenderLayers {
	var mask RenderLayers
	for _, l := range layers {
		mask = mask.With(l)
	}
	return mask
}

func (r RenderLayers) With(layer Layer) RenderLayers {
	checkLayer(layer)
	return r | 1<<layer
}

func (r RenderLayers) Without(layer Layer) RenderLayers {
	checkLayer(layer)
	return r &^ (1 << layer)
}

func (r RenderLayers) Contains(layer Layer) bool {
	return layer < TotalLayers && r&(1<<layer) != 0
}

func (r RenderLayers) Intersects(other RenderLayers) bool {
	return r&other != 0
}

func checkLayer(layer Layer) {
	if layer >= TotalLayers {
		panic(fmt.Sprintf("render layer %d out of range, must be below %d", layer, TotalLayers))
	}
}
