package transform

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/biquat"
)

// GlobalTransform is an entity's pose relative to the ambient frame. Only
// the propagation pass writes it; edit Transform instead.
type GlobalTransform struct {
	Biquat biquat.Biquaternion
}

func GlobalIdentity() GlobalTransform {
	return GlobalTransform{Biquat: biquat.Identity()}
}

func GlobalFromTranslation(v mgl64.Vec3) GlobalTransform {
	return FromLocal(FromTranslation(v))
}

func GlobalFromSmallTranslation(v mgl64.Vec3) GlobalTransform {
	return FromLocal(FromSmallTranslation(v))
}

func GlobalFromRotation(q mgl64.Quat) GlobalTransform {
	return FromLocal(FromRotation(q))
}

// FromLocal reinterprets a local pose as a world pose. This is the world
// pose of a root entity.
func FromLocal(t Transform) GlobalTransform {
	return GlobalTransform{Biquat: t.Biquat}
}

// Position is the image of the pole point W.
func (g GlobalTransform) Position() mgl64.Vec4 {
	return g.Biquat.MulVec4(biquat.W)
}

// ComputeMatrix returns the 4x4 matrix whose columns are the images of
// X, Y, Z and W. Renderers multiply ambient vertex positions by it.
func (g GlobalTransform) ComputeMatrix() mgl64.Mat4 {
	return g.Biquat.Mat4()
}

// MulTransform composes a child's local pose under this world pose.
// Composing two world poses is deliberately not offered.
func (g GlobalTransform) MulTransform(local Transform) GlobalTransform {
	return GlobalTransform{Biquat: g.Biquat.Mul(local.Biquat)}
}

func (g GlobalTransform) MulVec4(v mgl64.Vec4) mgl64.Vec4 {
	return g.Biquat.MulVec4(v)
}
