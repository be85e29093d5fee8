// Package transform holds local and world poses on the 3-sphere and the
// systems that keep world poses in step with a parent/child hierarchy.
package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/biquat"
)

const (
	// TranslationEpsilon is the half-length below which FromTranslation
	// treats sin(x)/x and cos(x) as 1.
	TranslationEpsilon = 1e-4
	// LookAtEpsilon is the smallest body-space forward or right vector
	// LookAt accepts before reporting ErrDegenerateLookAt.
	LookAtEpsilon = 1e-9
)

// Transform is an entity's pose relative to its parent, or to the ambient
// frame when it has none.
type Transform struct {
	Biquat biquat.Biquaternion
}

func Identity() Transform {
	return Transform{Biquat: biquat.Identity()}
}

// FromTranslation moves the pole along the great circle in direction v by
// the angle |v|. The result is periodic in |v| with period 2π.
func FromTranslation(v mgl64.Vec3) Transform {
	t := v.Mul(0.5)
	length := t.Len()

	sinc, cos := 1.0, 1.0
	if length >= TranslationEpsilon {
		sinc = math.Sin(length) / length
		cos = math.Cos(length)
	}

	q := mgl64.Quat{W: cos, V: t.Mul(sinc)}
	return Transform{Biquat: biquat.Biquaternion{Left: q, Right: q}}
}

// FromSmallTranslation is a cheap approximation of FromTranslation for
// per-frame motion. The error grows with |v|.
func FromSmallTranslation(v mgl64.Vec3) Transform {
	t := v.Mul(0.5)
	q := mgl64.Quat{W: 1, V: t}.Normalize()
	return Transform{Biquat: biquat.Biquaternion{Left: q, Right: q}}
}

// FromRotation rotates about the pole, which stays fixed.
func FromRotation(q mgl64.Quat) Transform {
	return Transform{Biquat: biquat.FromRotation(q)}
}

// FromGlobal reinterprets a world pose as a local one.
func FromGlobal(g GlobalTransform) Transform {
	return Transform{Biquat: g.Biquat}
}

// Mul applies rhs first, then t.
func (t Transform) Mul(rhs Transform) Transform {
	return Transform{Biquat: t.Biquat.Mul(rhs.Biquat)}
}

func (t Transform) MulVec4(v mgl64.Vec4) mgl64.Vec4 {
	return t.Biquat.MulVec4(v)
}

func (t Transform) Normalize() Transform {
	return Transform{Biquat: t.Biquat.Normalize()}
}

// LookAt appends a rotation so that the body's +Z axis points away from
// target and its +Y axis leans towards up. Both arguments are ambient
// 4-vectors; they are pulled into body space through the inverse pose.
// On a degenerate basis t is left unchanged and ErrDegenerateLookAt is returned.
func (t *Transform) LookAt(target, up mgl64.Vec4) error {
	inv := t.Biquat.Inverse()
	forward := inv.MulVec4(target.Mul(-1)).Vec3()
	bodyUp := inv.MulVec4(up).Vec3()

	if forward.Len() < LookAtEpsilon {
		return ErrDegenerateLookAt
	}
	forward = forward.Normalize()

	right := bodyUp.Cross(forward)
	if right.Len() < LookAtEpsilon {
		return ErrDegenerateLookAt
	}
	right = right.Normalize()
	bodyUp = forward.Cross(right)

	rotation := mgl64.Mat4ToQuat(mgl64.Mat3FromCols(right, bodyUp, forward).Mat4())
	t.Biquat = t.Biquat.Mul(biquat.FromRotation(rotation))
	return nil
}

// LookingAt is the value form of LookAt.
func (t Transform) LookingAt(target, up mgl64.Vec4) (Transform, error) {
	err := t.LookAt(target, up)
	return t, err
}
