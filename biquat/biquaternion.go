// Package biquat implements isometries of the unit 3-sphere as ordered pairs
// of quaternions. The pair (Left, Right) acts on a homogeneous 4-vector v,
// read as the quaternion w + xi + yj + zk, by v ↦ Left·v·Right.
//
// For unit factors the action preserves x²+y²+z²+w², so it maps S³ to itself.
// Composition accumulates rounding error; callers renormalise explicitly with
// Normalize at whatever cadence suits them.
package biquat

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	// NearIdentityAngle is the rotation angle (radians) below which a unit
	// quaternion counts as the identity.
	NearIdentityAngle = 0.0028471446
	// NormalizedEpsilon bounds |len²-1| for a factor to count as unit length.
	NormalizedEpsilon = 1e-6
	// SlerpEpsilon is how close |q1·q2| may get to 1 before Slerp falls back
	// to a normalised lerp or a fixed arc between antipodes.
	SlerpEpsilon = 1e-9
)

var (
	// W is the pole point (0,0,0,1). Its image under an isometry is the
	// spherical analogue of a translation component.
	W = mgl64.Vec4{0, 0, 0, 1}
	// X, Y and Z complete the ambient basis.
	X = mgl64.Vec4{1, 0, 0, 0}
	Y = mgl64.Vec4{0, 1, 0, 0}
	Z = mgl64.Vec4{0, 0, 1, 0}
)

// Biquaternion is the isometry v ↦ Left·v·Right.
type Biquaternion struct {
	Left  mgl64.Quat
	Right mgl64.Quat
}

// Identity returns (1, 1).
func Identity() Biquaternion {
	return Biquaternion{Left: mgl64.QuatIdent(), Right: mgl64.QuatIdent()}
}

// FromRotation returns (q, q*). A pure rotation fixes W.
func FromRotation(q mgl64.Quat) Biquaternion {
	return Biquaternion{Left: q, Right: q.Conjugate()}
}

// QuatFromVec4 reads (x, y, z, w) as w + xi + yj + zk.
func QuatFromVec4(v mgl64.Vec4) mgl64.Quat {
	return mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
}

// Vec4FromQuat is the inverse of QuatFromVec4.
func Vec4FromQuat(q mgl64.Quat) mgl64.Vec4 {
	return mgl64.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}

// Conjugate conjugates each factor in place; the factors are not swapped.
// For a unit biquaternion this is also the inverse.
func (b Biquaternion) Conjugate() Biquaternion {
	return Biquaternion{Left: b.Left.Conjugate(), Right: b.Right.Conjugate()}
}

// Inverse inverts each factor in place; the factors are not swapped.
func (b Biquaternion) Inverse() Biquaternion {
	return Biquaternion{Left: b.Left.Inverse(), Right: b.Right.Inverse()}
}

// Mul composes b after other: (b.Mul(other)).MulVec4(v) == b.MulVec4(other.MulVec4(v)).
// The right factor multiplies in the opposite order to the left factor.
func (b Biquaternion) Mul(other Biquaternion) Biquaternion {
	return Biquaternion{
		Left:  b.Left.Mul(other.Left),
		Right: other.Right.Mul(b.Right),
	}
}

// MulVec4 applies the isometry to a homogeneous 4-vector.
func (b Biquaternion) MulVec4(v mgl64.Vec4) mgl64.Vec4 {
	return Vec4FromQuat(b.Left.Mul(QuatFromVec4(v)).Mul(b.Right))
}

// Mat4 returns the matrix whose columns are the images of X, Y, Z and W.
func (b Biquaternion) Mat4() mgl64.Mat4 {
	return mgl64.Mat4FromCols(b.MulVec4(X), b.MulVec4(Y), b.MulVec4(Z), b.MulVec4(W))
}

// Lerp interpolates each factor linearly and renormalises it.
func (b Biquaternion) Lerp(end Biquaternion, s float64) Biquaternion {
	return Biquaternion{
		Left:  mgl64.QuatNlerp(b.Left, end.Left, s),
		Right: mgl64.QuatNlerp(b.Right, end.Right, s),
	}
}

// Slerp interpolates each factor along its great arc. Like Lerp it works per
// factor, so the path is not a geodesic of the isometry group in general.
//
// (L, R) and (-L, -R) are the same isometry, so end is negated as a pair
// when that shortens the Left arc. Negating one factor alone would compose
// the result with the antipodal map.
func (b Biquaternion) Slerp(end Biquaternion, s float64) Biquaternion {
	if b.Left.Dot(end.Left) < 0 {
		end = end.Neg()
	}
	return Biquaternion{
		Left:  arcSlerp(b.Left, end.Left, s),
		Right: arcSlerp(b.Right, end.Right, s),
	}
}

// Normalize rescales each factor to unit length independently. This bounds
// drift in each factor but does not restore any invariant beyond that.
func (b Biquaternion) Normalize() Biquaternion {
	return Biquaternion{Left: b.Left.Normalize(), Right: b.Right.Normalize()}
}

// Add is component-wise.
func (b Biquaternion) Add(other Biquaternion) Biquaternion {
	return Biquaternion{Left: b.Left.Add(other.Left), Right: b.Right.Add(other.Right)}
}

// Sub is component-wise.
func (b Biquaternion) Sub(other Biquaternion) Biquaternion {
	return Biquaternion{Left: b.Left.Sub(other.Left), Right: b.Right.Sub(other.Right)}
}

// Neg negates both factors; the resulting isometry is unchanged.
func (b Biquaternion) Neg() Biquaternion {
	return b.Scale(-1)
}

// Scale multiplies every component by s. This is an affine blend used by
// interpolation code, not a group operation, and does not keep unit length.
func (b Biquaternion) Scale(s float64) Biquaternion {
	return Biquaternion{Left: b.Left.Scale(s), Right: b.Right.Scale(s)}
}

// Div divides every component by s. See Scale.
func (b Biquaternion) Div(s float64) Biquaternion {
	return b.Scale(1 / s)
}

// IsFinite reports whether every component of both factors is finite.
func (b Biquaternion) IsFinite() bool {
	return quatIsFinite(b.Left) && quatIsFinite(b.Right)
}

// IsNaN reports whether any component of either factor is NaN.
func (b Biquaternion) IsNaN() bool {
	return quatIsNaN(b.Left) || quatIsNaN(b.Right)
}

// IsNearIdentity reports whether both factors are within NearIdentityAngle
// of ±1 with matching signs. (-1, 1) is the antipodal map and does not count.
func (b Biquaternion) IsNearIdentity() bool {
	if !quatIsNearIdentity(b.Left) || !quatIsNearIdentity(b.Right) {
		return false
	}
	return math.Signbit(b.Left.W) == math.Signbit(b.Right.W)
}

// IsNormalized reports whether both factors have unit length.
func (b Biquaternion) IsNormalized() bool {
	return quatIsNormalized(b.Left) && quatIsNormalized(b.Right)
}

// AbsDiffEq reports whether every component of both factors differs from
// other's by at most maxAbsDiff.
func (b Biquaternion) AbsDiffEq(other Biquaternion, maxAbsDiff float64) bool {
	return quatAbsDiffEq(b.Left, other.Left, maxAbsDiff) &&
		quatAbsDiffEq(b.Right, other.Right, maxAbsDiff)
}

func (b Biquaternion) String() string {
	return fmt.Sprintf("Biquaternion{L: %s, R: %s}", quatString(b.Left), quatString(b.Right))
}

// arcSlerp follows the great arc from q1 to q2 exactly as given. Unlike
// mgl64.QuatSlerp it never negates q2, so s=1 always returns q2.
func arcSlerp(q1, q2 mgl64.Quat, s float64) mgl64.Quat {
	dot := math.Max(-1, math.Min(1, q1.Dot(q2)))
	switch {
	case dot > 1-SlerpEpsilon:
		return mgl64.QuatNlerp(q1, q2, s)
	case dot < -1+SlerpEpsilon:
		// Every great arc between antipodes has length π; pick the one
		// through q1·i, which is orthogonal to q1 as a 4-vector.
		perp := q1.Mul(mgl64.Quat{V: mgl64.Vec3{1, 0, 0}})
		angle := s * math.Pi
		return q1.Scale(math.Cos(angle)).Add(perp.Scale(math.Sin(angle)))
	}
	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	a := math.Sin((1-s)*theta) / sinTheta
	c := math.Sin(s*theta) / sinTheta
	return q1.Scale(a).Add(q2.Scale(c))
}

func quatComponents(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

func quatIsFinite(q mgl64.Quat) bool {
	for _, c := range quatComponents(q) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func quatIsNaN(q mgl64.Quat) bool {
	for _, c := range quatComponents(q) {
		if math.IsNaN(c) {
			return true
		}
	}
	return false
}

func quatIsNearIdentity(q mgl64.Quat) bool {
	w := math.Min(math.Abs(q.W), 1)
	return 2*math.Acos(w) < NearIdentityAngle
}

func quatIsNormalized(q mgl64.Quat) bool {
	return math.Abs(q.Dot(q)-1) <= NormalizedEpsilon
}

func quatAbsDiffEq(a, b mgl64.Quat, tol float64) bool {
	ac, bc := quatComponents(a), quatComponents(b)
	for i := range ac {
		if !scalar.EqualWithinAbs(ac[i], bc[i], tol) {
			return false
		}
	}
	return true
}

func quatString(q mgl64.Quat) string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g, %.6g)", q.V[0], q.V[1], q.V[2], q.W)
}
