package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AngleEpsilon keeps angular clip distances strictly inside (0, π) before
// their tangent is taken.
const AngleEpsilon = 1e-5

var ErrDegenerateProjection = errors.New("degenerate projection")

// DegenerateProjectionError carries the parameters that produced a
// non-finite projection matrix.
type DegenerateProjectionError struct {
	Fov, AspectRatio, TanNear, TanFar float64
}

func (e *DegenerateProjectionError) Error() string {
	return fmt.Sprintf("%s: fov=%g aspect=%g tan near=%g tan far=%g",
		ErrDegenerateProjection, e.Fov, e.AspectRatio, e.TanNear, e.TanFar)
}

func (e *DegenerateProjectionError) Is(target error) bool {
	return target == ErrDegenerateProjection
}

// DepthCalculation selects how visibility orders entities.
type DepthCalculation int

const (
	// DepthDistance orders by squared ambient distance to the camera.
	DepthDistance DepthCalculation = iota
	// DepthZDifference is meaningless on the sphere; cameras that ask for
	// it get DepthDistance and a warning.
	DepthZDifference
)

func (d DepthCalculation) String() string {
	switch d {
	case DepthDistance:
		return "Distance"
	case DepthZDifference:
		return "ZDifference"
	default:
		return fmt.Sprintf("DepthCalculation(%d)", int(d))
	}
}

// CameraProjection is implemented by projection components CameraSystem
// can drive.
type CameraProjection interface {
	ProjectionMatrix() (mgl64.Mat4, error)
	Update(width, height float64)
	DepthCalculation() DepthCalculation
}

// PerspectiveProjection clips by angular distance along the view geodesic.
// Near and far are stored as the tangents of those angles; a negative
// TanFar places the far plane beyond the equator.
type PerspectiveProjection struct {
	Fov         float64
	AspectRatio float64
	TanNear     float64
	TanFar      float64
}

func DefaultPerspectiveProjection() PerspectiveProjection {
	return PerspectiveProjection{
		Fov:         math.Pi / 4,
		AspectRatio: 1,
		TanNear:     0.01,
		TanFar:      -0.01,
	}
}

// ProjectionMatrix is the right-handed perspective matrix with the tangents
// in place of near and far distances. There is no near < far check since a
// far plane past the equator has a negative tangent.
func (p *PerspectiveProjection) ProjectionMatrix() (mgl64.Mat4, error) {
	sinFov, cosFov := math.Sincos(0.5 * p.Fov)
	h := cosFov / sinFov
	w := h / p.AspectRatio
	r := p.TanFar / (p.TanNear - p.TanFar)

	m := mgl64.Mat4FromCols(
		mgl64.Vec4{w, 0, 0, 0},
		mgl64.Vec4{0, h, 0, 0},
		mgl64.Vec4{0, 0, r, -1},
		mgl64.Vec4{0, 0, r * p.TanNear, 0},
	)
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return mgl64.Mat4{}, &DegenerateProjectionError{
				Fov:         p.Fov,
				AspectRatio: p.AspectRatio,
				TanNear:     p.TanNear,
				TanFar:      p.TanFar,
			}
		}
	}
	return m, nil
}

func (p *PerspectiveProjection) Update(width, height float64) {
	p.AspectRatio = width / height
}

func (p *PerspectiveProjection) DepthCalculation() DepthCalculation {
	return DepthDistance
}

// AngularBounds converts near and far angular distances (radians along the
// view geodesic) into the tangents PerspectiveProjection stores. Both are
// clamped to (AngleEpsilon, π-AngleEpsilon).
func AngularBounds(near, far float64) (tanNear, tanFar float64) {
	clampAngle := func(a float64) float64 {
		return mgl64.Clamp(a, AngleEpsilon, math.Pi-AngleEpsilon)
	}
	return math.Tan(clampAngle(near)), math.Tan(clampAngle(far))
}
