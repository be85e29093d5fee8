package camera_test

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/render/camera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPerspectiveProjection(t *testing.T) {
	p := camera.DefaultPerspectiveProjection()
	assert.Equal(t, math.Pi/4, p.Fov)
	assert.Equal(t, 1.0, p.AspectRatio)
	assert.Equal(t, 0.01, p.TanNear)
	assert.Equal(t, -0.01, p.TanFar)
	assert.Equal(t, camera.DepthDistance, p.DepthCalculation())

	m, err := p.ProjectionMatrix()
	require.NoError(t, err)

	h := 1 / math.Tan(math.Pi/8)
	r := -0.01 / 0.02
	want := mgl64.Mat4FromCols(
		mgl64.Vec4{h, 0, 0, 0},
		mgl64.Vec4{0, h, 0, 0},
		mgl64.Vec4{0, 0, r, -1},
		mgl64.Vec4{0, 0, r * 0.01, 0},
	)
	assert.True(t, want.ApproxEqualThreshold(m, 1e-12), "want %v, got %v", want, m)
}

func TestProjectionUpdateSetsAspect(t *testing.T) {
	p := camera.DefaultPerspectiveProjection()
	p.Update(1600, 800)
	assert.Equal(t, 2.0, p.AspectRatio)

	m, err := p.ProjectionMatrix()
	require.NoError(t, err)
	assert.InDelta(t, m.At(1, 1)/2, m.At(0, 0), 1e-12)
}

func TestProjectionAllowsFarBeyondEquator(t *testing.T) {
	tanNear, tanFar := camera.AngularBounds(0.1, 2.5)
	assert.Greater(t, tanNear, 0.0)
	assert.Less(t, tanFar, 0.0)

	p := camera.PerspectiveProjection{Fov: 1, AspectRatio: 1, TanNear: tanNear, TanFar: tanFar}
	_, err := p.ProjectionMatrix()
	assert.NoError(t, err)
}

func TestAngularBoundsClamp(t *testing.T) {
	tanNear, tanFar := camera.AngularBounds(0, math.Pi)
	assert.InDelta(t, math.Tan(camera.AngleEpsilon), tanNear, 1e-15)
	assert.InDelta(t, math.Tan(math.Pi-camera.AngleEpsilon), tanFar, 1e-12)
	assert.False(t, math.IsInf(tanNear, 0))
	assert.False(t, math.IsInf(tanFar, 0))
}

func TestDegenerateProjection(t *testing.T) {
	tests := []struct {
		name string
		p    camera.PerspectiveProjection
	}{
		{"zero fov", camera.PerspectiveProjection{Fov: 0, AspectRatio: 1, TanNear: 0.01, TanFar: -0.01}},
		{"zero aspect", camera.PerspectiveProjection{Fov: 1, AspectRatio: 0, TanNear: 0.01, TanFar: -0.01}},
		{"coincident planes", camera.PerspectiveProjection{Fov: 1, AspectRatio: 1, TanNear: 0.5, TanFar: 0.5}},
		{"nan fov", camera.PerspectiveProjection{Fov: math.NaN(), AspectRatio: 1, TanNear: 0.01, TanFar: -0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.ProjectionMatrix()
			require.Error(t, err)
			assert.ErrorIs(t, err, camera.ErrDegenerateProjection)

			var degenerate *camera.DegenerateProjectionError
			require.True(t, errors.As(err, &degenerate))
			assert.Equal(t, tt.p.TanNear, degenerate.TanNear)
		})
	}
}

func TestRenderLayers(t *testing.T) {
	assert.True(t, camera.DefaultRenderLayers.Contains(0))
	assert.True(t, camera.DefaultRenderLayers.Intersects(camera.DefaultRenderLayers))

	ui := camera.Layers(1, 3)
	assert.False(t, ui.Intersects(camera.DefaultRenderLayers))
	assert.True(t, ui.Intersects(camera.Layers(3)))
	assert.True(t, ui.Contains(1))
	assert.False(t, ui.Without(1).Contains(1))
	assert.Equal(t, camera.Layers(0, 1, 3), ui.With(0))
	assert.False(t, ui.Contains(40))

	assert.Panics(t, func() { camera.Layers(camera.TotalLayers) })
}

func TestDepthCalculationString(t *testing.T) {
	assert.Equal(t, "Distance", camera.DepthDistance.String())
	assert.Equal(t, "ZDifference", camera.DepthZDifference.String())
}
