package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/pbr"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
)

// Defaults applied to zero fields of a loaded scene.
const (
	DefaultCubeSize    = 0.1
	DefaultCameraSpeed = 0.3
	DefaultCameraFov   = 45.0
	DefaultTanNear     = 0.01
	DefaultTanFar      = -0.01
)

// StepCfg is one factor of a pose. Exactly one of Translate (a tangent
// vector at the origin, its length the geodesic distance) or Rotate (an
// x, y, z, w quaternion, normalized on load) is set.
type StepCfg struct {
	Translate *[3]float64 `json:"translate,omitempty"`
	Rotate    *[4]float64 `json:"rotate,omitempty"`
}

// PoseCfg composes its steps left to right.
type PoseCfg []StepCfg

type CubeCfg struct {
	Size        float64    `json:"size,omitempty"`
	Color       [3]float32 `json:"color"`
	Transparent bool       `json:"transparent,omitempty"`
	Layers      []uint8    `json:"layers,omitempty"`
}

// NodeCfg is one entity of the hierarchy. Parent indexes an earlier node.
// Nodes without a cube are invisible anchors.
type NodeCfg struct {
	Pose   PoseCfg  `json:"pose"`
	Parent *int     `json:"parent,omitempty"`
	Cube   *CubeCfg `json:"cube,omitempty"`
}

type LightCfg struct {
	Pose      PoseCfg    `json:"pose"`
	Intensity float32    `json:"intensity"`
	Range     float32    `json:"range,omitempty"`
	Color     [3]float32 `json:"color"`
}

type CameraCfg struct {
	Pose    PoseCfg     `json:"pose"`
	LookAt  *[4]float64 `json:"lookAt,omitempty"`
	Up      [4]float64  `json:"up"`
	FovDeg  float64     `json:"fovDeg,omitempty"`
	TanNear float64     `json:"tanNear,omitempty"`
	TanFar  float64     `json:"tanFar,omitempty"`
	Speed   float64     `json:"speed,omitempty"`
}

type SceneCfg struct {
	Ambient float32    `json:"ambient,omitempty"`
	Nodes   []NodeCfg  `json:"nodes"`
	Lights  []LightCfg `json:"lights"`
	Camera  CameraCfg  `json:"camera"`
}

// Cube is the drawable component of a scene node.
type Cube struct {
	Size  float64
	Color mgl32.Vec4
}

// LoadScene reads a JSON scene, fills defaults and validates it.
func LoadScene(path string) (*SceneCfg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg SceneCfg
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *SceneCfg) applyDefaults() {
	for i := range c.Nodes {
		if cube := c.Nodes[i].Cube; cube != nil && cube.Size == 0 {
			cube.Size = DefaultCubeSize
		}
	}
	for i := range c.Lights {
		if c.Lights[i].Range == 0 {
			c.Lights[i].Range = pbr.DefaultLight().Range
		}
	}
	if c.Camera.FovDeg == 0 {
		c.Camera.FovDeg = DefaultCameraFov
	}
	if c.Camera.TanNear == 0 && c.Camera.TanFar == 0 {
		c.Camera.TanNear, c.Camera.TanFar = DefaultTanNear, DefaultTanFar
	}
	if c.Camera.Speed == 0 {
		c.Camera.Speed = DefaultCameraSpeed
	}
	if c.Camera.Up == ([4]float64{}) {
		c.Camera.Up = [4]float64{0, 1, 0, 0}
	}
}

var errBadStep = errors.New("pose step must set exactly one of translate or rotate")

// Validate checks poses, parent links and layer indices.
func (c *SceneCfg) Validate() error {
	for i, node := range c.Nodes {
		if err := node.Pose.validate(); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if node.Parent != nil && (*node.Parent < 0 || *node.Parent >= i) {
			return fmt.Errorf("node %d: parent %d must index an earlier node", i, *node.Parent)
		}
		if node.Cube == nil {
			continue
		}
		if node.Cube.Size <= 0 {
			return fmt.Errorf("node %d: cube size must be > 0, got %g", i, node.Cube.Size)
		}
		for _, layer := range node.Cube.Layers {
			if layer >= camera.TotalLayers {
				return fmt.Errorf("node %d: layer %d out of range", i, layer)
			}
		}
	}
	for i, light := range c.Lights {
		if err := light.Pose.validate(); err != nil {
			return fmt.Errorf("light %d: %w", i, err)
		}
		if light.Range <= 0 {
			return fmt.Errorf("light %d: range must be > 0, got %g", i, light.Range)
		}
	}
	if err := c.Camera.Pose.validate(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	return nil
}

func (p PoseCfg) validate() error {
	for i, step := range p {
		if (step.Translate == nil) == (step.Rotate == nil) {
			return fmt.Errorf("step %d: %w", i, errBadStep)
		}
		if r := step.Rotate; r != nil && r[0] == 0 && r[1] == 0 && r[2] == 0 && r[3] == 0 {
			return fmt.Errorf("step %d: zero rotation quaternion", i)
		}
	}
	return nil
}

// Transform composes the steps.
func (p PoseCfg) Transform() transform.Transform {
	t := transform.Identity()
	for _, step := range p {
		switch {
		case step.Translate != nil:
			t = t.Mul(transform.FromTranslation(mgl64.Vec3(*step.Translate)))
		case step.Rotate != nil:
			r := step.Rotate
			q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
			t = t.Mul(transform.FromRotation(q))
		}
	}
	return t
}

func rgba(c [3]float32) mgl32.Vec4 {
	return mgl32.Vec4{c[0], c[1], c[2], 1}
}

// Spawn creates the scene's entities and returns the camera. Ambient light
// and the light uniforms are expected to exist already.
func (c *SceneCfg) Spawn(storage *ecs.Storage) (ecs.Entity, error) {
	entities := make([]ecs.Entity, len(c.Nodes))
	for i, node := range c.Nodes {
		parent := ecs.Invalid
		if node.Parent != nil {
			parent = entities[*node.Parent]
		}

		var extra []any
		if cube := node.Cube; cube != nil {
			visible := camera.DefaultVisible()
			visible.IsTransparent = cube.Transparent
			color := rgba(cube.Color)
			if cube.Transparent {
				color[3] = 0.5
			}
			extra = append(extra, visible, Cube{Size: cube.Size, Color: color})
			if len(cube.Layers) > 0 {
				extra = append(extra, camera.Layers(cube.Layers...))
			}
		}
		entities[i] = transform.Spawn(storage, node.Pose.Transform(), parent, extra...)
	}

	for _, cfg := range c.Lights {
		light := pbr.DefaultLight()
		light.Intensity = cfg.Intensity
		light.Range = cfg.Range
		light.Color = rgba(cfg.Color)
		transform.Spawn(storage, cfg.Pose.Transform(), ecs.Invalid, light)
	}

	if ambient := ecs.NewSingleton(storage, pbr.DefaultAmbientLight()).Get(); c.Ambient > 0 {
		ambient.Brightness = c.Ambient
	}

	pose := c.Camera.Pose.Transform()
	if c.Camera.LookAt != nil {
		if err := pose.LookAt(mgl64.Vec4(*c.Camera.LookAt), mgl64.Vec4(c.Camera.Up)); err != nil {
			return ecs.Invalid, fmt.Errorf("camera: %w", err)
		}
	}

	projection := camera.PerspectiveProjection{
		Fov:         mgl64.DegToRad(c.Camera.FovDeg),
		AspectRatio: 1,
		TanNear:     c.Camera.TanNear,
		TanFar:      c.Camera.TanFar,
	}
	cam := camera.SpawnPerspectiveCamera(storage, camera.Camera3D, pose, Controlled{Speed: c.Camera.Speed})
	ecs.Set(storage, cam, projection)
	return cam, nil
}

func translate(x, y, z float64) StepCfg {
	return StepCfg{Translate: &[3]float64{x, y, z}}
}

func rotate(x, y, z, w float64) StepCfg {
	return StepCfg{Rotate: &[4]float64{x, y, z, w}}
}

// DefaultScene is six rings of five cubes wrapped around two great circles,
// one light and a camera looking just above the origin. Each ring hangs off
// an invisible anchor so the hierarchy carries the ring's rotation.
func DefaultScene() *SceneCfg {
	cfg := &SceneCfg{
		Lights: []LightCfg{{
			Pose:      PoseCfg{translate(0.25, 0.25, 0.75)},
			Intensity: 0.5,
			Color:     [3]float32{1, 1, 1},
		}},
		Camera: CameraCfg{
			Pose:   PoseCfg{translate(-0.2, 0.2, -0.2)},
			LookAt: &[4]float64{0, 0.2, 0, 1},
			Up:     [4]float64{0, 1, 0, 0},
		},
	}

	bases := []PoseCfg{nil, {translate(math.Pi/2, 0, 0)}}
	rotations := []StepCfg{
		rotate(0, 0, 0, 1),
		rotate(0.5, 0.5, 0.5, 0.5),
		rotate(0.5, 0.5, 0.5, -0.5),
	}
	for _, base := range bases {
		for _, rot := range rotations {
			anchor := len(cfg.Nodes)
			cfg.Nodes = append(cfg.Nodes, NodeCfg{Pose: append(PoseCfg{rot}, base...)})
			for t := range 5 {
				cfg.Nodes = append(cfg.Nodes, NodeCfg{
					Pose:   PoseCfg{translate(0, 0, math.Pi/8*float64(t))},
					Parent: &anchor,
					Cube:   &CubeCfg{Color: [3]float32{0.8, 0.7, 0.6}},
				})
			}
		}
	}

	cfg.applyDefaults()
	return cfg
}
