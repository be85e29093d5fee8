package main

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/spherical/ecs"
	"github.com/plus3/spherical/ecs/debugui"
	debugui_ebiten "github.com/plus3/spherical/ecs/debugui/ebiten"
	"github.com/plus3/spherical/pbr"
	"github.com/plus3/spherical/render/camera"
	"github.com/plus3/spherical/transform"
)

var background = color.RGBA{R: 0x10, G: 0x12, B: 0x18, A: 0xff}

// Game implements ebiten.Game on top of the scheduler. imgui is nil when
// the inspectors are disabled.
type Game struct {
	storage   *ecs.Storage
	scheduler *ecs.Scheduler
	imgui     *debugui_ebiten.ImguiBackend

	input      *ecs.Singleton[Input]
	viewport   *ecs.Singleton[camera.Viewport]
	active     *ecs.Singleton[camera.ActiveCameras]
	uniforms   *ecs.Singleton[pbr.LightUniforms]
	inputState *ecs.Singleton[debugui.ImguiInputState]

	lastCursor [2]int
	dragging   bool
	hideHUD    bool
}

func NewGame(storage *ecs.Storage, scheduler *ecs.Scheduler, imgui *debugui_ebiten.ImguiBackend) *Game {
	var inputState ecs.Singleton[debugui.ImguiInputState]
	inputState.Init(storage)
	return &Game{
		storage:    storage,
		scheduler:  scheduler,
		imgui:      imgui,
		input:      ecs.NewSingleton[Input](storage),
		viewport:   ecs.NewSingleton[camera.Viewport](storage),
		active:     ecs.NewSingleton(storage, camera.NewActiveCameras()),
		uniforms:   ecs.NewSingleton[pbr.LightUniforms](storage),
		inputState: &inputState,
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.hideHUD = !g.hideHUD
	}

	g.readInput()

	dt := 1 / float64(ebiten.TPS())
	if g.imgui != nil {
		return g.imgui.Tick(g.scheduler, dt)
	}
	return g.scheduler.Once(dt)
}

var moveKeys = []struct {
	key ebiten.Key
	dir mgl64.Vec3
}{
	{ebiten.KeyA, mgl64.Vec3{-1, 0, 0}},
	{ebiten.KeyD, mgl64.Vec3{1, 0, 0}},
	{ebiten.KeyS, mgl64.Vec3{0, 0, 1}},
	{ebiten.KeyW, mgl64.Vec3{0, 0, -1}},
	{ebiten.KeySpace, mgl64.Vec3{0, 1, 0}},
	{ebiten.KeyShiftLeft, mgl64.Vec3{0, -1, 0}},
}

func (g *Game) readInput() {
	in := g.input.Get()
	state := g.inputState.Get()

	in.Move = mgl64.Vec3{}
	if state == nil || !state.WantCaptureKeyboard {
		for _, mk := range moveKeys {
			if ebiten.IsKeyPressed(mk.key) {
				in.Move = in.Move.Add(mk.dir)
			}
		}
	}

	x, y := ebiten.CursorPosition()
	look := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) && (state == nil || !state.WantCaptureMouse)
	if look && g.dragging {
		in.Look = in.Look.Add(mgl64.Vec2{float64(x - g.lastCursor[0]), float64(y - g.lastCursor[1])})
	}
	g.dragging = look
	g.lastCursor = [2]int{x, y}

	if vp := g.viewport.Get(); vp != nil {
		in.ViewportHeight = vp.Height
	}
}

// Draw paints every visible cube of the main camera as a shaded square.
// Opaque entries are painted back to front, then transparent entries in
// their stored back-to-front order.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	cam, ok := g.active.Get().Get(camera.Camera3D)
	if !ok {
		ebitenutil.DebugPrint(screen, "no camera")
		return
	}
	c, _ := ecs.Get[camera.Camera](g.storage, cam)
	camGlobal, _ := ecs.Get[transform.GlobalTransform](g.storage, cam)
	visible, _ := ecs.Get[camera.VisibleEntities](g.storage, cam)
	if c == nil || camGlobal == nil || visible == nil {
		return
	}

	view := camGlobal.Biquat.Inverse()
	bounds := screen.Bounds()
	width, height := float64(bounds.Dx()), float64(bounds.Dy())

	var opaque, transparent []ecs.Entity
	for _, entry := range visible.Entities {
		if v, ok := ecs.Get[camera.Visible](g.storage, entry.Entity); ok && v.IsTransparent {
			transparent = append(transparent, entry.Entity)
		} else {
			opaque = append(opaque, entry.Entity)
		}
	}

	draw := func(e ecs.Entity) {
		cube, ok := ecs.Get[Cube](g.storage, e)
		if !ok {
			return
		}
		global, ok := ecs.Get[transform.GlobalTransform](g.storage, e)
		if !ok {
			return
		}

		pos := global.Position()
		clip := c.ProjectionMatrix.Mul4x1(view.MulVec4(pos))
		if clip[3] <= 0 {
			return
		}
		depth := clip[2] / clip[3]
		if depth < 0 || depth > 1 {
			return
		}

		x := (clip[0]/clip[3] + 1) / 2 * width
		y := (1 - clip[1]/clip[3]) / 2 * height
		half := cube.Size / 2 * c.ProjectionMatrix.At(1, 1) / clip[3] * height / 2
		half = mgl64.Clamp(half, 1, height)

		vector.DrawFilledRect(screen, float32(x-half), float32(y-half), float32(2*half), float32(2*half),
			g.shade(cube, pos), false)
	}

	for i := len(opaque) - 1; i >= 0; i-- {
		draw(opaque[i])
	}
	for _, e := range transparent {
		draw(e)
	}

	if !g.hideHUD {
		p := camGlobal.Position()
		ebitenutil.DebugPrint(screen, fmt.Sprintf("TPS %.0f  visible %d\ncamera (%.3f, %.3f, %.3f, %.3f)\nWASD/space/shift move, right drag look, F1 hide",
			ebiten.ActualTPS(), visible.Len(), p[0], p[1], p[2], p[3]))
	}

	if g.imgui != nil {
		g.imgui.Overlay(screen)
	}
}

// shade lights a cube with the packed uniforms. LightRaw positions are
// divided by the light range, and a unit position divided the same way has
// length 1/range, so the cube is scaled by |pos| of the light before the
// attenuation term is taken. The result is premultiplied by alpha.
func (g *Game) shade(cube *Cube, pos mgl64.Vec4) color.Color {
	light := [3]float64{}
	if u := g.uniforms.Get(); u != nil {
		for i := range 3 {
			light[i] = float64(u.Ambient[i])
		}
		for _, raw := range u.Lights[:u.Count] {
			lp := mgl64.Vec4{float64(raw.Pos[0]), float64(raw.Pos[1]), float64(raw.Pos[2]), float64(raw.Pos[3])}
			d := pos.Mul(lp.Len()).Sub(lp)
			att := 1 / (1 + d.Dot(d))
			for i := range 3 {
				light[i] += float64(raw.Color[i]) * att
			}
		}
	}

	alpha := float64(cube.Color[3])
	var out [3]uint8
	for i := range 3 {
		out[i] = uint8(255 * alpha * mgl64.Clamp(float64(cube.Color[i])*light[i], 0, 1))
	}
	return color.RGBA{R: out[0], G: out[1], B: out[2], A: uint8(255 * alpha)}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.imgui != nil {
		g.imgui.Layout(outsideWidth, outsideHeight)
	}
	if vp := g.viewport.Get(); vp != nil {
		vp.Width, vp.Height = float64(outsideWidth), float64(outsideHeight)
	}
	return outsideWidth, outsideHeight
}
