package renderer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/assets"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
	"github.com/pthm-cable/flappy/systems"
	"github.com/pthm-cable/flappy/telemetry"
	"github.com/pthm-cable/flappy/ui"
)

const controlsLegend = "[Space/Click] flap  [P] pause  [,/.] speed  [Tab] controls  [Esc] quit"

// Window is the raylib frontend. It is the episode's frame sink, input
// and clock at once: frames are drawn as they are published and
// EndDrawing paces the loop at the target FPS.
type Window struct {
	opts game.Options

	tex       *Textures
	scene     *SceneRenderer
	feathers  *FeatherRenderer
	hud       *ui.HUD
	overlays  *ui.OverlayRegistry
	controls  *ui.ControlsPanel
	inspector *ui.Inspector
	perfPanel *ui.PerfPanel
	evoPanel  *ui.EvolutionPanel

	perf      *telemetry.PerfCollector
	evolution *ui.EvolutionData
	last      *game.Frame

	speed  int
	paused bool

	// Tint colors birds when the species overlay is on.
	Tint TintFunc
	// Genome looks up the brain shown by the inspector.
	Genome func(id int) *neural.GenomeRecord
}

// NewWindow opens the window and uploads the bundle's sprites.
func NewWindow(cfg *config.Config, opts game.Options, bundle *assets.Bundle) *Window {
	rl.InitWindow(int32(opts.Width), int32(opts.Height), opts.Title)
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	rl.SetExitKey(rl.KeyEscape)

	tex := LoadTextures(bundle)
	width, height := int32(opts.Width), int32(opts.Height)
	w := &Window{
		opts:      opts,
		tex:       tex,
		scene:     NewSceneRenderer(tex),
		feathers:  NewFeatherRenderer(tex.Bird[0].Width, tex.Bird[0].Height),
		hud:       ui.NewHUD(),
		overlays:  ui.NewOverlayRegistry(),
		controls:  ui.NewControlsPanel(10, 90, 200),
		inspector: ui.NewInspector(width-230, 230, 220),
		perfPanel: ui.NewPerfPanel(10, height-200, 240, systems.NewSystemRegistry()),
		evoPanel:  ui.NewEvolutionPanel(width-290, 50, 280),
		speed:     1,
	}
	if opts.Mode == game.ModeAI {
		w.overlays.SetEnabled(ui.OverlaySpeciesColors, true)
	}
	return w
}

// SetPerf attaches the tick timing source for the perf overlay.
func (w *Window) SetPerf(p *telemetry.PerfCollector) { w.perf = p }

// SetEvolution updates the evolution panel and the HUD generation.
func (w *Window) SetEvolution(data ui.EvolutionData) { w.evolution = &data }

// Close frees textures and closes the window.
func (w *Window) Close() {
	w.tex.Unload()
	rl.CloseWindow()
}

// Jump reports a flap press since the last drawn frame.
func (w *Window) Jump() bool {
	return rl.IsKeyPressed(rl.KeySpace) || rl.IsKeyPressed(rl.KeyUp) || rl.IsMouseButtonPressed(rl.MouseButtonLeft)
}

// Quit reports whether the window was closed.
func (w *Window) Quit() bool {
	return rl.WindowShouldClose()
}

// Wait is a no-op: EndDrawing already blocks until the next frame.
func (w *Window) Wait() {}

// Publish draws the frame. At speed n only every nth tick is drawn.
// While paused the frame is redrawn until resumed or closed. A manual
// game's terminal frame stays up until the player flaps or quits.
func (w *Window) Publish(f *game.Frame) {
	if w.last != nil && f.Tick <= w.last.Tick {
		w.feathers.Reset()
	}
	w.feathers.Observe(f)
	w.last = f

	if f.State == game.Running && w.speed > 1 && f.Tick%w.speed != 0 {
		return
	}

	w.draw(f)
	for w.paused && !w.Quit() {
		w.draw(f)
	}

	if f.State == game.Terminated && w.opts.Mode == game.ModeManual && f.Reason != game.ReasonQuit {
		for !w.Quit() && !w.Jump() {
			w.draw(f)
		}
	}
}

func (w *Window) handleInput() {
	for _, key := range w.overlays.Keys() {
		if rl.IsKeyPressed(key) {
			w.overlays.HandleKeyPress(key)
		}
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		w.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		w.paused = !w.paused
	}
	if rl.IsKeyPressed(rl.KeyComma) && w.speed > 1 {
		w.speed--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && w.speed < ui.MaxSpeed {
		w.speed++
	}
}

func (w *Window) draw(f *game.Frame) {
	w.handleInput()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	var tint TintFunc
	if w.overlays.IsEnabled(ui.OverlaySpeciesColors) {
		tint = w.Tint
	}
	w.scene.Draw(f, tint)
	if w.overlays.IsEnabled(ui.OverlaySensors) {
		w.scene.DrawSensors(f)
	}
	if w.overlays.IsEnabled(ui.OverlayHitboxes) {
		w.scene.DrawHitboxes(f)
	}
	w.feathers.Draw()

	generation := -1
	if w.evolution != nil {
		generation = w.evolution.Generation
	}
	screenW, screenH := int32(f.Width), int32(f.Height)
	w.hud.Draw(ui.HUDData{
		Title:        w.opts.Title,
		Score:        f.Score,
		Tick:         f.Tick,
		Alive:        len(f.Birds),
		Generation:   generation,
		Speed:        w.speed,
		FPS:          rl.GetFPS(),
		Paused:       w.paused,
		ScreenWidth:  screenW,
		ScreenHeight: screenH,
	})
	w.hud.DrawControls(screenH, controlsLegend)

	if w.overlays.IsEnabled(ui.OverlayEvolution) && w.evolution != nil {
		w.evoPanel.Draw(*w.evolution)
	}
	if w.overlays.IsEnabled(ui.OverlayInspector) && len(f.Birds) > 0 {
		lead := f.Birds[0]
		data := &ui.InspectorData{Bird: lead, Sensors: game.Sensors(&lead.Bird, f.RefPipe())}
		if w.Genome != nil {
			data.Genome = w.Genome(lead.ID)
		}
		w.inspector.Draw(data)
	}
	if w.overlays.IsEnabled(ui.OverlayPerf) && w.perf != nil {
		w.perfPanel.Draw(w.perf.Stats())
	}
	if f.State == game.Terminated && w.opts.Mode == game.ModeManual {
		w.hud.DrawGameOver(screenW, screenH, fmt.Sprintf("score %d | %s | flap to continue", f.Score, f.Reason))
	}
	w.speed, w.paused = w.controls.Draw(w.overlays, w.speed, w.paused)

	rl.EndDrawing()
	w.perf.RecordFrame()
}
