package ui

import (
	"fmt"
	"sort"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/neural"
	"github.com/pthm-cable/flappy/systems"
	"github.com/pthm-cable/flappy/telemetry"
)

// HUDData holds everything the main heads-up display shows.
type HUDData struct {
	Title        string
	Score        int
	Tick         int
	Alive        int
	Generation   int // -1 outside training
	Speed        int // ticks per drawn frame
	FPS          int32
	Paused       bool
	ScreenWidth  int32
	ScreenHeight int32
}

// HUD renders the score and run status.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD. The score sits top right, as in the arcade game.
func (h *HUD) Draw(data HUDData) {
	score := fmt.Sprintf("Score: %d", data.Score)
	w := rl.MeasureText(score, 32)
	rl.DrawText(score, data.ScreenWidth-w-12, 10, 32, rl.White)

	y := int32(10)
	if data.Generation >= 0 {
		rl.DrawText(fmt.Sprintf("Gen: %d", data.Generation), 10, y, 24, rl.White)
		y += 28
		rl.DrawText(fmt.Sprintf("Alive: %d", data.Alive), 10, y, 24, rl.White)
		y += 28
	}

	rl.DrawText(fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d", data.Tick, data.Speed, data.FPS), 10, y, 14, rl.LightGray)
	if data.Paused {
		rl.DrawText("PAUSED", 10, y+18, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-22, 12, rl.Gray)
}

// DrawGameOver renders the end-of-episode banner.
func (h *HUD) DrawGameOver(screenWidth, screenHeight int32, reason string) {
	title := "GAME OVER"
	w := rl.MeasureText(title, 40)
	rl.DrawText(title, (screenWidth-w)/2, screenHeight/2-40, 40, rl.White)
	w = rl.MeasureText(reason, 16)
	rl.DrawText(reason, (screenWidth-w)/2, screenHeight/2+6, 16, rl.LightGray)
}

// PerfPanel renders the per-phase tick timing breakdown.
type PerfPanel struct {
	renderer *Renderer
	registry *systems.SystemRegistry
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32, registry *systems.SystemRegistry) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		registry: registry,
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the panel, phases sorted by cost.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	pad := r.Theme.Padding
	line := r.Theme.LineHeight

	phases := make([]telemetry.Phase, 0, telemetry.NumPhases)
	for ph := telemetry.Phase(0); ph < telemetry.NumPhases; ph++ {
		phases = append(phases, ph)
	}
	sort.SliceStable(phases, func(i, j int) bool {
		return stats.PhaseAvg[phases[i]] > stats.PhaseAvg[phases[j]]
	})

	height := pad*2 + line*3 + int32(len(phases))*14
	r.DrawPanel(p.x, p.y, p.width, height)

	x, y := p.x+pad, p.y+pad
	rl.DrawText("Tick Phases", x, y, r.Theme.HeaderFontSize, rl.White)
	y += line
	rl.DrawText(fmt.Sprintf("Tick: %s (p95 %s) | %.0f/s",
		stats.AvgTick.Round(time.Microsecond), stats.P95Tick.Round(time.Microsecond), stats.TicksPerSecond),
		x, y, r.Theme.FontSize, rl.Yellow)
	y += line
	rl.DrawText(fmt.Sprintf("Decide/bird: %s", stats.DecidePerBird.Round(10*time.Nanosecond)),
		x, y, r.Theme.FontSize, rl.LightGray)
	y += line

	for _, ph := range phases {
		pct := stats.PhasePct[ph]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(fmt.Sprintf("%-10s %7s %5.1f%%", p.registry.Name(ph),
			stats.PhaseAvg[ph].Round(time.Microsecond), pct), x, y, r.Theme.FontSize, color)
		y += 14
	}
}

// EvolutionData holds data for the evolution panel.
type EvolutionData struct {
	Generation  int
	Species     int
	Population  int
	BestFitness float64
	MeanFitness float64
	BestScore   int
	TopSpecies  []neural.SpeciesInfo
}

// EvolutionPanel renders generation and species statistics.
type EvolutionPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewEvolutionPanel creates a new evolution panel.
func NewEvolutionPanel(x, y, width int32) *EvolutionPanel {
	return &EvolutionPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (e *EvolutionPanel) SetPosition(x, y int32) {
	e.x = x
	e.y = y
}

// Draw renders the evolution panel.
func (e *EvolutionPanel) Draw(data EvolutionData) {
	r := e.renderer
	pad := r.Theme.Padding
	line := r.Theme.LineHeight
	shown := min(len(data.TopSpecies), 5)

	height := pad*2 + line*5 + int32(shown)*line
	r.DrawPanel(e.x, e.y, e.width, height)

	x, y := e.x+pad, e.y+pad
	rl.DrawText("Evolution", x, y, r.Theme.HeaderFontSize, rl.White)
	y += line
	y = r.DrawLabelValue(x, y, "Gen", fmt.Sprintf("%d (pop %d)", data.Generation, data.Population))
	y = r.DrawLabelValue(x, y, "Fitness", fmt.Sprintf("best %.1f | mean %.1f", data.BestFitness, data.MeanFitness))
	y = r.DrawLabelValue(x, y, "Score", fmt.Sprintf("%d", data.BestScore))
	y = r.DrawLabelValue(x, y, "Species", fmt.Sprintf("%d", data.Species))

	for _, sp := range data.TopSpecies[:shown] {
		swatch := int32(10)
		rl.DrawRectangle(x, y+2, swatch, swatch, rl.Color{R: sp.Color.R, G: sp.Color.G, B: sp.Color.B, A: 255})
		rl.DrawText(fmt.Sprintf("#%d: %d members (age %d, fit %.1f)", sp.ID, sp.Size, sp.Age, sp.BestFit),
			x+swatch+6, y, r.Theme.FontSize, r.Theme.LabelColor)
		y += line
	}
}
