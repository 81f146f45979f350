package systems

import (
	"math/rand"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// PipeGenerator creates, moves and retires pipes.
type PipeGenerator struct {
	cfg     config.PipesConfig
	spriteW int
	spriteH int
	rng     *rand.Rand
	nextID  int
}

// NewPipeGenerator creates a generator for pipes whose sprite is spriteW x spriteH.
func NewPipeGenerator(cfg config.PipesConfig, spriteW, spriteH int, rng *rand.Rand) *PipeGenerator {
	return &PipeGenerator{
		cfg:     cfg,
		spriteW: spriteW,
		spriteH: spriteH,
		rng:     rng,
		nextID:  1,
	}
}

// Create returns a new pipe at x with a gap anchor drawn from [anchor_min, anchor_max).
func (g *PipeGenerator) Create(x float64) components.Pipe {
	span := g.cfg.AnchorMax - g.cfg.AnchorMin
	anchor := g.cfg.AnchorMin
	if span > 0 {
		anchor += g.rng.Intn(span)
	}

	p := components.Pipe{
		ID:     g.nextID,
		X:      x,
		Anchor: anchor,
		Top:    float64(anchor - g.spriteH),
		Bottom: float64(anchor) + g.cfg.Gap,
	}
	g.nextID++
	return p
}

// Advance scrolls the pipe left by the configured speed.
func (g *PipeGenerator) Advance(p *components.Pipe) {
	p.X -= g.cfg.Speed
}

// Retired reports whether the pipe's right edge has left the playfield.
func (g *PipeGenerator) Retired(p components.Pipe) bool {
	return p.X+float64(g.spriteW) < 0
}

// TrailingEdge returns the x of the pipe's right edge.
func (g *PipeGenerator) TrailingEdge(p components.Pipe) float64 {
	return p.X + float64(g.spriteW)
}

// PipePassed reports whether a bird at birdX has just passed the pipe.
func PipePassed(p components.Pipe, birdX float64) bool {
	return !p.Passed && p.X < birdX
}

// MarkPassed flags the pipe as passed. Idempotent.
func MarkPassed(p *components.Pipe) {
	p.Passed = true
}
