package renderer

import (
	"math/rand"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/game"
)

// Feather is a short-lived particle left where a bird was removed.
type Feather struct {
	X, Y    float32
	VX, VY  float32
	Life    int
	MaxLife int
	Size    float32
}

// FeatherRenderer spawns and draws feathers for birds that vanish between
// frames.
type FeatherRenderer struct {
	feathers []Feather
	last     map[int]rl.Vector2
	rng      *rand.Rand
	offsetX  float32
	offsetY  float32
}

// NewFeatherRenderer creates a renderer. Feathers burst from the center of
// a birdW x birdH sprite.
func NewFeatherRenderer(birdW, birdH int32) *FeatherRenderer {
	return &FeatherRenderer{
		last:    make(map[int]rl.Vector2),
		rng:     rand.New(rand.NewSource(1)),
		offsetX: float32(birdW) / 2,
		offsetY: float32(birdH) / 2,
	}
}

// Observe advances live feathers one tick and bursts for every bird that
// was in the previous frame but not this one.
func (r *FeatherRenderer) Observe(f *game.Frame) {
	seen := make(map[int]rl.Vector2, len(f.Birds))
	for _, bv := range f.Birds {
		seen[bv.ID] = rl.NewVector2(float32(bv.Bird.X)+r.offsetX, float32(bv.Bird.Y)+r.offsetY)
	}
	for id, pos := range r.last {
		if _, ok := seen[id]; !ok {
			r.burst(pos)
		}
	}
	r.last = seen

	kept := r.feathers[:0]
	for _, p := range r.feathers {
		p.Life--
		if p.Life <= 0 {
			continue
		}
		p.X += p.VX
		p.Y += p.VY
		p.VY += 0.15
		p.VX *= 0.95
		kept = append(kept, p)
	}
	r.feathers = kept
}

func (r *FeatherRenderer) burst(pos rl.Vector2) {
	for i := 0; i < 8; i++ {
		angle := r.rng.Float32() * 2 * math32.Pi
		speed := 1 + r.rng.Float32()*3
		life := 15 + r.rng.Intn(15)
		r.feathers = append(r.feathers, Feather{
			X:       pos.X,
			Y:       pos.Y,
			VX:      math32.Cos(angle) * speed,
			VY:      math32.Sin(angle)*speed - 1,
			Life:    life,
			MaxLife: life,
			Size:    2 + r.rng.Float32()*2,
		})
	}
}

// Reset drops all feathers and the remembered frame.
func (r *FeatherRenderer) Reset() {
	r.feathers = r.feathers[:0]
	r.last = make(map[int]rl.Vector2)
}

// Draw renders all feathers, fading with remaining life.
func (r *FeatherRenderer) Draw() {
	for i := range r.feathers {
		p := &r.feathers[i]
		lifeRatio := float32(p.Life) / float32(p.MaxLife)
		color := rl.Color{R: 250, G: 220, B: 80, A: uint8(lifeRatio * 220)}
		rl.DrawCircle(int32(p.X), int32(p.Y), math32.Max(p.Size*lifeRatio, 0.5), color)
	}
}
