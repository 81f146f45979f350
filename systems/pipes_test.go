package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

func testPipes() config.PipesConfig {
	return config.PipesConfig{
		Gap:       200,
		Speed:     5,
		AnchorMin: 50,
		AnchorMax: 450,
		FirstX:    700,
		SpawnX:    600,
		Width:     104,
		Height:    640,
	}
}

func TestCreatePipeInvariants(t *testing.T) {
	gen := NewPipeGenerator(testPipes(), 104, 640, rand.New(rand.NewSource(1)))

	seen := make(map[int]bool)
	for i := 0; i < 5000; i++ {
		p := gen.Create(600)
		if p.Anchor < 50 || p.Anchor >= 450 {
			t.Fatalf("anchor %d outside [50,450)", p.Anchor)
		}
		if p.Bottom != float64(p.Anchor)+200 {
			t.Fatalf("bottom = %v, want anchor+200 = %d", p.Bottom, p.Anchor+200)
		}
		if p.Top != float64(p.Anchor-640) {
			t.Fatalf("top = %v, want anchor-640 = %d", p.Top, p.Anchor-640)
		}
		if p.Passed {
			t.Fatal("new pipe already passed")
		}
		if seen[p.ID] {
			t.Fatalf("duplicate pipe id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestRetirement(t *testing.T) {
	gen := NewPipeGenerator(testPipes(), 104, 640, rand.New(rand.NewSource(1)))

	tests := []struct {
		x    float64
		want bool
	}{
		{0, false},
		{-103, false},
		{-104, false}, // right edge exactly at 0
		{-105, true},
		{-500, true},
	}
	for _, tt := range tests {
		p := components.Pipe{X: tt.x}
		if got := gen.Retired(p); got != tt.want {
			t.Errorf("Retired(x=%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestAdvanceAndPass(t *testing.T) {
	gen := NewPipeGenerator(testPipes(), 104, 640, rand.New(rand.NewSource(1)))
	p := gen.Create(240)

	if PipePassed(p, 230) {
		t.Fatal("pipe at 240 should not be passed by bird at 230")
	}
	gen.Advance(&p)
	if p.X != 235 {
		t.Fatalf("x after advance = %v, want 235", p.X)
	}
	gen.Advance(&p)
	gen.Advance(&p)
	if !PipePassed(p, 230) {
		t.Fatal("pipe at 225 should be passed by bird at 230")
	}

	MarkPassed(&p)
	MarkPassed(&p)
	if PipePassed(p, 230) {
		t.Error("passed pipe reported as newly passed")
	}
}

func TestScrollGroundWraps(t *testing.T) {
	g := NewGround(730, 672)
	for i := 0; i < 1000; i++ {
		ScrollGround(&g, 5)

		lo, hi := g.X1, g.X2
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi-lo != g.Width {
			t.Fatalf("tick %d: tiles not contiguous: x1=%v x2=%v", i, g.X1, g.X2)
		}
		if lo+g.Width < -5 || lo > 0 {
			t.Fatalf("tick %d: left tile at %v does not cover the left edge", i, lo)
		}
	}
}
