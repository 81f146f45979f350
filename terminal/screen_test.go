package terminal

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/game"
)

func newSimScreen(t *testing.T, cols, rows int) (*Screen, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	s, err := NewWithScreen(sim, 68, 48, 104, 640)
	if err != nil {
		t.Fatal(err)
	}
	sim.SetSize(cols, rows)
	t.Cleanup(s.Close)
	return s, sim
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		ch   rune
		jump bool
		quit bool
	}{
		{"space", tcell.KeyRune, ' ', true, false},
		{"up", tcell.KeyUp, 0, true, false},
		{"q", tcell.KeyRune, 'q', false, true},
		{"escape", tcell.KeyEscape, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sim := newSimScreen(t, 50, 40)
			sim.InjectKey(tt.key, tt.ch, tcell.ModNone)
			if tt.jump {
				eventually(t, "jump", s.Jump)
				if s.Jump() {
					t.Error("jump not cleared after read")
				}
			}
			if tt.quit {
				eventually(t, "quit", s.Quit)
			}
		})
	}
}

func TestPublishDrawsScene(t *testing.T) {
	s, sim := newSimScreen(t, 50, 40)

	f := &game.Frame{
		Tick:      10,
		Score:     3,
		Width:     500,
		Height:    800,
		HasGround: true,
		Ground:    components.Ground{Y: 730, X1: 0, X2: 672, Width: 672},
		Pipes:     []components.Pipe{{ID: 1, X: 300, Anchor: 300, Top: -340, Bottom: 500}},
		Birds:     []game.BirdView{{ID: 0, Bird: components.NewBird(230, 350)}},
	}
	s.Publish(f)

	cells, cols, rows := sim.GetContents()
	at := func(x, y int) rune {
		c := cells[y*cols+x]
		if len(c.Runes) == 0 {
			return ' '
		}
		return c.Runes[0]
	}

	// 10px per column, 20px per row.
	if got := at(26, 18); got != '>' {
		t.Errorf("bird cell = %q, want '>'", got)
	}
	if got := at(32, 5); got != '█' {
		t.Errorf("top pipe cell = %q", got)
	}
	if got := at(32, 30); got != '█' {
		t.Errorf("bottom pipe cell = %q", got)
	}
	if got := at(32, 20); got != ' ' {
		t.Errorf("gap cell = %q, want sky", got)
	}
	if got := at(5, rows-1); got != '▒' {
		t.Errorf("ground cell = %q", got)
	}
	if got := string([]rune{at(1, 0), at(2, 0), at(3, 0)}); got != "Sco" {
		t.Errorf("score text = %q", got)
	}
}

func TestLayout(t *testing.T) {
	l := newLayout(500, 800, 50, 40)
	tests := []struct {
		x, y         float64
		wantX, wantY int
	}{
		{0, 0, 0, 0},
		{264, 374, 26, 18},
		{-30, -5, 0, 0},
		{9999, 9999, 49, 39},
	}
	for _, tt := range tests {
		x, y := l.cell(tt.x, tt.y)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("cell(%v, %v) = (%d, %d), want (%d, %d)", tt.x, tt.y, x, y, tt.wantX, tt.wantY)
		}
	}

	r := l.rect(480, 790, 104, 640)
	if r.x1 != 50 || r.y1 != 40 {
		t.Errorf("rect not clipped: %+v", r)
	}
}
