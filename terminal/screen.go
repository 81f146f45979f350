// Package terminal is a character-cell frontend: it draws frames with tcell
// and turns key presses into jump and quit signals.
package terminal

import (
	"fmt"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/flappy/game"
)

var (
	skyStyle    = tcell.StyleDefault.Background(tcell.NewRGBColor(78, 192, 202))
	pipeStyle   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.NewRGBColor(78, 192, 202))
	groundStyle = tcell.StyleDefault.Foreground(tcell.NewRGBColor(222, 216, 149)).Background(tcell.NewRGBColor(84, 56, 71))
	birdStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.NewRGBColor(78, 192, 202)).Bold(true)
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// Screen draws frames to a terminal and collects input. It implements
// game.FrameSink and game.Input.
type Screen struct {
	screen tcell.Screen
	birdW  int
	birdH  int
	pipeW  int
	pipeH  int

	jump atomic.Bool
	quit atomic.Bool
	done chan struct{}
}

// New takes over the terminal.
func New(birdW, birdH, pipeW, pipeH int) (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating terminal screen: %w", err)
	}
	return NewWithScreen(s, birdW, birdH, pipeW, pipeH)
}

// NewWithScreen wraps an existing tcell screen (a simulation screen in tests).
func NewWithScreen(s tcell.Screen, birdW, birdH, pipeW, pipeH int) (*Screen, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal screen: %w", err)
	}
	s.HideCursor()
	t := &Screen{
		screen: s,
		birdW:  birdW,
		birdH:  birdH,
		pipeW:  pipeW,
		pipeH:  pipeH,
		done:   make(chan struct{}),
	}
	go t.pollEvents()
	return t, nil
}

func (t *Screen) pollEvents() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		t.handleEvent(ev)
	}
}

func (t *Screen) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			t.quit.Store(true)
		case ev.Key() == tcell.KeyUp:
			t.jump.Store(true)
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			t.quit.Store(true)
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			t.jump.Store(true)
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
}

// Jump reports and clears a pending flap.
func (t *Screen) Jump() bool { return t.jump.Swap(false) }

// Quit reports whether q, Esc or Ctrl-C was pressed.
func (t *Screen) Quit() bool { return t.quit.Load() }

// Close restores the terminal.
func (t *Screen) Close() {
	t.screen.Fini()
	<-t.done
}

// Publish draws the frame scaled to the terminal size.
func (t *Screen) Publish(f *game.Frame) {
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	l := newLayout(f.Width, f.Height, cols, rows)

	t.screen.Clear()
	t.screen.Fill(' ', skyStyle)

	for _, p := range f.Pipes {
		t.fill(l.rect(p.X, p.Top, float64(t.pipeW), float64(t.pipeH)), '█', pipeStyle)
		t.fill(l.rect(p.X, p.Bottom, float64(t.pipeW), float64(t.pipeH)), '█', pipeStyle)
	}
	if f.HasGround {
		t.fill(l.rect(0, f.Ground.Y, float64(f.Width), float64(f.Height)-f.Ground.Y), '▒', groundStyle)
	}
	for _, bv := range f.Birds {
		cx, cy := l.cell(bv.Bird.X+float64(t.birdW)/2, bv.Bird.Y+float64(t.birdH)/2)
		t.screen.SetContent(cx, cy, birdGlyph(bv.Bird.Tilt), nil, birdStyle)
	}

	t.text(1, 0, fmt.Sprintf("Score: %d", f.Score))
	if f.State == game.Terminated {
		msg := fmt.Sprintf("GAME OVER (%s)", f.Reason)
		t.text((cols-len(msg))/2, rows/2, msg)
	}
	t.screen.Show()
}

func birdGlyph(tilt float64) rune {
	switch {
	case tilt > 10:
		return '/'
	case tilt < -45:
		return '\\'
	default:
		return '>'
	}
}

func (t *Screen) fill(r cellRect, ch rune, style tcell.Style) {
	for y := r.y0; y < r.y1; y++ {
		for x := r.x0; x < r.x1; x++ {
			t.screen.SetContent(x, y, ch, nil, style)
		}
	}
}

func (t *Screen) text(x, y int, s string) {
	for i, ch := range s {
		t.screen.SetContent(x+i, y, ch, nil, textStyle)
	}
}
