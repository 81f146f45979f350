// Package components defines ECS components for the game.
package components

// Bird is a flying entity. X is fixed for the run; everything else is
// advanced once per tick.
type Bird struct {
	X, Y   float64
	Vel    float64 // velocity set by the most recent jump
	Tilt   float64 // degrees, clamped to [MinTilt, MaxTilt]
	Ticks  int     // ticks since the most recent jump (or creation)
	Height float64 // y at the most recent jump (or creation)

	// Wing animation
	Anim  int // animation counter
	Frame int // sprite frame index, selects the collision mask
}

// NewBird returns a bird at rest at (x, y).
func NewBird(x, y float64) Bird {
	return Bird{X: x, Y: y, Height: y}
}

// Pipe is an obstacle pair with a vertical gap.
type Pipe struct {
	ID     int
	X      float64
	Anchor int     // gap anchor drawn from [anchor_min, anchor_max)
	Top    float64 // y of the top piece's sprite origin: Anchor - sprite height
	Bottom float64 // y of the bottom piece: Anchor + gap
	Passed bool
}

// Ground is the two-tile scrolling base layer.
type Ground struct {
	Y      float64
	X1, X2 float64
	Width  float64
}
