package systems

import "github.com/pthm-cable/flappy/components"

// NewGround places two tiles of the given width side by side at y.
func NewGround(y, width float64) components.Ground {
	return components.Ground{Y: y, X1: 0, X2: width, Width: width}
}

// ScrollGround moves both tiles left; a tile that fully exits re-anchors
// behind the other.
func ScrollGround(g *components.Ground, speed float64) {
	g.X1 -= speed
	g.X2 -= speed
	if g.X1+g.Width < 0 {
		g.X1 = g.X2 + g.Width
	}
	if g.X2+g.Width < 0 {
		g.X2 = g.X1 + g.Width
	}
}
