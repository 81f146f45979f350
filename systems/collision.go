package systems

import (
	"math"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/mask"
)

// PipeMasks holds the collision masks of a pipe's two pieces.
type PipeMasks struct {
	Top    *mask.Mask
	Bottom *mask.Mask
}

// Collides tests the bird against both pieces of the pipe. Offsets place
// each piece relative to the bird's sprite origin.
func Collides(birdMask *mask.Mask, b components.Bird, p components.Pipe, pm PipeMasks) bool {
	by := int(math.RoundToEven(b.Y))
	dx := int(math.Round(p.X - b.X))

	if birdMask.Overlaps(pm.Bottom, dx, int(p.Bottom)-by) {
		return true
	}
	return birdMask.Overlaps(pm.Top, dx, int(p.Top)-by)
}

// OutOfBounds reports whether a bird of height birdH has reached the floor
// or left the top of the playfield.
func OutOfBounds(b components.Bird, birdH int, floorY float64) bool {
	return b.Y+float64(birdH) >= floorY || b.Y < 0
}
