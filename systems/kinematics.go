// Package systems contains the per-tick update rules for birds, pipes and ground.
package systems

import (
	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// Displacement returns the vertical travel for tick t of an arc that started
// with velocity vel. Travel is capped at the terminal velocity, and rising
// travel gets an extra ascent boost.
func Displacement(p config.PhysicsConfig, vel float64, t int) float64 {
	ft := float64(t)
	d := vel*ft + p.Gravity*ft*ft
	if d >= p.TerminalVelocity {
		d = p.TerminalVelocity
	}
	if d < 0 {
		d -= p.AscentBoost
	}
	return d
}

// Advance moves the bird one tick along its arc and updates its tilt.
// Returns the displacement applied.
func Advance(p config.PhysicsConfig, b *components.Bird) float64 {
	b.Ticks++
	d := Displacement(p, b.Vel, b.Ticks)
	b.Y += d

	if d < 0 || b.Y < b.Height+p.TiltGrace {
		// Snap up, never lowers an already higher tilt.
		if b.Tilt < p.MaxTilt {
			b.Tilt = p.MaxTilt
		}
	} else if b.Tilt > p.MinTilt {
		b.Tilt -= p.TiltRate
		if b.Tilt < p.MinTilt {
			b.Tilt = p.MinTilt
		}
	}
	return d
}

// Jump starts a new arc from the bird's current height. Always legal.
func Jump(p config.PhysicsConfig, b *components.Bird) {
	b.Vel = p.JumpVelocity
	b.Ticks = 0
	b.Height = b.Y
}

// noseDiveTilt is the tilt at or below which the wings stop flapping.
const noseDiveTilt = -80

// flapCycle maps the animation counter (in units of animation ticks) to a frame.
var flapCycle = [...]int{0, 1, 2, 1}

// Animate advances the wing-flap cycle: frames 0,1,2,1 each held for
// animation_ticks, then back to 0. A nose-diving bird holds frame 1.
func Animate(p config.PhysicsConfig, b *components.Bird) {
	n := p.AnimationTicks
	b.Anim++
	switch {
	case b.Anim < n*len(flapCycle):
		b.Frame = flapCycle[b.Anim/n]
	case b.Anim == n*len(flapCycle)+1:
		b.Frame = 0
		b.Anim = 0
	}

	if b.Tilt <= noseDiveTilt {
		b.Frame = 1
		b.Anim = n * 2
	}
}
