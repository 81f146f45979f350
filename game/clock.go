package game

import "time"

// TickerClock paces the loop at a fixed tick rate.
type TickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock returns a clock ticking hz times per second.
func NewTickerClock(hz int) *TickerClock {
	if hz < 1 {
		hz = 30
	}
	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(hz))}
}

// Wait blocks until the next tick boundary.
func (c *TickerClock) Wait() { <-c.ticker.C }

// Stop releases the ticker.
func (c *TickerClock) Stop() { c.ticker.Stop() }

// MultiSink fans a frame out to several sinks.
type MultiSink []FrameSink

// Publish implements FrameSink.
func (m MultiSink) Publish(f *Frame) {
	for _, s := range m {
		s.Publish(f)
	}
}

// ScriptedInput replays jumps on fixed ticks. It never quits unless
// QuitAfter is positive and that many polls have happened. The episode
// polls Quit once per tick in every mode, so Quit keeps the tick count and
// Jump only looks it up.
type ScriptedInput struct {
	JumpTicks map[int]bool
	QuitAfter int

	polls int
}

// Jump reports whether the current tick is scripted to jump.
func (s *ScriptedInput) Jump() bool {
	return s.JumpTicks[s.Tick()]
}

// Quit is polled once per tick before Jump.
func (s *ScriptedInput) Quit() bool {
	s.polls++
	return s.QuitAfter > 0 && s.polls > s.QuitAfter
}

// Tick is the tick of the last Quit poll, or 0 before the first one.
func (s *ScriptedInput) Tick() int {
	if s.polls == 0 {
		return 0
	}
	return s.polls - 1
}

// EveryN returns a script that jumps on every n-th tick, starting at tick 0.
func EveryN(n, ticks int) map[int]bool {
	jumps := make(map[int]bool)
	if n < 1 {
		return jumps
	}
	for t := 0; t < ticks; t += n {
		jumps[t] = true
	}
	return jumps
}
