package game

import "github.com/pthm-cable/flappy/components"

// State is the loop's lifecycle state.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Reason records why an episode terminated.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonQuit        Reason = "quit"
	ReasonExtinct     Reason = "extinct"
	ReasonCollision   Reason = "collision"
	ReasonOutOfBounds Reason = "out_of_bounds"
	ReasonMaxTicks    Reason = "max_ticks"
	ReasonCancelled   Reason = "cancelled"
)

// BirdView is a bird as seen by frame sinks.
type BirdView struct {
	ID   int             `json:"id"`
	Seq  int             `json:"seq"`
	Bird components.Bird `json:"bird"`
}

// Events counts what happened during the tick that produced a frame.
type Events struct {
	Jumps   int `json:"jumps"`
	Scored  int `json:"scored"`
	Hits    int `json:"hits"`
	Removed int `json:"removed"`
}

// Frame is a snapshot of the episode after a tick. Every tick allocates a
// new frame, so sinks may keep it but must not modify it.
type Frame struct {
	Tick      int               `json:"tick"`
	Score     int               `json:"score"`
	Birds     []BirdView        `json:"birds"`
	Pipes     []components.Pipe `json:"pipes"`
	Ground    components.Ground `json:"ground"`
	HasGround bool              `json:"has_ground"`
	HasPipes  bool              `json:"has_pipes"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Ref       int               `json:"ref"` // index of the sensed pipe, -1 when none
	Events    Events            `json:"events"`
	State     State             `json:"state"`
	Reason    Reason            `json:"reason,omitempty"`
}

// RefPipe returns the pipe the pilots sense, or nil.
func (f *Frame) RefPipe() *components.Pipe {
	if f.Ref < 0 || f.Ref >= len(f.Pipes) {
		return nil
	}
	return &f.Pipes[f.Ref]
}

// Input is polled once per tick. Jump is only consulted in manual mode.
type Input interface {
	Jump() bool
	Quit() bool
}

// FrameSink receives every published frame.
type FrameSink interface {
	Publish(f *Frame)
}

// Clock paces the loop between ticks.
type Clock interface {
	Wait()
}

// Result summarizes a finished episode.
type Result struct {
	Ticks     int    `json:"ticks"`
	Score     int    `json:"score"`
	Reason    Reason `json:"reason"`
	Survivors int    `json:"survivors"`
}
