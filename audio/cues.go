// Package audio plays short procedural cues for game events.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/pthm-cable/flappy/game"
)

const sampleRate = beep.SampleRate(48000)

// Cue identifies a sound.
type Cue int

const (
	CueJump Cue = iota
	CueScore
	CueHit
)

// Cues turns frame events into sounds. It implements game.FrameSink.
// At most one cue of each kind plays per frame.
type Cues struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	played      [3]int
}

// NewCues creates a cue player. Call Initialize to open the speaker.
func NewCues() *Cues {
	return &Cues{mixer: &beep.Mixer{}}
}

// Initialize opens the audio device.
func (c *Cues) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*50)); err != nil {
		return fmt.Errorf("opening speaker: %w", err)
	}
	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// Close silences any playing cues.
func (c *Cues) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
	c.initialized = false
}

// Publish plays the cues for the frame's events.
func (c *Cues) Publish(f *game.Frame) {
	if f.Events.Jumps > 0 {
		c.Play(CueJump)
	}
	if f.Events.Scored > 0 {
		c.Play(CueScore)
	}
	if f.Events.Hits > 0 || f.Events.Removed > 0 {
		c.Play(CueHit)
	}
}

// Play queues a cue on the mixer. Without a speaker it only counts.
func (c *Cues) Play(cue Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.played[cue]++
	if !c.initialized {
		return
	}
	speaker.Lock()
	c.mixer.Add(Stream(cue))
	speaker.Unlock()
}

// Played returns how often a cue was requested.
func (c *Cues) Played(cue Cue) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.played[cue]
}

// Stream builds the finite streamer for a cue.
func Stream(cue Cue) beep.Streamer {
	switch cue {
	case CueJump:
		return beep.Take(sampleRate.N(80*time.Millisecond), NewSweepGenerator(sampleRate, 440, 880, 80*time.Millisecond))
	case CueScore:
		return beep.Seq(
			beep.Take(sampleRate.N(60*time.Millisecond), NewSweepGenerator(sampleRate, 988, 988, 60*time.Millisecond)),
			beep.Take(sampleRate.N(120*time.Millisecond), NewSweepGenerator(sampleRate, 1319, 1319, 120*time.Millisecond)),
		)
	default:
		return beep.Take(sampleRate.N(150*time.Millisecond), NewSweepGenerator(sampleRate, 220, 90, 150*time.Millisecond))
	}
}

// SweepGenerator is a sine whose frequency moves linearly from one value
// to another over a duration, with a short attack and a linear release.
type SweepGenerator struct {
	sr       beep.SampleRate
	from, to float64
	length   int
	pos      int
	phase    float64
}

// NewSweepGenerator creates a sweep of the given duration.
func NewSweepGenerator(sr beep.SampleRate, from, to float64, d time.Duration) *SweepGenerator {
	return &SweepGenerator{sr: sr, from: from, to: to, length: max(sr.N(d), 1)}
}

func (g *SweepGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		frac := math.Min(float64(g.pos)/float64(g.length), 1)
		freq := g.from + (g.to-g.from)*frac
		g.phase += 2 * math.Pi * freq / float64(g.sr)

		attack := math.Min(float64(g.pos)/float64(g.sr)/0.005, 1)
		sample := 0.25 * math.Sin(g.phase) * attack * (1 - frac)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *SweepGenerator) Err() error {
	return nil
}
