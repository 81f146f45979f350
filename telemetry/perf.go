package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase identifies one stage of a game tick.
type Phase int

// Tick phases, in execution order.
const (
	PhaseKinematics Phase = iota
	PhaseDecide
	PhasePipes
	PhaseBounds
	PhaseGround
	PhasePublish
	NumPhases
)

var phaseKeys = [NumPhases]string{"kinematics", "decide", "pipes", "bounds", "ground", "publish"}

func (p Phase) String() string {
	if p < 0 || p >= NumPhases {
		return "unknown"
	}
	return phaseKeys[p]
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	Tick   time.Duration
	Phases [NumPhases]time.Duration
	Birds  int // live birds at the start of the tick
}

// PerfCollector keeps a ring of recent tick samples.
// A nil collector is valid and records nothing.
type PerfCollector struct {
	samples []PerfSample
	next    int
	count   int

	current    PerfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase // NumPhases when no phase is open

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 30
	}
	return &PerfCollector{
		samples: make([]PerfSample, window),
		phase:   NumPhases,
	}
}

// StartTick begins timing a tick flown by birds live birds.
func (p *PerfCollector) StartTick(birds int) {
	if p == nil {
		return
	}
	p.tickStart = time.Now()
	p.current = PerfSample{Birds: birds}
	p.phase = NumPhases
}

// StartPhase closes the open phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	if p == nil {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 && p.phase < NumPhases {
		p.current.Phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the tick and stores its sample.
func (p *PerfCollector) EndTick() {
	if p == nil {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.phase = NumPhases
	p.current.Tick = now.Sub(p.tickStart)

	p.samples[p.next] = p.current
	p.next = (p.next + 1) % len(p.samples)
	if p.count < len(p.samples) {
		p.count++
	}
}

// RecordFrame marks a presented frame in windowed mode.
func (p *PerfCollector) RecordFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats aggregates the samples in the window.
type PerfStats struct {
	Samples int
	AvgTick time.Duration
	MaxTick time.Duration
	P95Tick time.Duration

	PhaseAvg [NumPhases]time.Duration
	PhasePct [NumPhases]float64

	// DecidePerBird is the average decide cost divided by live birds.
	DecidePerBird  time.Duration
	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p == nil {
		return s
	}
	s.FrameDuration = p.frame
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}
	s.Samples = p.count

	ticks := make([]float64, p.count)
	var total time.Duration
	var phaseSum [NumPhases]time.Duration
	var decidePerBird float64
	for i := 0; i < p.count; i++ {
		smp := p.samples[i]
		ticks[i] = float64(smp.Tick)
		total += smp.Tick
		s.MaxTick = max(s.MaxTick, smp.Tick)
		for ph, d := range smp.Phases {
			phaseSum[ph] += d
		}
		if smp.Birds > 0 {
			decidePerBird += float64(smp.Phases[PhaseDecide]) / float64(smp.Birds)
		}
	}
	sort.Float64s(ticks)
	s.P95Tick = time.Duration(stat.Quantile(0.95, stat.Empirical, ticks, nil))

	n := time.Duration(p.count)
	s.AvgTick = total / n
	s.DecidePerBird = time.Duration(decidePerBird / float64(p.count))
	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTick) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("p95_tick_us", s.P95Tick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Int64("decide_per_bird_ns", s.DecidePerBird.Nanoseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for ph := Phase(0); ph < NumPhases; ph++ {
		if s.PhasePct[ph] > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation      int     `csv:"generation"`
	Ticks           int     `csv:"ticks"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	P95TickUS       int64   `csv:"p95_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	DecidePerBirdNS int64   `csv:"decide_per_bird_ns"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	KinematicsPct   float64 `csv:"kinematics_pct"`
	DecidePct       float64 `csv:"decide_pct"`
	PipesPct        float64 `csv:"pipes_pct"`
	BoundsPct       float64 `csv:"bounds_pct"`
	GroundPct       float64 `csv:"ground_pct"`
	PublishPct      float64 `csv:"publish_pct"`
}

// ToCSV flattens the stats for one generation.
func (s PerfStats) ToCSV(generation, ticks int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:      generation,
		Ticks:           ticks,
		AvgTickUS:       s.AvgTick.Microseconds(),
		P95TickUS:       s.P95Tick.Microseconds(),
		MaxTickUS:       s.MaxTick.Microseconds(),
		DecidePerBirdNS: s.DecidePerBird.Nanoseconds(),
		TicksPerSec:     s.TicksPerSecond,
		KinematicsPct:   s.PhasePct[PhaseKinematics],
		DecidePct:       s.PhasePct[PhaseDecide],
		PipesPct:        s.PhasePct[PhasePipes],
		BoundsPct:       s.PhasePct[PhaseBounds],
		GroundPct:       s.PhasePct[PhaseGround],
		PublishPct:      s.PhasePct[PhasePublish],
	}
}
