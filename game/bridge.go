package game

import (
	"context"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/telemetry"
)

// Candidate pairs a controller with the fitness it accumulates.
type Candidate struct {
	ID      int
	Decider components.Decider
	Sink    components.FitnessSink
}

// Env carries the optional frontends attached to an evaluation.
type Env struct {
	Sinks []FrameSink
	Input Input // quit only; jumps are ignored in AI mode
	Clock Clock
	Perf  *telemetry.PerfCollector
}

// EvaluateGeneration flies one bird per candidate in a single AI episode
// and returns when every bird is gone or the episode is otherwise ended.
// Fitness is not reset here; the caller zeroes it before evaluating.
func EvaluateGeneration(ctx context.Context, cfg *config.Config, opts Options, sprites Sprites, candidates []Candidate, env Env) Result {
	opts.Mode = ModeAI
	ep := NewEpisode(cfg, opts, sprites)
	for _, c := range candidates {
		ep.AddBird(c.ID, c.Decider, c.Sink)
	}
	ep.SetInput(env.Input)
	ep.SetPerf(env.Perf)
	ep.Attach(env.Sinks...)
	return ep.Run(ctx, env.Clock)
}
