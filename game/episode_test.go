package game

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/flappy/assets"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/neural"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func testSprites(t *testing.T, cfg *config.Config) Sprites {
	t.Helper()
	b, err := assets.Load(cfg)
	if err != nil {
		t.Fatalf("loading sprites: %v", err)
	}
	return b
}

func variantOptions(t *testing.T, cfg *config.Config, name string) Options {
	t.Helper()
	opts, err := OptionsFromConfig(cfg, name)
	if err != nil {
		t.Fatalf("variant %s: %v", name, err)
	}
	return opts
}

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// constDecider always returns the same output.
type constDecider float64

func (c constDecider) Activate([]float64) ([]float64, error) {
	return []float64{float64(c)}, nil
}

// failingDecider always errors.
type failingDecider struct{}

func (failingDecider) Activate([]float64) ([]float64, error) {
	return nil, errors.New("broken network")
}

// fitness is a minimal FitnessSink.
type fitness struct {
	value     float64
	rewards   int
	penalties int
}

func (f *fitness) Reward(d float64)   { f.value += d; f.rewards++ }
func (f *fitness) Penalize(d float64) { f.value -= d; f.penalties++ }

// recorder keeps every published frame.
type recorder struct {
	frames []*Frame
}

func (r *recorder) Publish(f *Frame) { r.frames = append(r.frames, f) }

func (r *recorder) last() *Frame {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		variant     string
		mode        Mode
		pipes       bool
		ground      bool
		width       int
		onCollision Policy
		onBounds    Policy
	}{
		{"manual", ModeManual, true, true, 500, PolicyEnd, PolicyEnd},
		{"classic", ModeManual, true, true, 500, PolicyIgnore, PolicyIgnore},
		{"demo", ModeManual, false, false, 600, PolicyIgnore, PolicyIgnore},
		{"ai", ModeAI, true, true, 500, PolicyRemove, PolicyRemove},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			opts := variantOptions(t, cfg, tt.variant)
			if opts.Mode != tt.mode {
				t.Errorf("mode = %v, want %v", opts.Mode, tt.mode)
			}
			if opts.Pipes != tt.pipes || opts.Ground != tt.ground {
				t.Errorf("pipes/ground = %v/%v, want %v/%v", opts.Pipes, opts.Ground, tt.pipes, tt.ground)
			}
			if opts.Width != tt.width || opts.Height != 800 {
				t.Errorf("size = %dx%d, want %dx800", opts.Width, opts.Height, tt.width)
			}
			if opts.OnCollision != tt.onCollision || opts.OnOutOfBounds != tt.onBounds {
				t.Errorf("policies = %v/%v, want %v/%v", opts.OnCollision, opts.OnOutOfBounds, tt.onCollision, tt.onBounds)
			}
		})
	}

	if _, err := OptionsFromConfig(cfg, "arcade"); !errors.Is(err, config.ErrUnknownVariant) {
		t.Errorf("unknown variant error = %v, want ErrUnknownVariant", err)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"ignore", "remove", "end"} {
		p, err := ParsePolicy(name)
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", name, err)
		}
		if p.String() != name {
			t.Errorf("round trip %q -> %q", name, p.String())
		}
	}
	if _, err := ParsePolicy("explode"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
	if _, err := ParseMode("robot"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestNeverJumpingPilotIsPenalizedOnce(t *testing.T) {
	cfg := testConfig(t)
	opts := variantOptions(t, cfg, "ai")

	sink := &fitness{}
	res := EvaluateGeneration(context.Background(), cfg, opts, testSprites(t, cfg),
		[]Candidate{{ID: 1, Decider: constDecider(-1), Sink: sink}}, Env{})

	if res.Reason != ReasonExtinct {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonExtinct)
	}
	// 350 -> 351.5 -> 357.5 -> 371, then +16 per tick until y+48 >= 730.
	if res.Ticks != 23 {
		t.Errorf("ticks = %d, want 23", res.Ticks)
	}
	if sink.penalties != 1 {
		t.Errorf("penalties = %d, want 1", sink.penalties)
	}
	if sink.rewards != res.Ticks {
		t.Errorf("rewards = %d, want one per tick (%d)", sink.rewards, res.Ticks)
	}
	want := 0.1*float64(res.Ticks) - 1.0
	if math.Abs(sink.value-want) > 1e-9 {
		t.Errorf("fitness = %f, want %f", sink.value, want)
	}
	t.Logf("fell after %d ticks with fitness %.2f", res.Ticks, sink.value)
}

func TestDeciderErrorMeansNoJump(t *testing.T) {
	cfg := testConfig(t)
	opts := variantOptions(t, cfg, "ai")

	sink := &fitness{}
	res := EvaluateGeneration(context.Background(), cfg, opts, testSprites(t, cfg),
		[]Candidate{{ID: 7, Decider: failingDecider{}, Sink: sink}}, Env{})

	if res.Ticks != 23 {
		t.Errorf("ticks = %d, want 23 (same as a never-jumping pilot)", res.Ticks)
	}
	if sink.penalties != 1 {
		t.Errorf("penalties = %d, want 1", sink.penalties)
	}
}

func TestScoreIncrementsOncePerTick(t *testing.T) {
	cfg := testConfig(t)
	opts := variantOptions(t, cfg, "ai")
	opts.Ground = false
	opts.OnCollision = PolicyIgnore
	opts.OnOutOfBounds = PolicyIgnore
	opts.MaxTicks = 100

	sinks := make([]*fitness, 5)
	candidates := make([]Candidate, len(sinks))
	for i := range sinks {
		sinks[i] = &fitness{}
		candidates[i] = Candidate{ID: i, Decider: constDecider(0), Sink: sinks[i]}
	}
	rec := &recorder{}
	res := EvaluateGeneration(context.Background(), cfg, opts, testSprites(t, cfg), candidates, Env{Sinks: []FrameSink{rec}})

	if res.Reason != ReasonMaxTicks || res.Ticks != 100 {
		t.Fatalf("result = %+v, want max_ticks at 100", res)
	}
	// Five birds pass the first pipe together on tick 96.
	if res.Score != 1 {
		t.Errorf("score = %d, want 1", res.Score)
	}
	scoredTicks := 0
	for _, f := range rec.frames {
		if f.Events.Scored > 1 {
			t.Errorf("tick %d scored %d times", f.Tick, f.Events.Scored)
		}
		if f.Events.Scored == 1 {
			scoredTicks++
			if len(f.Pipes) != 2 {
				t.Errorf("tick %d: %d pipes after a pass, want 2", f.Tick, len(f.Pipes))
			}
		}
	}
	if scoredTicks != 1 {
		t.Errorf("scoring ticks = %d, want 1", scoredTicks)
	}
	for i, s := range sinks {
		if s.penalties != 0 || s.rewards != 100 {
			t.Errorf("bird %d: rewards=%d penalties=%d, want 100/0", i, s.rewards, s.penalties)
		}
	}
}

func TestManualEndsOnFloor(t *testing.T) {
	cfg := testConfig(t)
	ep := NewEpisode(cfg, variantOptions(t, cfg, "manual"), testSprites(t, cfg))
	ep.AddBird(0, nil, nil)
	ep.SetInput(&ScriptedInput{})

	res := ep.Run(context.Background(), nil)
	if res.Reason != ReasonOutOfBounds {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonOutOfBounds)
	}
	if res.Ticks != 23 {
		t.Errorf("ticks = %d, want 23", res.Ticks)
	}
	if res.Survivors != 1 {
		t.Errorf("end policy should not remove the bird, survivors = %d", res.Survivors)
	}
	if ep.Step(context.Background()) {
		t.Error("Step after termination should return false")
	}
}

func TestClassicIgnoresFloor(t *testing.T) {
	cfg := testConfig(t)
	opts := variantOptions(t, cfg, "classic")
	opts.MaxTicks = 60

	ep := NewEpisode(cfg, opts, testSprites(t, cfg))
	ep.AddBird(0, nil, nil)
	rec := &recorder{}
	ep.Attach(rec)

	res := ep.Run(context.Background(), nil)
	if res.Reason != ReasonMaxTicks {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonMaxTicks)
	}
	f := rec.last()
	if len(f.Birds) != 1 {
		t.Fatalf("birds = %d, want 1", len(f.Birds))
	}
	if y := f.Birds[0].Bird.Y; y < cfg.Ground.Y {
		t.Errorf("bird y = %f, expected it to have fallen through the floor at %f", y, cfg.Ground.Y)
	}
	if f.Birds[0].Bird.Tilt != cfg.Physics.MinTilt {
		t.Errorf("tilt = %f, want %f", f.Birds[0].Bird.Tilt, cfg.Physics.MinTilt)
	}
}

func TestDemoHasNoPipes(t *testing.T) {
	cfg := testConfig(t)
	opts := variantOptions(t, cfg, "demo")
	opts.MaxTicks = 40

	ep := NewEpisode(cfg, opts, testSprites(t, cfg))
	ep.AddBird(0, nil, nil)
	ep.SetInput(&ScriptedInput{JumpTicks: EveryN(8, 40)})
	rec := &recorder{}
	ep.Attach(rec)

	res := ep.Run(context.Background(), nil)
	if res.Reason != ReasonMaxTicks || res.Score != 0 {
		t.Errorf("result = %+v, want max_ticks with score 0", res)
	}
	jumps := 0
	for _, f := range rec.frames {
		if f.HasPipes || len(f.Pipes) != 0 {
			t.Fatalf("tick %d has pipes", f.Tick)
		}
		if f.HasGround {
			t.Fatalf("tick %d has ground", f.Tick)
		}
		jumps += f.Events.Jumps
	}
	if jumps != 5 {
		t.Errorf("jumps = %d, want 5", jumps)
	}
}

func TestQuitPublishesFinalFrame(t *testing.T) {
	cfg := testConfig(t)
	ep := NewEpisode(cfg, variantOptions(t, cfg, "classic"), testSprites(t, cfg))
	ep.AddBird(0, nil, nil)
	ep.SetInput(&ScriptedInput{QuitAfter: 5})
	rec := &recorder{}
	ep.Attach(rec)

	res := ep.Run(context.Background(), nil)
	if res.Reason != ReasonQuit || res.Ticks != 5 {
		t.Fatalf("result = %+v, want quit after 5 ticks", res)
	}
	if len(rec.frames) != 6 {
		t.Fatalf("frames = %d, want 6", len(rec.frames))
	}
	last := rec.last()
	if last.State != Terminated || last.Reason != ReasonQuit {
		t.Errorf("final frame state=%v reason=%q", last.State, last.Reason)
	}
	for i, f := range rec.frames[:5] {
		if f.State != Running {
			t.Errorf("frame %d state = %v, want running", i, f.State)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	ep := NewEpisode(cfg, variantOptions(t, cfg, "classic"), testSprites(t, cfg))
	ep.AddBird(0, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := ep.Run(ctx, nil)
	if res.Reason != ReasonCancelled || res.Ticks != 0 {
		t.Errorf("result = %+v, want cancelled at tick 0", res)
	}
}

func TestEmptyEpisodeIsExtinct(t *testing.T) {
	cfg := testConfig(t)
	res := EvaluateGeneration(context.Background(), cfg, variantOptions(t, cfg, "ai"), testSprites(t, cfg), nil, Env{})
	if res.Reason != ReasonExtinct || res.Ticks != 1 {
		t.Errorf("result = %+v, want extinct after 1 tick", res)
	}
}

func TestReferencePipe(t *testing.T) {
	cfg := testConfig(t)
	ep := NewEpisode(cfg, variantOptions(t, cfg, "ai"), testSprites(t, cfg))
	ep.AddBird(0, constDecider(0), nil)

	live := ep.snapshot()
	if ref := ep.referencePipe(live); ref == nil || ref.ID != 1 {
		t.Fatalf("single pipe: ref = %+v, want pipe 1", ref)
	}

	// First pipe still overlapping the bird: keep sensing it.
	ep.spawnPipe(cfg.Pipes.SpawnX)
	ep.pipes.Front().Value.X = 150
	if ref := ep.referencePipe(live); ref.ID != 1 {
		t.Errorf("overlapping: ref = pipe %d, want 1", ref.ID)
	}

	// Trailing edge 100+104 is behind the bird at 230.
	ep.pipes.Front().Value.X = 100
	if ref := ep.referencePipe(live); ref.ID != 2 {
		t.Errorf("passed: ref = pipe %d, want 2", ref.ID)
	}
	if ref := ep.Frame().RefPipe(); ref == nil || ref.ID != 2 {
		t.Errorf("frame ref = %+v, want pipe 2", ref)
	}
}

func TestSensors(t *testing.T) {
	cfg := testConfig(t)
	ep := NewEpisode(cfg, variantOptions(t, cfg, "ai"), testSprites(t, cfg))
	ep.AddBird(0, nil, nil)
	bird := ep.birdMap.Get(ep.snapshot()[0].entity)

	pipe := ep.pipes.Front().Value
	pipe.Anchor = 300
	pipe.Bottom = 500

	got := Sensors(bird, pipe)
	want := []float64{350, 50, 150}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sensor %d = %f, want %f", i, got[i], want[i])
		}
	}

	got = Sensors(bird, nil)
	if got[0] != 350 || got[1] != 0 || got[2] != 0 {
		t.Errorf("no pipe sensors = %v", got)
	}
}

func TestDigestDeterministic(t *testing.T) {
	cfg := testConfig(t)
	opts := variantOptions(t, cfg, "ai")
	opts.Seed = 11
	opts.MaxTicks = 200
	sprites := testSprites(t, cfg)

	run := func() *DigestSink {
		pop, err := neural.NewPopulation(neural.PopulationConfig{Size: 8, InitialConnectionProb: 1}, neural.DefaultNEATOptions(), newRand(3))
		if err != nil {
			t.Fatal(err)
		}
		candidates := make([]Candidate, 0, len(pop.Organisms))
		for _, o := range pop.Organisms {
			ctrl, err := neural.NewController(o.Genome)
			if err != nil {
				t.Fatal(err)
			}
			candidates = append(candidates, Candidate{ID: o.ID(), Decider: ctrl, Sink: o})
		}
		d := &DigestSink{}
		EvaluateGeneration(context.Background(), cfg, opts, sprites, candidates, Env{Sinks: []FrameSink{d}})
		return d
	}

	a, b := run(), run()
	if a.Frames == 0 {
		t.Fatal("no frames digested")
	}
	if a.Sum != b.Sum || a.Frames != b.Frames {
		t.Errorf("digests differ: %x/%d vs %x/%d", a.Sum, a.Frames, b.Sum, b.Frames)
	}
}

func TestDigestSensitivity(t *testing.T) {
	cfg := testConfig(t)
	ep := NewEpisode(cfg, variantOptions(t, cfg, "ai"), testSprites(t, cfg))
	ep.AddBird(0, nil, nil)

	f := ep.Frame()
	base := Digest(f)
	if Digest(ep.Frame()) != base {
		t.Fatal("digest of identical state changed")
	}
	f.Birds[0].Bird.Y += 0.5
	if Digest(f) == base {
		t.Error("digest ignored bird position")
	}
	f.Birds[0].Bird.Y -= 0.5
	f.Pipes[0].Passed = true
	if Digest(f) == base {
		t.Error("digest ignored pipe state")
	}
}
