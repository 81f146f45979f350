// Package game runs the tick loop shared by every variant: manual play,
// the classic and demo presets, and AI population training.
package game

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/mask"
	"github.com/pthm-cable/flappy/systems"
	"github.com/pthm-cable/flappy/telemetry"
)

// Sprites supplies collision masks and sprite sizes. *assets.Bundle satisfies it.
type Sprites interface {
	BirdMask(frame int) *mask.Mask
	PipeMasks() systems.PipeMasks
	BirdSize() (w, h int)
	PipeSize() (w, h int)
	BaseWidth() int
}

// Episode is one run of the game loop, from the first tick to termination.
type Episode struct {
	cfg     *config.Config
	opts    Options
	sprites Sprites

	world      *ecs.World
	birdMapper *ecs.Map2[components.Bird, components.Pilot]
	birdFilter *ecs.Filter2[components.Bird, components.Pilot]
	birdMap    *ecs.Map1[components.Bird]
	pilotMap   *ecs.Map1[components.Pilot]

	// Pipes in spawn order, so the front is always the nearest.
	pipes   *orderedmap.OrderedMap[int, *components.Pipe]
	pipeGen *systems.PipeGenerator
	ground  components.Ground

	input Input
	sinks []FrameSink
	perf  *telemetry.PerfCollector

	state   State
	reason  Reason
	tick    int
	score   int
	nextSeq int
	alive   int
	events  Events
}

// liveBird is a bird in the tick's snapshot.
type liveBird struct {
	entity ecs.Entity
	seq    int
	dead   bool
}

// NewEpisode creates an episode with no birds. The first pipe is placed at
// pipes.first_x when the options enable pipes.
func NewEpisode(cfg *config.Config, opts Options, sprites Sprites) *Episode {
	world := ecs.NewWorld()
	pipeW, pipeH := sprites.PipeSize()

	e := &Episode{
		cfg:        cfg,
		opts:       opts,
		sprites:    sprites,
		world:      world,
		birdMapper: ecs.NewMap2[components.Bird, components.Pilot](world),
		birdFilter: ecs.NewFilter2[components.Bird, components.Pilot](world),
		birdMap:    ecs.NewMap1[components.Bird](world),
		pilotMap:   ecs.NewMap1[components.Pilot](world),
		pipes:      orderedmap.NewOrderedMap[int, *components.Pipe](),
		pipeGen:    systems.NewPipeGenerator(cfg.Pipes, pipeW, pipeH, rand.New(rand.NewSource(opts.Seed))),
	}

	if opts.Ground {
		e.ground = systems.NewGround(cfg.Ground.Y, float64(sprites.BaseWidth()))
	}
	if opts.Pipes {
		e.spawnPipe(cfg.Pipes.FirstX)
	}
	return e
}

// AddBird spawns a bird at the configured start point. In manual mode the
// decider and sink may be nil.
func (e *Episode) AddBird(id int, decider components.Decider, sink components.FitnessSink) {
	bird := components.NewBird(e.cfg.Bird.X, e.cfg.Bird.Y)
	pilot := components.Pilot{ID: id, Seq: e.nextSeq, Decider: decider, Sink: sink}
	e.birdMapper.NewEntity(&bird, &pilot)
	e.nextSeq++
	e.alive++
}

// SetInput sets the quit and jump source.
func (e *Episode) SetInput(in Input) { e.input = in }

// Attach adds frame sinks.
func (e *Episode) Attach(sinks ...FrameSink) {
	for _, s := range sinks {
		if s != nil {
			e.sinks = append(e.sinks, s)
		}
	}
}

// SetPerf enables per-phase tick timing.
func (e *Episode) SetPerf(p *telemetry.PerfCollector) { e.perf = p }

// State returns the current lifecycle state.
func (e *Episode) State() State { return e.state }

// Tick returns the number of completed ticks.
func (e *Episode) Tick() int { return e.tick }

// Score returns the number of pipes passed.
func (e *Episode) Score() int { return e.score }

// Alive returns the number of live birds.
func (e *Episode) Alive() int { return e.alive }

// Options returns the episode's options.
func (e *Episode) Options() Options { return e.opts }

// Result summarizes the episode so far.
func (e *Episode) Result() Result {
	return Result{Ticks: e.tick, Score: e.score, Reason: e.reason, Survivors: e.alive}
}

// Run steps the episode until it terminates, waiting on clock between ticks.
// A nil clock runs unthrottled.
func (e *Episode) Run(ctx context.Context, clock Clock) Result {
	for e.Step(ctx) {
		if clock != nil {
			clock.Wait()
		}
	}
	return e.Result()
}

// Step runs one tick. Returns false once the episode has terminated.
func (e *Episode) Step(ctx context.Context) bool {
	if e.state == Terminated {
		return false
	}
	if ctx.Err() != nil {
		e.stop(ReasonCancelled)
		return false
	}
	if e.input != nil && e.input.Quit() {
		e.stop(ReasonQuit)
		return false
	}

	e.events = Events{}
	live := e.snapshot()
	e.perf.StartTick(len(live))

	e.perf.StartPhase(telemetry.PhaseKinematics)
	ref := e.referencePipe(live)
	for _, lb := range live {
		systems.Advance(e.cfg.Physics, e.birdMap.Get(lb.entity))
		if e.opts.Mode == ModeAI {
			if pilot := e.pilotMap.Get(lb.entity); pilot.Sink != nil {
				pilot.Sink.Reward(e.cfg.Fitness.SurvivalReward)
			}
		}
	}

	e.perf.StartPhase(telemetry.PhaseDecide)
	pressed := e.opts.Mode == ModeManual && e.input != nil && e.input.Jump()
	for _, lb := range live {
		bird := e.birdMap.Get(lb.entity)
		jump := pressed
		if e.opts.Mode == ModeAI {
			jump = e.decide(bird, e.pilotMap.Get(lb.entity), ref)
		}
		if jump {
			systems.Jump(e.cfg.Physics, bird)
			e.events.Jumps++
		}
	}

	e.perf.StartPhase(telemetry.PhasePipes)
	pending := e.updatePipes(live)

	e.perf.StartPhase(telemetry.PhaseBounds)
	if r := e.checkBounds(live); pending == ReasonNone {
		pending = r
	}
	e.removeDead(live)

	e.perf.StartPhase(telemetry.PhaseGround)
	if e.opts.Ground {
		systems.ScrollGround(&e.ground, e.cfg.Ground.Speed)
	}
	for _, lb := range live {
		if !lb.dead {
			systems.Animate(e.cfg.Physics, e.birdMap.Get(lb.entity))
		}
	}
	e.tick++

	switch {
	case pending != ReasonNone:
		e.terminate(pending)
	case e.alive == 0:
		e.terminate(ReasonExtinct)
	case e.opts.MaxTicks > 0 && e.tick >= e.opts.MaxTicks:
		e.terminate(ReasonMaxTicks)
	}

	e.perf.StartPhase(telemetry.PhasePublish)
	e.publish(live)
	e.perf.EndTick()

	return e.state == Running
}

// snapshot returns the live birds ordered by spawn sequence.
func (e *Episode) snapshot() []liveBird {
	live := make([]liveBird, 0, e.alive)
	query := e.birdFilter.Query()
	for query.Next() {
		_, pilot := query.Get()
		live = append(live, liveBird{entity: query.Entity(), seq: pilot.Seq})
	}
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	return live
}

// referencePipe is the pipe the pilots sense: the second one once the lead
// bird is past the first pipe's trailing edge.
func (e *Episode) referencePipe(live []liveBird) *components.Pipe {
	first := e.pipes.Front()
	if first == nil {
		return nil
	}
	if len(live) > 0 {
		lead := e.birdMap.Get(live[0].entity)
		if next := first.Next(); next != nil && lead.X > e.pipeGen.TrailingEdge(*first.Value) {
			return next.Value
		}
	}
	return first.Value
}

// decide queries the pilot's controller. A failing controller never jumps.
func (e *Episode) decide(bird *components.Bird, pilot *components.Pilot, ref *components.Pipe) bool {
	if pilot.Decider == nil {
		return false
	}
	out, err := pilot.Decider.Activate(Sensors(bird, ref))
	if err != nil || len(out) == 0 {
		slog.Debug("decider failed", "pilot", pilot.ID, "tick", e.tick, "error", err)
		return false
	}
	return out[0] > e.cfg.Fitness.JumpThreshold
}

// Sensors returns the pilot inputs: height, distance to the gap's top edge
// and distance to the gap's bottom edge.
func Sensors(bird *components.Bird, ref *components.Pipe) []float64 {
	if ref == nil {
		return []float64{bird.Y, 0, 0}
	}
	return []float64{
		bird.Y,
		math.Abs(bird.Y - float64(ref.Anchor)),
		math.Abs(bird.Y - ref.Bottom),
	}
}

// updatePipes tests every pipe against every bird still in the snapshot,
// scrolls the pipes, spawns at most one new pipe and drops retired ones.
func (e *Episode) updatePipes(live []liveBird) Reason {
	if !e.opts.Pipes {
		return ReasonNone
	}

	pending := ReasonNone
	masks := e.sprites.PipeMasks()
	addPipe := false
	var retired []int

	for el := e.pipes.Front(); el != nil; el = el.Next() {
		pipe := el.Value
		for i := range live {
			lb := &live[i]
			if lb.dead {
				continue
			}
			bird := e.birdMap.Get(lb.entity)
			if systems.Collides(e.sprites.BirdMask(bird.Frame), *bird, *pipe, masks) {
				e.events.Hits++
				switch e.opts.OnCollision {
				case PolicyRemove:
					e.kill(lb)
				case PolicyEnd:
					pending = ReasonCollision
				}
			}
			if systems.PipePassed(*pipe, bird.X) {
				systems.MarkPassed(pipe)
				addPipe = true
			}
		}
		if e.pipeGen.Retired(*pipe) {
			retired = append(retired, el.Key)
		}
		e.pipeGen.Advance(pipe)
	}

	if addPipe {
		e.score++
		e.events.Scored++
		e.spawnPipe(e.cfg.Pipes.SpawnX)
	}
	for _, id := range retired {
		e.pipes.Delete(id)
	}
	return pending
}

// checkBounds applies the out-of-bounds policy to every bird still alive.
func (e *Episode) checkBounds(live []liveBird) Reason {
	floor := float64(e.opts.Height)
	if e.opts.Ground {
		floor = e.ground.Y
	}
	_, birdH := e.sprites.BirdSize()

	pending := ReasonNone
	for i := range live {
		lb := &live[i]
		if lb.dead || !systems.OutOfBounds(*e.birdMap.Get(lb.entity), birdH, floor) {
			continue
		}
		switch e.opts.OnOutOfBounds {
		case PolicyRemove:
			e.kill(lb)
		case PolicyEnd:
			pending = ReasonOutOfBounds
		}
	}
	return pending
}

// kill penalizes the bird's pilot and marks it for removal.
func (e *Episode) kill(lb *liveBird) {
	if lb.dead {
		return
	}
	lb.dead = true
	if pilot := e.pilotMap.Get(lb.entity); pilot.Sink != nil {
		pilot.Sink.Penalize(e.cfg.Fitness.CollisionPenalty)
	}
}

// removeDead drops marked birds. Runs outside any query.
func (e *Episode) removeDead(live []liveBird) {
	for _, lb := range live {
		if lb.dead {
			e.world.RemoveEntity(lb.entity)
			e.alive--
			e.events.Removed++
		}
	}
}

func (e *Episode) spawnPipe(x float64) {
	p := e.pipeGen.Create(x)
	e.pipes.Set(p.ID, &p)
}

func (e *Episode) terminate(reason Reason) {
	e.state = Terminated
	e.reason = reason
	slog.Debug("episode terminated",
		"variant", e.opts.Variant,
		"reason", string(reason),
		"tick", e.tick,
		"score", e.score,
		"survivors", e.alive,
	)
}

// stop terminates between ticks and publishes the final frame.
func (e *Episode) stop(reason Reason) {
	e.terminate(reason)
	e.events = Events{}
	e.publish(e.snapshot())
}

func (e *Episode) publish(live []liveBird) {
	if len(e.sinks) == 0 {
		return
	}
	f := e.frame(live)
	for _, s := range e.sinks {
		s.Publish(f)
	}
}

// Frame builds a snapshot of the current state.
func (e *Episode) Frame() *Frame {
	return e.frame(e.snapshot())
}

func (e *Episode) frame(live []liveBird) *Frame {
	f := &Frame{
		Tick:      e.tick,
		Score:     e.score,
		Birds:     make([]BirdView, 0, len(live)),
		Pipes:     make([]components.Pipe, 0, e.pipes.Len()),
		Ground:    e.ground,
		HasGround: e.opts.Ground,
		HasPipes:  e.opts.Pipes,
		Width:     e.opts.Width,
		Height:    e.opts.Height,
		Events:    e.events,
		State:     e.state,
		Reason:    e.reason,
	}
	for _, lb := range live {
		if lb.dead {
			continue
		}
		pilot := e.pilotMap.Get(lb.entity)
		f.Birds = append(f.Birds, BirdView{ID: pilot.ID, Seq: pilot.Seq, Bird: *e.birdMap.Get(lb.entity)})
	}
	for el := e.pipes.Front(); el != nil; el = el.Next() {
		f.Pipes = append(f.Pipes, *el.Value)
	}
	f.Ref = -1
	if len(f.Pipes) > 0 {
		f.Ref = 0
		if len(f.Birds) > 0 && len(f.Pipes) > 1 && f.Birds[0].Bird.X > e.pipeGen.TrailingEdge(f.Pipes[0]) {
			f.Ref = 1
		}
	}
	return f
}
