package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/pthm-cable/flappy/assets"
	"github.com/pthm-cable/flappy/audio"
	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
	"github.com/pthm-cable/flappy/renderer"
	"github.com/pthm-cable/flappy/spectate"
	"github.com/pthm-cable/flappy/telemetry"
	"github.com/pthm-cable/flappy/terminal"
	"github.com/pthm-cable/flappy/ui"
)

type flags struct {
	variant     string
	configPath  string
	envPath     string
	headless    bool
	terminal    bool
	seed        int64
	generations int
	outputDir   string
	champions   string
	replay      string
	weights     string
	spectate    string
	sound       bool
	maxTicks    int
	statsview   string
	sentryDSN   string
}

func main() {
	var f flags
	flag.StringVar(&f.variant, "variant", "manual", "Game variant: manual, classic, demo or ai")
	flag.StringVar(&f.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.StringVar(&f.envPath, "env", "", "Path to a .env file with FLAPPY_* overrides (empty = ./.env if present)")
	flag.BoolVar(&f.headless, "headless", false, "Run without graphics")
	flag.BoolVar(&f.terminal, "terminal", false, "Draw in the terminal instead of a window")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (0 = time-based)")
	flag.IntVar(&f.generations, "generations", 0, "Generation cap for the ai variant (0 = use config)")
	flag.StringVar(&f.outputDir, "output-dir", "", "Output directory for CSV logs, hall of fame and config snapshot")
	flag.StringVar(&f.champions, "champions", "", "Bolt file storing each generation's champion")
	flag.StringVar(&f.replay, "replay", "", "Fly a saved champion: a champion .json file or a champions bolt file")
	flag.StringVar(&f.weights, "weights", "", "Fly a network tuned by cmd/tune (best_weights.json)")
	flag.StringVar(&f.spectate, "spectate", "", "Serve frames to websocket viewers on this address (e.g. :8080)")
	flag.BoolVar(&f.sound, "sound", false, "Play audio cues")
	flag.IntVar(&f.maxTicks, "max-ticks", 0, "End each episode after N ticks (0 = unlimited)")
	flag.StringVar(&f.statsview, "statsview", "", "Serve a runtime stats dashboard on this address")
	flag.StringVar(&f.sentryDSN, "sentry-dsn", "", "Report errors and panics to Sentry")
	flag.Parse()

	if err := config.LoadEnv(f.envPath); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	if err := config.Init(f.configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	cfg.ApplyEnv()
	if f.sentryDSN != "" {
		cfg.Reporting.SentryDSN = f.sentryDSN
	}
	if f.spectate != "" {
		cfg.Spectate.Addr = f.spectate
	}
	if f.statsview != "" {
		cfg.Reporting.StatsviewAddr = f.statsview
	}

	setupLogging(f)

	reporting := cfg.Reporting.SentryDSN != ""
	if reporting {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Reporting.SentryDSN}); err != nil {
			slog.Warn("sentry disabled", "error", err)
			reporting = false
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runRecovered(ctx, cfg, f, reporting)
	stop()

	if err != nil {
		slog.Error("run failed", "error", err)
		if reporting {
			sentry.CaptureException(err)
			sentry.Flush(2 * time.Second)
		}
		os.Exit(1)
	}
	if reporting {
		sentry.Flush(2 * time.Second)
	}
}

// setupLogging writes JSON to stdout when headless and text to stderr
// otherwise. The terminal frontend owns the screen, so its logs go to
// the output dir or nowhere.
func setupLogging(f flags) {
	var handler slog.Handler
	switch {
	case f.headless:
		handler = slog.NewJSONHandler(os.Stdout, nil)
	case f.terminal:
		var w io.Writer = io.Discard
		if f.outputDir != "" {
			if err := os.MkdirAll(f.outputDir, 0o755); err == nil {
				if file, err := os.OpenFile(filepath.Join(f.outputDir, "flappy.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
					w = file
				}
			}
		}
		handler = slog.NewTextHandler(w, nil)
	default:
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

// runRecovered turns a panic into an error, reported to Sentry when enabled.
func runRecovered(ctx context.Context, cfg *config.Config, f flags, reporting bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if reporting {
				sentry.CurrentHub().Recover(r)
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx, cfg, f)
}

// frontend is the set of sinks and sources attached to every episode.
type frontend struct {
	window *renderer.Window
	digest *game.DigestSink

	input game.Input
	clock game.Clock
	sinks []game.FrameSink
	close []func()
}

func (fe *frontend) Close() {
	for i := len(fe.close) - 1; i >= 0; i-- {
		fe.close[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, f flags) error {
	opts, err := game.OptionsFromConfig(cfg, f.variant)
	if err != nil {
		return err
	}
	seed := f.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts.Seed = seed
	if f.maxTicks > 0 {
		opts.MaxTicks = f.maxTicks
	}
	if f.generations > 0 {
		cfg.Evolution.Generations = f.generations
	}
	if f.replay != "" || f.weights != "" {
		opts.Mode = game.ModeAI
	}
	if f.headless && opts.MaxTicks == 0 {
		if opts.Mode == game.ModeManual {
			return fmt.Errorf("headless %s run needs -max-ticks: nobody is there to quit", opts.Variant)
		}
		// A pilot that never dies would otherwise fly forever.
		opts.MaxTicks = game.EpisodeCap(cfg)
	}

	bundle, err := assets.Load(cfg)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}

	if addr := cfg.Reporting.StatsviewAddr; addr != "" {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
		slog.Info("statsview dashboard", "addr", addr)
	}

	fe, err := newFrontend(ctx, cfg, f, opts, bundle)
	if err != nil {
		return err
	}
	defer fe.Close()

	slog.Info("starting",
		"variant", opts.Variant,
		"mode", opts.Mode.String(),
		"seed", seed,
		"headless", f.headless,
		"terminal", f.terminal,
		"max_ticks", opts.MaxTicks,
	)

	switch {
	case f.replay != "":
		return runReplay(ctx, cfg, f, opts, bundle, fe)
	case f.weights != "":
		return runWeights(ctx, cfg, f, opts, bundle, fe)
	case opts.Mode == game.ModeAI:
		return runTrain(ctx, cfg, f, opts, bundle, fe)
	default:
		return runPlay(ctx, cfg, opts, bundle, fe)
	}
}

func newFrontend(ctx context.Context, cfg *config.Config, f flags, opts game.Options, bundle *assets.Bundle) (*frontend, error) {
	fe := &frontend{}

	switch {
	case f.headless:
		fe.digest = &game.DigestSink{}
		fe.sinks = append(fe.sinks, fe.digest)
	case f.terminal:
		birdW, birdH := bundle.BirdSize()
		pipeW, pipeH := bundle.PipeSize()
		screen, err := terminal.New(birdW, birdH, pipeW, pipeH)
		if err != nil {
			return nil, err
		}
		ticker := game.NewTickerClock(cfg.Screen.TargetFPS)
		fe.input, fe.clock = screen, ticker
		fe.sinks = append(fe.sinks, screen)
		fe.close = append(fe.close, screen.Close, ticker.Stop)
	default:
		w := renderer.NewWindow(cfg, opts, bundle)
		fe.window = w
		fe.input, fe.clock = w, w
		fe.sinks = append(fe.sinks, w)
		fe.close = append(fe.close, w.Close)
	}

	if f.sound {
		cues := audio.NewCues()
		if err := cues.Initialize(); err != nil {
			slog.Warn("audio disabled", "error", err)
		} else {
			fe.sinks = append(fe.sinks, cues)
			fe.close = append(fe.close, cues.Close)
		}
	}

	if addr := cfg.Spectate.Addr; addr != "" {
		hub, err := spectate.NewHub(opts, cfg.Spectate.Buffer)
		if err != nil {
			fe.Close()
			return nil, err
		}
		serveCtx, cancel := context.WithCancel(ctx)
		go func() {
			if err := spectate.Serve(serveCtx, addr, hub); err != nil {
				slog.Error("spectator server stopped", "error", err)
			}
		}()
		fe.sinks = append(fe.sinks, hub)
		fe.close = append(fe.close, func() {
			cancel()
			slog.Info("spectator server closed", "viewers", hub.Viewers(), "dropped", hub.Dropped())
		})
	}
	return fe, nil
}

// runPlay runs manual episodes until the player quits. After a crash a
// flap starts a new game.
func runPlay(ctx context.Context, cfg *config.Config, opts game.Options, bundle *assets.Bundle, fe *frontend) error {
	for round := 0; ; round++ {
		ep := game.NewEpisode(cfg, opts, bundle)
		ep.AddBird(0, nil, nil)
		ep.SetInput(fe.input)
		ep.Attach(fe.sinks...)

		res := ep.Run(ctx, fe.clock)
		slog.Info("game over",
			"round", round,
			"score", res.Score,
			"ticks", res.Ticks,
			"reason", string(res.Reason),
		)
		if fe.digest != nil {
			slog.Info("episode digest", "digest", fmt.Sprintf("%016x", fe.digest.Sum), "frames", fe.digest.Frames)
		}

		switch res.Reason {
		case game.ReasonQuit, game.ReasonCancelled, game.ReasonMaxTicks:
			return nil
		}
		if fe.input == nil || !waitForFlap(ctx, fe) {
			return nil
		}
		opts.Seed++
	}
}

// waitForFlap blocks until the player flaps again. The window already
// waited inside its final Publish, so it only needs a quit check.
func waitForFlap(ctx context.Context, fe *frontend) bool {
	if fe.window != nil {
		return !fe.window.Quit()
	}
	for ctx.Err() == nil && !fe.input.Quit() {
		if fe.input.Jump() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// runTrain evolves a population, one episode per generation.
func runTrain(ctx context.Context, cfg *config.Config, f flags, opts game.Options, bundle *assets.Bundle, fe *frontend) error {
	evo := cfg.Evolution
	pop, err := neural.NewPopulation(neural.PopulationConfig{
		Size:                  evo.Population,
		Elitism:               evo.Elitism,
		InitialConnectionProb: evo.InitialConnectionProb,
	}, neural.OptionsFromConfig(evo), rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return fmt.Errorf("creating population: %w", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Screen.TargetFPS * 4)
	tr := game.NewTrainer(cfg, opts, bundle, pop, game.Env{
		Sinks: fe.sinks,
		Input: fe.input,
		Clock: fe.clock,
		Perf:  perf,
	})

	if f.outputDir != "" {
		om, err := telemetry.NewOutputManager(f.outputDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := om.Close(); err != nil {
				slog.Error("failed to close output", "error", err)
			}
		}()
		if err := om.WriteConfig(cfg); err != nil {
			return err
		}
		tr.SetOutput(om)
		tr.SetHallOfFame(telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize))
	}
	if f.champions != "" {
		store, err := telemetry.OpenChampionStore(f.champions)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Reset(); err != nil {
			return err
		}
		tr.SetChampionStore(store)
	}

	if w := fe.window; w != nil {
		w.SetPerf(perf)
		w.Tint = speciesTint(pop)
		w.Genome = genomeLookup(pop)
		tr.OnGeneration = func(s telemetry.GenerationStats) {
			w.SetEvolution(ui.EvolutionData{
				Generation:  s.Generation,
				Species:     s.Species,
				Population:  s.Population,
				BestFitness: s.BestFitness,
				MeanFitness: s.MeanFitness,
				BestScore:   s.Score,
				TopSpecies:  pop.Species.GetTopSpecies(5),
			})
		}
	}

	res, err := tr.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("training finished",
		"generations", res.Generations,
		"solved", res.Solved,
		"champion", res.Champion.ID,
		"fitness", res.Champion.Fitness,
	)
	return nil
}

func speciesTint(pop *neural.Population) renderer.TintFunc {
	return func(id int) (rl.Color, bool) {
		for _, o := range pop.Organisms {
			if o.ID() == id {
				c := pop.Species.GetSpeciesColor(o.SpeciesID)
				return rl.Color{R: c.R, G: c.G, B: c.B, A: 255}, true
			}
		}
		return rl.Color{}, false
	}
}

func genomeLookup(pop *neural.Population) func(int) *neural.GenomeRecord {
	return func(id int) *neural.GenomeRecord {
		for _, o := range pop.Organisms {
			if o.ID() == id {
				rec := neural.RecordOf(o)
				return &rec
			}
		}
		return nil
	}
}

// runReplay flies one saved champion.
func runReplay(ctx context.Context, cfg *config.Config, f flags, opts game.Options, bundle *assets.Bundle, fe *frontend) error {
	rec, err := loadChampion(f.replay)
	if err != nil {
		return err
	}
	genome, err := rec.Genome()
	if err != nil {
		return fmt.Errorf("rebuilding champion: %w", err)
	}
	ctrl, err := neural.NewController(genome)
	if err != nil {
		return fmt.Errorf("building champion controller: %w", err)
	}
	org := &neural.Organism{Genome: genome, SpeciesID: rec.Species, Generation: rec.Generation}

	if w := fe.window; w != nil {
		w.Genome = func(int) *neural.GenomeRecord { return &rec }
	}

	res := game.EvaluateGeneration(ctx, cfg, opts, bundle,
		[]game.Candidate{{ID: rec.ID, Decider: ctrl, Sink: org}},
		game.Env{Sinks: fe.sinks, Input: fe.input, Clock: fe.clock})

	slog.Info("replay finished",
		"champion", rec.ID,
		"generation", rec.Generation,
		"recorded_fitness", rec.Fitness,
		"fitness", org.Fitness,
		"score", res.Score,
		"ticks", res.Ticks,
		"reason", string(res.Reason),
	)
	if fe.digest != nil {
		slog.Info("episode digest", "digest", fmt.Sprintf("%016x", fe.digest.Sum), "frames", fe.digest.Frames)
	}
	return nil
}

// fitnessTally is the fitness sink for a bird with no organism behind it.
type fitnessTally float64

func (t *fitnessTally) Reward(delta float64)   { *t += fitnessTally(delta) }
func (t *fitnessTally) Penalize(delta float64) { *t -= fitnessTally(delta) }

// runWeights flies one fixed-topology network produced by cmd/tune.
func runWeights(ctx context.Context, cfg *config.Config, f flags, opts game.Options, bundle *assets.Bundle, fe *frontend) error {
	rec, err := neural.ReadWeights(f.weights)
	if err != nil {
		return err
	}
	nn, err := rec.Network()
	if err != nil {
		return fmt.Errorf("building tuned network: %w", err)
	}

	var tally fitnessTally
	res := game.EvaluateGeneration(ctx, cfg, opts, bundle,
		[]game.Candidate{{ID: 0, Decider: nn, Sink: &tally}},
		game.Env{Sinks: fe.sinks, Input: fe.input, Clock: fe.clock})

	slog.Info("tuned flight finished",
		"hidden", rec.Hidden,
		"recorded_fitness", rec.Fitness,
		"fitness", float64(tally),
		"score", res.Score,
		"ticks", res.Ticks,
		"reason", string(res.Reason),
	)
	if fe.digest != nil {
		slog.Info("episode digest", "digest", fmt.Sprintf("%016x", fe.digest.Sum), "frames", fe.digest.Frames)
	}
	return nil
}

// loadChampion reads a champion record from JSON, or the best one from a
// champions bolt file.
func loadChampion(path string) (neural.GenomeRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return neural.ReadRecord(path)
	}
	store, err := telemetry.OpenChampionStore(path)
	if err != nil {
		return neural.GenomeRecord{}, err
	}
	defer store.Close()
	rec, err := store.Best()
	if errors.Is(err, telemetry.ErrNoChampion) {
		return rec, fmt.Errorf("%s: %w", path, err)
	}
	return rec, err
}
