// Package config provides configuration loading and access for the game.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all game configuration parameters.
type Config struct {
	Screen    ScreenConfig             `yaml:"screen"`
	Physics   PhysicsConfig            `yaml:"physics"`
	Bird      BirdConfig               `yaml:"bird"`
	Pipes     PipesConfig              `yaml:"pipes"`
	Ground    GroundConfig             `yaml:"ground"`
	Fitness   FitnessConfig            `yaml:"fitness"`
	Evolution EvolutionConfig          `yaml:"evolution"`
	Assets    AssetsConfig             `yaml:"assets"`
	Telemetry TelemetryConfig          `yaml:"telemetry"`
	Spectate  SpectateConfig           `yaml:"spectate"`
	Reporting ReportingConfig          `yaml:"reporting"`
	Variants  map[string]VariantConfig `yaml:"variants"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// PhysicsConfig holds the bird's flight model.
type PhysicsConfig struct {
	JumpVelocity     float64 `yaml:"jump_velocity"`
	Gravity          float64 `yaml:"gravity"`
	TerminalVelocity float64 `yaml:"terminal_velocity"`
	AscentBoost      float64 `yaml:"ascent_boost"`
	MaxTilt          float64 `yaml:"max_tilt"`
	MinTilt          float64 `yaml:"min_tilt"`
	TiltRate         float64 `yaml:"tilt_rate"`
	TiltGrace        float64 `yaml:"tilt_grace"`
	AnimationTicks   int     `yaml:"animation_ticks"`
}

// BirdConfig holds the spawn point and sprite size of a bird.
type BirdConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// PipesConfig holds obstacle generation parameters.
type PipesConfig struct {
	Gap       float64 `yaml:"gap"`
	Speed     float64 `yaml:"speed"`
	AnchorMin int     `yaml:"anchor_min"` // inclusive
	AnchorMax int     `yaml:"anchor_max"` // exclusive
	FirstX    float64 `yaml:"first_x"`
	SpawnX    float64 `yaml:"spawn_x"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
}

// GroundConfig holds the scrolling base layer.
type GroundConfig struct {
	Y      float64 `yaml:"y"`
	Speed  float64 `yaml:"speed"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// FitnessConfig holds the reward schedule for AI pilots.
type FitnessConfig struct {
	SurvivalReward   float64 `yaml:"survival_reward"`
	CollisionPenalty float64 `yaml:"collision_penalty"`
	JumpThreshold    float64 `yaml:"jump_threshold"`
}

// EvolutionConfig holds population and NEAT settings.
type EvolutionConfig struct {
	Population            int        `yaml:"population"`
	Generations           int        `yaml:"generations"`
	FitnessThreshold      float64    `yaml:"fitness_threshold"`
	InitialConnectionProb float64    `yaml:"initial_connection_prob"`
	Elitism               int        `yaml:"elitism"`
	NEAT                  NEATConfig `yaml:"neat"`
}

// NEATConfig holds the subset of NEAT hyperparameters used by the engine.
type NEATConfig struct {
	WeightMutPower         float64 `yaml:"weight_mut_power"`
	MutateAddNodeProb      float64 `yaml:"mutate_add_node_prob"`
	MutateAddLinkProb      float64 `yaml:"mutate_add_link_prob"`
	MutateToggleEnableProb float64 `yaml:"mutate_toggle_enable_prob"`
	MutateLinkWeightsProb  float64 `yaml:"mutate_link_weights_prob"`
	CompatThreshold        float64 `yaml:"compat_threshold"`
	DisjointCoeff          float64 `yaml:"disjoint_coeff"`
	ExcessCoeff            float64 `yaml:"excess_coeff"`
	MutdiffCoeff           float64 `yaml:"mutdiff_coeff"`
	DropOffAge             int     `yaml:"dropoff_age"`
	SurvivalThresh         float64 `yaml:"survival_thresh"`
}

// AssetsConfig holds sprite loading settings.
type AssetsConfig struct {
	Dir            string `yaml:"dir"`
	Scale          int    `yaml:"scale"`
	AlphaThreshold uint8  `yaml:"alpha_threshold"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogEvery       int `yaml:"log_every"`
	HallOfFameSize int `yaml:"hall_of_fame_size"`
}

// SpectateConfig holds the websocket spectator server settings.
type SpectateConfig struct {
	Addr   string `yaml:"addr"`
	Buffer int    `yaml:"buffer"`
}

// ReportingConfig holds process-level error and runtime reporting.
type ReportingConfig struct {
	SentryDSN     string `yaml:"sentry_dsn"`
	StatsviewAddr string `yaml:"statsview_addr"`
}

// VariantConfig is a named preset of game loop parameters.
type VariantConfig struct {
	Title         string `yaml:"title"`
	Mode          string `yaml:"mode"` // manual | ai
	Pipes         bool   `yaml:"pipes"`
	Ground        bool   `yaml:"ground"`
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	OnCollision   string `yaml:"on_collision"`     // ignore | remove | end
	OnOutOfBounds string `yaml:"on_out_of_bounds"` // ignore | remove | end
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	VariantNames []string // sorted variant keys
	Inputs       int      // sensor inputs fed to a pilot
}

// ErrUnknownVariant is returned when a variant name has no preset.
var ErrUnknownVariant = errors.New("unknown variant")

// Env keys read by ApplyEnv.
const (
	EnvAssetsDir     = "FLAPPY_ASSETS_DIR"
	EnvSentryDSN     = "FLAPPY_SENTRY_DSN"
	EnvSpectateAddr  = "FLAPPY_SPECTATE_ADDR"
	EnvStatsviewAddr = "FLAPPY_STATSVIEW_ADDR"
)

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file.
		presets := make(map[string]VariantConfig, len(cfg.Variants))
		for name, v := range cfg.Variants {
			presets[name] = v
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := mergeVariants(data, presets, cfg); err != nil {
			return nil, err
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// mergeVariants re-decodes each variant named in the user file over its
// preset, since yaml resets map values to zero before decoding them.
func mergeVariants(data []byte, presets map[string]VariantConfig, cfg *Config) error {
	var doc struct {
		Variants map[string]yaml.Node `yaml:"variants"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config variants: %w", err)
	}
	for name, node := range doc.Variants {
		v := presets[name]
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("parsing variant %s: %w", name, err)
		}
		cfg.Variants[name] = v
	}
	return nil
}

// LoadEnv reads a dotenv file into the process environment. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides deployment-specific settings from FLAPPY_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAssetsDir); v != "" {
		c.Assets.Dir = v
	}
	if v := os.Getenv(EnvSentryDSN); v != "" {
		c.Reporting.SentryDSN = v
	}
	if v := os.Getenv(EnvSpectateAddr); v != "" {
		c.Spectate.Addr = v
	}
	if v := os.Getenv(EnvStatsviewAddr); v != "" {
		c.Reporting.StatsviewAddr = v
	}
}

// Variant returns the named preset.
func (c *Config) Variant(name string) (VariantConfig, error) {
	v, ok := c.Variants[name]
	if !ok {
		return VariantConfig{}, fmt.Errorf("%w %q (have %v)", ErrUnknownVariant, name, c.Derived.VariantNames)
	}
	if v.Width == 0 {
		v.Width = c.Screen.Width
	}
	if v.Height == 0 {
		v.Height = c.Screen.Height
	}
	return v, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Inputs = 3

	c.Derived.VariantNames = c.Derived.VariantNames[:0]
	for name := range c.Variants {
		c.Derived.VariantNames = append(c.Derived.VariantNames, name)
	}
	sort.Strings(c.Derived.VariantNames)

	if c.Physics.AnimationTicks < 1 {
		c.Physics.AnimationTicks = 1
	}
	if c.Assets.Scale < 1 {
		c.Assets.Scale = 1
	}
	if c.Screen.TargetFPS == 0 {
		c.Screen.TargetFPS = 30
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
