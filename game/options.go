package game

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/flappy/config"
)

// Mode selects who flies the birds.
type Mode int

const (
	ModeManual Mode = iota // a single bird driven by an Input
	ModeAI                 // a population driven by Deciders
)

func (m Mode) String() string {
	if m == ModeAI {
		return "ai"
	}
	return "manual"
}

// Policy is the action taken when a bird collides or leaves the playfield.
type Policy int

const (
	PolicyIgnore Policy = iota // detect, do nothing
	PolicyRemove               // penalize the pilot and drop the bird
	PolicyEnd                  // terminate the episode after this tick
)

func (p Policy) String() string {
	switch p {
	case PolicyRemove:
		return "remove"
	case PolicyEnd:
		return "end"
	default:
		return "ignore"
	}
}

var (
	// ErrUnknownPolicy is returned for a policy name other than ignore, remove or end.
	ErrUnknownPolicy = errors.New("unknown policy")
	// ErrUnknownMode is returned for a mode name other than manual or ai.
	ErrUnknownMode = errors.New("unknown mode")
)

// ParsePolicy converts a config name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "ignore":
		return PolicyIgnore, nil
	case "remove":
		return PolicyRemove, nil
	case "end":
		return PolicyEnd, nil
	}
	return PolicyIgnore, fmt.Errorf("%w %q", ErrUnknownPolicy, s)
}

// ParseMode converts a config name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "manual":
		return ModeManual, nil
	case "ai":
		return ModeAI, nil
	}
	return ModeManual, fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Options parameterize one episode. Every variant of the game is a preset
// of these fields.
type Options struct {
	Variant       string
	Title         string
	Mode          Mode
	Pipes         bool
	Ground        bool
	Width         int
	Height        int
	OnCollision   Policy
	OnOutOfBounds Policy
	MaxTicks      int // 0 means unbounded
	Seed          int64
}

// OptionsFromConfig resolves a named variant preset.
func OptionsFromConfig(cfg *config.Config, variant string) (Options, error) {
	v, err := cfg.Variant(variant)
	if err != nil {
		return Options{}, err
	}

	mode, err := ParseMode(v.Mode)
	if err != nil {
		return Options{}, fmt.Errorf("variant %s: %w", variant, err)
	}
	onCollision, err := ParsePolicy(v.OnCollision)
	if err != nil {
		return Options{}, fmt.Errorf("variant %s on_collision: %w", variant, err)
	}
	onBounds, err := ParsePolicy(v.OnOutOfBounds)
	if err != nil {
		return Options{}, fmt.Errorf("variant %s on_out_of_bounds: %w", variant, err)
	}

	return Options{
		Variant:       variant,
		Title:         v.Title,
		Mode:          mode,
		Pipes:         v.Pipes,
		Ground:        v.Ground,
		Width:         v.Width,
		Height:        v.Height,
		OnCollision:   onCollision,
		OnOutOfBounds: onBounds,
	}, nil
}
