package neural

import (
	"github.com/yaricom/goNEAT/v4/neat"

	"github.com/pthm-cable/flappy/config"
)

// FlapInputs is the number of sensor inputs to a pilot network (y, top gap, bottom gap).
const FlapInputs = 3

// FlapOutputs is the number of outputs from a pilot network (jump).
const FlapOutputs = 1

// Node IDs of the initial topology. Hidden nodes are numbered after these.
const (
	biasNodeID   = FlapInputs + 1
	outputNodeID = FlapInputs + 2
)

// DefaultNEATOptions returns NEAT options tuned for flap pilots.
func DefaultNEATOptions() *neat.Options {
	return &neat.Options{
		// Weight mutation
		WeightMutPower: 2.5,

		// Structural mutation rates
		MutateAddNodeProb:      0.03,
		MutateAddLinkProb:      0.05,
		MutateToggleEnableProb: 0.01,

		// Weight mutation probability
		MutateLinkWeightsProb: 0.8,
		MutateOnlyProb:        0.25,

		// Speciation
		CompatThreshold: 3.0,
		DisjointCoeff:   1.0,
		ExcessCoeff:     1.0,
		MutdiffCoeff:    0.5,

		// Species management
		DropOffAge:     20,
		SurvivalThresh: 0.2,

		PopSize: 50,
	}
}

// OptionsFromConfig builds NEAT options from the evolution section of the config.
func OptionsFromConfig(c config.EvolutionConfig) *neat.Options {
	opts := DefaultNEATOptions()
	n := c.NEAT
	opts.WeightMutPower = n.WeightMutPower
	opts.MutateAddNodeProb = n.MutateAddNodeProb
	opts.MutateAddLinkProb = n.MutateAddLinkProb
	opts.MutateToggleEnableProb = n.MutateToggleEnableProb
	opts.MutateLinkWeightsProb = n.MutateLinkWeightsProb
	opts.CompatThreshold = n.CompatThreshold
	opts.DisjointCoeff = n.DisjointCoeff
	opts.ExcessCoeff = n.ExcessCoeff
	opts.MutdiffCoeff = n.MutdiffCoeff
	opts.DropOffAge = n.DropOffAge
	opts.SurvivalThresh = n.SurvivalThresh
	if c.Population > 0 {
		opts.PopSize = c.Population
	}
	return opts
}
