package neural

import (
	"fmt"
	"math/rand"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// Controller wraps a goNEAT network for runtime evaluation.
// It satisfies the game's Decider interface.
type Controller struct {
	Genome  *genetics.Genome
	network *network.Network
	depth   int
	sensors []float64
}

// NewController creates a controller from a genome.
func NewController(genome *genetics.Genome) (*Controller, error) {
	phenotype, err := genome.Genesis(genome.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to build network from genome: %w", err)
	}

	// Activate with depth-based steps for proper signal propagation
	depth, err := phenotype.MaxActivationDepth()
	if err != nil || depth < 1 {
		depth = 5 // Fallback for recurrent or degenerate networks
	}

	return &Controller{
		Genome:  genome,
		network: phenotype,
		depth:   depth,
		sensors: make([]float64, FlapInputs+1),
	}, nil
}

// Activate loads the sensor inputs plus the bias, propagates them through
// the network and returns the outputs. The network is flushed afterwards so
// every call is independent of the previous one.
func (c *Controller) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != FlapInputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", FlapInputs, len(inputs))
	}

	copy(c.sensors, inputs)
	c.sensors[FlapInputs] = 1.0
	if err := c.network.LoadSensors(c.sensors); err != nil {
		return nil, fmt.Errorf("failed to load sensors: %w", err)
	}

	for i := 0; i < c.depth; i++ {
		if _, err := c.network.Activate(); err != nil {
			return nil, fmt.Errorf("activation failed: %w", err)
		}
	}

	outputs := c.network.ReadOutputs()

	if _, err := c.network.Flush(); err != nil {
		return nil, fmt.Errorf("flush failed: %w", err)
	}

	return outputs, nil
}

// NodeCount returns the number of nodes in the network.
func (c *Controller) NodeCount() int {
	return c.network.NodeCount()
}

// LinkCount returns the number of links (connections) in the network.
func (c *Controller) LinkCount() int {
	return c.network.LinkCount()
}

// flapNodes returns fresh copies of the fixed sensor, bias and output nodes.
func flapNodes() []*network.NNode {
	nodes := make([]*network.NNode, 0, FlapInputs+2)
	for i := 1; i <= FlapInputs; i++ {
		node := network.NewNNode(i, network.InputNeuron)
		node.ActivationType = neatmath.LinearActivation
		nodes = append(nodes, node)
	}

	bias := network.NewNNode(biasNodeID, network.BiasNeuron)
	bias.ActivationType = neatmath.LinearActivation
	nodes = append(nodes, bias)

	out := network.NewNNode(outputNodeID, network.OutputNeuron)
	out.ActivationType = neatmath.TanhActivation
	return append(nodes, out)
}

// NewFlapGenome creates a pilot genome: three sensors and a bias wired to a
// single tanh output. Each sensor link exists with probability connectionProb;
// link innovations are fixed by sensor index so every initial genome lines up.
func NewFlapGenome(id int, connectionProb float64, rng *rand.Rand) *genetics.Genome {
	nodes := flapNodes()
	out := nodes[len(nodes)-1]

	genes := make([]*genetics.Gene, 0, FlapInputs+1)
	for i := 0; i < FlapInputs+1; i++ {
		if rng.Float64() >= connectionProb {
			continue
		}
		weight := rng.Float64()*4 - 2 // [-2, 2]
		genes = append(genes, genetics.NewGeneWithTrait(nil, weight, nodes[i], out, false, int64(i+1), 0))
	}

	// Ensure the output is reachable
	if len(genes) == 0 {
		i := rng.Intn(FlapInputs + 1)
		genes = append(genes, genetics.NewGeneWithTrait(nil, rng.Float64()*2-1, nodes[i], out, false, int64(i+1), 0))
	}

	return genetics.NewGenome(id, nil, nodes, genes)
}
