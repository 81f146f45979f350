package neural

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// NodeRecord is the serialized form of a genome node.
type NodeRecord struct {
	ID         int    `json:"id"`
	Kind       string `json:"kind"`
	Activation string `json:"activation"`
}

// GeneRecord is the serialized form of a genome link.
type GeneRecord struct {
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
	Recurrent  bool    `json:"recurrent,omitempty"`
	Innovation int64   `json:"innovation"`
}

// GenomeRecord is a self-contained, JSON-friendly snapshot of a genome and
// the fitness it earned.
type GenomeRecord struct {
	ID         int          `json:"id"`
	Generation int          `json:"generation"`
	Species    int          `json:"species"`
	Fitness    float64      `json:"fitness"`
	Nodes      []NodeRecord `json:"nodes"`
	Genes      []GeneRecord `json:"genes"`
}

var activationNames = map[neatmath.NodeActivationType]string{
	neatmath.TanhActivation:             "tanh",
	neatmath.SigmoidSteepenedActivation: "sigmoid",
	neatmath.LinearActivation:           "linear",
}

func activationByName(name string) (neatmath.NodeActivationType, error) {
	for t, n := range activationNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", name)
}

func nodeKind(node *network.NNode) string {
	switch node.NeuronType {
	case network.InputNeuron:
		return "input"
	case network.BiasNeuron:
		return "bias"
	case network.OutputNeuron:
		return "output"
	default:
		return "hidden"
	}
}

func newNodeOfKind(id int, kind string) (*network.NNode, error) {
	switch kind {
	case "input":
		return network.NewNNode(id, network.InputNeuron), nil
	case "bias":
		return network.NewNNode(id, network.BiasNeuron), nil
	case "output":
		return network.NewNNode(id, network.OutputNeuron), nil
	case "hidden":
		return network.NewNNode(id, network.HiddenNeuron), nil
	}
	return nil, fmt.Errorf("unknown node kind %q", kind)
}

// RecordOf snapshots an organism.
func RecordOf(o *Organism) GenomeRecord {
	rec := GenomeRecord{
		ID:         o.Genome.Id,
		Generation: o.Generation,
		Species:    o.SpeciesID,
		Fitness:    o.Fitness,
		Nodes:      make([]NodeRecord, 0, len(o.Genome.Nodes)),
		Genes:      make([]GeneRecord, 0, len(o.Genome.Genes)),
	}
	for _, n := range o.Genome.Nodes {
		act, ok := activationNames[n.ActivationType]
		if !ok {
			act = "linear"
		}
		rec.Nodes = append(rec.Nodes, NodeRecord{ID: n.Id, Kind: nodeKind(n), Activation: act})
	}
	for _, g := range o.Genome.Genes {
		rec.Genes = append(rec.Genes, GeneRecord{
			In:         g.Link.InNode.Id,
			Out:        g.Link.OutNode.Id,
			Weight:     g.Link.ConnectionWeight,
			Enabled:    g.IsEnabled,
			Recurrent:  g.Link.IsRecurrent,
			Innovation: g.InnovationNum,
		})
	}
	return rec
}

// Genome rebuilds a goNEAT genome from the record.
func (r GenomeRecord) Genome() (*genetics.Genome, error) {
	nodes := make([]*network.NNode, 0, len(r.Nodes))
	byID := make(map[int]*network.NNode, len(r.Nodes))
	for _, nr := range r.Nodes {
		node, err := newNodeOfKind(nr.ID, nr.Kind)
		if err != nil {
			return nil, err
		}
		act, err := activationByName(nr.Activation)
		if err != nil {
			return nil, err
		}
		node.ActivationType = act
		nodes = append(nodes, node)
		byID[nr.ID] = node
	}

	genes := make([]*genetics.Gene, 0, len(r.Genes))
	for _, gr := range r.Genes {
		in, out := byID[gr.In], byID[gr.Out]
		if in == nil || out == nil {
			return nil, fmt.Errorf("gene %d references missing node %d->%d", gr.Innovation, gr.In, gr.Out)
		}
		gene := genetics.NewGeneWithTrait(nil, gr.Weight, in, out, gr.Recurrent, gr.Innovation, 0)
		gene.IsEnabled = gr.Enabled
		genes = append(genes, gene)
	}

	return genetics.NewGenome(r.ID, nil, nodes, genes), nil
}

// WriteRecord writes a genome record as indented JSON.
func WriteRecord(path string, rec GenomeRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling genome: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genome file: %w", err)
	}
	return nil
}

// ReadRecord reads a genome record written by WriteRecord.
func ReadRecord(path string) (GenomeRecord, error) {
	var rec GenomeRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("reading genome file: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parsing genome file: %w", err)
	}
	return rec, nil
}
