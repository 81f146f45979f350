package neural

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"
	"github.com/yaricom/goNEAT/v4/neat/network"
)

// Mutation constants
const (
	perturbProb         = 0.9 // Probability of perturbing vs replacing weights
	maxConnectionWeight = 8.0 // Maximum absolute connection weight
	maxLinkAttempts     = 20  // Maximum attempts to find a new connection
	disabledInheritProb = 0.75
)

// ErrNilGenome is returned when a reproduction operator is handed a nil genome.
var ErrNilGenome = errors.New("nil genome")

// splitRecord remembers the node and links created by splitting a gene.
type splitRecord struct {
	nodeID   int
	inInnov  int64
	outInnov int64
}

// GenomeIDGenerator hands out genome IDs, node IDs and innovation numbers.
// Structural mutations repeated within one generation reuse the same numbers
// so identical innovations line up during crossover and speciation.
type GenomeIDGenerator struct {
	nextID       int
	nextNodeID   int
	nextInnovNum int64

	links  map[int64]int64
	splits map[int64]splitRecord
}

// NewGenomeIDGenerator creates a new ID generator.
func NewGenomeIDGenerator() *GenomeIDGenerator {
	return &GenomeIDGenerator{
		nextID:       1,
		nextNodeID:   outputNodeID + 1,
		nextInnovNum: FlapInputs + 2,
		links:        make(map[int64]int64),
		splits:       make(map[int64]splitRecord),
	}
}

// NextID returns the next unique genome ID.
func (g *GenomeIDGenerator) NextID() int {
	id := g.nextID
	g.nextID++
	return id
}

// NextInnovation returns the next innovation number.
func (g *GenomeIDGenerator) NextInnovation() int64 {
	num := g.nextInnovNum
	g.nextInnovNum++
	return num
}

// LinkInnovation returns the innovation number for a new link between two
// nodes, reusing the number if the same link appeared this generation.
func (g *GenomeIDGenerator) LinkInnovation(inID, outID int) int64 {
	key := connectionKey(inID, outID)
	if innov, ok := g.links[key]; ok {
		return innov
	}
	innov := g.NextInnovation()
	g.links[key] = innov
	return innov
}

// split returns the hidden node ID and link innovations for splitting the
// gene with the given innovation number.
func (g *GenomeIDGenerator) split(gene *genetics.Gene) splitRecord {
	if rec, ok := g.splits[gene.InnovationNum]; ok {
		return rec
	}
	rec := splitRecord{
		nodeID:   g.nextNodeID,
		inInnov:  g.NextInnovation(),
		outInnov: g.NextInnovation(),
	}
	g.nextNodeID++
	g.splits[gene.InnovationNum] = rec
	return rec
}

// ResetGeneration forgets this generation's structural innovations.
func (g *GenomeIDGenerator) ResetGeneration() {
	clear(g.links)
	clear(g.splits)
}

// CrossoverGenomes performs NEAT-style crossover between two parent genomes.
// Genes are aligned by innovation number.
// The more fit parent contributes disjoint/excess genes.
func CrossoverGenomes(parent1, parent2 *genetics.Genome, fitness1, fitness2 float64, childID int, rng *rand.Rand) (*genetics.Genome, error) {
	if parent1 == nil || parent2 == nil {
		return nil, ErrNilGenome
	}

	var primary, secondary *genetics.Genome
	if fitness1 >= fitness2 {
		primary, secondary = parent1, parent2
	} else {
		primary, secondary = parent2, parent1
	}

	primaryGenes := genesByInnovation(primary)
	secondaryGenes := genesByInnovation(secondary)

	innovSet := make(map[int64]bool, len(primaryGenes)+len(secondaryGenes))
	for innov := range primaryGenes {
		innovSet[innov] = true
	}
	for innov := range secondaryGenes {
		innovSet[innov] = true
	}

	// Sort innovations for deterministic ordering
	innovations := make([]int64, 0, len(innovSet))
	for innov := range innovSet {
		innovations = append(innovations, innov)
	}
	sort.Slice(innovations, func(i, j int) bool { return innovations[i] < innovations[j] })

	childNodeMap := make(map[int]*network.NNode)
	for _, node := range primary.Nodes {
		childNodeMap[node.Id] = copyNode(node)
	}
	for _, node := range secondary.Nodes {
		if _, exists := childNodeMap[node.Id]; !exists {
			childNodeMap[node.Id] = copyNode(node)
		}
	}

	childGenes := make([]*genetics.Gene, 0, len(innovations))
	for _, innov := range innovations {
		pGene := primaryGenes[innov]
		sGene := secondaryGenes[innov]

		var selected *genetics.Gene
		enabled := true

		switch {
		case pGene != nil && sGene != nil:
			// Matching gene - randomly select from either parent
			if rng.Float64() < 0.5 {
				selected = pGene
			} else {
				selected = sGene
			}
			if !pGene.IsEnabled || !sGene.IsEnabled {
				enabled = rng.Float64() >= disabledInheritProb
			}
		case pGene != nil:
			selected = pGene
			enabled = pGene.IsEnabled
		case fitness1 == fitness2 && rng.Float64() < 0.5:
			selected = sGene
			enabled = sGene.IsEnabled
		}
		if selected == nil {
			continue
		}

		inNode := childNodeMap[selected.Link.InNode.Id]
		outNode := childNodeMap[selected.Link.OutNode.Id]
		if inNode == nil || outNode == nil {
			continue
		}
		child := genetics.NewGeneWithTrait(
			nil,
			selected.Link.ConnectionWeight,
			inNode,
			outNode,
			selected.Link.IsRecurrent,
			selected.InnovationNum,
			selected.MutationNum,
		)
		child.IsEnabled = enabled
		childGenes = append(childGenes, child)
	}

	childNodes := make([]*network.NNode, 0, len(childNodeMap))
	for _, node := range childNodeMap {
		childNodes = append(childNodes, node)
	}
	sort.Slice(childNodes, func(i, j int) bool { return childNodes[i].Id < childNodes[j].Id })

	genome := genetics.NewGenome(childID, nil, childNodes, childGenes)
	ensureOutputLinked(genome)
	return genome, nil
}

func genesByInnovation(g *genetics.Genome) map[int64]*genetics.Gene {
	m := make(map[int64]*genetics.Gene, len(g.Genes))
	for _, gene := range g.Genes {
		m[gene.InnovationNum] = gene
	}
	return m
}

func copyNode(node *network.NNode) *network.NNode {
	newNode := network.NewNNode(node.Id, node.NeuronType)
	newNode.ActivationType = node.ActivationType
	return newNode
}

func mutateWeights(genome *genetics.Genome, power float64, rng *rand.Rand) {
	for _, gene := range genome.Genes {
		if rng.Float64() < perturbProb {
			gene.Link.ConnectionWeight += (rng.Float64()*2 - 1) * power
		} else {
			gene.Link.ConnectionWeight = rng.Float64()*4 - 2
		}
		gene.Link.ConnectionWeight = clampWeight(gene.Link.ConnectionWeight)
	}
}

// clampWeight clamps a connection weight to the valid range.
func clampWeight(w float64) float64 {
	return math.Max(-maxConnectionWeight, math.Min(maxConnectionWeight, w))
}

// hiddenActivators are the activation functions a new hidden node may use.
var hiddenActivators = []neatmath.NodeActivationType{
	neatmath.TanhActivation,
	neatmath.SigmoidSteepenedActivation,
	neatmath.LinearActivation,
}

func addNode(genome *genetics.Genome, idGen *GenomeIDGenerator, rng *rand.Rand) bool {
	enabledGenes := make([]*genetics.Gene, 0, len(genome.Genes))
	for _, gene := range genome.Genes {
		if gene.IsEnabled {
			enabledGenes = append(enabledGenes, gene)
		}
	}
	if len(enabledGenes) == 0 {
		return false
	}

	geneToSplit := enabledGenes[rng.Intn(len(enabledGenes))]
	rec := idGen.split(geneToSplit)

	// The same gene was already split in this genome's lineage
	for _, node := range genome.Nodes {
		if node.Id == rec.nodeID {
			return false
		}
	}

	geneToSplit.IsEnabled = false

	newNode := network.NewNNode(rec.nodeID, network.HiddenNeuron)
	newNode.ActivationType = hiddenActivators[rng.Intn(len(hiddenActivators))]

	// old_in -> new_node (weight 1.0), new_node -> old_out (old weight)
	gene1 := genetics.NewGeneWithTrait(nil, 1.0, geneToSplit.Link.InNode, newNode, false, rec.inInnov, 0)
	gene2 := genetics.NewGeneWithTrait(nil, geneToSplit.Link.ConnectionWeight, newNode, geneToSplit.Link.OutNode, false, rec.outInnov, 0)

	genome.Nodes = append(genome.Nodes, newNode)
	genome.Genes = append(genome.Genes, gene1, gene2)
	return true
}

func addLink(genome *genetics.Genome, idGen *GenomeIDGenerator, rng *rand.Rand) bool {
	var sources, targets []*network.NNode
	for _, node := range genome.Nodes {
		switch node.NeuronType {
		case network.InputNeuron, network.BiasNeuron:
			sources = append(sources, node)
		case network.OutputNeuron:
			targets = append(targets, node)
		case network.HiddenNeuron:
			sources = append(sources, node)
			targets = append(targets, node)
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return false
	}

	existing := make(map[int64]bool, len(genome.Genes))
	for _, gene := range genome.Genes {
		existing[connectionKey(gene.Link.InNode.Id, gene.Link.OutNode.Id)] = true
	}

	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		source := sources[rng.Intn(len(sources))]
		target := targets[rng.Intn(len(targets))]

		if source.Id == target.Id || existing[connectionKey(source.Id, target.Id)] {
			continue
		}
		// Keep the net feedforward
		if reaches(genome, target.Id, source.Id) {
			continue
		}

		gene := genetics.NewGeneWithTrait(
			nil,
			rng.Float64()*4-2,
			source,
			target,
			false,
			idGen.LinkInnovation(source.Id, target.Id),
			0,
		)
		genome.Genes = append(genome.Genes, gene)
		return true
	}

	return false
}

// reaches reports whether a path of links leads from node from to node to.
func reaches(genome *genetics.Genome, from, to int) bool {
	next := make(map[int][]int, len(genome.Genes))
	for _, g := range genome.Genes {
		next[g.Link.InNode.Id] = append(next[g.Link.InNode.Id], g.Link.OutNode.Id)
	}
	seen := map[int]bool{from: true}
	stack := []int{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		for _, n := range next[id] {
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return false
}

// connectionKey creates a unique key for a connection between two nodes.
func connectionKey(inID, outID int) int64 {
	return int64(inID)<<32 | int64(outID)
}

func toggleEnable(genome *genetics.Genome, rng *rand.Rand) {
	if len(genome.Genes) == 0 {
		return
	}

	gene := genome.Genes[rng.Intn(len(genome.Genes))]
	gene.IsEnabled = !gene.IsEnabled

	// Never leave the target without an enabled incoming link
	if !gene.IsEnabled && !hasEnabledInput(genome, gene.Link.OutNode.Id) {
		gene.IsEnabled = true
	}
}

func hasEnabledInput(genome *genetics.Genome, nodeID int) bool {
	for _, g := range genome.Genes {
		if g.Link.OutNode.Id == nodeID && g.IsEnabled {
			return true
		}
	}
	return false
}

// ensureOutputLinked re-enables one link into the output if crossover left
// it without any.
func ensureOutputLinked(genome *genetics.Genome) {
	if hasEnabledInput(genome, outputNodeID) {
		return
	}
	for _, g := range genome.Genes {
		if g.Link.OutNode.Id == outputNodeID {
			g.IsEnabled = true
			return
		}
	}
}

// MutateGenome applies weight and structural mutations with the
// probabilities in opts. Returns whether anything changed.
func MutateGenome(genome *genetics.Genome, opts *neat.Options, idGen *GenomeIDGenerator, rng *rand.Rand) (bool, error) {
	if genome == nil {
		return false, ErrNilGenome
	}

	mutated := false

	if rng.Float64() < opts.MutateLinkWeightsProb {
		mutateWeights(genome, opts.WeightMutPower, rng)
		mutated = true
	}
	if rng.Float64() < opts.MutateAddNodeProb && addNode(genome, idGen, rng) {
		mutated = true
	}
	if rng.Float64() < opts.MutateAddLinkProb && addLink(genome, idGen, rng) {
		mutated = true
	}
	if rng.Float64() < opts.MutateToggleEnableProb {
		toggleEnable(genome, rng)
		mutated = true
	}

	return mutated, nil
}

// CloneGenome creates a deep copy of a genome with a new ID.
func CloneGenome(genome *genetics.Genome, newID int) (*genetics.Genome, error) {
	if genome == nil {
		return nil, ErrNilGenome
	}

	nodeMap := make(map[int]*network.NNode, len(genome.Nodes))
	newNodes := make([]*network.NNode, 0, len(genome.Nodes))
	for _, node := range genome.Nodes {
		newNode := copyNode(node)
		nodeMap[node.Id] = newNode
		newNodes = append(newNodes, newNode)
	}

	newGenes := make([]*genetics.Gene, 0, len(genome.Genes))
	for _, gene := range genome.Genes {
		inNode := nodeMap[gene.Link.InNode.Id]
		outNode := nodeMap[gene.Link.OutNode.Id]
		if inNode == nil || outNode == nil {
			continue
		}
		newGene := genetics.NewGeneWithTrait(
			nil,
			gene.Link.ConnectionWeight,
			inNode,
			outNode,
			gene.Link.IsRecurrent,
			gene.InnovationNum,
			gene.MutationNum,
		)
		newGene.IsEnabled = gene.IsEnabled
		newGenes = append(newGenes, newGene)
	}

	return genetics.NewGenome(newID, nil, newNodes, newGenes), nil
}

// GenomeCompatibility calculates the compatibility distance between two genomes.
func GenomeCompatibility(g1, g2 *genetics.Genome, opts *neat.Options) float64 {
	if g1 == nil || g2 == nil {
		return math.MaxFloat64
	}

	genes1 := genesByInnovation(g1)
	genes2 := genesByInnovation(g2)

	maxInnov1 := int64(0)
	for innov := range genes1 {
		maxInnov1 = max(maxInnov1, innov)
	}
	maxInnov2 := int64(0)
	for innov := range genes2 {
		maxInnov2 = max(maxInnov2, innov)
	}

	matching, disjoint, excess := 0, 0, 0
	weightDiff := 0.0

	for innov, gene1 := range genes1 {
		if gene2, exists := genes2[innov]; exists {
			matching++
			weightDiff += math.Abs(gene1.Link.ConnectionWeight - gene2.Link.ConnectionWeight)
		} else if innov > maxInnov2 {
			excess++
		} else {
			disjoint++
		}
	}
	for innov := range genes2 {
		if _, exists := genes1[innov]; !exists {
			if innov > maxInnov1 {
				excess++
			} else {
				disjoint++
			}
		}
	}

	// Small genomes are not normalized
	n := float64(max(len(g1.Genes), len(g2.Genes)))
	if n < 20 {
		n = 1
	}

	avgWeightDiff := 0.0
	if matching > 0 {
		avgWeightDiff = weightDiff / float64(matching)
	}

	return (opts.ExcessCoeff*float64(excess)+opts.DisjointCoeff*float64(disjoint))/n +
		opts.MutdiffCoeff*avgWeightDiff
}
