package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

// ErrEmptyPopulation is returned when a population has no organisms to breed from.
var ErrEmptyPopulation = errors.New("empty population")

// Organism is one genome under evaluation together with its fitness.
// It satisfies the game's FitnessSink interface.
type Organism struct {
	Genome     *genetics.Genome
	Fitness    float64
	SpeciesID  int
	Generation int
}

// Reward adds delta to the organism's fitness.
func (o *Organism) Reward(delta float64) { o.Fitness += delta }

// Penalize subtracts delta from the organism's fitness.
func (o *Organism) Penalize(delta float64) { o.Fitness -= delta }

// ID returns the genome ID.
func (o *Organism) ID() int { return o.Genome.Id }

// Population is a generational NEAT population of flap pilots.
type Population struct {
	Organisms []*Organism
	Species   *SpeciesManager

	opts       *neat.Options
	idGen      *GenomeIDGenerator
	rng        *rand.Rand
	elitism    int
	generation int
}

// PopulationConfig holds the population-level parameters not covered by neat.Options.
type PopulationConfig struct {
	Size                  int
	Elitism               int
	InitialConnectionProb float64
}

// NewPopulation creates an initial population of fresh flap genomes.
func NewPopulation(cfg PopulationConfig, opts *neat.Options, rng *rand.Rand) (*Population, error) {
	if cfg.Size < 1 {
		return nil, fmt.Errorf("population size %d: %w", cfg.Size, ErrEmptyPopulation)
	}

	p := &Population{
		Species: NewSpeciesManager(opts),
		opts:    opts,
		idGen:   NewGenomeIDGenerator(),
		rng:     rng,
		elitism: max(cfg.Elitism, 0),
	}
	p.Organisms = make([]*Organism, cfg.Size)
	for i := range p.Organisms {
		p.Organisms[i] = &Organism{Genome: NewFlapGenome(p.idGen.NextID(), cfg.InitialConnectionProb, rng)}
	}
	p.Species.Speciate(p.Organisms)
	return p, nil
}

// Generation returns the zero-based index of the current generation.
func (p *Population) Generation() int { return p.generation }

// ResetFitness zeroes every organism's fitness before an evaluation.
func (p *Population) ResetFitness() {
	for _, o := range p.Organisms {
		o.Fitness = 0
		o.Generation = p.generation
	}
}

// Best returns the fittest organism of the current generation.
func (p *Population) Best() *Organism {
	var best *Organism
	for _, o := range p.Organisms {
		if best == nil || o.Fitness > best.Fitness {
			best = o
		}
	}
	return best
}

// Epoch breeds the next generation from the evaluated current one.
// Offspring are allotted to species in proportion to their shared fitness;
// each species keeps its top Elitism members unchanged and breeds the rest
// from its top SurvivalThresh fraction.
func (p *Population) Epoch() error {
	if len(p.Organisms) == 0 {
		return ErrEmptyPopulation
	}

	p.Species.EndGeneration()
	species := p.Species.Species
	if len(species) == 0 {
		return ErrEmptyPopulation
	}

	for _, sp := range species {
		sort.SliceStable(sp.Members, func(i, j int) bool {
			return sp.Members[i].Fitness > sp.Members[j].Fitness
		})
	}

	quotas := p.allocate(species, len(p.Organisms))

	p.idGen.ResetGeneration()
	next := make([]*Organism, 0, len(p.Organisms))
	for i, sp := range species {
		kids, err := p.breed(sp, quotas[i])
		if err != nil {
			return fmt.Errorf("breeding species %d: %w", sp.ID, err)
		}
		sp.OffspringCount += len(kids)
		next = append(next, kids...)
	}

	// Representatives come from the generation that just ended
	for _, sp := range species {
		sp.Representative = sp.Members[p.rng.Intn(len(sp.Members))].Genome
	}

	p.generation++
	p.Organisms = next
	p.Species.Speciate(p.Organisms)
	return nil
}

// allocate splits total offspring across species by fitness shared within
// each species. Fitness is shifted so the weakest organism counts as zero.
func (p *Population) allocate(species []*Species, total int) []int {
	minFit := math.Inf(1)
	for _, sp := range species {
		for _, m := range sp.Members {
			minFit = math.Min(minFit, m.Fitness)
		}
	}

	shares := make([]float64, len(species))
	sum := 0.0
	for i, sp := range species {
		for _, m := range sp.Members {
			shares[i] += m.Fitness - minFit
		}
		shares[i] /= float64(len(sp.Members))
		sum += shares[i]
	}

	quotas := make([]int, len(species))
	assigned := 0
	for i := range species {
		if sum > 0 {
			quotas[i] = int(math.Floor(shares[i] / sum * float64(total)))
		} else {
			quotas[i] = total / len(species)
		}
		assigned += quotas[i]
	}

	// Hand out the remainder by share, largest first
	order := make([]int, len(species))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return shares[order[a]] > shares[order[b]] })
	for i := 0; assigned < total; i++ {
		quotas[order[i%len(order)]]++
		assigned++
	}
	return quotas
}

// breed produces n offspring for one species whose members are sorted by
// fitness, best first.
func (p *Population) breed(sp *Species, n int) ([]*Organism, error) {
	kids := make([]*Organism, 0, n)
	if n == 0 {
		return kids, nil
	}

	for i := 0; i < p.elitism && i < len(sp.Members) && len(kids) < n; i++ {
		g, err := CloneGenome(sp.Members[i].Genome, p.idGen.NextID())
		if err != nil {
			return nil, err
		}
		kids = append(kids, &Organism{Genome: g})
	}

	pool := sp.Members[:max(1, int(math.Ceil(p.opts.SurvivalThresh*float64(len(sp.Members)))))]
	for len(kids) < n {
		mom := pool[p.rng.Intn(len(pool))]

		var child *genetics.Genome
		var err error
		if len(pool) > 1 && p.rng.Float64() >= p.opts.MutateOnlyProb {
			dad := pool[p.rng.Intn(len(pool))]
			child, err = CrossoverGenomes(mom.Genome, dad.Genome, mom.Fitness, dad.Fitness, p.idGen.NextID(), p.rng)
		} else {
			child, err = CloneGenome(mom.Genome, p.idGen.NextID())
		}
		if err != nil {
			return nil, err
		}
		if _, err := MutateGenome(child, p.opts, p.idGen, p.rng); err != nil {
			return nil, err
		}
		kids = append(kids, &Organism{Genome: child})
	}
	return kids, nil
}
