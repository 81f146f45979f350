package neural

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestPopulation(t *testing.T, size int, seed int64) *Population {
	t.Helper()
	opts := DefaultNEATOptions()
	pop, err := NewPopulation(PopulationConfig{Size: size, Elitism: 1, InitialConnectionProb: 1.0}, opts, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	return pop
}

func TestNewPopulation(t *testing.T) {
	pop := newTestPopulation(t, 20, 1)

	if len(pop.Organisms) != 20 {
		t.Fatalf("expected 20 organisms, got %d", len(pop.Organisms))
	}
	ids := make(map[int]bool)
	for _, o := range pop.Organisms {
		if ids[o.ID()] {
			t.Errorf("duplicate genome ID %d", o.ID())
		}
		ids[o.ID()] = true
		if o.SpeciesID == 0 {
			t.Errorf("organism %d not speciated", o.ID())
		}
	}

	if _, err := NewPopulation(PopulationConfig{}, DefaultNEATOptions(), rand.New(rand.NewSource(1))); !errors.Is(err, ErrEmptyPopulation) {
		t.Errorf("expected ErrEmptyPopulation, got %v", err)
	}
}

func TestOrganismFitnessSink(t *testing.T) {
	o := &Organism{}
	for i := 0; i < 10; i++ {
		o.Reward(0.1)
	}
	o.Penalize(1.0)
	if o.Fitness > 1e-9 || o.Fitness < -1e-9 {
		t.Errorf("fitness = %f, want 0", o.Fitness)
	}
}

func TestEpochKeepsPopulationSize(t *testing.T) {
	pop := newTestPopulation(t, 30, 2)
	rng := rand.New(rand.NewSource(99))

	for gen := 0; gen < 8; gen++ {
		pop.ResetFitness()
		for _, o := range pop.Organisms {
			o.Reward(rng.Float64() * 10)
		}
		if err := pop.Epoch(); err != nil {
			t.Fatalf("generation %d: Epoch: %v", gen, err)
		}
		if len(pop.Organisms) != 30 {
			t.Fatalf("generation %d: population size %d, want 30", gen, len(pop.Organisms))
		}
		for _, o := range pop.Organisms {
			if _, err := NewController(o.Genome); err != nil {
				t.Fatalf("generation %d: offspring %d does not build: %v", gen, o.ID(), err)
			}
		}
	}

	if pop.Generation() != 8 {
		t.Errorf("generation = %d, want 8", pop.Generation())
	}
	t.Logf("species after 8 generations: %d", len(pop.Species.Species))
}

func TestEpochKeepsChampionGenes(t *testing.T) {
	pop := newTestPopulation(t, 10, 3)
	pop.ResetFitness()
	for i, o := range pop.Organisms {
		o.Fitness = float64(i)
	}
	champ := pop.Best()
	want := RecordOf(champ).Genes

	if err := pop.Epoch(); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, o := range pop.Organisms {
		got := RecordOf(o).Genes
		if len(got) != len(want) {
			continue
		}
		same := true
		for i := range got {
			if got[i] != want[i] {
				same = false
				break
			}
		}
		if same {
			found = true
			break
		}
	}
	if !found {
		t.Error("elitism should carry the champion's genes into the next generation unchanged")
	}
}

func TestEpochDeterministic(t *testing.T) {
	run := func() []GeneRecord {
		pop := newTestPopulation(t, 15, 4)
		for gen := 0; gen < 3; gen++ {
			pop.ResetFitness()
			for i, o := range pop.Organisms {
				o.Fitness = float64((i * 7) % 5)
			}
			if err := pop.Epoch(); err != nil {
				t.Fatal(err)
			}
		}
		return RecordOf(pop.Organisms[len(pop.Organisms)-1]).Genes
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("same seed produced different genomes: %d vs %d genes", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("gene %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAllocateSumsToTotal(t *testing.T) {
	pop := newTestPopulation(t, 4, 5)
	species := []*Species{
		{Members: []*Organism{{Fitness: 1}, {Fitness: 3}}},
		{Members: []*Organism{{Fitness: 10}}},
		{Members: []*Organism{{Fitness: -2}}},
	}

	tests := []struct {
		name  string
		total int
	}{
		{"small", 3},
		{"default", 50},
		{"odd", 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotas := pop.allocate(species, tt.total)
			sum := 0
			for _, q := range quotas {
				sum += q
			}
			if sum != tt.total {
				t.Errorf("quotas %v sum to %d, want %d", quotas, sum, tt.total)
			}
			if quotas[1] < quotas[2] {
				t.Errorf("fitter species got fewer offspring: %v", quotas)
			}
		})
	}
}
