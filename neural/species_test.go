package neural

import (
	"math/rand"
	"testing"
)

func TestNewSpeciesManager(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())

	if len(sm.Species) != 0 {
		t.Errorf("expected 0 species, got %d", len(sm.Species))
	}
	if sm.generation != 0 {
		t.Errorf("expected generation 0, got %d", sm.generation)
	}
	if len(sm.speciesColors) < 32 {
		t.Errorf("expected at least 32 pre-generated colors, got %d", len(sm.speciesColors))
	}
}

func TestSpeciesManagerAssignSpecies(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	rng := rand.New(rand.NewSource(1))

	org := &Organism{Genome: NewFlapGenome(1, 1.0, rng)}
	speciesID := sm.AssignSpecies(org)
	if speciesID == 0 {
		t.Error("expected non-zero species ID")
	}
	if org.SpeciesID != speciesID {
		t.Errorf("organism species = %d, want %d", org.SpeciesID, speciesID)
	}

	// An identical genome joins the same species
	twin, _ := CloneGenome(org.Genome, 2)
	if id := sm.AssignSpecies(&Organism{Genome: twin}); id != speciesID {
		t.Errorf("clone should join species %d, got %d", speciesID, id)
	}
	if len(sm.Species) != 1 || len(sm.Species[0].Members) != 2 {
		t.Errorf("expected 1 species with 2 members")
	}

	// A structurally distant genome founds a new one
	gen := NewGenomeIDGenerator()
	far, _ := CloneGenome(org.Genome, 3)
	for i := 0; i < 6; i++ {
		addNode(far, gen, rng)
	}
	if id := sm.AssignSpecies(&Organism{Genome: far}); id == speciesID {
		t.Error("distant genome should found a new species")
	}

	if sm.AssignSpecies(nil) != 0 {
		t.Error("nil organism should get species 0")
	}
}

func TestSpeciateDropsEmptySpecies(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	rng := rand.New(rand.NewSource(2))
	gen := NewGenomeIDGenerator()

	a := &Organism{Genome: NewFlapGenome(1, 1.0, rng)}
	bGenome, _ := CloneGenome(a.Genome, 2)
	for i := 0; i < 6; i++ {
		addNode(bGenome, gen, rng)
	}
	b := &Organism{Genome: bGenome}

	sm.Speciate([]*Organism{a, b})
	if len(sm.Species) != 2 {
		t.Fatalf("expected 2 species, got %d", len(sm.Species))
	}

	sm.Speciate([]*Organism{a})
	if len(sm.Species) != 1 {
		t.Errorf("empty species should be dropped, have %d", len(sm.Species))
	}
}

func TestEndGenerationStaleness(t *testing.T) {
	opts := DefaultNEATOptions()
	opts.DropOffAge = 2
	sm := NewSpeciesManager(opts)
	rng := rand.New(rand.NewSource(3))
	gen := NewGenomeIDGenerator()

	champ := &Organism{Genome: NewFlapGenome(1, 1.0, rng), Fitness: 10}
	otherGenome, _ := CloneGenome(champ.Genome, 2)
	for i := 0; i < 6; i++ {
		addNode(otherGenome, gen, rng)
	}
	other := &Organism{Genome: otherGenome, Fitness: 1}
	sm.Speciate([]*Organism{champ, other})

	// First generation sets the baseline, then neither improves
	for i := 0; i < 3; i++ {
		sm.EndGeneration()
	}

	if len(sm.Species) != 1 {
		t.Fatalf("expected stale species to be dropped, have %d", len(sm.Species))
	}
	if sm.Species[0].ID != champ.SpeciesID {
		t.Error("the species holding the champion must survive")
	}
	if sm.Species[0].BestFitness != 10 {
		t.Errorf("best fitness = %f, want 10", sm.Species[0].BestFitness)
	}
}

func TestSpeciesStats(t *testing.T) {
	sm := NewSpeciesManager(DefaultNEATOptions())
	if stats := sm.GetStats(); stats.Count != 0 {
		t.Errorf("empty manager count = %d", stats.Count)
	}

	rng := rand.New(rand.NewSource(4))
	orgs := make([]*Organism, 5)
	base := NewFlapGenome(1, 1.0, rng)
	for i := range orgs {
		g, _ := CloneGenome(base, i+1)
		orgs[i] = &Organism{Genome: g, Fitness: float64(i)}
	}
	sm.Speciate(orgs)
	sm.EndGeneration()

	stats := sm.GetStats()
	if stats.Count != 1 || stats.TotalMembers != 5 || stats.LargestSize != 5 || stats.SmallestSize != 5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.BestFitness != 4 {
		t.Errorf("best fitness = %f, want 4", stats.BestFitness)
	}

	top := sm.GetTopSpecies(3)
	if len(top) != 1 || top[0].AvgFit != 2 {
		t.Errorf("unexpected top species: %+v", top)
	}
}

func TestSpeciesColorsDistinct(t *testing.T) {
	colors := generateDistinctColors(16)
	seen := make(map[SpeciesColor]bool)
	for _, c := range colors {
		if seen[c] {
			t.Errorf("duplicate color %v", c)
		}
		seen[c] = true
	}

	sm := NewSpeciesManager(DefaultNEATOptions())
	if c := sm.GetSpeciesColor(99); c != (SpeciesColor{128, 128, 128}) {
		t.Errorf("unknown species color = %v, want gray", c)
	}
}
