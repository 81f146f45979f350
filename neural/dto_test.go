package neural

import (
	"math/rand"
	"path/filepath"
	"testing"
)

func TestGenomeRecordRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	gen := NewGenomeIDGenerator()
	genome := NewFlapGenome(7, 1.0, rng)
	addNode(genome, gen, rng)
	addLink(genome, gen, rng)

	org := &Organism{Genome: genome, Fitness: 12.5, SpeciesID: 3, Generation: 4}
	path := filepath.Join(t.TempDir(), "champion.json")
	if err := WriteRecord(path, RecordOf(org)); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	rec, err := ReadRecord(path)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec.ID != 7 || rec.Fitness != 12.5 || rec.Species != 3 || rec.Generation != 4 {
		t.Errorf("metadata lost: %+v", rec)
	}

	rebuilt, err := rec.Genome()
	if err != nil {
		t.Fatalf("Genome: %v", err)
	}

	a, err := NewController(genome)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewController(rebuilt)
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{300, 50, 150}
	outA, _ := a.Activate(in)
	wantOut := outA[0]
	outB, _ := b.Activate(in)
	if wantOut != outB[0] {
		t.Errorf("rebuilt genome disagrees: %f vs %f", wantOut, outB[0])
	}
}

func TestGenomeRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  GenomeRecord
	}{
		{"bad kind", GenomeRecord{Nodes: []NodeRecord{{ID: 1, Kind: "sensor", Activation: "linear"}}}},
		{"bad activation", GenomeRecord{Nodes: []NodeRecord{{ID: 1, Kind: "input", Activation: "relu"}}}},
		{"dangling gene", GenomeRecord{
			Nodes: []NodeRecord{{ID: 1, Kind: "input", Activation: "linear"}},
			Genes: []GeneRecord{{In: 1, Out: 5, Weight: 1, Enabled: true, Innovation: 1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.rec.Genome(); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := ReadRecord(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
