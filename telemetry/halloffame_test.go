package telemetry

import (
	"errors"
	"testing"

	"github.com/pthm-cable/flappy/neural"
)

func entry(id int, fitness float64) HallEntry {
	return HallEntry{Genome: neural.GenomeRecord{ID: id, Fitness: fitness}}
}

func TestHallOfFameOrderingAndCapacity(t *testing.T) {
	hof := NewHallOfFame(3)
	if _, err := hof.Best(); !errors.Is(err, ErrEmptyHall) {
		t.Errorf("expected ErrEmptyHall, got %v", err)
	}

	tests := []struct {
		name  string
		entry HallEntry
		added bool
	}{
		{"first", entry(1, 5), true},
		{"better", entry(2, 9), true},
		{"middle", entry(3, 7), true},
		{"too weak when full", entry(4, 1), false},
		{"displaces weakest", entry(5, 8), true},
		{"same genome no better", entry(2, 9), false},
		{"same genome improved", entry(3, 10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hof.Consider(tt.entry); got != tt.added {
				t.Errorf("Consider(%d, %v) = %v, want %v", tt.entry.Genome.ID, tt.entry.Genome.Fitness, got, tt.added)
			}
		})
	}

	want := []int{3, 2, 5}
	got := hof.Entries()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].Genome.ID != id {
			t.Errorf("entry %d = genome %d, want %d", i, got[i].Genome.ID, id)
		}
	}

	best, err := hof.Best()
	if err != nil || best.Genome.Fitness != 10 {
		t.Errorf("Best = %+v, %v", best, err)
	}
}
