package telemetry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/flappy/neural"
)

func TestChampionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "champions.db")
	store, err := OpenChampionStore(path)
	if err != nil {
		t.Fatalf("OpenChampionStore: %v", err)
	}

	if _, err := store.Best(); !errors.Is(err, ErrNoChampion) {
		t.Errorf("empty store Best error = %v, want ErrNoChampion", err)
	}

	recs := []neural.GenomeRecord{
		{ID: 10, Generation: 0, Fitness: 3.1, Genes: []neural.GeneRecord{{In: 1, Out: 5, Weight: 0.5, Enabled: true, Innovation: 1}}},
		{ID: 42, Generation: 1, Fitness: 12.7},
		{ID: 77, Generation: 2, Fitness: 8.0},
	}
	for _, r := range recs {
		if err := store.Put(r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := store.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != 10 || len(got.Genes) != 1 || got.Genes[0].Weight != 0.5 {
		t.Errorf("Get(0) = %+v", got)
	}
	if _, err := store.Get(9); !errors.Is(err, ErrNoChampion) {
		t.Errorf("Get(9) error = %v, want ErrNoChampion", err)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen to check persistence
	store, err = OpenChampionStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	best, err := store.Best()
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best.ID != 42 {
		t.Errorf("best champion = %d, want 42", best.ID)
	}

	gens, err := store.Generations()
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 3 || gens[0] != 0 || gens[2] != 2 {
		t.Errorf("generations = %v, want [0 1 2]", gens)
	}
}

func TestItob(t *testing.T) {
	for _, v := range []int{0, 1, 255, 256, 1 << 20} {
		if got := btoi(itob(v)); got != v {
			t.Errorf("btoi(itob(%d)) = %d", v, got)
		}
	}
}

func TestChampionStoreResetBetweenRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "champions.db")
	store, err := OpenChampionStore(path)
	if err != nil {
		t.Fatal(err)
	}

	// A long first run with a strong champion late on.
	for g := 0; g < 5; g++ {
		if err := store.Put(neural.GenomeRecord{ID: 100 + g, Generation: g, Fitness: float64(10 * g)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenChampionStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	second := []neural.GenomeRecord{
		{ID: 1, Generation: 0, Fitness: 2},
		{ID: 2, Generation: 1, Fitness: 3},
	}
	for _, r := range second {
		if err := store.Put(r); err != nil {
			t.Fatal(err)
		}
	}

	gens, err := store.Generations()
	if err != nil {
		t.Fatal(err)
	}
	if len(gens) != 2 {
		t.Errorf("generations = %v, want only the second run's [0 1]", gens)
	}
	best, err := store.Best()
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("best after reset: id=%d fitness=%.1f", best.ID, best.Fitness)
	if best.ID != 2 {
		t.Errorf("best = %d, want 2 from the second run", best.ID)
	}
	if _, err := store.Get(4); !errors.Is(err, ErrNoChampion) {
		t.Errorf("Get(4) error = %v, want ErrNoChampion", err)
	}

	if err := store.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Best(); !errors.Is(err, ErrNoChampion) {
		t.Errorf("Best after reset error = %v, want ErrNoChampion", err)
	}
}
