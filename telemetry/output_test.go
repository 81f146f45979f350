package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/neural"
)

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("empty dir should disable output, got %v, %v", om, err)
	}
	if err := om.WriteGeneration(GenerationStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("nil manager should have no dir")
	}
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for gen := 0; gen < 3; gen++ {
		if err := om.WriteGeneration(GenerationStats{Generation: gen, Population: 50, BestFitness: float64(gen)}); err != nil {
			t.Fatalf("WriteGeneration: %v", err)
		}
		if err := om.WritePerf(PerfStats{AvgTick: time.Millisecond}, gen, 100); err != nil {
			t.Fatalf("WritePerf: %v", err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "generation,population,species,best_fitness") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "generation,") != 1 {
		t.Error("header written more than once")
	}

	perf, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(perf), "decide_pct") {
		t.Errorf("perf.csv missing phase columns:\n%s", perf)
	}
}

func TestOutputManagerSnapshots(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	hof := NewHallOfFame(3)
	hof.Consider(HallEntry{Genome: neural.GenomeRecord{ID: 1, Fitness: 4}, Score: 2})
	if err := om.WriteHallOfFame(hof); err != nil {
		t.Fatalf("WriteHallOfFame: %v", err)
	}
	if err := om.WriteChampion(neural.GenomeRecord{ID: 1, Fitness: 4}); err != nil {
		t.Fatalf("WriteChampion: %v", err)
	}

	for _, name := range []string{"config.yaml", "hall_of_fame.json", "champion.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	loaded, err := LoadHallOfFameFromFile(filepath.Join(dir, "hall_of_fame.json"))
	if err != nil {
		t.Fatalf("LoadHallOfFameFromFile: %v", err)
	}
	if loaded.Size() != 1 || loaded.TopFitness() != 4 {
		t.Errorf("reloaded hall: size=%d top=%v", loaded.Size(), loaded.TopFitness())
	}
}
