package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/flappy/neural"
)

// ErrEmptyHall is returned when a hall of fame has no entries.
var ErrEmptyHall = errors.New("hall of fame is empty")

// HallEntry is one remembered champion and the episode it flew in.
type HallEntry struct {
	Genome neural.GenomeRecord `json:"genome"`
	Score  int                 `json:"score"`
	Ticks  int                 `json:"ticks"`
}

// HallOfFame keeps the fittest genomes seen across all generations, sorted
// by fitness, best first. A genome ID appears at most once.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a new hall of fame with the given capacity.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers an entry to the hall. Returns true if it was added.
func (hof *HallOfFame) Consider(entry HallEntry) bool {
	for i, e := range hof.entries {
		if e.Genome.ID == entry.Genome.ID {
			if entry.Genome.Fitness <= e.Genome.Fitness {
				return false
			}
			hof.entries = append(hof.entries[:i], hof.entries[i+1:]...)
			break
		}
	}

	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Genome.Fitness < entry.Genome.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hof.entries) >= hof.maxSize && idx >= hof.maxSize {
		return false
	}

	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = entry

	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// Best returns the top entry.
func (hof *HallOfFame) Best() (HallEntry, error) {
	if len(hof.entries) == 0 {
		return HallEntry{}, ErrEmptyHall
	}
	return hof.entries[0], nil
}

// Entries returns a copy of the entries, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	out := make([]HallEntry, len(hof.entries))
	copy(out, hof.entries)
	return out
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// TopFitness returns the highest fitness in the hall, or 0 if it is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Genome.Fitness
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hof.entries, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var entries []HallEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(len(entries))
	for _, e := range entries {
		hof.Consider(e)
	}
	return hof, nil
}
