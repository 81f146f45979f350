package neural

import (
	"math"
	"sort"

	"github.com/yaricom/goNEAT/v4/neat"
	"github.com/yaricom/goNEAT/v4/neat/genetics"
)

// SpeciesColor represents an RGB color for species visualization.
type SpeciesColor struct {
	R, G, B uint8
}

// Species represents a group of genetically similar organisms.
type Species struct {
	ID             int
	Representative *genetics.Genome // Used for compatibility comparisons
	Members        []*Organism
	BestFitness    float64 // Best fitness ever reached by a member
	AvgFitness     float64 // Mean fitness of the last evaluated generation
	Age            int     // Generations since species was created
	Staleness      int     // Generations without fitness improvement
	Color          SpeciesColor
	OffspringCount int // Total offspring produced by this species
}

// champion returns the fittest member, or nil for an empty species.
func (sp *Species) champion() *Organism {
	var best *Organism
	for _, m := range sp.Members {
		if best == nil || m.Fitness > best.Fitness {
			best = m
		}
	}
	return best
}

// SpeciesManager manages speciation for the population.
type SpeciesManager struct {
	Species       []*Species
	opts          *neat.Options
	nextSpeciesID int
	generation    int
	speciesColors []SpeciesColor // Pre-generated distinct colors
}

// NewSpeciesManager creates a new species manager.
func NewSpeciesManager(opts *neat.Options) *SpeciesManager {
	return &SpeciesManager{
		Species:       make([]*Species, 0),
		opts:          opts,
		nextSpeciesID: 1,
		speciesColors: generateDistinctColors(64),
	}
}

// generateDistinctColors creates visually distinct colors using golden angle.
func generateDistinctColors(count int) []SpeciesColor {
	colors := make([]SpeciesColor, count)
	goldenAngle := 137.508

	for i := 0; i < count; i++ {
		hue := math.Mod(float64(i)*goldenAngle, 360.0)
		r, g, b := hsvToRGB(hue, 0.7, 0.9)
		colors[i] = SpeciesColor{R: r, G: g, B: b}
	}
	return colors
}

// hsvToRGB converts HSV to RGB.
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 360)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}

// AssignSpecies finds or creates a species for the organism and adds it as a member.
// Returns the species ID.
func (sm *SpeciesManager) AssignSpecies(org *Organism) int {
	if org == nil || org.Genome == nil {
		return 0
	}

	for _, sp := range sm.Species {
		if sp.Representative == nil {
			continue
		}
		if GenomeCompatibility(org.Genome, sp.Representative, sm.opts) < sm.opts.CompatThreshold {
			sp.Members = append(sp.Members, org)
			org.SpeciesID = sp.ID
			return sp.ID
		}
	}

	sp := &Species{
		ID:             sm.nextSpeciesID,
		Representative: org.Genome,
		Members:        []*Organism{org},
		Color:          sm.speciesColors[sm.nextSpeciesID%len(sm.speciesColors)],
	}
	sm.nextSpeciesID++
	sm.Species = append(sm.Species, sp)
	org.SpeciesID = sp.ID
	return sp.ID
}

// Speciate clears membership and reassigns every organism. Representatives
// carry over from the previous generation; species left empty are dropped.
func (sm *SpeciesManager) Speciate(orgs []*Organism) {
	for _, sp := range sm.Species {
		sp.Members = sp.Members[:0]
	}
	for _, org := range orgs {
		sm.AssignSpecies(org)
	}

	active := sm.Species[:0]
	for _, sp := range sm.Species {
		if len(sp.Members) > 0 {
			active = append(active, sp)
		}
	}
	sm.Species = active
}

// GetSpeciesColor returns the color for a species ID.
// Returns a default gray if species not found.
func (sm *SpeciesManager) GetSpeciesColor(speciesID int) SpeciesColor {
	for _, sp := range sm.Species {
		if sp.ID == speciesID {
			return sp.Color
		}
	}
	return SpeciesColor{R: 128, G: 128, B: 128}
}

// EndGeneration updates fitness bookkeeping after an evaluation and removes
// species that have not improved for DropOffAge generations. The species
// holding the population champion is never removed.
func (sm *SpeciesManager) EndGeneration() {
	sm.generation++

	var top *Species
	topFitness := math.Inf(-1)
	for _, sp := range sm.Species {
		sp.Age++

		total := 0.0
		for _, m := range sp.Members {
			total += m.Fitness
		}
		if len(sp.Members) > 0 {
			sp.AvgFitness = total / float64(len(sp.Members))
		}

		champ := sp.champion()
		if champ == nil {
			continue
		}
		if sp.Age == 1 || champ.Fitness > sp.BestFitness {
			sp.BestFitness = champ.Fitness
			sp.Staleness = 0
		} else {
			sp.Staleness++
		}
		if champ.Fitness > topFitness {
			top, topFitness = sp, champ.Fitness
		}
	}

	sm.removeStaleSpecies(top)
}

// removeStaleSpecies removes species that are too stale, except keep.
func (sm *SpeciesManager) removeStaleSpecies(keep *Species) {
	maxStaleness := sm.opts.DropOffAge
	active := make([]*Species, 0, len(sm.Species))

	for _, sp := range sm.Species {
		if sp == keep || (len(sp.Members) > 0 && sp.Staleness < maxStaleness) {
			active = append(active, sp)
		}
	}

	sm.Species = active
}

// SpeciesStats contains summary statistics about all species.
type SpeciesStats struct {
	Count            int
	TotalMembers     int
	LargestSize      int
	SmallestSize     int
	AverageStaleness float64
	Generation       int
	TotalOffspring   int
	BestFitness      float64
}

// SpeciesInfo contains display information about a single species.
type SpeciesInfo struct {
	ID        int
	Size      int
	BestFit   float64
	AvgFit    float64
	Age       int
	Staleness int
	Color     SpeciesColor
	Offspring int
}

// GetStats returns summary statistics about species distribution.
func (sm *SpeciesManager) GetStats() SpeciesStats {
	if len(sm.Species) == 0 {
		return SpeciesStats{Generation: sm.generation}
	}

	stats := SpeciesStats{
		Count:        len(sm.Species),
		SmallestSize: math.MaxInt,
		Generation:   sm.generation,
		BestFitness:  math.Inf(-1),
	}

	totalStaleness := 0
	for _, sp := range sm.Species {
		size := len(sp.Members)
		stats.TotalMembers += size
		stats.TotalOffspring += sp.OffspringCount
		stats.BestFitness = math.Max(stats.BestFitness, sp.BestFitness)
		stats.LargestSize = max(stats.LargestSize, size)
		if size > 0 {
			stats.SmallestSize = min(stats.SmallestSize, size)
		}
		totalStaleness += sp.Staleness
	}

	stats.AverageStaleness = float64(totalStaleness) / float64(stats.Count)
	if stats.SmallestSize == math.MaxInt {
		stats.SmallestSize = 0
	}

	return stats
}

// GetTopSpecies returns info about the top N species by size.
func (sm *SpeciesManager) GetTopSpecies(n int) []SpeciesInfo {
	if len(sm.Species) == 0 {
		return nil
	}

	sorted := make([]*Species, len(sm.Species))
	copy(sorted, sm.Species)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Members) > len(sorted[j].Members)
	})

	n = min(n, len(sorted))
	result := make([]SpeciesInfo, n)
	for i := 0; i < n; i++ {
		sp := sorted[i]
		result[i] = SpeciesInfo{
			ID:        sp.ID,
			Size:      len(sp.Members),
			BestFit:   sp.BestFitness,
			AvgFit:    sp.AvgFitness,
			Age:       sp.Age,
			Staleness: sp.Staleness,
			Color:     sp.Color,
			Offspring: sp.OffspringCount,
		}
	}

	return result
}
