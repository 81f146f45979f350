package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlaySpeciesColors OverlayID = "species_colors"
	OverlayHitboxes      OverlayID = "hitboxes"
	OverlaySensors       OverlayID = "sensors"
	OverlayPerf          OverlayID = "perf"
	OverlayInspector     OverlayID = "inspector"
	OverlayEvolution     OverlayID = "evolution"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID
	Name        string
	Description string
	Key         int32  // 0 = no key
	KeyLabel    string // e.g. "S"
	Category    string
	Exclusive   []OverlayID // disabled when this one is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with the default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{
		ID:          OverlaySpeciesColors,
		Name:        "Species Colors",
		Description: "Tint birds by NEAT species",
		Key:         rl.KeyS,
		KeyLabel:    "S",
		Category:    "visual",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayEvolution,
		Name:        "Evolution",
		Description: "Generation and species summary",
		Key:         rl.KeyE,
		KeyLabel:    "E",
		Category:    "visual",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlaySensors,
		Name:        "Sensors",
		Description: "Lines from each bird to the reference pipe gap",
		Key:         rl.KeyV,
		KeyLabel:    "V",
		Category:    "ai",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayInspector,
		Name:        "Inspector",
		Description: "Lead bird state and brain graph",
		Key:         rl.KeyI,
		KeyLabel:    "I",
		Category:    "ai",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayHitboxes,
		Name:        "Hitboxes",
		Description: "Sprite bounding boxes",
		Key:         rl.KeyB,
		KeyLabel:    "B",
		Category:    "debug",
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayPerf,
		Name:        "Tick Phases",
		Description: "Per-phase tick timing",
		Key:         rl.KeyF3,
		KeyLabel:    "F3",
		Category:    "debug",
	})
}

// Register adds an overlay to the registry, disabled.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.SetEnabled(id, !r.enabled[id])
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeyPress toggles the overlay bound to key.
// Returns the overlay ID, its new state and whether a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			return desc.ID, r.Toggle(desc.ID), true
		}
	}
	return "", false, false
}

// Keys returns every bound toggle key.
func (r *OverlayRegistry) Keys() []int32 {
	var keys []int32
	for _, desc := range r.descriptors {
		if desc.Key != 0 {
			keys = append(keys, desc.Key)
		}
	}
	return keys
}
