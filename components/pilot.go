package components

// Decider maps sensor readings to control outputs. Only the first output is
// consulted by the game loop.
type Decider interface {
	Activate(inputs []float64) ([]float64, error)
}

// FitnessSink accumulates a pilot's fitness. It is owned by the evolution
// engine and only referenced by the game loop.
type FitnessSink interface {
	Reward(delta float64)
	Penalize(delta float64)
}

// Pilot binds a bird entity to its controller.
type Pilot struct {
	ID      int // candidate identifier supplied by the caller
	Seq     int // spawn order; the lowest live Seq is the lead bird
	Decider Decider
	Sink    FitnessSink
}
