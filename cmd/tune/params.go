package main

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/flappy/neural"
)

// WeightSpace describes the search space: every weight of a fixed-width
// pilot network, bounded to [-Bound, Bound].
type WeightSpace struct {
	Hidden int
	Bound  float64
}

// Dim returns the number of weights searched.
func (ws WeightSpace) Dim() int {
	return neural.FFNNParamCount(ws.Hidden)
}

// Initial returns a Xavier-scaled starting point drawn from rng.
func (ws WeightSpace) Initial(rng *rand.Rand) []float64 {
	return ws.Clamp(neural.NewFFNN(ws.Hidden, rng).Params())
}

// Clamp bounds every weight to the search box.
func (ws WeightSpace) Clamp(x []float64) []float64 {
	clamped := make([]float64, len(x))
	for i, v := range x {
		clamped[i] = math.Max(-ws.Bound, math.Min(ws.Bound, v))
	}
	return clamped
}

// Network builds the pilot for a point in the search space.
func (ws WeightSpace) Network(x []float64) (*neural.FFNN, error) {
	return neural.FFNNFromParams(ws.Hidden, ws.Clamp(x))
}
