package neural

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"
)

// FFNN is a fixed-topology two-layer pilot network: the three sensors plus a
// bias feed a tanh hidden layer, which feeds a single tanh output. It is the
// search space for the CMA-ES tuner and satisfies the game's Decider interface.
type FFNN struct {
	W1 *mat.Dense    // hidden x (inputs+1)
	W2 *mat.VecDense // hidden

	in     *mat.VecDense
	hidden *mat.VecDense
	out    []float64
}

// NewFFNN creates a network with the given hidden width and Xavier-scaled
// random weights.
func NewFFNN(hidden int, rng *rand.Rand) *FFNN {
	nn := newFFNN(hidden)
	scale1 := math.Sqrt(2.0 / float64(FlapInputs+1))
	scale2 := math.Sqrt(2.0 / float64(hidden))
	for i := 0; i < hidden; i++ {
		for j := 0; j <= FlapInputs; j++ {
			nn.W1.Set(i, j, rng.NormFloat64()*scale1)
		}
		nn.W2.SetVec(i, rng.NormFloat64()*scale2)
	}
	return nn
}

func newFFNN(hidden int) *FFNN {
	return &FFNN{
		W1:     mat.NewDense(hidden, FlapInputs+1, nil),
		W2:     mat.NewVecDense(hidden, nil),
		in:     mat.NewVecDense(FlapInputs+1, nil),
		hidden: mat.NewVecDense(hidden, nil),
		out:    make([]float64, FlapOutputs),
	}
}

// FFNNParamCount returns the number of weights in a network with the given hidden width.
func FFNNParamCount(hidden int) int {
	return hidden*(FlapInputs+1) + hidden
}

// FFNNFromParams builds a network from a flat weight vector laid out as
// W1 row-major followed by W2.
func FFNNFromParams(hidden int, params []float64) (*FFNN, error) {
	if len(params) != FFNNParamCount(hidden) {
		return nil, fmt.Errorf("expected %d params for %d hidden units, got %d", FFNNParamCount(hidden), hidden, len(params))
	}
	nn := newFFNN(hidden)
	n1 := hidden * (FlapInputs + 1)
	copy(nn.W1.RawMatrix().Data, params[:n1])
	copy(nn.W2.RawVector().Data, params[n1:])
	return nn, nil
}

// Params flattens the weights in the layout FFNNFromParams expects.
func (nn *FFNN) Params() []float64 {
	hidden, _ := nn.W1.Dims()
	params := make([]float64, 0, FFNNParamCount(hidden))
	for i := 0; i < hidden; i++ {
		params = append(params, nn.W1.RawRowView(i)...)
	}
	for i := 0; i < hidden; i++ {
		params = append(params, nn.W2.AtVec(i))
	}
	return params
}

// Activate computes the network output for the sensor inputs.
func (nn *FFNN) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != FlapInputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", FlapInputs, len(inputs))
	}
	for i, v := range inputs {
		nn.in.SetVec(i, v)
	}
	nn.in.SetVec(FlapInputs, 1.0)

	nn.hidden.MulVec(nn.W1, nn.in)
	for i := 0; i < nn.hidden.Len(); i++ {
		nn.hidden.SetVec(i, math.Tanh(nn.hidden.AtVec(i)))
	}

	nn.out[0] = math.Tanh(mat.Dot(nn.W2, nn.hidden))
	return nn.out, nil
}

// Clone creates a deep copy of the network.
func (nn *FFNN) Clone() *FFNN {
	hidden, _ := nn.W1.Dims()
	clone, _ := FFNNFromParams(hidden, nn.Params())
	return clone
}

// WeightsRecord is the JSON form of a tuned network.
type WeightsRecord struct {
	Hidden  int       `json:"hidden"`
	Bound   float64   `json:"bound"`
	Fitness float64   `json:"fitness"`
	Seeds   []int64   `json:"seeds,omitempty"`
	Params  []float64 `json:"params"`
}

// Network rebuilds the recorded network.
func (r WeightsRecord) Network() (*FFNN, error) {
	return FFNNFromParams(r.Hidden, r.Params)
}

// WriteWeights writes a weights record as indented JSON.
func WriteWeights(path string, rec WeightsRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing weights file: %w", err)
	}
	return nil
}

// ReadWeights reads a weights record written by WriteWeights.
func ReadWeights(path string) (WeightsRecord, error) {
	var rec WeightsRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("reading weights file: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parsing weights file: %w", err)
	}
	return rec, nil
}
