package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	deep "github.com/patrikeh/go-deep"

	"github.com/gridbowl/gridbowl/game"
)

// NativeConfig is the JSON layout of a pure-Go weights file: the
// architecture plus the trained weights exported per layer.
type NativeConfig struct {
	Name         string        `json:"name"`
	InputSize    int           `json:"input_size"`
	HiddenLayers []int         `json:"hidden_layers"`
	Weights      [][][]float64 `json:"weights"`
}

// Native evaluates states with an in-process feed-forward network. It
// needs no shared libraries, at the cost of unbatched inference, which
// makes it the portable fallback backend for the same value function.
type Native struct {
	network *deep.Neural
	name    string

	// go-deep forward passes reuse internal buffers.
	mu sync.Mutex
}

// LoadNative reads a weights file and builds the network.
func LoadNative(path string) (*Native, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read weights %s: %v", ErrPolicyUnavailable, path, err)
	}
	var cfg NativeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse weights %s: %v", ErrPolicyUnavailable, path, err)
	}
	return NewNative(cfg)
}

// NewNative builds the network from an in-memory config.
func NewNative(cfg NativeConfig) (*Native, error) {
	if cfg.InputSize != InputSize {
		return nil, fmt.Errorf("%w: weights expect input %d, encoder produces %d",
			ErrPolicyUnavailable, cfg.InputSize, InputSize)
	}
	if len(cfg.HiddenLayers) == 0 {
		return nil, fmt.Errorf("%w: no hidden layers configured", ErrPolicyUnavailable)
	}

	layout := append(append([]int{}, cfg.HiddenLayers...), 1)
	network := deep.NewNeural(&deep.Config{
		Inputs:     cfg.InputSize,
		Layout:     layout,
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(0.0, 0.1),
		Bias:       true,
	})
	if cfg.Weights != nil {
		network.ApplyWeights(cfg.Weights)
	}

	name := cfg.Name
	if name == "" {
		name = "native"
	}
	return &Native{network: network, name: name}, nil
}

func (n *Native) Name() string { return n.name }

func (n *Native) Close() error { return nil }

func (n *Native) Evaluate(ctx context.Context, state *game.GameState) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}

	encoded := Encode(state)
	input := make([]float64, len(encoded))
	for i, v := range encoded {
		input[i] = float64(v)
	}

	n.mu.Lock()
	out := n.network.Predict(input)
	n.mu.Unlock()

	if len(out) != 1 {
		return Value{}, fmt.Errorf("%w: network produced %d outputs", ErrPolicyUnavailable, len(out))
	}
	return valueFromHomeScalar(out[0]), nil
}
