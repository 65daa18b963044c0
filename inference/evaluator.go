// Package inference provides position evaluation for the search. Two
// neural backends share one feature encoding: an ONNX runtime session
// for interchange models and a pure-Go network for environments without
// the runtime library. A positional heuristic exists for tests and
// explicit opt-in only; evaluation never silently falls back to it.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/gridbowl/gridbowl/game"
)

// ErrPolicyUnavailable marks an evaluation policy that could not be
// loaded or answered: a missing model file, a bad backend name, a dead
// session. The search surfaces it instead of guessing.
var ErrPolicyUnavailable = fmt.Errorf("evaluation policy unavailable")

// Value is the evaluation of a state as [home, away] scoring
// probabilities, each in [0, 1].
type Value [2]float64

// Home returns the home side's value.
func (v Value) Home() float64 { return v[0] }

// Away returns the away side's value.
func (v Value) Away() float64 { return v[1] }

// ForTeam returns the value from teamID's perspective.
func (v Value) ForTeam(state *game.GameState, teamID string) float64 {
	if state.IsHomeTeam(teamID) {
		return v[0]
	}
	return v[1]
}

// valueFromHomeScalar converts a model output in [-1, 1], positive
// meaning home is winning, to a two-sided Value.
func valueFromHomeScalar(v float64) Value {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	home := (v + 1) / 2
	return Value{home, 1 - home}
}

// Evaluator scores game states. Implementations must be safe for
// concurrent use; the search calls Evaluate from many workers.
type Evaluator interface {
	Evaluate(ctx context.Context, state *game.GameState) (Value, error)
	Name() string
	Close() error
}

// Backend selects the evaluator implementation.
type Backend string

const (
	BackendONNX      Backend = "onnx"
	BackendNative    Backend = "native"
	BackendHeuristic Backend = "heuristic"
)

// Config tunes the ONNX backend's batching behaviour. Zero values pick
// defaults.
type Config struct {
	Sessions     int
	BatchSize    int
	BatchTimeout time.Duration
}

// Load opens the policy at path with the given backend. The heuristic
// backend takes no path. All failures wrap ErrPolicyUnavailable.
func Load(path string, backend Backend) (Evaluator, error) {
	return LoadWithConfig(path, backend, Config{})
}

// LoadWithConfig is Load with explicit batching configuration.
func LoadWithConfig(path string, backend Backend, cfg Config) (Evaluator, error) {
	switch backend {
	case BackendONNX:
		if path == "" {
			return nil, fmt.Errorf("%w: onnx backend requires a model path", ErrPolicyUnavailable)
		}
		return NewONNXPool(path, cfg)
	case BackendNative:
		if path == "" {
			return nil, fmt.Errorf("%w: native backend requires a weights path", ErrPolicyUnavailable)
		}
		return LoadNative(path)
	case BackendHeuristic:
		return NewHeuristic(), nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", ErrPolicyUnavailable, backend)
}
