package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridbowl/gridbowl/game"
	"github.com/gridbowl/gridbowl/inference"
)

// DefaultBudget is used when a decision request carries no budget.
var DefaultBudget = Budget{Iterations: 2000, MoveTime: 5 * time.Second}

// Agent turns game states into decisions. It owns the evaluator for its
// lifetime; Close releases it.
type Agent struct {
	search *Search
	eval   inference.Evaluator
	log    zerolog.Logger
}

func NewAgent(eval inference.Evaluator, cfg Config, log zerolog.Logger) *Agent {
	return &Agent{
		search: New(eval, cfg),
		eval:   eval,
		log:    log,
	}
}

// Decide searches from state and returns the chosen action with its
// diagnostics. A zero budget falls back to DefaultBudget. NoAction is
// set when the state offers nothing to do; the caller decides how to
// advance the game from there.
func (a *Agent) Decide(ctx context.Context, state *game.GameState, budget Budget) (*Result, error) {
	if budget.Iterations == 0 && budget.MoveTime == 0 {
		budget = DefaultBudget
	}
	res, err := a.search.Run(ctx, state, budget)
	if err != nil {
		a.log.Error().Err(err).Uint64("state", state.ID).Msg("search failed")
		return nil, err
	}
	if res.NoAction {
		a.log.Debug().Uint64("state", state.ID).Msg("no legal action")
		return res, nil
	}
	a.log.Info().
		Str("action", res.Action.String()).
		Int("visits", res.Visits).
		Float64("value", res.Value).
		Int("iterations", res.Iterations).
		Int("nodes", res.Nodes).
		Dur("elapsed", res.Elapsed).
		Msg("decision")
	return res, nil
}

func (a *Agent) Close() error {
	return a.eval.Close()
}
