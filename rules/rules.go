// Package rules implements the turn state machine: which actions a state
// offers and what weighted successor states each action produces. All
// randomness is expressed as explicit outcome branches so the search can
// treat dice rolls as chance nodes.
package rules

import (
	"fmt"

	"github.com/gridbowl/gridbowl/game"
)

// ErrInternal marks conditions that indicate a bug rather than bad
// input, such as a discovered action whose path cannot be rebuilt.
var ErrInternal = fmt.Errorf("internal rules error")

// Branch is one possible result of applying an action.
type Branch struct {
	Prob  float64
	State *game.GameState
}

// Outcome is the full distribution over successor states for one
// action. Branch probabilities sum to 1 and every branch state is a
// fresh clone; the input state is never mutated.
type Outcome struct {
	Branches []Branch
}

// Deterministic reports whether the action had a single certain result.
func (o *Outcome) Deterministic() bool { return len(o.Branches) == 1 }

func single(s *game.GameState) *Outcome {
	return &Outcome{Branches: []Branch{{Prob: 1.0, State: s}}}
}

// LegalActions enumerates the actions available in state, dispatching on
// the current procedure. The order is deterministic: players in roster
// order, movement targets in pathfinder order, turn-ending actions last.
// Horizon procedures (end of turn, turnover, touchdown) offer nothing.
func LegalActions(state *game.GameState) ([]game.Action, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	switch state.Procedure {
	case game.ProcTurn:
		return turnActions(state)
	case game.ProcMoveAction:
		return moveActions(state, false)
	case game.ProcBlitzAction:
		return moveActions(state, true)
	case game.ProcBlockAction:
		return blockActions(state)
	case game.ProcPush:
		return pushActions(state)
	case game.ProcFollowUp:
		return followUpActions(state)
	case game.ProcEndTurn, game.ProcTurnover, game.ProcTouchdown:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: no action discovery for procedure %s", ErrInternal, state.Procedure)
}

// Apply resolves action against state and returns the weighted successor
// states. Identical inputs always produce identical outcomes.
func Apply(state *game.GameState, action game.Action) (*Outcome, error) {
	switch action.Kind {
	case game.ActionStartMove:
		return applyStartAction(state, action, game.ProcMoveAction, nil)
	case game.ActionStartBlitz:
		return applyStartAction(state, action, game.ProcBlitzAction, func(s *game.GameState) {
			s.Turn.BlitzAvailable = false
		})
	case game.ActionStartBlock:
		return applyStartAction(state, action, game.ProcBlockAction, nil)
	case game.ActionEndTurn:
		return applyEndTurn(state)
	case game.ActionEndPlayerTurn:
		return applyEndPlayerTurn(state)
	case game.ActionMove:
		return applyMove(state, action)
	case game.ActionStandUp:
		return applyStandUp(state)
	case game.ActionBlock:
		return applyBlock(state, action)
	case game.ActionPush:
		return applyPush(state, action)
	case game.ActionFollowUp:
		return applyFollowUp(state, action)
	}
	return nil, fmt.Errorf("%w: no execution for action %s", ErrInternal, action.Kind)
}

// IsTerminal reports whether state ends the game episode for search
// purposes: a touchdown was scored or the game is over.
func IsTerminal(state *game.GameState) bool {
	return state.GameOver || state.Procedure == game.ProcTouchdown
}

// IsHorizon reports whether state ends the acting team's influence: the
// search evaluates such states but never expands them.
func IsHorizon(state *game.GameState) bool {
	if IsTerminal(state) {
		return true
	}
	switch state.Procedure {
	case game.ProcEndTurn, game.ProcTurnover:
		return true
	}
	return false
}

// TerminalValue returns the [home, away] value of a terminal state and
// whether the state has a known value at all. A touchdown is scored as a
// win for the scoring side.
func TerminalValue(state *game.GameState) ([2]float64, bool) {
	if state.Procedure == game.ProcTouchdown {
		scorer := state.ScoringTeamID
		if scorer == "" {
			scorer = state.CurrentTeamID
		}
		if state.IsHomeTeam(scorer) {
			return [2]float64{1.0, 0.0}, true
		}
		return [2]float64{0.0, 1.0}, true
	}
	if state.GameOver {
		switch {
		case state.Home.Score > state.Away.Score:
			return [2]float64{1.0, 0.0}, true
		case state.Away.Score > state.Home.Score:
			return [2]float64{0.0, 1.0}, true
		default:
			return [2]float64{0.5, 0.5}, true
		}
	}
	return [2]float64{}, false
}

// endzoneX returns the column teamID scores in. Home attacks toward the
// left edge of the pitch, away toward the right.
func endzoneX(state *game.GameState, teamID string) int {
	if state.IsHomeTeam(teamID) {
		return 1
	}
	return game.ArenaWidth - 2
}
