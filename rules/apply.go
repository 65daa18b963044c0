package rules

import (
	"fmt"

	"github.com/gridbowl/gridbowl/game"
)

// applyStartAction activates a player for an action. The extra hook
// burns the once-per-turn resource for blitzes.
func applyStartAction(state *game.GameState, action game.Action, proc game.Procedure, extra func(*game.GameState)) (*Outcome, error) {
	if action.Player == "" {
		return nil, fmt.Errorf("%w: %s without a player", ErrInternal, action.Kind)
	}
	next := state.Clone()
	next.ActivePlayerID = action.Player
	next.Procedure = proc
	next.ParentProcedure = proc
	if extra != nil {
		extra(next)
	}
	return single(next), nil
}

func applyEndTurn(state *game.GameState) (*Outcome, error) {
	next := state.Clone()
	next.ActivePlayerID = ""
	next.Procedure = game.ProcEndTurn
	next.ParentProcedure = ""
	return single(next), nil
}

func applyEndPlayerTurn(state *game.GameState) (*Outcome, error) {
	next := state.Clone()
	player := next.ActivePlayer()
	if player == nil {
		return nil, fmt.Errorf("%w: end player turn without active player", ErrInternal)
	}
	player.State.Used = true
	player.State.Moves = 0
	player.State.HasBlocked = false
	next.ActivePlayerID = ""
	next.Procedure = game.ProcTurn
	next.ParentProcedure = ""
	return single(next), nil
}

// applyStandUp spends three squares of movement to get the player
// upright. Standing up never requires a roll.
func applyStandUp(state *game.GameState) (*Outcome, error) {
	next := state.Clone()
	player := next.ActivePlayer()
	if player == nil {
		return nil, fmt.Errorf("%w: stand up without active player", ErrInternal)
	}
	player.State.Up = true
	player.State.Moves += 3
	return single(next), nil
}

// applyMove resolves a path-bound move. A certain path yields a single
// branch; a risky one splits into success and failure. On failure the
// player ends prone at the target square with a turnover, and any ball
// they carried (or would have scooped up) comes loose there.
func applyMove(state *game.GameState, action game.Action) (*Outcome, error) {
	if action.Path == nil || action.Target == nil {
		return nil, fmt.Errorf("%w: move action without a path", ErrInternal)
	}
	path := action.Path

	success := state.Clone()
	if err := completeMove(success, path, true); err != nil {
		return nil, err
	}
	if path.Prob >= 1.0 {
		return single(success), nil
	}

	failure := state.Clone()
	if err := completeMove(failure, path, false); err != nil {
		return nil, err
	}
	return &Outcome{Branches: []Branch{
		{Prob: path.Prob, State: success},
		{Prob: 1.0 - path.Prob, State: failure},
	}}, nil
}

// completeMove mutates state to place the active player at the path
// target. On success the ball follows a carrier, a loose ball on the
// route is picked up, and a carrier reaching the end zone scores. On
// failure the player is knocked prone at the target and the turn ends
// in a turnover.
func completeMove(state *game.GameState, path *game.Path, success bool) error {
	player := state.ActivePlayer()
	if player == nil {
		return fmt.Errorf("%w: move without active player", ErrInternal)
	}

	wasCarrying := state.Carrier() != nil && state.Carrier().ID == player.ID

	target := path.Target
	player.Position = &target
	player.State.Moves = path.MovesUsed + path.GFIsUsed

	if !success {
		player.State.Up = false
		if wasCarrying || path.PicksUpBall {
			pos := target
			state.Ball.Position = &pos
			state.Ball.Carried = false
		}
		state.Procedure = game.ProcTurnover
		state.ParentProcedure = ""
		return nil
	}

	if path.PicksUpBall && state.Ball != nil {
		state.Ball.Carried = true
	}
	carrying := wasCarrying || (path.PicksUpBall && state.Ball != nil)
	if carrying {
		pos := target
		state.Ball.Position = &pos
		if target.X == endzoneX(state, state.CurrentTeamID) {
			scoreTouchdown(state, state.CurrentTeamID)
			return nil
		}
	}

	state.Procedure = state.ParentProcedure
	return nil
}

// scoreTouchdown moves state into its terminal touchdown procedure and
// credits the scoring side.
func scoreTouchdown(state *game.GameState, teamID string) {
	state.Procedure = game.ProcTouchdown
	state.ScoringTeamID = teamID
	state.TeamByID(teamID).Score++
}

// knockDown puts a player out of the action where they stand. A carried
// ball comes loose on their square.
func knockDown(state *game.GameState, player *game.Player) {
	if c := state.Carrier(); c != nil && c.ID == player.ID {
		state.Ball.Carried = false
	}
	player.State.KnockedOut = true
	player.State.Up = false
}
