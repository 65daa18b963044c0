package rules

import (
	"fmt"

	"github.com/gridbowl/gridbowl/game"
	"github.com/gridbowl/gridbowl/pathfind"
)

// turnActions offers one activation choice per unused player plus ending
// the turn. During a defensive blitz event only players outside opposing
// tackle zones may act.
func turnActions(state *game.GameState) ([]game.Action, error) {
	team := state.CurrentTeam()
	opp := state.OpponentTeam()

	var actions []game.Action
	for _, p := range team.Players {
		if p.State.Used || p.Position == nil || p.State.KnockedOut {
			continue
		}
		if state.Turn.Blitz && state.TackleZonesAt(*p.Position, opp) > 0 {
			continue
		}

		actions = append(actions, game.Action{Kind: game.ActionStartMove, Player: p.ID})

		if state.Turn.BlitzAvailable {
			actions = append(actions, game.Action{Kind: game.ActionStartBlitz, Player: p.ID})
		}

		if !state.Turn.QuickSnap && !state.Turn.Blitz && p.State.Up && hasStandingAdjacentOpponent(state, p) {
			actions = append(actions, game.Action{Kind: game.ActionStartBlock, Player: p.ID})
		}
	}

	actions = append(actions, game.Action{Kind: game.ActionEndTurn})
	return actions, nil
}

func hasStandingAdjacentOpponent(state *game.GameState, p *game.Player) bool {
	for _, opp := range state.AdjacentOpponents(p) {
		if opp.State.Up {
			return true
		}
	}
	return false
}

// moveActions offers the active player's movement options. Every
// reachable square becomes one action carrying its resolved path. During
// a blitz the player may also block an adjacent standing opponent, once.
func moveActions(state *game.GameState, blitz bool) ([]game.Action, error) {
	player := state.ActivePlayer()
	if player == nil {
		return nil, fmt.Errorf("%w: no active player in movement discovery", ErrInternal)
	}

	var actions []game.Action

	if blitz && !player.State.HasBlocked && player.State.Up {
		// Blocking mid-blitz costs one square of movement. A prone
		// blitzer has to take the stand-up action first, so only a
		// standing player is offered blocks.
		if player.State.Moves+1 <= player.GetMA()+pathfind.MaxGFI {
			for _, opp := range state.AdjacentOpponents(player) {
				if opp.State.Up {
					target := *opp.Position
					actions = append(actions, game.Action{
						Kind:   game.ActionBlock,
						Player: player.ID,
						Target: &target,
					})
				}
			}
		}
	}

	if !player.State.Up {
		actions = append(actions, game.Action{Kind: game.ActionStandUp, Player: player.ID})
	} else if player.State.Moves < player.GetMA()+pathfind.MaxGFI {
		pf, err := pathfind.New(state, player)
		if err != nil {
			return nil, err
		}
		for _, path := range pf.FindAll() {
			target := path.Target
			actions = append(actions, game.Action{
				Kind:   game.ActionMove,
				Player: player.ID,
				Target: &target,
				Path:   path,
			})
		}
	}

	actions = append(actions, game.Action{Kind: game.ActionEndPlayerTurn, Player: player.ID})
	return actions, nil
}

// blockActions offers a block against each adjacent standing opponent.
func blockActions(state *game.GameState) ([]game.Action, error) {
	player := state.ActivePlayer()
	if player == nil {
		return nil, fmt.Errorf("%w: no active player in block discovery", ErrInternal)
	}
	if player.State.HasBlocked {
		return []game.Action{{Kind: game.ActionEndPlayerTurn, Player: player.ID}}, nil
	}

	var actions []game.Action
	for _, opp := range state.AdjacentOpponents(player) {
		if opp.State.Up {
			target := *opp.Position
			actions = append(actions, game.Action{
				Kind:   game.ActionBlock,
				Player: player.ID,
				Target: &target,
			})
		}
	}
	actions = append(actions, game.Action{Kind: game.ActionEndPlayerTurn, Player: player.ID})
	return actions, nil
}

// pushActions offers the squares the defender can be shoved into. The
// push must move the defender away from the attacker: at least two
// squares of separation for a straight push, Manhattan distance three
// for a diagonal one. Empty squares are preferred, then off-pitch, and
// occupied squares only when nothing else is available (chain push).
func pushActions(state *game.GameState) ([]game.Action, error) {
	if state.BlockCtx == nil || len(state.BlockCtx.PushChain) == 0 {
		return nil, fmt.Errorf("%w: push discovery without push chain", ErrInternal)
	}
	latest := state.BlockCtx.PushChain[len(state.BlockCtx.PushChain)-1]

	attacker := state.PlayerByID(latest.Attacker)
	defender := state.PlayerByID(latest.Defender)
	if attacker == nil || defender == nil || attacker.Position == nil || defender.Position == nil {
		return nil, fmt.Errorf("%w: push chain references missing player", ErrInternal)
	}
	attPos, defPos := *attacker.Position, *defender.Position
	straight := attPos.X == defPos.X || attPos.Y == defPos.Y

	var empty, out, occupied []game.Square
	for _, sq := range defPos.Neighbors(false) {
		if straight {
			if attPos.Distance(sq) < 2 {
				continue
			}
		} else if attPos.ManhattanDistance(sq) < 3 {
			continue
		}
		switch {
		case sq.OutOfBounds():
			out = append(out, sq)
		case state.PlayerAt(sq) != nil:
			occupied = append(occupied, sq)
		default:
			empty = append(empty, sq)
		}
	}

	candidates := empty
	if len(candidates) == 0 {
		candidates = out
	}
	if len(candidates) == 0 {
		candidates = occupied
	}

	actions := make([]game.Action, 0, len(candidates))
	for _, sq := range candidates {
		target := sq
		actions = append(actions, game.Action{Kind: game.ActionPush, Target: &target})
	}
	return actions, nil
}

// followUpActions offers stepping into the vacated square or staying put.
func followUpActions(state *game.GameState) ([]game.Action, error) {
	player := state.ActivePlayer()
	if player == nil || state.BlockCtx == nil {
		return nil, fmt.Errorf("%w: follow-up discovery without block context", ErrInternal)
	}
	vacated := state.BlockCtx.Position
	stay := *player.Position
	return []game.Action{
		{Kind: game.ActionFollowUp, Player: player.ID, Target: &vacated},
		{Kind: game.ActionFollowUp, Player: player.ID, Target: &stay},
	}, nil
}
