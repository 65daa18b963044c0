package inference

import (
	"context"
	"math"

	"github.com/gridbowl/gridbowl/game"
)

// Heuristic scores positions from board geometry alone: carrier
// progress toward the end zone, support around the carrier, and
// proximity to a loose ball. It exists for tests, benchmarks and
// explicit opt-in; it is never a silent stand-in for a trained policy.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Close() error { return nil }

func (h *Heuristic) Evaluate(_ context.Context, state *game.GameState) (Value, error) {
	home := h.scoreFor(state, state.Home)
	away := h.scoreFor(state, state.Away)
	return Value{(home + 1) / 2, (away + 1) / 2}, nil
}

// scoreFor rates the position for one team in [-1, 1].
func (h *Heuristic) scoreFor(state *game.GameState, team *game.Team) float64 {
	if state.Procedure == game.ProcTouchdown {
		scorer := state.ScoringTeamID
		if scorer == "" {
			scorer = state.CurrentTeamID
		}
		if scorer == team.ID {
			return 1.0
		}
		return -1.0
	}

	ballPos := state.BallPosition()
	if ballPos == nil {
		return 0.0
	}

	players := onPitch(team)
	if len(players) == 0 {
		return -1.0
	}

	targetX := 1
	ownX := game.ArenaWidth - 2
	if !state.IsHomeTeam(team.ID) {
		targetX, ownX = ownX, targetX
	}

	maxFieldDistance := float64(game.ArenaWidth + game.ArenaHeight)

	carrier := state.Carrier()
	switch {
	case carrier == nil:
		// Loose ball: reward closing in on it.
		score := 0.0
		for _, p := range players {
			d := float64(p.Position.Distance(*ballPos))
			score += 0.3 * (1.0 - d/maxFieldDistance)
		}
		return clamp(score / float64(len(players)))

	case state.TeamOf(carrier).ID == team.ID:
		// Our ball: dominated by carrier progress, nudged by support.
		carrierScore := 0.985 - 0.03*math.Abs(float64(carrier.Position.X-targetX))
		support := 0.0
		for _, p := range players {
			if p.ID == carrier.ID {
				continue
			}
			d := float64(p.Position.Distance(*carrier.Position))
			if d <= 5.0 {
				support += 0.1 * (1.0 - d/5.0)
			} else {
				support += 0.05 * (1.0 - d/maxFieldDistance)
			}
		}
		if len(players) > 1 {
			carrierScore += (support / float64(len(players)-1)) * 0.01
		}
		return clamp(carrierScore)

	default:
		// Their ball: the closer they are to our line, the worse;
		// marking the carrier claws a little back.
		enemyDistance := math.Abs(float64(carrier.Position.X - ownX))
		base := -(0.99 - 0.03*enemyDistance)
		marking := 0.0
		for _, p := range players {
			d := float64(p.Position.Distance(*carrier.Position))
			marking += 0.4 * (1.0 - d/maxFieldDistance)
		}
		return clamp(base + (marking/float64(len(players)))*0.1)
	}
}

func onPitch(team *game.Team) []*game.Player {
	var out []*game.Player
	for _, p := range team.Players {
		if p.Position != nil {
			out = append(out, p)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
