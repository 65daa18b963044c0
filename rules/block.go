package rules

import (
	"fmt"
	"math"

	"github.com/gridbowl/gridbowl/game"
)

// blockFace is one result on a block die, ordered from the attacker's
// worst outcome to their best.
type blockFace int

const (
	faceAttackerDown blockFace = iota
	faceBothDown
	facePush
	faceDefenderStumbles
	faceDefenderDown
)

// faceWeights is the number of die sides showing each face: the push
// result appears twice.
var faceWeights = [5]float64{1, 1, 2, 1, 1}

// blockDice returns how many dice the block rolls and whether the
// attacker picks the result. Double strength advantage grants three
// dice; any advantage grants two.
func blockDice(attST, defST int) (int, bool) {
	switch {
	case attST > 2*defST:
		return 3, true
	case attST > defST:
		return 2, true
	case attST == defST:
		return 1, true
	case defST > 2*attST:
		return 3, false
	default:
		return 2, false
	}
}

// faceProbabilities returns the chance each face ends up selected when n
// dice are rolled and the chooser takes their best result. The chooser
// taking the best is the complement of the opponent being stuck with the
// worst, so both cases reduce to cumulative weight powers.
func faceProbabilities(n int, attackerChooses bool) [5]float64 {
	var cum [6]float64
	for i, w := range faceWeights {
		cum[i+1] = cum[i] + w
	}
	total := cum[5]

	var out [5]float64
	for f := 0; f < 5; f++ {
		if attackerChooses {
			// Result is the attacker-best die: max face rank.
			hi := math.Pow(cum[f+1]/total, float64(n))
			lo := math.Pow(cum[f]/total, float64(n))
			out[f] = hi - lo
		} else {
			// Defender keeps the attacker-worst die: min face rank.
			hi := math.Pow((total-cum[f])/total, float64(n))
			lo := math.Pow((total-cum[f+1])/total, float64(n))
			out[f] = hi - lo
		}
	}
	return out
}

// applyBlock rolls the block dice and fans out one branch per distinct
// result. Skills fold in here: a defender with Dodge turns a stumble
// into a plain push, and Block keeps either player on their feet when
// both go down.
func applyBlock(state *game.GameState, action game.Action) (*Outcome, error) {
	attacker := state.ActivePlayer()
	if attacker == nil {
		return nil, fmt.Errorf("%w: block without active player", ErrInternal)
	}
	if action.Target == nil {
		return nil, fmt.Errorf("%w: block without target", ErrInternal)
	}
	defender := state.PlayerAt(*action.Target)
	if defender == nil {
		return nil, fmt.Errorf("%w: block target (%d,%d) is empty", ErrInternal, action.Target.X, action.Target.Y)
	}

	n, attackerChooses := blockDice(attacker.GetST(), defender.GetST())
	probs := faceProbabilities(n, attackerChooses)

	// Dodge downgrades a stumble to a push: identical outcome, merged
	// branch.
	if defender.HasSkill(game.SkillDodge) {
		probs[facePush] += probs[faceDefenderStumbles]
		probs[faceDefenderStumbles] = 0
	}

	var branches []Branch
	for f := faceAttackerDown; f <= faceDefenderDown; f++ {
		if probs[f] == 0 {
			continue
		}
		next := state.Clone()
		if err := resolveBlockFace(next, f, defender.ID); err != nil {
			return nil, err
		}
		branches = append(branches, Branch{Prob: probs[f], State: next})
	}
	return &Outcome{Branches: branches}, nil
}

// resolveBlockFace mutates state with the effect of the selected face.
func resolveBlockFace(state *game.GameState, face blockFace, defenderID string) error {
	attacker := state.ActivePlayer()
	defender := state.PlayerByID(defenderID)
	if attacker == nil || defender == nil || defender.Position == nil {
		return fmt.Errorf("%w: block participants missing", ErrInternal)
	}

	// A blitz block spends one square of movement.
	if state.ParentProcedure == game.ProcBlitzAction {
		attacker.State.Moves++
	}

	switch face {
	case faceAttackerDown:
		knockDown(state, attacker)
		turnover(state)

	case faceBothDown:
		attackerFalls := !attacker.HasSkill(game.SkillBlock)
		if !defender.HasSkill(game.SkillBlock) {
			knockDown(state, defender)
		}
		if attackerFalls {
			knockDown(state, attacker)
			turnover(state)
		} else {
			finishBlock(state, attacker)
		}

	case facePush, faceDefenderStumbles, faceDefenderDown:
		state.BlockCtx = &game.BlockContext{
			Attacker:  attacker.ID,
			Defender:  defender.ID,
			Position:  *defender.Position,
			KnockDown: face != facePush,
			PushChain: []game.PushChainItem{{Attacker: attacker.ID, Defender: defender.ID}},
		}
		state.Procedure = game.ProcPush
	}
	return nil
}

func turnover(state *game.GameState) {
	state.Procedure = game.ProcTurnover
	state.ParentProcedure = ""
	state.BlockCtx = nil
}

// finishBlock closes out a block that needs no push or follow-up. A
// blitzing player may keep moving; otherwise the activation ends.
func finishBlock(state *game.GameState, attacker *game.Player) {
	attacker.State.HasBlocked = true
	state.BlockCtx = nil
	if state.ParentProcedure == game.ProcBlitzAction {
		state.Procedure = game.ProcBlitzAction
		return
	}
	attacker.State.Used = true
	state.ActivePlayerID = ""
	state.Procedure = game.ProcTurn
	state.ParentProcedure = ""
}

// applyPush resolves one push square selection. Pushing into an occupied
// square extends the chain with a fresh decision; anything else resolves
// the whole chain.
func applyPush(state *game.GameState, action game.Action) (*Outcome, error) {
	if action.Target == nil {
		return nil, fmt.Errorf("%w: push without target", ErrInternal)
	}
	next := state.Clone()
	ctx := next.BlockCtx
	if ctx == nil || len(ctx.PushChain) == 0 {
		return nil, fmt.Errorf("%w: push without chain", ErrInternal)
	}

	target := *action.Target
	latest := &ctx.PushChain[len(ctx.PushChain)-1]
	latest.Position = &target

	if occupant := next.PlayerAt(target); occupant != nil && !target.OutOfBounds() {
		ctx.PushChain = append(ctx.PushChain, game.PushChainItem{
			Attacker: latest.Defender,
			Defender: occupant.ID,
		})
		return single(next), nil
	}

	if err := resolvePushChain(next); err != nil {
		return nil, err
	}
	return single(next), nil
}

// resolvePushChain moves every chained player to their selected square,
// last link first so nobody lands on a teammate mid-shuffle. A player
// shoved over the sideline is surrounded by the crowd and removed from
// play.
func resolvePushChain(state *game.GameState) error {
	ctx := state.BlockCtx
	for i := len(ctx.PushChain) - 1; i >= 0; i-- {
		item := ctx.PushChain[i]
		if item.Position == nil {
			return fmt.Errorf("%w: push chain item without destination", ErrInternal)
		}
		player := state.PlayerByID(item.Defender)
		if player == nil || player.Position == nil {
			return fmt.Errorf("%w: pushed player %s missing", ErrInternal, item.Defender)
		}
		oldPos := *player.Position
		carrying := state.Carrier() != nil && state.Carrier().ID == player.ID

		if item.Position.OutOfBounds() {
			if carrying {
				pos := oldPos
				state.Ball.Position = &pos
				state.Ball.Carried = false
			}
			player.Position = nil
			player.State.KnockedOut = true
			player.State.Up = false
			continue
		}

		dest := *item.Position
		player.Position = &dest
		if carrying {
			pos := dest
			state.Ball.Position = &pos
		}
	}

	if ctx.KnockDown {
		if defender := state.PlayerByID(ctx.Defender); defender != nil && defender.Position != nil {
			knockDown(state, defender)
		}
	}

	// A carrier shoved into their own end zone still scores.
	if carrier := state.Carrier(); carrier != nil && carrier.Standing() {
		teamID := state.TeamOf(carrier).ID
		if carrier.Position.X == endzoneX(state, teamID) {
			scoreTouchdown(state, teamID)
			return nil
		}
	}

	state.Procedure = game.ProcFollowUp
	return nil
}

// applyFollowUp finishes the block by moving (or not) into the vacated
// square. A blitzing attacker keeps their activation; anyone else is
// done for the turn.
func applyFollowUp(state *game.GameState, action game.Action) (*Outcome, error) {
	if action.Target == nil {
		return nil, fmt.Errorf("%w: follow-up without target", ErrInternal)
	}
	next := state.Clone()
	attacker := next.ActivePlayer()
	if attacker == nil {
		return nil, fmt.Errorf("%w: follow-up without active player", ErrInternal)
	}

	carrying := next.Carrier() != nil && next.Carrier().ID == attacker.ID
	target := *action.Target
	attacker.Position = &target
	attacker.State.HasBlocked = true
	if carrying {
		pos := target
		next.Ball.Position = &pos
		if target.X == endzoneX(next, next.CurrentTeamID) {
			scoreTouchdown(next, next.CurrentTeamID)
			next.BlockCtx = nil
			return single(next), nil
		}
	}

	next.BlockCtx = nil
	if next.ParentProcedure == game.ProcBlitzAction {
		next.Procedure = game.ProcBlitzAction
	} else {
		attacker.State.Used = true
		next.ActivePlayerID = ""
		next.Procedure = game.ProcTurn
		next.ParentProcedure = ""
	}
	return single(next), nil
}
