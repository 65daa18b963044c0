// Package pathfind computes risk-aware movement paths. The search is an
// exhaustive A*-style expansion over the pitch that trades steps against
// the chance of failing a dodge or go-for-it roll, so callers get both
// the safest and the shortest route to every reachable square.
package pathfind

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/gridbowl/gridbowl/game"
)

// riskWeight scales failure probability into path cost. Higher values
// make the search prefer safe detours over short risky routes.
const riskWeight = 10.0

// minProbThreshold discards routes so unlikely they are never worth
// offering as actions.
const minProbThreshold = 0.01

// MaxGFI is the number of go-for-it squares a player may attempt past
// their movement allowance in one activation.
const MaxGFI = 2

const (
	gfiTargetNormal   = 2 // 2+ on d6
	gfiTargetBlizzard = 3 // 3+ in a blizzard
)

// agilityTable maps agility (1-6) to the unmodified d6 target for a
// dodge. Index 0 is padding for direct lookup.
var agilityTable = [7]int{6, 6, 5, 4, 3, 2, 1}

// Pathfinder explores movement options for a single player in a fixed
// state. Build one per activation; it precomputes opponent tackle zones
// once and reuses them for every query.
type Pathfinder struct {
	state  *game.GameState
	player *game.Player
	origin game.Square

	// looseBall is the ball square when it is on the ground, nil while
	// carried. Paths crossing it flag a pickup.
	looseBall *game.Square

	isBlizzard  bool
	isQuickSnap bool

	tzones [game.ArenaHeight][game.ArenaWidth]uint8
}

// New builds a pathfinder for player in state. The player must be on
// the pitch.
func New(state *game.GameState, player *game.Player) (*Pathfinder, error) {
	if player.Position == nil {
		return nil, fmt.Errorf("%w: player %s has no position", game.ErrValidation, player.ID)
	}
	pf := &Pathfinder{
		state:       state,
		player:      player,
		origin:      *player.Position,
		isBlizzard:  state.Weather == game.WeatherBlizzard,
		isQuickSnap: state.Turn.QuickSnap,
	}
	if state.Ball != nil && !state.Ball.Carried && state.Ball.Position != nil {
		pos := *state.Ball.Position
		pf.looseBall = &pos
	}
	pf.precomputeTackleZones()
	return pf, nil
}

func (pf *Pathfinder) precomputeTackleZones() {
	opp := pf.state.OpponentOf(pf.state.TeamOf(pf.player).ID)
	for _, p := range opp.Players {
		if !p.Standing() {
			continue
		}
		for _, sq := range p.Position.Neighbors(false) {
			pf.tzones[sq.Y][sq.X]++
		}
	}
}

func (pf *Pathfinder) tackleZonesAt(sq game.Square) int {
	if !sq.InArena() {
		return 0
	}
	return int(pf.tzones[sq.Y][sq.X])
}

// FindAll returns the best path to every reachable square, one entry per
// target, sorted by probability descending then by movement remaining
// descending. Ties resolve by square index so the order is stable.
func (pf *Pathfinder) FindAll() []*game.Path {
	ma := pf.player.GetMA()
	movesUsed := pf.player.State.Moves

	movesLeft := ma - movesUsed
	if movesLeft < 0 {
		movesLeft = 0
	}
	gfisLeft := ma + MaxGFI - movesUsed
	if gfisLeft > MaxGFI {
		gfisLeft = MaxGFI
	}
	if gfisLeft < 0 {
		gfisLeft = 0
	}
	if pf.isQuickSnap {
		movesLeft = 1
		gfisLeft = 0
	}

	start := pathNode{
		position:  pf.origin,
		parent:    -1,
		movesLeft: movesLeft,
		gfisLeft:  gfisLeft,
		prob:      1.0,
	}

	open := &nodeHeap{start}
	heap.Init(open)

	// best holds the winning node per square for dominance pruning;
	// closed keeps every accepted node for path reconstruction.
	best := make(map[game.Square]pathNode)
	var closed []pathNode

	for open.Len() > 0 {
		current := heap.Pop(open).(pathNode)

		if existing, ok := best[current.position]; ok {
			if existing.prob >= current.prob && existing.totalMovesLeft() >= current.totalMovesLeft() {
				continue
			}
		}

		currentIdx := len(closed)
		closed = append(closed, current)
		best[current.position] = current

		if current.totalMovesLeft() == 0 {
			continue
		}

		for _, next := range pf.validNeighbors(current.position) {
			moveProb, usesGFI := pf.stepProbability(&current, next)
			if moveProb < minProbThreshold {
				continue
			}
			if usesGFI && current.gfisLeft == 0 {
				continue
			}

			child := childOf(currentIdx, &current, next, moveProb, usesGFI)
			if pf.looseBall != nil && next == *pf.looseBall {
				child.pickedUpBall = true
			}

			steps := (ma - child.movesLeft) + (MaxGFI - child.gfisLeft)
			child.updateScore(steps)

			if existing, ok := best[next]; ok {
				if existing.prob >= child.prob && existing.totalMovesLeft() >= child.totalMovesLeft() {
					continue
				}
			}
			if child.prob >= minProbThreshold {
				heap.Push(open, child)
			}
		}
	}

	return pf.extractPaths(closed)
}

// FindTo returns the best path ending exactly on target, or nil when the
// square is unreachable within the player's movement.
func (pf *Pathfinder) FindTo(target game.Square) *game.Path {
	for _, p := range pf.FindAll() {
		if p.Target == target {
			return p
		}
	}
	return nil
}

// validNeighbors returns adjacent on-pitch unoccupied squares in scan
// order.
func (pf *Pathfinder) validNeighbors(sq game.Square) []game.Square {
	neighbors := sq.Neighbors(true)
	out := neighbors[:0]
	for _, n := range neighbors {
		if pf.state.PlayerAt(n) != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// stepProbability returns the chance of the single step from the node's
// square to next succeeding, and whether the step burns a go-for-it.
func (pf *Pathfinder) stepProbability(from *pathNode, next game.Square) (float64, bool) {
	usesGFI := from.movesLeft == 0
	prob := 1.0

	if usesGFI {
		target := gfiTargetNormal
		if pf.isBlizzard {
			target = gfiTargetBlizzard
		}
		prob *= float64(7-target) / 6.0
	}

	// A quick snap step ignores tackle zones entirely.
	if !pf.isQuickSnap && pf.tackleZonesAt(from.position) > 0 {
		prob *= pf.dodgeProbability(next)
	}

	return prob, usesGFI
}

// dodgeProbability is the chance of dodging into next. The base target
// comes from the agility table, worsened by one plus one per tackle zone
// on the destination, clamped to the 2..6 d6 range.
func (pf *Pathfinder) dodgeProbability(next game.Square) float64 {
	ag := pf.player.GetAG()
	if ag > 6 {
		ag = 6
	}
	target := agilityTable[ag] + 1 + pf.tackleZonesAt(next)
	if target < 2 {
		target = 2
	}
	if target > 6 {
		target = 6
	}
	return float64(7-target) / 6.0
}

func (pf *Pathfinder) extractPaths(closed []pathNode) []*game.Path {
	ma := pf.player.GetMA()
	paths := make([]*game.Path, 0, len(closed))

	for i := range closed {
		node := &closed[i]
		if node.position == pf.origin {
			continue
		}

		var squares []game.Square
		picksUp := false
		for idx := i; idx >= 0; idx = closed[idx].parent {
			n := &closed[idx]
			if n.pickedUpBall {
				picksUp = true
			}
			if n.position != pf.origin {
				squares = append(squares, n.position)
			}
		}
		for l, r := 0, len(squares)-1; l < r; l, r = l+1, r-1 {
			squares[l], squares[r] = squares[r], squares[l]
		}

		paths = append(paths, &game.Path{
			Squares:     squares,
			Target:      node.position,
			Prob:        node.prob,
			MovesUsed:   ma - node.movesLeft,
			GFIsUsed:    MaxGFI - node.gfisLeft,
			PicksUpBall: picksUp,
		})
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Prob != paths[j].Prob {
			return paths[i].Prob > paths[j].Prob
		}
		ri := ma + MaxGFI - paths[i].TotalCost()
		rj := ma + MaxGFI - paths[j].TotalCost()
		if ri != rj {
			return ri > rj
		}
		return paths[i].Target.Index() < paths[j].Target.Index()
	})

	// One path per target: the sort put the best first.
	seen := make(map[game.Square]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p.Target] {
			continue
		}
		seen[p.Target] = true
		out = append(out, p)
	}
	return out
}
