package pathfind

import "github.com/gridbowl/gridbowl/game"

// pathNode is one explored movement state: a square plus the resources
// spent and risk accumulated getting there. Nodes reference their parent
// by index into the closed slice so paths reconstruct without pointers.
type pathNode struct {
	position game.Square
	parent   int // index into closed, -1 for the start node

	gScore float64
	fScore float64

	movesLeft int
	gfisLeft  int

	// prob is the cumulative chance of every dodge and go-for-it roll on
	// the way here succeeding.
	prob float64

	pickedUpBall bool
}

func (n *pathNode) totalMovesLeft() int { return n.movesLeft + n.gfisLeft }

// updateScore folds the risk penalty into the travel cost:
// g = steps + riskWeight * (1 - prob).
func (n *pathNode) updateScore(steps int) {
	n.gScore = float64(steps) + riskWeight*(1.0-n.prob)
	n.fScore = n.gScore
}

// childOf derives the node reached by stepping from parent to position.
func childOf(parentIdx int, parent *pathNode, position game.Square, moveProb float64, usesGFI bool) pathNode {
	child := pathNode{
		position:     position,
		parent:       parentIdx,
		movesLeft:    parent.movesLeft,
		gfisLeft:     parent.gfisLeft,
		prob:         parent.prob * moveProb,
		pickedUpBall: parent.pickedUpBall,
	}
	if usesGFI {
		child.gfisLeft--
	} else {
		child.movesLeft--
	}
	return child
}

// nodeHeap is a min-heap on fScore. Ties prefer the higher-probability
// node, then the lower square index, so expansion order is deterministic.
type nodeHeap []pathNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].fScore != h[j].fScore {
		return h[i].fScore < h[j].fScore
	}
	if h[i].prob != h[j].prob {
		return h[i].prob > h[j].prob
	}
	return h[i].position.Index() < h[j].position.Index()
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(pathNode)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	out := old[n-1]
	*h = old[:n-1]
	return out
}
