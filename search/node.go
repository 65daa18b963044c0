package search

import (
	"sync"
	"sync/atomic"

	"github.com/gridbowl/gridbowl/game"
)

const noChild = int32(-1)

type nodeKind uint8

const (
	decisionNode nodeKind = iota
	chanceNode
)

// node is a single tree node. Decision nodes branch on actions, chance
// nodes branch on the weighted outcomes of one probabilistic action.
// Nodes reference children by arena index rather than pointer so the
// tree stays cycle-free and cheap to walk iteratively.
type node struct {
	mu sync.Mutex

	kind  nodeKind
	state *game.GameState

	// Decision nodes: actions in generation order, children parallel to
	// actions, tried counts how many have been expanded so far.
	actions []game.Action
	tried   int

	// Chance nodes: probs parallel to children, one entry per outcome
	// branch. Probs sum to 1.
	probs []float64

	children []int32

	visits   int
	valueSum [2]float64 // accumulated value per side, [home, away]
	vloss    atomic.Int32
}

func newDecisionNode(state *game.GameState) *node {
	return &node{kind: decisionNode, state: state}
}

func newChanceNode(probs []float64, children []int32) *node {
	return &node{kind: chanceNode, probs: probs, children: children}
}

// meanValue returns the node's average value for the given side,
// discounted by any in-flight virtual losses. Caller holds mu.
func (n *node) meanValue(side int) float64 {
	total := n.visits + int(n.vloss.Load())
	if total == 0 {
		return 0
	}
	return n.valueSum[side] / float64(total)
}

// effectiveVisits is the visit count inflated by virtual losses, used
// in the UCT denominator so parallel workers spread out.
func (n *node) effectiveVisits() int {
	return n.visits + int(n.vloss.Load())
}

// tree is a flat arena of nodes. Index 0 is always the root. Appends
// take the write lock; lookups take the read lock because append may
// reallocate the backing array under a concurrent reader.
type tree struct {
	mu    sync.RWMutex
	nodes []*node
	depth atomic.Int32 // deepest traversal path seen
}

func newTree(root *node) *tree {
	return &tree{nodes: []*node{root}}
}

func (t *tree) add(n *node) int32 {
	t.mu.Lock()
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.mu.Unlock()
	return idx
}

func (t *tree) at(idx int32) *node {
	t.mu.RLock()
	n := t.nodes[idx]
	t.mu.RUnlock()
	return n
}

func (t *tree) size() int {
	t.mu.RLock()
	n := len(t.nodes)
	t.mu.RUnlock()
	return n
}

func (t *tree) observeDepth(d int) {
	for {
		cur := t.depth.Load()
		if int32(d) <= cur || t.depth.CompareAndSwap(cur, int32(d)) {
			return
		}
	}
}
