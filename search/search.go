package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridbowl/gridbowl/game"
	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/rules"
)

// ErrBudget marks a search invocation with no usable stopping condition.
var ErrBudget = fmt.Errorf("search budget misconfigured")

// Budget bounds one search invocation. At least one limit must be set;
// when both are set the search stops at whichever is hit first.
type Budget struct {
	Iterations int
	MoveTime   time.Duration
}

func (b Budget) validate() error {
	if b.Iterations < 0 || b.MoveTime < 0 {
		return fmt.Errorf("%w: negative limit", ErrBudget)
	}
	if b.Iterations == 0 && b.MoveTime == 0 {
		return fmt.Errorf("%w: need an iteration count or a move time", ErrBudget)
	}
	return nil
}

// Parallelism selects how workers share the tree.
type Parallelism int

const (
	// ParallelNone runs a single worker on a single tree.
	ParallelNone Parallelism = iota
	// ParallelRoot runs one independent tree per worker from the same
	// root and merges root statistics at the end.
	ParallelRoot
	// ParallelTree runs all workers on one shared tree, coordinated by
	// per-node locks and virtual losses.
	ParallelTree
)

// Config holds search tuning parameters.
type Config struct {
	Exploration float64 // UCT exploration constant, defaults to sqrt(2)
	Parallelism Parallelism
	Workers     int
	Seed        int64
}

// Search runs MCTS over game states using a value evaluator at the
// leaves. A Search is safe for concurrent Run calls; each invocation
// owns its own tree.
type Search struct {
	eval inference.Evaluator
	cfg  Config
}

func New(eval inference.Evaluator, cfg Config) *Search {
	if cfg.Exploration <= 0 {
		cfg.Exploration = math.Sqrt2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Search{eval: eval, cfg: cfg}
}

// ActionStats holds the root-level statistics of one candidate action.
// Mean is from the acting team's perspective.
type ActionStats struct {
	Action game.Action
	Visits int
	Mean   float64
}

// Result is the outcome of one search invocation.
type Result struct {
	Action     game.Action
	NoAction   bool // no legal action existed at the root
	Visits     int
	Value      float64 // root mean value for the acting team
	Iterations int
	Nodes      int
	Depth      int // deepest selection path across all trees
	Elapsed    time.Duration
	Actions    []ActionStats
}

// Run searches from state until the budget is spent and returns the
// robust child: the root action with the most visits, ties broken by
// higher mean value then by generation order. A canceled context stops
// the search between iterations; the best action found so far is still
// returned with a nil error.
func (s *Search) Run(ctx context.Context, state *game.GameState, budget Budget) (*Result, error) {
	if err := budget.validate(); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	actions, err := rules.LegalActions(state)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return &Result{NoAction: true}, nil
	}

	start := time.Now()
	workers := s.cfg.Workers

	var trees []*tree
	var iters int64
	switch {
	case s.cfg.Parallelism == ParallelRoot && workers > 1:
		trees, iters, err = s.searchRoot(ctx, state, actions, budget, workers)
	case s.cfg.Parallelism == ParallelTree && workers > 1:
		var t *tree
		t, iters, err = s.searchShared(ctx, state, actions, budget, workers)
		trees = []*tree{t}
	default:
		var t *tree
		t, iters, err = s.searchShared(ctx, state, actions, budget, 1)
		trees = []*tree{t}
	}
	if err != nil {
		return nil, err
	}
	res := buildResult(trees, state, actions)
	res.Iterations = int(iters)
	res.Elapsed = time.Since(start)
	return res, nil
}

// searchShared runs workers against one shared tree. With a single
// worker no virtual loss is applied and the search is fully
// deterministic for a fixed seed.
func (s *Search) searchShared(ctx context.Context, state *game.GameState, actions []game.Action, budget Budget, workers int) (*tree, int64, error) {
	t := newTreeFor(state, actions)
	shared := workers > 1

	seeder := s.newWalker(t, 0, shared)
	if err := seeder.seedRoot(ctx); err != nil {
		return nil, 0, err
	}

	deadline := budgetDeadline(budget)
	var claimed atomic.Int64
	var done atomic.Int64
	if workers == 1 {
		err := runLoop(ctx, seeder, budget, deadline, &claimed, &done)
		return t, done.Load(), err
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		w := s.newWalker(t, int64(i), true)
		wg.Add(1)
		go func(i int, w *walker) {
			defer wg.Done()
			errs[i] = runLoop(ctx, w, budget, deadline, &claimed, &done)
		}(i, w)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, done.Load(), err
		}
	}
	return t, done.Load(), nil
}

// searchRoot runs one independent tree per worker from the same root.
// The iteration budget is split evenly, with the remainder going to the
// first workers.
func (s *Search) searchRoot(ctx context.Context, state *game.GameState, actions []game.Action, budget Budget, workers int) ([]*tree, int64, error) {
	deadline := budgetDeadline(budget)
	trees := make([]*tree, workers)
	errs := make([]error, workers)
	counts := make([]atomic.Int64, workers)

	base, rem := 0, 0
	if budget.Iterations > 0 {
		base = budget.Iterations / workers
		rem = budget.Iterations % workers
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		share := budget
		if budget.Iterations > 0 {
			share.Iterations = base
			if i < rem {
				share.Iterations++
			}
			// A zero share would read as unlimited; a budget smaller
			// than the worker count just spawns fewer workers.
			if share.Iterations == 0 {
				continue
			}
		}
		t := newTreeFor(state, actions)
		trees[i] = t
		w := s.newWalker(t, int64(i), false)
		wg.Add(1)
		go func(i int, w *walker, share Budget) {
			defer wg.Done()
			if err := w.seedRoot(ctx); err != nil {
				errs[i] = err
				return
			}
			var claimed atomic.Int64
			errs[i] = runLoop(ctx, w, share, deadline, &claimed, &counts[i])
		}(i, w, share)
	}
	wg.Wait()

	var total int64
	for i := range counts {
		total += counts[i].Load()
	}
	for _, err := range errs {
		if err != nil {
			return nil, total, err
		}
	}
	spawned := trees[:0]
	for _, t := range trees {
		if t != nil {
			spawned = append(spawned, t)
		}
	}
	return spawned, total, nil
}

func (s *Search) newWalker(t *tree, offset int64, shared bool) *walker {
	return &walker{
		tree:   t,
		eval:   s.eval,
		c:      s.cfg.Exploration,
		rng:    rand.New(rand.NewSource(s.cfg.Seed + offset)),
		shared: shared,
	}
}

func newTreeFor(state *game.GameState, actions []game.Action) *tree {
	root := newDecisionNode(state)
	root.actions = actions
	root.children = make([]int32, len(actions))
	for i := range root.children {
		root.children[i] = noChild
	}
	return newTree(root)
}

func budgetDeadline(budget Budget) time.Time {
	if budget.MoveTime > 0 {
		return time.Now().Add(budget.MoveTime)
	}
	return time.Time{}
}

// runLoop claims and runs iterations until the shared budget is spent or
// the context is canceled. Claimed tracks attempts across workers so an
// iteration budget is honored exactly even with many workers; done
// counts completed iterations.
func runLoop(ctx context.Context, w *walker, budget Budget, deadline time.Time, claimed, done *atomic.Int64) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil
		}
		if budget.Iterations > 0 && claimed.Add(1) > int64(budget.Iterations) {
			return nil
		}
		if err := w.iterate(ctx); err != nil {
			return err
		}
		done.Add(1)
	}
}

// walker runs iterations against a tree. Each worker owns one walker so
// the random generator is never shared.
type walker struct {
	tree   *tree
	eval   inference.Evaluator
	c      float64
	rng    *rand.Rand
	shared bool
}

// seedRoot gives the root its own first visit by evaluating its state
// directly. Every later iteration descends into a child, which keeps
// the sum of child visits at visits-1 for every decision node.
func (w *walker) seedRoot(ctx context.Context) error {
	root := w.tree.at(0)
	v, err := w.evaluate(ctx, root)
	if err != nil {
		return err
	}
	root.mu.Lock()
	root.visits++
	root.valueSum[0] += v[0]
	root.valueSum[1] += v[1]
	root.mu.Unlock()
	return nil
}

// iterate performs one full selection, expansion, evaluation and
// backpropagation pass.
func (w *walker) iterate(ctx context.Context) error {
	path := make([]int32, 0, 32)
	cur := int32(0)

descend:
	for {
		w.push(&path, cur)
		n := w.tree.at(cur)

		if n.kind == chanceNode {
			cur = w.sampleBranch(n)
			continue
		}

		n.mu.Lock()
		if n.visits == 0 || rules.IsHorizon(n.state) {
			// Fresh or horizon leaf: evaluate as-is, never expand.
			n.mu.Unlock()
			break
		}
		if n.actions == nil {
			acts, err := rules.LegalActions(n.state)
			if err != nil {
				n.mu.Unlock()
				w.revert(path)
				return err
			}
			n.actions = acts
			n.children = make([]int32, len(acts))
			for i := range n.children {
				n.children[i] = noChild
			}
		}
		if len(n.actions) == 0 {
			n.mu.Unlock()
			break
		}

		if n.tried < len(n.actions) {
			// Expansion: take the next untried action in generation
			// order, holding the lock so parallel workers never claim
			// the same slot.
			slot := n.tried
			n.tried++
			out, err := rules.Apply(n.state, n.actions[slot])
			if err != nil {
				n.mu.Unlock()
				w.revert(path)
				return err
			}
			child := w.addOutcome(out)
			n.children[slot] = child
			n.mu.Unlock()

			w.push(&path, child)
			cn := w.tree.at(child)
			if cn.kind == chanceNode {
				w.push(&path, w.sampleBranch(cn))
			}
			break descend
		}

		next := w.selectChild(n)
		n.mu.Unlock()
		if next == noChild {
			break
		}
		cur = next
	}

	leaf := w.tree.at(path[len(path)-1])
	v, err := w.evaluate(ctx, leaf)
	if err != nil {
		w.revert(path)
		return err
	}
	w.backprop(path, v)
	w.tree.observeDepth(len(path))
	return nil
}

// push records a node on the traversal path, applying a virtual loss in
// shared mode so other workers steer away until this pass completes.
func (w *walker) push(path *[]int32, idx int32) {
	*path = append(*path, idx)
	if w.shared {
		w.tree.at(idx).vloss.Add(1)
	}
}

// revert removes the virtual losses of an abandoned pass.
func (w *walker) revert(path []int32) {
	if !w.shared {
		return
	}
	for _, idx := range path {
		w.tree.at(idx).vloss.Add(-1)
	}
}

func (w *walker) backprop(path []int32, v [2]float64) {
	for i := len(path) - 1; i >= 0; i-- {
		n := w.tree.at(path[i])
		n.mu.Lock()
		n.visits++
		n.valueSum[0] += v[0]
		n.valueSum[1] += v[1]
		n.mu.Unlock()
		if w.shared {
			n.vloss.Add(-1)
		}
	}
}

// selectChild picks the UCT-best expanded child from the acting team's
// perspective. Strict comparison keeps the first-generated action on
// ties. Caller holds n.mu; the parent-then-child lock order is safe
// because the tree has no cycles.
func (w *walker) selectChild(n *node) int32 {
	side := sideOf(n.state)
	logN := math.Log(float64(n.effectiveVisits()))
	best := noChild
	bestScore := math.Inf(-1)
	for _, idx := range n.children {
		if idx == noChild {
			continue
		}
		c := w.tree.at(idx)
		c.mu.Lock()
		cv := c.effectiveVisits()
		score := math.Inf(1)
		if cv > 0 {
			score = c.meanValue(side) + w.c*math.Sqrt(logN/float64(cv))
		}
		c.mu.Unlock()
		if score > bestScore {
			bestScore = score
			best = idx
		}
	}
	return best
}

// sampleBranch draws one outcome branch by cumulative probability.
func (w *walker) sampleBranch(n *node) int32 {
	r := w.rng.Float64()
	acc := 0.0
	for i, p := range n.probs {
		acc += p
		if r < acc {
			return n.children[i]
		}
	}
	return n.children[len(n.children)-1]
}

// addOutcome materializes an action's outcome in the tree: a single
// decision node for a certain result, or a chance node with one child
// per weighted branch.
func (w *walker) addOutcome(out *rules.Outcome) int32 {
	if out.Deterministic() {
		return w.tree.add(newDecisionNode(out.Branches[0].State))
	}
	probs := make([]float64, len(out.Branches))
	children := make([]int32, len(out.Branches))
	for i, b := range out.Branches {
		probs[i] = b.Prob
		children[i] = w.tree.add(newDecisionNode(b.State))
	}
	return w.tree.add(newChanceNode(probs, children))
}

// evaluate returns the value of a leaf state: the known result for
// terminal states, otherwise the evaluator's estimate. Evaluator
// failures abort the whole search.
func (w *walker) evaluate(ctx context.Context, n *node) ([2]float64, error) {
	if v, ok := rules.TerminalValue(n.state); ok {
		return v, nil
	}
	val, err := w.eval.Evaluate(ctx, n.state)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64(val), nil
}

func sideOf(state *game.GameState) int {
	if state.IsHomeTeam(state.CurrentTeamID) {
		return 0
	}
	return 1
}

// buildResult merges root statistics across trees and picks the robust
// child.
func buildResult(trees []*tree, state *game.GameState, actions []game.Action) *Result {
	side := sideOf(state)

	var rootVisits, totalNodes, depth int
	var rootSum float64
	for _, t := range trees {
		root := t.at(0)
		rootVisits += root.visits
		rootSum += root.valueSum[side]
		totalNodes += t.size()
		if d := int(t.depth.Load()); d > depth {
			depth = d
		}
	}

	stats := make([]ActionStats, len(actions))
	for i, act := range actions {
		var visits int
		var sum float64
		for _, t := range trees {
			idx := t.at(0).children[i]
			if idx == noChild {
				continue
			}
			c := t.at(idx)
			visits += c.visits
			sum += c.valueSum[side]
		}
		mean := 0.0
		if visits > 0 {
			mean = sum / float64(visits)
		}
		stats[i] = ActionStats{Action: act, Visits: visits, Mean: mean}
	}

	best := 0
	for i := 1; i < len(stats); i++ {
		if stats[i].Visits > stats[best].Visits ||
			(stats[i].Visits == stats[best].Visits && stats[i].Mean > stats[best].Mean) {
			best = i
		}
	}

	value := 0.0
	if rootVisits > 0 {
		value = rootSum / float64(rootVisits)
	}
	return &Result{
		Action:  stats[best].Action,
		Visits:  rootVisits,
		Value:   value,
		Nodes:   totalNodes,
		Depth:   depth,
		Actions: stats,
	}
}
