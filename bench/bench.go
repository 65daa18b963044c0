// Package bench measures engine throughput on representative states:
// search iterations per second and pathfinding latency. It backs the
// performance regression suite and is not part of the decision contract.
package bench

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/pathfind"
	"github.com/gridbowl/gridbowl/search"
)

// SearchResult summarizes one measured search run.
type SearchResult struct {
	Scenario      string
	Evaluator     string
	Workers       int
	Iterations    int
	Nodes         int
	Depth         int
	Elapsed       time.Duration
	IterationsSec float64
}

// RunSearch runs a full search on the scenario and reports throughput.
func RunSearch(ctx context.Context, eval inference.Evaluator, cfg search.Config, sc Scenario, budget search.Budget) (SearchResult, error) {
	s := search.New(eval, cfg)
	res, err := s.Run(ctx, sc.State, budget)
	if err != nil {
		return SearchResult{}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	out := SearchResult{
		Scenario:   sc.Name,
		Evaluator:  eval.Name(),
		Workers:    cfg.Workers,
		Iterations: res.Iterations,
		Nodes:      res.Nodes,
		Depth:      res.Depth,
		Elapsed:    res.Elapsed,
	}
	if res.Elapsed > 0 {
		out.IterationsSec = float64(res.Iterations) / res.Elapsed.Seconds()
	}
	return out, nil
}

// PathfindResult summarizes pathfinding latency over repeated full-board
// expansions for every standing player on the acting team.
type PathfindResult struct {
	Scenario string
	Samples  int
	Paths    int // paths found in the last sample, sanity signal
	MeanMs   float64
	StddevMs float64
	MaxMs    float64
}

// RunPathfind measures FindAll latency on the scenario. Each sample runs
// the full expansion for every standing player on the acting team.
func RunPathfind(sc Scenario, samples int) (PathfindResult, error) {
	if samples <= 0 {
		return PathfindResult{}, fmt.Errorf("scenario %s: need a positive sample count", sc.Name)
	}
	state := sc.State
	team := state.CurrentTeam()

	latencies := make([]float64, 0, samples)
	paths := 0
	for i := 0; i < samples; i++ {
		start := time.Now()
		paths = 0
		for _, p := range team.Players {
			if !p.Standing() || p.Position == nil {
				continue
			}
			pf, err := pathfind.New(state, p)
			if err != nil {
				return PathfindResult{}, fmt.Errorf("scenario %s player %s: %w", sc.Name, p.ID, err)
			}
			paths += len(pf.FindAll())
		}
		latencies = append(latencies, float64(time.Since(start).Microseconds())/1000.0)
	}

	out := PathfindResult{
		Scenario: sc.Name,
		Samples:  samples,
		Paths:    paths,
		MeanMs:   stat.Mean(latencies, nil),
	}
	if samples > 1 {
		out.StddevMs = stat.StdDev(latencies, nil)
	}
	for _, l := range latencies {
		if l > out.MaxMs {
			out.MaxMs = l
		}
	}
	return out, nil
}
