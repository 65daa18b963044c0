package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridbowl/gridbowl/bench"
	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/search"
)

func main() {
	var (
		outDir     = flag.String("out", "bench-results", "directory for parquet result files")
		backend    = flag.String("backend", "heuristic", "evaluator backend: onnx, native or heuristic")
		modelPath  = flag.String("model", "", "path to the model artifact (onnx and native backends)")
		iterations = flag.Int("iterations", 2000, "search iterations per scenario")
		samples    = flag.Int("samples", 50, "pathfind samples per scenario")
		workers    = flag.Int("workers", 1, "search workers")
		parallel   = flag.String("parallel", "none", "parallelization: none, root or tree")
		seed       = flag.Int64("seed", 1, "search random seed")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eval, err := inference.Load(*modelPath, inference.Backend(*backend))
	if err != nil {
		log.Fatal().Err(err).Msg("load evaluator")
	}
	defer eval.Close()

	cfg := search.Config{Workers: *workers, Seed: *seed}
	switch *parallel {
	case "none":
	case "root":
		cfg.Parallelism = search.ParallelRoot
	case "tree":
		cfg.Parallelism = search.ParallelTree
	default:
		log.Fatal().Str("parallel", *parallel).Msg("unknown parallelization mode")
	}

	scenarios, err := bench.Scenarios()
	if err != nil {
		log.Fatal().Err(err).Msg("build scenarios")
	}
	writer, err := bench.NewWriter(*outDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open result writer")
	}

	budget := search.Budget{Iterations: *iterations}
	for _, sc := range scenarios {
		pf, err := bench.RunPathfind(sc, *samples)
		if err != nil {
			log.Fatal().Err(err).Msg("pathfind bench")
		}
		log.Info().
			Str("scenario", sc.Name).
			Int("paths", pf.Paths).
			Float64("mean_ms", pf.MeanMs).
			Float64("stddev_ms", pf.StddevMs).
			Float64("max_ms", pf.MaxMs).
			Msg("pathfind")
		if err := writer.WritePathfind(pf); err != nil {
			log.Fatal().Err(err).Msg("write pathfind row")
		}

		sr, err := bench.RunSearch(ctx, eval, cfg, sc, budget)
		if err != nil {
			log.Fatal().Err(err).Msg("search bench")
		}
		log.Info().
			Str("scenario", sc.Name).
			Int("iterations", sr.Iterations).
			Float64("iters_per_sec", sr.IterationsSec).
			Int("nodes", sr.Nodes).
			Int("depth", sr.Depth).
			Dur("elapsed", sr.Elapsed).
			Msg("search")
		if err := writer.WriteSearch(sr); err != nil {
			log.Fatal().Err(err).Msg("write search row")
		}

		if ctx.Err() != nil {
			log.Warn().Msg("interrupted")
			break
		}
	}

	path, err := writer.Finalize()
	if err != nil {
		log.Fatal().Err(err).Msg("finalize results")
	}
	log.Info().Str("path", path).Int("rows", writer.Rows()).Msg("done")
}
