package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/search"
	"github.com/gridbowl/gridbowl/server"
)

func main() {
	var (
		listen      = flag.String("listen", ":8080", "HTTP listen address")
		backend     = flag.String("backend", "onnx", "evaluator backend: onnx, native or heuristic")
		modelPath   = flag.String("model", "", "path to the model artifact")
		sessions    = flag.Int("sessions", 1, "ONNX sessions for parallel requests")
		workers     = flag.Int("workers", 1, "search workers")
		parallel    = flag.String("parallel", "root", "parallelization: none, root or tree")
		exploration = flag.Float64("exploration", 0, "UCT exploration constant (0 = default)")
		pretty      = flag.Bool("pretty", false, "human-readable log output")
	)
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			With().Timestamp().Logger()
	}

	eval, err := inference.LoadWithConfig(*modelPath, inference.Backend(*backend),
		inference.Config{Sessions: *sessions})
	if err != nil {
		log.Fatal().Err(err).Str("backend", *backend).Str("model", *modelPath).Msg("load evaluator")
	}
	defer eval.Close()

	cfg := search.Config{Workers: *workers, Exploration: *exploration}
	switch *parallel {
	case "none":
	case "root":
		cfg.Parallelism = search.ParallelRoot
	case "tree":
		cfg.Parallelism = search.ParallelTree
	default:
		log.Fatal().Str("parallel", *parallel).Msg("unknown parallelization mode")
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.New(eval, cfg, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", *listen).Str("evaluator", eval.Name()).Msg("serving")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
}
