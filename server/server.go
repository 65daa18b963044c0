// Package server exposes the decision engine to a host framework over
// HTTP: a JSON decide endpoint plus a websocket stream of per-decision
// diagnostics for live observation.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridbowl/gridbowl/game"
	"github.com/gridbowl/gridbowl/inference"
	"github.com/gridbowl/gridbowl/search"
)

// DecideRequest carries the host's authoritative state plus the search
// budget and seed for this decision.
type DecideRequest struct {
	State  *game.GameState `json:"state"`
	Budget BudgetSpec      `json:"budget"`
	Seed   int64           `json:"seed"`
}

type BudgetSpec struct {
	Iterations int   `json:"iterations"`
	MoveTimeMs int64 `json:"move_time_ms"`
}

func (b BudgetSpec) budget() search.Budget {
	out := search.Budget{
		Iterations: b.Iterations,
		MoveTime:   time.Duration(b.MoveTimeMs) * time.Millisecond,
	}
	if out.Iterations == 0 && out.MoveTime == 0 {
		return search.DefaultBudget
	}
	return out
}

type ActionStat struct {
	Action game.Action `json:"action"`
	Visits int         `json:"visits"`
	Mean   float64     `json:"mean"`
}

type DecideResponse struct {
	Action     *game.Action `json:"action,omitempty"`
	NoAction   bool         `json:"no_action,omitempty"`
	Value      float64      `json:"value"`
	Visits     int          `json:"visits"`
	Iterations int          `json:"iterations"`
	Nodes      int          `json:"nodes"`
	Depth      int          `json:"depth"`
	ElapsedMs  int64        `json:"elapsed_ms"`
	Actions    []ActionStat `json:"actions,omitempty"`
}

// Server answers decision requests with a fresh search per request, so
// each caller controls its own seed and budget.
type Server struct {
	eval inference.Evaluator
	cfg  search.Config
	hub  *hub
	log  zerolog.Logger
}

func New(eval inference.Evaluator, cfg search.Config, log zerolog.Logger) *Server {
	return &Server{
		eval: eval,
		cfg:  cfg,
		hub:  newHub(log),
		log:  log,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/decide", s.handleDecide)
	mux.HandleFunc("/ws", s.hub.handleWS)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":      "gridbowl",
		"evaluator": s.eval.Name(),
	})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.State == nil {
		http.Error(w, "missing state", http.StatusBadRequest)
		return
	}

	cfg := s.cfg
	cfg.Seed = req.Seed
	res, err := search.New(s.eval, cfg).Run(r.Context(), req.State, req.Budget.budget())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, game.ErrValidation), errors.Is(err, search.ErrBudget):
			status = http.StatusBadRequest
		case errors.Is(err, inference.ErrPolicyUnavailable):
			status = http.StatusServiceUnavailable
		}
		s.log.Error().Err(err).Uint64("state", req.State.ID).Msg("decide failed")
		http.Error(w, err.Error(), status)
		return
	}

	resp := DecideResponse{
		NoAction:   res.NoAction,
		Value:      res.Value,
		Visits:     res.Visits,
		Iterations: res.Iterations,
		Nodes:      res.Nodes,
		Depth:      res.Depth,
		ElapsedMs:  time.Since(start).Milliseconds(),
	}
	if !res.NoAction {
		act := res.Action
		resp.Action = &act
		resp.Actions = make([]ActionStat, len(res.Actions))
		for i, st := range res.Actions {
			resp.Actions[i] = ActionStat{Action: st.Action, Visits: st.Visits, Mean: st.Mean}
		}
	}

	s.log.Info().
		Uint64("state", req.State.ID).
		Bool("no_action", res.NoAction).
		Int("visits", res.Visits).
		Int("iterations", res.Iterations).
		Dur("elapsed", time.Since(start)).
		Msg("decide")

	s.hub.broadcast(resp)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
