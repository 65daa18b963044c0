package inference

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gridbowl/gridbowl/game"
)

// RuntimeStats aggregates batching counters for observability.
type RuntimeStats struct {
	TotalBatches  int64
	TotalItems    int64
	TotalRunNanos int64
	LastBatchSize int64
	QueueLen      int
	AvgBatchSize  float64
	AvgRunMs      float64
}

// ONNXPool fans Evaluate calls out across several onnx sessions, each
// with its own batching loop. Session initialization is process-global;
// the clients handle that internally.
type ONNXPool struct {
	clients []*onnxClient
	rr      atomic.Uint64
}

// NewONNXPool opens cfg.Sessions sessions for the model at path.
func NewONNXPool(path string, cfg Config) (*ONNXPool, error) {
	sessions := cfg.Sessions
	if sessions <= 0 {
		sessions = 1
	}

	clients := make([]*onnxClient, 0, sessions)
	for i := 0; i < sessions; i++ {
		c, err := newONNXClient(path, cfg)
		if err != nil {
			for _, created := range clients {
				_ = created.Close()
			}
			return nil, fmt.Errorf("create onnx client %d/%d: %w", i+1, sessions, err)
		}
		clients = append(clients, c)
	}
	return &ONNXPool{clients: clients}, nil
}

func (p *ONNXPool) Name() string { return "onnx" }

func (p *ONNXPool) Evaluate(ctx context.Context, state *game.GameState) (Value, error) {
	if len(p.clients) == 0 {
		return Value{}, fmt.Errorf("%w: pool has no sessions", ErrPolicyUnavailable)
	}
	idx := int(p.rr.Add(1)-1) % len(p.clients)
	return p.clients[idx].Evaluate(ctx, state)
}

func (p *ONNXPool) Close() error {
	var firstErr error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats sums the per-session counters.
func (p *ONNXPool) Stats() RuntimeStats {
	var out RuntimeStats
	for _, c := range p.clients {
		st := c.stats()
		out.TotalBatches += st.TotalBatches
		out.TotalItems += st.TotalItems
		out.TotalRunNanos += st.TotalRunNanos
		out.QueueLen += st.QueueLen
		if st.LastBatchSize > out.LastBatchSize {
			out.LastBatchSize = st.LastBatchSize
		}
	}
	if out.TotalBatches > 0 {
		out.AvgBatchSize = float64(out.TotalItems) / float64(out.TotalBatches)
		out.AvgRunMs = (float64(out.TotalRunNanos) / 1e6) / float64(out.TotalBatches)
	}
	return out
}
