package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridbowl/gridbowl/game"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	DefaultBatchSize    = 128
	DefaultBatchTimeout = 1 * time.Millisecond
)

type inferenceRequest struct {
	spatial    []float32
	nonSpatial []float32
	respChan   chan inferenceResponse
}

type inferenceResponse struct {
	value float32
	err   error
}

// onnxClient runs one ONNX runtime session with request batching: many
// concurrent Evaluate calls coalesce into single session runs.
type onnxClient struct {
	session      *ort.DynamicAdvancedSession
	requestsChan chan inferenceRequest
	done         chan struct{}
	cfg          Config

	totalBatches  atomic.Int64
	totalItems    atomic.Int64
	totalRunNanos atomic.Int64
	lastBatchSize atomic.Int64
}

var ortInitOnce sync.Once
var ortInitErr error

func newONNXClient(modelPath string, cfg Config) (*onnxClient, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			cwd, _ := os.Getwd()
			candidates := []string{
				"libonnxruntime.so",
				"libonnxruntime.so.1",
			}
			for _, name := range candidates {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("%w: init onnx runtime: %v", ErrPolicyUnavailable, ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	defer options.Destroy()

	// One intra-op thread per session; parallelism comes from the pool
	// and from batching.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	inputs := []string{"spatial", "non_spatial"}
	outputs := []string{"value"}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputs, outputs, options)
	if err != nil {
		return nil, fmt.Errorf("%w: open session for %s: %v", ErrPolicyUnavailable, modelPath, err)
	}

	client := &onnxClient{
		session:      session,
		cfg:          cfg,
		requestsChan: make(chan inferenceRequest, cfg.BatchSize*2),
		done:         make(chan struct{}),
	}
	go client.batchLoop()
	return client, nil
}

func (c *onnxClient) Close() error {
	close(c.done)
	return c.session.Destroy()
}

func (c *onnxClient) Evaluate(ctx context.Context, state *game.GameState) (Value, error) {
	respChan := make(chan inferenceResponse, 1)
	req := inferenceRequest{
		spatial:    EncodeSpatial(state),
		nonSpatial: EncodeNonSpatial(state),
		respChan:   respChan,
	}

	select {
	case c.requestsChan <- req:
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}

	select {
	case resp := <-respChan:
		if resp.err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrPolicyUnavailable, resp.err)
		}
		return valueFromHomeScalar(float64(resp.value)), nil
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
}

func (c *onnxClient) batchLoop() {
	spatialBatch := make([]float32, 0, c.cfg.BatchSize*SpatialSize)
	nonSpatialBatch := make([]float32, 0, c.cfg.BatchSize*NonSpatialFeatures)
	requests := make([]inferenceRequest, 0, c.cfg.BatchSize)

	flush := func() {
		if len(requests) == 0 {
			return
		}
		c.runBatch(requests, spatialBatch, nonSpatialBatch)
		requests = requests[:0]
		spatialBatch = spatialBatch[:0]
		nonSpatialBatch = nonSpatialBatch[:0]
	}

	ticker := time.NewTicker(c.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case req := <-c.requestsChan:
			requests = append(requests, req)
			spatialBatch = append(spatialBatch, req.spatial...)
			nonSpatialBatch = append(nonSpatialBatch, req.nonSpatial...)
			if len(requests) >= c.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-c.done:
			c.failBatch(requests, fmt.Errorf("client closed"))
			return
		}
	}
}

func (c *onnxClient) runBatch(requests []inferenceRequest, spatialBatch, nonSpatialBatch []float32) {
	start := time.Now()
	n := int64(len(requests))

	spatialTensor, err := ort.NewTensor(
		ort.NewShape(n, SpatialLayers, BoardWidth, BoardHeight), spatialBatch)
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer spatialTensor.Destroy()

	nonSpatialTensor, err := ort.NewTensor(
		ort.NewShape(n, NonSpatialFeatures), nonSpatialBatch)
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer nonSpatialTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer valueTensor.Destroy()

	err = c.session.Run(
		[]ort.Value{spatialTensor, nonSpatialTensor},
		[]ort.Value{valueTensor})
	if err != nil {
		c.failBatch(requests, err)
		return
	}

	valueData := valueTensor.GetData()
	for i, req := range requests {
		req.respChan <- inferenceResponse{value: valueData[i]}
	}

	c.totalBatches.Add(1)
	c.totalItems.Add(n)
	c.totalRunNanos.Add(time.Since(start).Nanoseconds())
	c.lastBatchSize.Store(n)
}

func (c *onnxClient) failBatch(requests []inferenceRequest, err error) {
	for _, req := range requests {
		req.respChan <- inferenceResponse{err: err}
	}
}

func (c *onnxClient) stats() RuntimeStats {
	return RuntimeStats{
		TotalBatches:  c.totalBatches.Load(),
		TotalItems:    c.totalItems.Load(),
		TotalRunNanos: c.totalRunNanos.Load(),
		LastBatchSize: c.lastBatchSize.Load(),
		QueueLen:      len(c.requestsChan),
	}
}
