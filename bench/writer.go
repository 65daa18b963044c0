package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// ResultRow is one measurement persisted for regression tracking. Search
// and pathfind runs share the schema; unused columns stay zero.
type ResultRow struct {
	Timestamp     int64   `parquet:"timestamp"`
	Scenario      string  `parquet:"scenario,dict"`
	Kind          string  `parquet:"kind,dict"` // "search" or "pathfind"
	Evaluator     string  `parquet:"evaluator,dict"`
	Workers       int32   `parquet:"workers"`
	Iterations    int64   `parquet:"iterations"`
	IterationsSec float64 `parquet:"iterations_sec"`
	Nodes         int64   `parquet:"nodes"`
	Depth         int32   `parquet:"depth"`
	Samples       int32   `parquet:"samples"`
	MeanMs        float64 `parquet:"mean_ms"`
	StddevMs      float64 `parquet:"stddev_ms"`
	MaxMs         float64 `parquet:"max_ms"`
}

// Writer persists result rows to a parquet file. Rows accumulate in a
// tmp/ staging file and only move to the output directory on Finalize,
// so readers never observe a partial file.
type Writer struct {
	outPath string
	tmpPath string

	file   *os.File
	writer *parquet.GenericWriter[ResultRow]

	rows int
}

func NewWriter(outDir string) (*Writer, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("bench_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[ResultRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "bench_result_v1")

	return &Writer{
		outPath: filepath.Join(absOut, name),
		tmpPath: tmpPath,
		file:    f,
		writer:  w,
	}, nil
}

func (w *Writer) Rows() int { return w.rows }

func (w *Writer) WriteSearch(r SearchResult) error {
	return w.write(ResultRow{
		Timestamp:     time.Now().Unix(),
		Scenario:      r.Scenario,
		Kind:          "search",
		Evaluator:     r.Evaluator,
		Workers:       int32(r.Workers),
		Iterations:    int64(r.Iterations),
		IterationsSec: r.IterationsSec,
		Nodes:         int64(r.Nodes),
		Depth:         int32(r.Depth),
	})
}

func (w *Writer) WritePathfind(r PathfindResult) error {
	return w.write(ResultRow{
		Timestamp: time.Now().Unix(),
		Scenario:  r.Scenario,
		Kind:      "pathfind",
		Samples:   int32(r.Samples),
		MeanMs:    r.MeanMs,
		StddevMs:  r.StddevMs,
		MaxMs:     r.MaxMs,
	})
}

func (w *Writer) write(row ResultRow) error {
	if w.writer == nil || w.file == nil {
		return fmt.Errorf("bench writer is closed")
	}
	if _, err := w.writer.Write([]ResultRow{row}); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Finalize closes the parquet writer and moves the file out of tmp/.
// With no rows written the tmp file is removed and the path is empty.
func (w *Writer) Finalize() (string, error) {
	if w.writer == nil && w.file == nil {
		return "", nil
	}

	var closeErr error
	if w.writer != nil {
		closeErr = w.writer.Close()
		w.writer = nil
	}
	if w.file != nil {
		_ = w.file.Sync()
		if err := w.file.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		w.file = nil
	}
	if closeErr != nil {
		return "", fmt.Errorf("close parquet: %w", closeErr)
	}

	if w.rows == 0 {
		_ = os.Remove(w.tmpPath)
		return "", nil
	}
	if err := os.Rename(w.tmpPath, w.outPath); err != nil {
		return "", fmt.Errorf("move parquet into place: %w", err)
	}
	return w.outPath, nil
}
