// Package metrics implements the Metrics Recorder (spec.md §4.6): for
// each store operation, records timestamp, entity, operation, timing,
// row count and derived rates as one pipe-delimited line per
// entity-specific append-only log file.
//
// The wire format is fully specified by spec.md §4.6/§6.4 (a fixed
// pipe-delimited column order), not a generic metrics protocol any
// library in the corpus already speaks — so it is written directly with
// bufio over os.File rather than through a metrics library.
package metrics

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recorder appends one line per Record call to an entity-specific log
// file under Dir. It never blocks the pipeline on I/O failure: write
// errors are swallowed (spec.md §4.6 "does not retry on I/O failure,
// metrics loss tolerated").
type Recorder struct {
	dir string

	mu      sync.Mutex
	writers map[string]*bufio.Writer
	files   map[string]*os.File
}

// NewRecorder creates a Recorder writing under dir, creating it if needed.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metrics dir: %w", err)
	}
	return &Recorder{
		dir:     dir,
		writers: make(map[string]*bufio.Writer),
		files:   make(map[string]*os.File),
	}, nil
}

// Record appends one line for a single store operation on entity.
// Format: timestamp|entity|operation|total_ms|rows|ms_per_row|rows_per_sec|bytes|ms_per_kb|mb_per_sec|bytes_per_row
func (r *Recorder) Record(entity, operation string, elapsed time.Duration, rows int, bytes int64) {
	w, ok := r.writerFor(entity)
	if !ok {
		return
	}

	ms := float64(elapsed.Milliseconds())
	var msPerRow, rowsPerSec, msPerKB, mbPerSec, bytesPerRow float64
	if rows > 0 {
		msPerRow = ms / float64(rows)
		bytesPerRow = float64(bytes) / float64(rows)
	}
	if ms > 0 {
		rowsPerSec = float64(rows) / (ms / 1000)
		mbPerSec = (float64(bytes) / (1024 * 1024)) / (ms / 1000)
	}
	if bytes > 0 {
		msPerKB = ms / (float64(bytes) / 1024)
	}

	line := fmt.Sprintf("%s|%s|%s|%.3f|%d|%.4f|%.4f|%d|%.4f|%.4f|%.4f\n",
		time.Now().UTC().Format(time.RFC3339Nano), entity, operation,
		ms, rows, msPerRow, rowsPerSec, bytes, msPerKB, mbPerSec, bytesPerRow,
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = w.WriteString(line)
	_ = w.Flush()
}

func (r *Recorder) writerFor(entity string) (*bufio.Writer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.writers[entity]; ok {
		return w, true
	}

	path := filepath.Join(r.dir, entity+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false
	}
	w := bufio.NewWriter(f)
	r.files[entity] = f
	r.writers[entity] = w
	return w, true
}

// Close flushes and closes every open log file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for entity, w := range r.writers {
		_ = w.Flush()
		if err := r.files[entity].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
