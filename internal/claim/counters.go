package claim

import "sync"

// Counters is the process-wide, monotonic adjudication tally owned by the
// Coordinator (spec §3.1, §9 — no hidden global counters on the engine
// itself; the engine returns a per-call outcome and the coordinator
// aggregates it here).
type Counters struct {
	mu sync.Mutex

	TotalProcessed    int64
	TotalApproved     int64
	TotalRejected     int64
	CumulativeMS      int64
}

// Record folds one adjudicated claim's outcome into the running totals.
func (c *Counters) Record(status Status, processingTimeMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TotalProcessed++
	if status == StatusApproved {
		c.TotalApproved++
	} else {
		c.TotalRejected++
	}
	c.CumulativeMS += processingTimeMS
}

// Snapshot is a point-in-time copy safe to read without holding the lock.
type Snapshot struct {
	TotalProcessed int64
	TotalApproved  int64
	TotalRejected  int64
	CumulativeMS   int64
}

// Snapshot returns a consistent copy of the counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TotalProcessed: c.TotalProcessed,
		TotalApproved:  c.TotalApproved,
		TotalRejected:  c.TotalRejected,
		CumulativeMS:   c.CumulativeMS,
	}
}

// MeanProcessingMS returns the mean per-claim processing time, or 0 when
// nothing has been processed yet.
func (s Snapshot) MeanProcessingMS() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.CumulativeMS) / float64(s.TotalProcessed)
}

// ApprovalPercent returns the approval rate as a percentage (0-100).
func (s Snapshot) ApprovalPercent() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.TotalApproved) / float64(s.TotalProcessed) * 100
}
