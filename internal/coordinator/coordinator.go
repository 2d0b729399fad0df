// Package coordinator drives the full simulation end-to-end: ingest,
// adjudicate, persist, pace, report (spec.md §4.5).
//
// Grounded on the teacher's cmd/server/main.go wiring shape (construct
// repos → construct services → run) and internal/ingestion/service.go's
// IngestReport orchestration (resolve input → persist → summarize).
package coordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/pbmcore/adjudicator/internal/claim"
	"github.com/pbmcore/adjudicator/internal/engine"
	"github.com/pbmcore/adjudicator/internal/ingestion"
	"github.com/pbmcore/adjudicator/internal/metrics"
	"github.com/pbmcore/adjudicator/internal/pacer"
	"github.com/pbmcore/adjudicator/internal/pbmerr"
	"github.com/pbmcore/adjudicator/internal/persistence"
)

// progressInterval is how often (minimum) a progress line is emitted
// during the run (spec.md §4.5 step 4c).
const progressInterval = 10 * time.Second

// Config bundles everything the Coordinator needs to run one simulation.
type Config struct {
	ClaimsDir     string
	ClaimsPattern string
	BatchSize     int
	Speedup       float64
	MetricsDir    string
	EngineSeed    int64
	FidelityDelays bool
}

// Report summarizes a completed (or cancelled) run (spec.md §4.5 step 5).
type Report struct {
	Duration        time.Duration
	Cancelled       bool
	Snapshot        claim.Snapshot
	OverallTPS      float64
	StoreCounts     persistence.StoreCounts
}

// Coordinator owns the running counters and drives the pipeline
// (spec.md §3.4).
type Coordinator struct {
	db       *sql.DB
	sink     *persistence.Sink
	engine   *engine.Engine
	recorder *metrics.Recorder
	cfg      Config

	counters claim.Counters
}

// New builds a Coordinator wired to db, using cfg.
func New(db *sql.DB, cfg Config) (*Coordinator, error) {
	sink, err := persistence.NewSink(db, 4096)
	if err != nil {
		return nil, fmt.Errorf("build sink: %w", err)
	}

	recorder, err := metrics.NewRecorder(cfg.MetricsDir)
	if err != nil {
		return nil, fmt.Errorf("build metrics recorder: %w", err)
	}

	delays := engine.DefaultDelays()
	delays.Enabled = cfg.FidelityDelays

	return &Coordinator{
		db:       db,
		sink:     sink,
		engine:   engine.New(cfg.EngineSeed, delays),
		recorder: recorder,
		cfg:      cfg,
	}, nil
}

// Snapshot returns a live counters snapshot; satisfies statusapi.ProgressSource.
func (c *Coordinator) Snapshot() claim.Snapshot {
	return c.counters.Snapshot()
}

// Run executes the full pipeline: verify → ingest → adjudicate+persist in
// batches, pacing and reporting progress, until the input is exhausted or
// ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	if err := persistence.VerifyReferenceData(c.db); err != nil {
		return nil, err
	}

	source := ingestion.NewSource(c.cfg.ClaimsDir, c.cfg.ClaimsPattern)
	loadStart := time.Now()
	result, err := source.LoadAll()
	if err != nil {
		return nil, err
	}
	c.recorder.Record("claim", "load_all", time.Since(loadStart), len(result.Claims), 0)
	log.Printf("Ingested %d claims from %d files (%d rows skipped)",
		len(result.Claims), result.FilesLoaded, result.RowsSkipped)

	batchSize := c.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	pace := pacer.New(c.cfg.Speedup, batchSize)

	runStart := time.Now()
	lastProgress := runStart
	cancelled := false

	claims := result.Claims
	for start := 0; start < len(claims); start += batchSize {
		end := start + batchSize
		if end > len(claims) {
			end = len(claims)
		}
		slice := claims[start:end]

		for i := range slice {
			adjudicated := c.engine.Adjudicate(slice[i].Request)
			adjudicated.ClaimNumber = slice[i].ClaimNumber
			adjudicated.TransactionType = slice[i].TransactionType
			adjudicated.ReceivedAt = slice[i].ReceivedAt
			slice[i] = adjudicated
			c.counters.Record(adjudicated.Status, adjudicated.ProcessingTimeMS)
		}

		insertStart := time.Now()
		if _, err := c.sink.InsertBatch(slice); err != nil {
			return nil, err
		}
		c.recorder.Record("claim", "insert_batch", time.Since(insertStart), len(slice), 0)

		if time.Since(lastProgress) >= progressInterval {
			c.logProgress(runStart)
			lastProgress = time.Now()
		}

		if ctx.Err() != nil {
			cancelled = true
			break
		}

		pace.SleepAfterBatch(ctx)
	}

	return c.finalReport(runStart, cancelled)
}

func (c *Coordinator) logProgress(runStart time.Time) {
	snap := c.counters.Snapshot()
	elapsed := time.Since(runStart).Seconds()
	tps := 0.0
	if elapsed > 0 {
		tps = float64(snap.TotalProcessed) / elapsed
	}
	log.Printf("progress: %s processed (%.1f%% approved, %s TPS, mean %.1fms, approved=%s rejected=%s)",
		humanize.Comma(snap.TotalProcessed), snap.ApprovalPercent(), humanize.Comma(int64(tps)),
		snap.MeanProcessingMS(), humanize.Comma(snap.TotalApproved), humanize.Comma(snap.TotalRejected))
}

func (c *Coordinator) finalReport(runStart time.Time, cancelled bool) (*Report, error) {
	duration := time.Since(runStart)
	snap := c.counters.Snapshot()

	overallTPS := 0.0
	if duration.Seconds() > 0 {
		overallTPS = float64(snap.TotalProcessed) / duration.Seconds()
	}

	counts, err := persistence.CountByStatus(c.db)
	if err != nil {
		return nil, &pbmerr.StoreError{Reason: "final verification count", Err: err}
	}

	report := &Report{
		Duration:    duration,
		Cancelled:   cancelled,
		Snapshot:    snap,
		OverallTPS:  overallTPS,
		StoreCounts: counts,
	}

	c.printSummary(report)

	if cancelled {
		return report, ErrCancelled
	}
	return report, nil
}

// ErrCancelled signals a clean cooperative-cancel shutdown (exit code 130).
var ErrCancelled = errors.New("run cancelled")

func (c *Coordinator) printSummary(r *Report) {
	rule := "================================================================"
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(rule)
	}
	fmt.Printf("Simulation complete (cancelled=%v)\n", r.Cancelled)
	fmt.Printf("Duration:        %s\n", r.Duration)
	fmt.Printf("Total processed: %s\n", humanize.Comma(r.Snapshot.TotalProcessed))
	fmt.Printf("Approved:        %s (%.2f%%)\n", humanize.Comma(r.Snapshot.TotalApproved), r.Snapshot.ApprovalPercent())
	fmt.Printf("Rejected:        %s\n", humanize.Comma(r.Snapshot.TotalRejected))
	fmt.Printf("Overall TPS:     %.2f\n", r.OverallTPS)
	fmt.Printf("Mean proc. ms:   %.2f\n", r.Snapshot.MeanProcessingMS())
	fmt.Printf("Store total:     %d (approved=%d rejected=%d)\n", r.StoreCounts.Total, r.StoreCounts.Approved, r.StoreCounts.Rejected)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(rule)
	}
}

// Close releases the coordinator's owned resources (metrics log files).
func (c *Coordinator) Close() error {
	return c.recorder.Close()
}
