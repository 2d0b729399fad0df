// Command adjudicator runs the PBM claim adjudication simulator
// end-to-end: ingest a claims corpus, adjudicate every claim through the
// eight-step decision engine, and persist results at a paced throughput
// (spec.md §6.2).
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pbmcore/adjudicator/internal/config"
	"github.com/pbmcore/adjudicator/internal/coordinator"
	"github.com/pbmcore/adjudicator/internal/pbmerr"
	"github.com/pbmcore/adjudicator/internal/persistence"
	"github.com/pbmcore/adjudicator/internal/statusapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	speedupArg := ""
	if len(os.Args) > 1 {
		speedupArg = os.Args[1]
	}

	cfg, err := config.Load(speedupArg)
	if err != nil {
		log.Printf("FATAL: %v", err)
		return exitCodeFor(err)
	}

	log.Printf("Initializing database at %s", cfg.DBPath)
	db, err := persistence.OpenStore(cfg.DBPath)
	if err != nil {
		log.Printf("FATAL: %v", err)
		return exitCodeFor(err)
	}
	defer db.Close()

	co, err := coordinator.New(db, coordinator.Config{
		ClaimsDir:      cfg.ClaimsDir,
		ClaimsPattern:  cfg.ClaimsPattern,
		BatchSize:      cfg.BatchSize,
		Speedup:        cfg.Speedup,
		MetricsDir:     cfg.MetricsDir,
		EngineSeed:     1,
		FidelityDelays: cfg.FidelityDelays,
	})
	if err != nil {
		log.Printf("FATAL: %v", err)
		return pbmerr.ExitReferenceFailure
	}
	defer co.Close()

	if cfg.StatusPort != "" {
		go startStatusServer(cfg.StatusPort, co)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := co.Run(ctx)
	if err != nil {
		if errors.Is(err, coordinator.ErrCancelled) {
			log.Printf("Cancelled after processing %d claims", report.Snapshot.TotalProcessed)
			return pbmerr.ExitCancelled
		}
		log.Printf("FATAL: %v", err)
		return exitCodeFor(err)
	}

	return pbmerr.ExitOK
}

func startStatusServer(port string, co *coordinator.Coordinator) {
	router := statusapi.NewRouter(co)
	log.Printf("Status server listening on http://localhost:%s (/healthz, /status)", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Printf("status server stopped: %v", err)
	}
}

func exitCodeFor(err error) int {
	var coded pbmerr.Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return pbmerr.ExitDatabaseFailure
}
