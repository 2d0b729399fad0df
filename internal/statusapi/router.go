// Package statusapi exposes a small read-only HTTP surface over the
// running simulation's counters, grounded on the teacher's
// internal/api/router.go: the same chi.NewRouter() + middleware stack,
// repointed at simulation progress instead of REST CRUD.
package statusapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pbmcore/adjudicator/internal/claim"
)

// ProgressSource is anything that can report a live counters snapshot —
// satisfied by *coordinator.Coordinator.
type ProgressSource interface {
	Snapshot() claim.Snapshot
}

// NewRouter builds the chi router serving /healthz and /status.
func NewRouter(source ProgressSource) http.Handler {
	h := &handlers{source: source}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.healthz)
	r.Get("/status", h.status)

	return r
}
