package statusapi

import (
	"encoding/json"
	"net/http"
)

type handlers struct {
	source ProgressSource
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	resp := struct {
		TotalProcessed int64   `json:"total_processed"`
		TotalApproved  int64   `json:"total_approved"`
		TotalRejected  int64   `json:"total_rejected"`
		ApprovalPct    float64 `json:"approval_percent"`
		MeanMS         float64 `json:"mean_processing_ms"`
	}{
		TotalProcessed: snap.TotalProcessed,
		TotalApproved:  snap.TotalApproved,
		TotalRejected:  snap.TotalRejected,
		ApprovalPct:    snap.ApprovalPercent(),
		MeanMS:         snap.MeanProcessingMS(),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
