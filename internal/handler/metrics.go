package handler

import (
	"fmt"
	"net/http"

	"github.com/campusjobs/jobboard/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "jobboard_registrations_total %d\n", snap.Registrations)
	writeMetric(w, "jobboard_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "jobboard_logins_total{status=\"failure\"} %d\n", snap.LoginsFailed)

	for _, kind := range snap.AuthFailureKinds() {
		writeMetric(w, "jobboard_auth_failures_total{kind=%q} %d\n", kind, snap.AuthFailures[kind])
	}

	writeMetric(w, "jobboard_jobs_created_total %d\n", snap.JobsCreated)
	writeMetric(w, "jobboard_jobs_updated_total %d\n", snap.JobsUpdated)
	writeMetric(w, "jobboard_jobs_deleted_total %d\n", snap.JobsDeleted)
	writeMetric(w, "jobboard_applications_submitted_total %d\n", snap.ApplicationsSubmitted)

	writeMetric(w, "jobboard_resume_bytes_stored_total %d\n", snap.ResumeBytesStored)
	writeMetric(w, "jobboard_resume_store_duration_seconds_count %d\n", snap.ResumeStoreCount)
	writeMetric(w, "jobboard_resume_store_duration_seconds_sum %.6f\n", float64(snap.ResumeStoreTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
