package handler

import (
	"fmt"
	"net/http"

	"github.com/rosterly/rosterly/internal/metrics"
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

	writeMetric(w, "# TYPE rosterly_signups_total counter\n")
	writeMetric(w, "rosterly_signups_total{outcome=\"success\"} %d\n", snap.SignupsSucceeded)
	writeMetric(w, "rosterly_signups_total{outcome=\"failure\"} %d\n", snap.SignupsFailed)

	writeMetric(w, "# TYPE rosterly_logins_total counter\n")
	writeMetric(w, "rosterly_logins_total{outcome=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "rosterly_logins_total{outcome=\"failure\"} %d\n", snap.LoginsFailed)

	writeMetric(w, "rosterly_logouts_total %d\n", snap.Logouts)
	writeMetric(w, "rosterly_login_required_redirects_total %d\n", snap.LoginsRequired)

	writeMetric(w, "rosterly_students_created_total %d\n", snap.StudentsCreated)
	writeMetric(w, "rosterly_students_updated_total %d\n", snap.StudentsUpdated)
	writeMetric(w, "rosterly_students_deleted_total %d\n", snap.StudentsDeleted)
	writeMetric(w, "rosterly_student_searches_total %d\n", snap.StudentSearches)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
