package ops

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/probewatch/probewatch/internal/sink"
	"github.com/probewatch/probewatch/internal/worker"
)

// HealthStatus is the coarse health of the process.
type HealthStatus string

// Health statuses.
const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the body of the liveness and readiness endpoints.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    time.Time      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus is the body of the status endpoint.
type SystemStatus struct {
	Status HealthStatus       `json:"status"`
	Time   time.Time          `json:"time"`
	Jobs   []worker.JobStatus `json:"jobs"`
	Sinks  []sink.Health      `json:"sinks"`
}

// Handler serves the operational endpoints.
type Handler struct {
	version   string
	buildTime string
	jobs      *worker.StatusBoard
	sinks     *sink.Registry
	now       func() time.Time
}

// NewHandler creates a Handler. jobs and sinks may be nil.
func NewHandler(version, buildTime string, jobs *worker.StatusBoard, sinks *sink.Registry) *Handler {
	return &Handler{
		version:   version,
		buildTime: buildTime,
		jobs:      jobs,
		sinks:     sinks,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status: HealthStatusOK,
		Time:   h.now().UTC(),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The process is ready once every
// probe job has been started.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if !h.jobs.Started() {
		writeJSON(w, http.StatusServiceUnavailable, Health{
			Status:  HealthStatusFail,
			Time:    h.now().UTC(),
			Details: map[string]any{"reason": "probe jobs not started"},
		})
		return
	}

	writeJSON(w, http.StatusOK, Health{
		Status: HealthStatusOK,
		Time:   h.now().UTC(),
		Details: map[string]any{
			"jobs":  len(h.jobs.Snapshot()),
			"sinks": h.sinks.Len(),
		},
	})
}

// SystemStatus handles GET /v1/ops/status.
func (h *Handler) SystemStatus(w http.ResponseWriter, _ *http.Request) {
	jobs := h.jobs.Snapshot()
	if jobs == nil {
		jobs = []worker.JobStatus{}
	}
	sinks := h.sinks.All()
	if sinks == nil {
		sinks = []sink.Health{}
	}

	writeJSON(w, http.StatusOK, SystemStatus{
		Status: overallStatus(h.jobs.Started(), sinks),
		Time:   h.now().UTC(),
		Jobs:   jobs,
		Sinks:  sinks,
	})
}

// JobStatus handles GET /v1/ops/jobs/{name}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	status, ok := h.jobs.Job(name)
	if !ok {
		newProblem(http.StatusNotFound, "no job for probe "+name, r).write(w)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SinkStatus handles GET /v1/ops/sinks/{name}.
func (h *Handler) SinkStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	health, ok := h.sinks.Get(name)
	if !ok {
		newProblem(http.StatusNotFound, "no sink publisher named "+name, r).write(w)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func overallStatus(started bool, sinks []sink.Health) HealthStatus {
	if !started {
		return HealthStatusFail
	}
	for _, s := range sinks {
		if !s.IsHealthy() {
			return HealthStatusDegraded
		}
	}
	return HealthStatusOK
}
