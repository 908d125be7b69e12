package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the memora client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Backend API metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Session and guard metrics
	RoleLookups    *prometheus.CounterVec
	GuardDecisions *prometheus.CounterVec

	// Collection screens
	ListMutations *prometheus.CounterVec
	PollTicks     *prometheus.CounterVec

	// Object storage
	Uploads *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memora_api_request_duration_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method", "endpoint"},
		),

		RoleLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_role_lookups_total",
				Help: "Role lookups by outcome (resolved, failed, stale)",
			},
			[]string{"result"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_guard_decisions_total",
				Help: "Route guard state transitions",
			},
			[]string{"state"},
		),

		ListMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_list_mutations_total",
				Help: "Optimistic list mutations by operation and outcome",
			},
			[]string{"op", "result"},
		),
		PollTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_poll_ticks_total",
				Help: "Polling refreshes by outcome",
			},
			[]string{"result"},
		),

		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_uploads_total",
				Help: "Profile picture uploads by outcome",
			},
			[]string{"result"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memora_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// ObserveRequest records one backend round trip. status is 0 for transport errors.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(method, endpoint, label).Inc()
	m.APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RoleLookup records a role lookup outcome.
func (m *Metrics) RoleLookup(result string) {
	if m == nil {
		return
	}
	m.RoleLookups.WithLabelValues(result).Inc()
}

// GuardDecision records a guard entering state.
func (m *Metrics) GuardDecision(state string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(state).Inc()
}

// ListMutation records an optimistic mutation outcome, e.g. ("delete", "rolled_back").
func (m *Metrics) ListMutation(op, result string) {
	if m == nil {
		return
	}
	m.ListMutations.WithLabelValues(op, result).Inc()
}

// PollTick records a polling refresh outcome.
func (m *Metrics) PollTick(result string) {
	if m == nil {
		return
	}
	m.PollTicks.WithLabelValues(result).Inc()
}

// Upload records an object storage upload outcome.
func (m *Metrics) Upload(result string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(result).Inc()
}

// Error records an error by code.
func (m *Metrics) Error(code, component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
