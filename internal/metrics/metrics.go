// Package metrics exposes Prometheus instrumentation for batch runs.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aldergrove/dealsense/internal/logging"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	PairsScored     prometheus.Counter
	CandidatesFound prometheus.Counter
	MatchesRecorded prometheus.Counter
	DuplicateSkips  prometheus.Counter
	RecordFailures  prometheus.Counter
	SignalsExpired  prometheus.Counter
	DetectRuns      prometheus.Counter
	DetectDuration  prometheus.Histogram
}

// New creates and registers the engine collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		PairsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_pairs_scored_total",
			Help: "Private/public event pairs evaluated by the match scorer.",
		}),
		CandidatesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_candidates_total",
			Help: "Scored pairs that cleared the match threshold.",
		}),
		MatchesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_matches_recorded_total",
			Help: "Corroboration matches committed to the store.",
		}),
		DuplicateSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_duplicate_matches_total",
			Help: "Candidates skipped because the pair was already recorded.",
		}),
		RecordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_record_failures_total",
			Help: "Recording transactions that rolled back.",
		}),
		SignalsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_signals_expired_total",
			Help: "Private signals expired without corroboration.",
		}),
		DetectRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealsense_detect_runs_total",
			Help: "Completed corroboration detection passes.",
		}),
		DetectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealsense_detect_duration_seconds",
			Help:    "Wall time of a detection pass.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	reg.MustRegister(
		m.PairsScored, m.CandidatesFound, m.MatchesRecorded,
		m.DuplicateSkips, m.RecordFailures, m.SignalsExpired,
		m.DetectRuns, m.DetectDuration,
	)
	return m
}

// Handler returns the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a metrics listener on addr. It returns the server so the
// caller can shut it down when the batch run ends.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics listener failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
