package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation stages, used as the stage label.
const (
	StageSession    = "session"
	StageSchema     = "schema"
	StageCompletion = "completion"
	StageExecute    = "execute"
)

// Prompt request outcomes, used as the outcome label.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNoPrompt = "no_prompt"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	generationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_generation_total",
			Help: "Prompt requests by outcome.",
		},
		[]string{"outcome"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_stage_duration_seconds",
			Help:    "Latency of each generation stage.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	stageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_stage_failures_total",
			Help: "Failed generation stages.",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		generationTotal,
		stageDurationSeconds,
		stageFailuresTotal,
	)
}

func ObserveGeneration(outcome string) {
	generationTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took and counts it as failed when
// err is non-nil.
func ObserveStage(stage string, elapsed time.Duration, err error) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		stageFailuresTotal.WithLabelValues(stage).Inc()
	}
}
