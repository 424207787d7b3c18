package observability

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values shared by the domain counters.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeNotFound = "not_found"
	OutcomeReplayed = "replayed"
	OutcomeCorrupt  = "corrupt"
	OutcomeDenied   = "unauthorized"
	OutcomeConflict = "conflict"
)

var (
	jobsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_jobs_dispatched_total",
			Help: "Enrichment jobs accepted or rejected by the dispatcher.",
		},
		[]string{"strategy", "outcome"},
	)

	fanOutBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_fanout_batches_total",
			Help: "Direct fan-out batches by final outcome.",
		},
		[]string{"outcome"},
	)

	fanOutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_fanout_duration_seconds",
			Help:    "Wall time of a direct fan-out batch, including its callback.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	callbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_callbacks_total",
			Help: "Result callbacks received.",
		},
		[]string{"outcome"},
	)

	resultPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_result_polls_total",
			Help: "Result lookups by outcome; not_found means still pending or expired.",
		},
		[]string{"outcome"},
	)

	profileOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_profiles_total",
			Help: "Profile stage, associate and read operations.",
		},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(jobsDispatched, fanOutBatches, fanOutDuration, callbacks, resultPolls, profileOps)
}

// JobDispatched counts one dispatch attempt for strategy ("direct" or "delegated").
func JobDispatched(strategy, outcome string) {
	jobsDispatched.WithLabelValues(strategy, outcome).Inc()
}

// FanOutBatch records a finished direct fan-out batch.
func FanOutBatch(outcome string, seconds float64) {
	fanOutBatches.WithLabelValues(outcome).Inc()
	fanOutDuration.Observe(seconds)
}

func CallbackReceived(outcome string) { callbacks.WithLabelValues(outcome).Inc() }

func ResultPolled(outcome string) { resultPolls.WithLabelValues(outcome).Inc() }

// ProfileOp counts op ("stage", "associate", "get") by outcome.
func ProfileOp(op, outcome string) { profileOps.WithLabelValues(op, outcome).Inc() }
