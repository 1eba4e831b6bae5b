package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arbordata/arbor/internal/plan"
)

var (
	actionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbor_actions_executed_total",
		Help: "Actions executed against the interpreter, by kind.",
	}, []string{"kind"})

	actionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbor_actions_failed_total",
		Help: "Actions whose interpreter call failed, by kind.",
	}, []string{"kind"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbor_action_duration_seconds",
		Help:    "Interpreter call latency, by kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

func observe(kind plan.Kind, d time.Duration, err error) {
	k := kind.String()
	actionDuration.WithLabelValues(k).Observe(d.Seconds())
	if err != nil {
		actionsFailed.WithLabelValues(k).Inc()
		return
	}
	actionsExecuted.WithLabelValues(k).Inc()
}
