package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fermi-notifier/internal/domain/model"
)

func init() { register(pipelineRunsTotal, pipelineRunSeconds, triggersRejectedTotal, pipelineInFlight) }

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs, labeled by status and reason.",
		},
		[]string{"status", "reason"}, // 'done' | 'failed'
	)

	pipelineRunSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "End-to-end pipeline run latency.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 180},
		},
		[]string{"status"},
	)

	triggersRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_triggers_busy_total",
			Help: "Triggers rejected because a run was already in flight.",
		},
	)

	pipelineInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_run_in_flight",
			Help: "1 while a pipeline run holds the busy guard.",
		},
	)
)

func ObserveRun(status, reason string, latency time.Duration) {
	pipelineRunsTotal.WithLabelValues(norm(status), norm(reason)).Inc()
	pipelineRunSeconds.WithLabelValues(norm(status)).Observe(latency.Seconds())
}

func IncBusy() { triggersRejectedTotal.Inc() }

func SetInFlight(v bool) {
	if v {
		pipelineInFlight.Set(1)
		return
	}
	pipelineInFlight.Set(0)
}

// PipelineObserver feeds run lifecycle events into the collectors above.
type PipelineObserver struct{}

func (PipelineObserver) RunStarted() { SetInFlight(true) }

func (PipelineObserver) RunFinished(res *model.RunResult) {
	SetInFlight(false)
	if res == nil {
		return
	}
	reason := res.Reason
	if reason == "" {
		reason = "ok"
	}
	ObserveRun(string(res.Status), reason, res.Latency)
}

func (PipelineObserver) Busy() { IncBusy() }
