package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apirun_runs_total",
		Help: "Pipeline runs by final state.",
	}, []string{"collection", "state"})
	mStage = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apirun_stage_duration_seconds",
		Help:    "Pipeline stage latency.",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage", "status"})
	mAssertions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apirun_last_run_assertions",
		Help: "Assertion counts of the last aggregated run.",
	}, []string{"collection", "result"})
	mRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apirun_last_run_requests",
		Help: "Requests executed by the last aggregated run.",
	}, []string{"collection"})
	mLastRun = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apirun_last_run_timestamp_seconds",
		Help: "Unix time the last run finished.",
	}, []string{"collection"})
)
