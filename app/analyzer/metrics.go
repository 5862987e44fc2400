package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodedist_runs_total",
		Help: "Analyzer runs by chain and outcome.",
	}, []string{"chain", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nodedist_run_duration_seconds",
		Help:    "Wall time of one chain analysis.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"chain"})

	lastRunNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nodedist_last_run_nodes",
		Help: "Nodes analysed by the last successful run.",
	}, []string{"chain"})
)
