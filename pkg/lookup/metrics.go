package lookup

import (
	"github.com/canopy-network/nodedist/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodedist",
		Subsystem: "lookup",
		Name:      "requests_total",
		Help:      "Lookups sent to an external backend, by kind and outcome.",
	}, []string{"kind", "outcome"})

	cacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodedist",
		Subsystem: "lookup",
		Name:      "cache_total",
		Help:      "Lookup cache results, by kind and tier.",
	}, []string{"kind", "tier"})

	retryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodedist",
		Subsystem: "lookup",
		Name:      "retries_total",
		Help:      "Backend lookups retried after a transient failure.",
	}, []string{"kind"})

	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nodedist",
		Subsystem: "lookup",
		Name:      "duration_seconds",
		Help:      "Latency of backend lookups.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

const (
	kindASN = "asn"
	kindGeo = "geo"
)

// retryConfig is retry.LookupConfig counting every retry of kind.
func retryConfig(kind string) retry.Config {
	cfg := retry.LookupConfig()
	retries := retryTotal.WithLabelValues(kind)
	cfg.OnRetry = func(int, error) { retries.Inc() }
	return cfg
}

func observeOutcome(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	lookupTotal.WithLabelValues(kind, outcome).Inc()
}
