package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var attributionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "nodedist",
	Subsystem: "analysis",
	Name:      "attributions_total",
	Help:      "Nodes attributed per chain, axis and outcome (resolved, other, unidentified, invalid).",
}, []string{"chain", "axis", "outcome"})
