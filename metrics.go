package csp

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pairingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "csp",
			Subsystem: "channel",
			Name:      "pairings_total",
			Help:      "Messages handed from a push to a receive.",
		},
	)
	closesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "csp",
			Subsystem: "channel",
			Name:      "closes_total",
			Help:      "Channels closed.",
		},
	)
	rejectedPushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "csp",
			Subsystem: "channel",
			Name:      "rejected_pushes_total",
			Help:      "Waiting pushes failed because their channel was closed.",
		},
	)
	selectResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csp",
			Subsystem: "select",
			Name:      "resolutions_total",
			Help:      "Select statements resolved, by the kind of case that won.",
		},
		[]string{"case"},
	)
	tasksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "csp",
			Subsystem: "tasks",
			Name:      "running",
			Help:      "Goroutines launched by Go that have not yet returned.",
		},
	)
)

// RegisterMetrics registers this package's collectors with reg.
// Nothing is registered unless this is called.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		pairingsTotal,
		closesTotal,
		rejectedPushesTotal,
		selectResolutions,
		tasksRunning,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
