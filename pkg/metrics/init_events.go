package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEventMetrics() {
	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_events_published_total",
			Help: "Events published to the harness event feed",
		},
		[]string{"type"},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "relay_harness_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)
}
