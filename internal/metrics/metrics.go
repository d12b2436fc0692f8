// Package metrics registers the Prometheus collectors of the content
// workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesServed counts successful deep-link retrievals.
	FilesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "donuts_files_served_total",
		Help: "Number of files served to users through deep links",
	})

	// GateChecks counts subscription-gate evaluations by outcome.
	GateChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donuts_gate_checks_total",
		Help: "Subscription gate evaluations by outcome",
	}, []string{"outcome"})

	// ItemsPublished counts items distributed to routed channels.
	ItemsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donuts_items_published_total",
		Help: "Classified items published to destination channels",
	}, []string{"product"})

	// PublishFailures counts per-item distribution failures.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "donuts_publish_failures_total",
		Help: "Items that failed to publish to at least one destination",
	})

	// BroadcastDeliveries counts broadcast delivery attempts by outcome.
	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donuts_broadcast_deliveries_total",
		Help: "Broadcast delivery attempts by outcome",
	}, []string{"outcome"})
)
