package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ms_events"

// Registry holds every metric exported on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// EventChangesTotal counts committed mutations by change type.
var EventChangesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_changes_total",
		Help:      "Total number of committed event mutations",
	},
	[]string{"type"},
)

// CacheLookupsTotal counts EventDto cache reads; result is hit, miss or error.
var CacheLookupsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of event cache lookups",
	},
	[]string{"result"},
)

// PublishFailuresTotal counts lifecycle messages that could not be delivered.
var PublishFailuresTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_failures_total",
		Help:      "Total number of event change messages that failed to publish",
	},
)

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
