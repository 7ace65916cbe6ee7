package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across every route.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dutyplanner",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var RunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dutyplanner",
		Subsystem: "runs",
		Name:      "total",
		Help:      "Total number of scheduling runs by outcome.",
	},
	[]string{"outcome"}, // "filled", "partial", "validation_failed"
)

var RunDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dutyplanner",
		Subsystem: "runs",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a scheduling run.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"outcome"},
)

var SearchStepsTotal = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dutyplanner",
		Subsystem: "search",
		Name:      "steps",
		Help:      "Number of frontier-expansion steps a search run consumed.",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"outcome"},
)

var SearchExpansionsTotal = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dutyplanner",
		Subsystem: "search",
		Name:      "expansions",
		Help:      "Number of node expansions a search run performed.",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"outcome"},
)

var SearchWideningRestartsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dutyplanner",
		Subsystem: "search",
		Name:      "widening_restarts_total",
		Help:      "Total number of depth-widening restarts triggered during search.",
	},
	[]string{"outcome"},
)

var ValidationErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dutyplanner",
		Subsystem: "validation",
		Name:      "errors_total",
		Help:      "Total number of preflight validation errors by validator.",
	},
	[]string{"validator"},
)

var HolidayCacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dutyplanner",
		Subsystem: "holidays",
		Name:      "cache_hits_total",
		Help:      "Total number of holiday lookups served from cache, by hit/miss.",
	},
	[]string{"result"}, // "hit", "miss"
)

var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dutyplanner",
		Subsystem: "notify",
		Name:      "total",
		Help:      "Total number of run-completion notifications sent by channel.",
	},
	[]string{"channel"},
)

// All returns every dutyplanner-specific metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		RunsTotal,
		RunDuration,
		SearchStepsTotal,
		SearchExpansionsTotal,
		SearchWideningRestartsTotal,
		ValidationErrorsTotal,
		HolidayCacheHitsTotal,
		NotificationsTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process
// collectors and every dutyplanner metric registered.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
