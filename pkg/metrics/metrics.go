package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet gauges, refreshed once per reconciler pass
	AggregatorsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "maestro_aggregators_total",
			Help: "Total number of aggregators by group and daemon state",
		},
		[]string{"group", "state"},
	)

	ProducersAssigned = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "maestro_producers_assigned",
			Help: "Producers currently assigned to an aggregator for start",
		},
		[]string{"group", "aggregator"},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "maestro_reconciliation_duration_seconds",
			Help:    "Time taken for one reconciliation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "maestro_reconciliation_cycles_total",
			Help: "Total number of reconciliation passes completed",
		},
	)

	RebalanceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "maestro_rebalance_total",
			Help: "Total number of passes that performed a load-balance recompute",
		},
	)

	// Communicator command outcomes, one counter per verb/outcome pair
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_commands_total",
			Help: "Total commands issued to daemons by verb and outcome",
		},
		[]string{"verb", "outcome"}, // outcome: ok, benign, error
	)

	// Datastore metrics
	DatastoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maestro_datastore_op_duration_seconds",
			Help:    "Datastore operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"}, // put, put_batch, get_range, delete_range, watch
	)

	DatastoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maestro_datastore_errors_total",
			Help: "Total datastore errors by operation",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(AggregatorsTotal)
	prometheus.MustRegister(ProducersAssigned)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(RebalanceTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(DatastoreOpDuration)
	prometheus.MustRegister(DatastoreErrorsTotal)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
