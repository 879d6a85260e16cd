package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics provides observability for the registration module.
// Tracks transaction lifecycle counts and remote-call latency.
type Metrics struct {
	TransactionsBegun   prometheus.Counter
	TransactionsClosed  *prometheus.CounterVec
	FinishFailures      prometheus.Counter
	Reverts             *prometheus.CounterVec
	ForcedFailures      prometheus.Counter
	RemoteCallDuration  prometheus.Histogram
	RegisterCarsResults *prometheus.CounterVec
}

// New registers the registration metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the registration metrics on reg. Tests pass a
// fresh prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransactionsBegun: factory.NewCounter(prometheus.CounterOpts{
			Name: "carreg_transactions_begun_total",
			Help: "Total number of registration transactions opened",
		}),
		TransactionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carreg_transaction_records_finished_total",
			Help: "Vehicle records processed by FinishTransaction, by outcome",
		}, []string{"outcome"}),
		FinishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "carreg_finish_record_failures_total",
			Help: "Vehicle records that could not be persisted during FinishTransaction",
		}),
		Reverts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carreg_reverts_total",
			Help: "Vehicle reverts attempted, by result",
		}, []string{"result"}),
		ForcedFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "carreg_forced_registration_failures_total",
			Help: "Forced registration passes that ended in FORCE_ERROR",
		}),
		RemoteCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "carreg_remote_call_duration_seconds",
			Help:    "Duration of remote registration calls",
			Buckets: durationBuckets,
		}),
		RegisterCarsResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carreg_register_cars_results_total",
			Help: "RegisterCars outcomes, by result message",
		}, []string{"message"}),
	}
}

func (m *Metrics) IncrementBegun() {
	m.TransactionsBegun.Inc()
}

// IncrementFinished records one record outcome (closed, pending, no_response...).
func (m *Metrics) IncrementFinished(outcome string) {
	m.TransactionsClosed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementFinishFailure() {
	m.FinishFailures.Inc()
}

// IncrementRevert records a revert attempt; ok reports whether it persisted.
func (m *Metrics) IncrementRevert(ok bool) {
	result := "failed"
	if ok {
		result = "reverted"
	}
	m.Reverts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementForcedFailure() {
	m.ForcedFailures.Inc()
}

// ObserveRemoteCall records the duration of a remote call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRemoteCall(start time.Time) {
	m.RemoteCallDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementResult(message string) {
	m.RegisterCarsResults.WithLabelValues(message).Inc()
}
