package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
// Every helper is safe to call on a nil *Metrics.
type Metrics struct {
	DecisionsStored    *prometheus.CounterVec
	DecisionsDeleted   *prometheus.CounterVec
	Evaluations        *prometheus.CounterVec
	EvaluationFailures *prometheus.CounterVec
	EvaluationLatency  prometheus.Histogram
	CipherRefreshes    *prometheus.CounterVec

	// Performance metrics
	StoreOperationLatency *prometheus.HistogramVec
	DecisionsPerPrincipal prometheus.Histogram
}

// New creates consent collectors and registers them with reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_decisions_stored_total",
			Help: "Total number of consent decisions stored, labeled by reminder option",
		}, []string{"options"}),
		DecisionsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_decisions_deleted_total",
			Help: "Total number of consent decisions deleted, labeled by scope",
		}, []string{"scope"}),
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_evaluations_total",
			Help: "Total number of consent evaluations, labeled by outcome reason",
		}, []string{"reason"}),
		EvaluationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_evaluation_failures_total",
			Help: "Total number of consent evaluations that failed, labeled by error code",
		}, []string{"code"}),
		EvaluationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consent_evaluation_latency_seconds",
			Help:    "Latency of consent evaluations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		CipherRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_cipher_refreshes_total",
			Help: "Total number of cipher configuration refreshes, labeled by result",
		}, []string{"result"}),

		// Performance metrics
		StoreOperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consent_store_operation_latency_seconds",
			Help:    "Latency of consent store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		DecisionsPerPrincipal: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consent_decisions_per_principal",
			Help:    "Distribution of consent decision counts per principal",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncrementDecisionsStored(options string) {
	if m == nil {
		return
	}
	m.DecisionsStored.WithLabelValues(options).Inc()
}

func (m *Metrics) AddDecisionsDeleted(scope string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.DecisionsDeleted.WithLabelValues(scope).Add(float64(count))
}

func (m *Metrics) IncrementEvaluation(reason string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementEvaluationFailure(code string) {
	if m == nil {
		return
	}
	m.EvaluationFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveEvaluationLatency(durationSeconds float64) {
	if m == nil {
		return
	}
	m.EvaluationLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementCipherRefresh(result string) {
	if m == nil {
		return
	}
	m.CipherRefreshes.WithLabelValues(result).Inc()
}

// ObserveStoreOperationLatency records the latency of a store operation.
func (m *Metrics) ObserveStoreOperationLatency(operation string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StoreOperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

// ObserveDecisionsPerPrincipal records how many decisions a principal holds.
func (m *Metrics) ObserveDecisionsPerPrincipal(count int) {
	if m == nil {
		return
	}
	m.DecisionsPerPrincipal.Observe(float64(count))
}
