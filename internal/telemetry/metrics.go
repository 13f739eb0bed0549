package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — коллекторы Prometheus.
//
// Все методы безопасны для nil-получателя: компоненты вызывают их
// без проверок, а в тестах метрики можно не создавать.
type Metrics struct {
	// Transitions — переходы сессии по целевому статусу.
	Transitions *prometheus.CounterVec

	// Failures — ошибки по шагу и причине.
	Failures *prometheus.CounterVec

	// RequestDuration — длительность запросов к сервису.
	RequestDuration *prometheus.HistogramVec

	// DecodedRows — количество разобранных строк результата.
	DecodedRows prometheus.Counter
}

// NewMetrics регистрирует коллекторы в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabula_session_transitions_total",
			Help: "Workflow session transitions by target status",
		}, []string{"status"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabula_session_failures_total",
			Help: "Workflow session failures by step and kind",
		}, []string{"step", "kind"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabula_service_request_duration_seconds",
			Help:    "Duration of requests to the analysis service",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"endpoint", "outcome"}),
		DecodedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "tabula_decoded_rows_total",
			Help: "Rows decoded from analysis results",
		}),
	}
}

// ObserveTransition учитывает переход в статус.
func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

// ObserveFailure учитывает ошибку шага.
func (m *Metrics) ObserveFailure(step, kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(step, kind).Inc()
}

// ObserveRequest учитывает запрос к сервису.
func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}

// ObserveDecodedRows учитывает разобранные строки.
func (m *Metrics) ObserveDecodedRows(n int) {
	if m == nil {
		return
	}
	m.DecodedRows.Add(float64(n))
}
