package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики прокси
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec   // Запросы по маршруту и коду ответа
	RequestLatency *prometheus.HistogramVec // Латентность с учетом ответа каталога
	ForwardErrors  prometheus.Counter       // Запросы, на которые каталог не ответил
}

// NewMetrics создает метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubproxy_requests_total",
				Help: "Total number of proxied requests",
			},
			[]string{"route", "code"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hubproxy_request_latency_seconds",
				Help:    "Latency of proxied requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ForwardErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hubproxy_forward_errors_total",
				Help: "Total number of requests the upstream did not answer",
			},
		),
	}
}
