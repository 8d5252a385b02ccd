package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики обращений к апстриму
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec   // Количество запросов по ресурсу и коду ответа
	RequestLatency *prometheus.HistogramVec // Латентность запросов к апстриму
}

// NewMetrics создает метрики и регистрирует их в reg.
// При reg == nil метрики не регистрируются (удобно для тестов).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubgateway_upstream_requests_total",
				Help: "Total number of requests to the upstream catalog",
			},
			[]string{"resource", "code"}, // code = "error" при сетевой ошибке
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hubgateway_upstream_latency_seconds",
				Help:    "Latency of upstream catalog requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
	}
}
