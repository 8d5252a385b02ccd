package apigw

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Общие метрики запросов
	RequestsTotal  *prometheus.CounterVec   // Общее количество обработанных BFF-запросов
	RequestLatency *prometheus.HistogramVec // Латентность BFF-запросов
}

// NewMetrics создает метрики шлюза и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubgateway_apigw_requests_total",
				Help: "Total number of processed BFF requests",
			},
			[]string{"route", "method", "code"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hubgateway_apigw_request_latency_seconds",
				Help:    "Latency of BFF requests in seconds",
				Buckets: prometheus.DefBuckets, // Стандартные бакеты времени
			},
			[]string{"route"},
		),
	}
}
