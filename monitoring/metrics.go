package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики самого мониторинга: состояние готовности и проваленные проверки
type Metrics struct {
	Ready             prometheus.Gauge       // 1 - сервис готов принимать трафик
	ReadinessFailures *prometheus.CounterVec // Проваленные проверки готовности
}

// NewMetrics создает метрики мониторинга и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ready: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubgateway_ready",
				Help: "Whether the service reported ready on the last readiness probe",
			},
		),
		ReadinessFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubgateway_readiness_check_failures_total",
				Help: "Total number of failed readiness checks",
			},
			[]string{"check"},
		),
	}
}

// NewRegistry создает реестр метрик приложения. Все модули регистрируют
// свои метрики в нем, а сервер мониторинга отдает его по MetricsPath.
func NewRegistry(systemMetrics bool) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	if systemMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}
