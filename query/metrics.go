package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики кэша запросов
type Metrics struct {
	CacheHitsTotal   prometheus.Counter       // Ответы из свежего кэша
	CacheMissesTotal prometheus.Counter       // Запросы, потребовавшие загрузки
	CollapsedTotal   prometheus.Counter       // Запросы, присоединившиеся к уже идущей загрузке
	FetchesTotal     *prometheus.CounterVec   // Загрузки по типу ресурса и результату
	Entries          prometheus.Gauge         // Текущее количество записей кэша
	EvictedTotal     prometheus.Counter       // Записи, удаленные сборкой неактивных
	FetchLatency     *prometheus.HistogramVec // Длительность загрузки с учетом повторов
}

// NewMetrics создает метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hubgateway_query_cache_hits_total",
				Help: "Total number of queries served from a fresh cache entry",
			},
		),
		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hubgateway_query_cache_misses_total",
				Help: "Total number of queries that required a fetch",
			},
		),
		CollapsedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hubgateway_query_collapsed_total",
				Help: "Total number of queries attached to an in-flight fetch",
			},
		),
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubgateway_query_fetches_total",
				Help: "Total number of fetches issued by the query orchestrator",
			},
			[]string{"kind", "result"}, // result: success/failure
		),
		Entries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubgateway_query_entries",
				Help: "Current number of cache entries",
			},
		),
		EvictedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hubgateway_query_evicted_total",
				Help: "Total number of inactive cache entries removed by collection",
			},
		),
		FetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hubgateway_query_fetch_latency_seconds",
				Help:    "Latency of orchestrated fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}
