// Package monitoring поднимает отдельный HTTP сервер с метриками Prometheus
// и эндпоинтами liveness/readiness.
package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"hubgateway/logger"
)

// Monitor представляет основной интерфейс модуля мониторинга
type Monitor struct {
	config   *Config
	registry *prometheus.Registry
	server   *Server
}

// New создает новый экземпляр Monitor со своим реестром метрик
func New(config *Config, checks ...Check) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}

	registry := NewRegistry(config.EnableSystemMetrics)
	server := NewServer(config, registry, NewMetrics(registry))
	for _, c := range checks {
		server.AddCheck(c)
	}

	monitor := &Monitor{
		config:   config,
		registry: registry,
		server:   server,
	}

	logger.Info("Monitoring module initialized")
	logger.Debug("Monitoring config: enabled=%v, listen=%s, path=%s",
		config.Enabled, config.ListenAddress, config.MetricsPath)

	return monitor, nil
}

// Start запускает модуль мониторинга
func (m *Monitor) Start() error {
	if !m.config.Enabled {
		logger.Info("Monitoring is disabled")
		return nil
	}

	logger.Info("Starting monitoring module...")

	// Запускаем HTTP сервер метрик
	if err := m.server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.Info("Monitoring module started successfully")
	return nil
}

// Stop останавливает модуль мониторинга
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}

	logger.Info("Stopping monitoring module...")

	// Останавливаем HTTP сервер
	if err := m.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}

	logger.Info("Monitoring module stopped")
	return nil
}

// AddCheck добавляет проверку готовности
func (m *Monitor) AddCheck(check Check) {
	m.server.AddCheck(check)
}

// SetShuttingDown переводит readiness в 503 до остановки серверов
func (m *Monitor) SetShuttingDown() {
	m.server.SetShuttingDown()
}

// Registry возвращает реестр, в котором модули регистрируют свои метрики
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает обработчик метрик и health check эндпоинтов
func (m *Monitor) Handler() http.Handler {
	return m.server.Handler()
}

// GetConfig возвращает конфигурацию мониторинга
func (m *Monitor) GetConfig() *Config {
	return m.config
}

// IsEnabled возвращает true, если мониторинг включен
func (m *Monitor) IsEnabled() bool {
	return m.config.Enabled
}
