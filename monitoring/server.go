package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubgateway/logger"
)

// Check - проверка готовности: nil означает, что зависимость в порядке
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Server представляет HTTP сервер для экспорта метрик Prometheus
// и эндпоинтов liveness/readiness
type Server struct {
	config       *Config
	server       *http.Server
	gatherer     prometheus.Gatherer
	metrics      *Metrics
	shuttingDown atomic.Bool

	mu     sync.RWMutex
	checks []Check
}

// NewServer создает сервер метрик. gatherer nil - default registry.
func NewServer(config *Config, gatherer prometheus.Gatherer, metrics *Metrics) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Server{
		config:   config,
		gatherer: gatherer,
		metrics:  metrics,
	}
}

// AddCheck добавляет проверку готовности
func (s *Server) AddCheck(check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, check)
}

// SetShuttingDown переводит /health/ready в 503 на время graceful shutdown
func (s *Server) SetShuttingDown() {
	s.shuttingDown.Store(true)
}

// Handler возвращает мультиплексор с метриками и health check эндпоинтами
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Регистрируем обработчик метрик
	mux.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Добавляем health check эндпоинты
	mux.HandleFunc("/health/live", s.liveHealthHandler)
	mux.HandleFunc("/health/ready", s.readyHealthHandler)
	return mux
}

// Start запускает HTTP сервер для метрик
func (s *Server) Start() error {
	if !s.config.Enabled {
		logger.Info("Monitoring is disabled, skipping metrics server start")
		return nil
	}

	logger.Info("Starting metrics server on %s", s.config.ListenAddress)

	// Создаем HTTP сервер
	s.server = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	// Запускаем сервер в отдельной горутине
	go func() {
		logger.Info("Metrics server listening on %s%s", s.config.ListenAddress, s.config.MetricsPath)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	return nil
}

// Stop останавливает HTTP сервер метрик
func (s *Server) Stop(ctx context.Context) error {
	if !s.config.Enabled || s.server == nil {
		return nil
	}

	logger.Info("Stopping metrics server...")
	s.SetShuttingDown()
	return s.server.Shutdown(ctx)
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeHealth(w http.ResponseWriter, status int, body healthBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write health response: %v", err)
	}
}

// liveHealthHandler обрабатывает запросы /health/live
func (s *Server) liveHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, healthBody{Status: "ok"})
}

// readyHealthHandler обрабатывает запросы /health/ready
func (s *Server) readyHealthHandler(w http.ResponseWriter, r *http.Request) {
	// Проверяем, не находимся ли мы в состоянии graceful shutdown
	if s.shuttingDown.Load() {
		s.metrics.Ready.Set(0)
		writeHealth(w, http.StatusServiceUnavailable, healthBody{Status: "shutting down"})
		return
	}

	ctx := r.Context()
	if s.config.ReadinessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ReadinessTimeout)
		defer cancel()
	}

	s.mu.RLock()
	checks := append([]Check(nil), s.checks...)
	s.mu.RUnlock()

	body := healthBody{Status: "ok"}
	for _, c := range checks {
		if err := c.Fn(ctx); err != nil {
			if body.Checks == nil {
				body.Checks = make(map[string]string)
			}
			body.Checks[c.Name] = err.Error()
			s.metrics.ReadinessFailures.WithLabelValues(c.Name).Inc()
		}
	}

	if len(body.Checks) > 0 {
		body.Status = "not ready"
		s.metrics.Ready.Set(0)
		writeHealth(w, http.StatusServiceUnavailable, body)
		return
	}

	s.metrics.Ready.Set(1)
	writeHealth(w, http.StatusOK, body)
}
