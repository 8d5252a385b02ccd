package monitoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if !config.Enabled {
		t.Error("Expected monitoring to be enabled by default")
	}

	if config.ListenAddress != ":9091" {
		t.Errorf("Expected default listen address ':9091', got '%s'", config.ListenAddress)
	}

	if config.MetricsPath != "/metrics" {
		t.Errorf("Expected default metrics path '/metrics', got '%s'", config.MetricsPath)
	}

	if config.ReadTimeout != 30*time.Second {
		t.Errorf("Expected default read timeout 30s, got %v", config.ReadTimeout)
	}

	if !config.EnableSystemMetrics {
		t.Error("Expected system metrics to be enabled by default")
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name:        "Valid config",
			config:      DefaultConfig(),
			expectError: false,
		},
		{
			name: "Disabled monitoring",
			config: &Config{
				Enabled: false,
			},
			expectError: false,
		},
		{
			name: "Empty listen address",
			config: &Config{
				Enabled:       true,
				ListenAddress: "",
				MetricsPath:   "/metrics",
				ReadTimeout:   30 * time.Second,
				WriteTimeout:  30 * time.Second,
			},
			expectError: true,
		},
		{
			name: "Empty metrics path",
			config: &Config{
				Enabled:       true,
				ListenAddress: ":9091",
				MetricsPath:   "",
				ReadTimeout:   30 * time.Second,
				WriteTimeout:  30 * time.Second,
			},
			expectError: true,
		},
		{
			name: "Invalid read timeout",
			config: &Config{
				Enabled:       true,
				ListenAddress: ":9091",
				MetricsPath:   "/metrics",
				ReadTimeout:   0,
				WriteTimeout:  30 * time.Second,
			},
			expectError: true,
		},
		{
			name: "Negative readiness timeout",
			config: &Config{
				Enabled:          true,
				ListenAddress:    ":9091",
				MetricsPath:      "/metrics",
				ReadTimeout:      30 * time.Second,
				WriteTimeout:     30 * time.Second,
				ReadinessTimeout: -time.Second,
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectError && err == nil {
				t.Error("Expected validation error, but got none")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no validation error, but got: %v", err)
			}
		})
	}
}

func TestNewMonitor(t *testing.T) {
	// Тест с конфигурацией по умолчанию
	monitor, err := New(nil)
	if err != nil {
		t.Fatalf("Expected no error creating monitor, got: %v", err)
	}

	if !monitor.IsEnabled() {
		t.Error("Expected monitor to be enabled by default")
	}

	if monitor.Registry() == nil {
		t.Fatal("Expected registry to be available")
	}

	// Метрики модулей регистрируются в реестре монитора
	counter := promauto.With(monitor.Registry()).NewCounter(prometheus.CounterOpts{
		Name: "hubgateway_test_total",
		Help: "Test counter",
	})
	counter.Inc()

	rr := httptest.NewRecorder()
	monitor.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hubgateway_test_total 1") {
		t.Errorf("Expected registered counter in metrics output")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Errorf("Expected Go runtime metrics when system metrics are enabled")
	}
}

func TestNewMonitorWithInvalidConfig(t *testing.T) {
	invalidConfig := &Config{
		Enabled:       true,
		ListenAddress: "", // Invalid
		MetricsPath:   "/metrics",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}

	_, err := New(invalidConfig)
	if err == nil {
		t.Error("Expected error creating monitor with invalid config")
	}
}

func TestMonitorDisabled(t *testing.T) {
	config := &Config{
		Enabled: false,
	}

	monitor, err := New(config)
	if err != nil {
		t.Fatalf("Expected no error creating disabled monitor, got: %v", err)
	}

	if monitor.IsEnabled() {
		t.Error("Expected monitor to be disabled")
	}

	// Запуск и остановка отключенного монитора не должны вызывать ошибок
	err = monitor.Start()
	if err != nil {
		t.Errorf("Expected no error starting disabled monitor, got: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = monitor.Stop(ctx)
	if err != nil {
		t.Errorf("Expected no error stopping disabled monitor, got: %v", err)
	}
}

func TestMonitorStartStop(t *testing.T) {
	// Используем другой порт для тестов, чтобы избежать конфликтов
	config := &Config{
		Enabled:             true,
		ListenAddress:       "127.0.0.1:0", // Используем случайный свободный порт
		MetricsPath:         "/metrics",
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        5 * time.Second,
		EnableSystemMetrics: false, // Отключаем для тестов
	}

	monitor, err := New(config)
	if err != nil {
		t.Fatalf("Expected no error creating monitor, got: %v", err)
	}

	// Запускаем монитор
	err = monitor.Start()
	if err != nil {
		t.Fatalf("Expected no error starting monitor, got: %v", err)
	}

	// Даем время серверу запуститься
	time.Sleep(100 * time.Millisecond)

	// Останавливаем монитор
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = monitor.Stop(ctx)
	if err != nil {
		t.Errorf("Expected no error stopping monitor, got: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	config := DefaultConfig()
	config.EnableSystemMetrics = false

	flagsLoaded := false
	server := NewServer(config, prometheus.NewRegistry(), nil)
	server.AddCheck(Check{
		Name: "featureflags",
		Fn: func(ctx context.Context) error {
			if !flagsLoaded {
				return errors.New("feature flags not loaded")
			}
			return nil
		},
	})
	handler := server.Handler()

	get := func(path string) (int, string) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		body, _ := io.ReadAll(rr.Body)
		if contentType := rr.Header().Get("Content-Type"); contentType != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", contentType)
		}
		return rr.Code, string(body)
	}

	if code, _ := get("/health/live"); code != http.StatusOK {
		t.Errorf("Expected live status %d, got %d", http.StatusOK, code)
	}

	code, body := get("/health/ready")
	if code != http.StatusServiceUnavailable {
		t.Errorf("Expected ready status %d before flags load, got %d", http.StatusServiceUnavailable, code)
	}
	if !strings.Contains(body, "feature flags not loaded") {
		t.Errorf("Expected failed check in body, got %s", body)
	}

	flagsLoaded = true
	if code, _ := get("/health/ready"); code != http.StatusOK {
		t.Errorf("Expected ready status %d, got %d", http.StatusOK, code)
	}

	// Во время остановки readiness всегда 503, liveness по-прежнему 200
	server.SetShuttingDown()
	if code, _ := get("/health/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected ready status %d during shutdown, got %d", http.StatusServiceUnavailable, code)
	}
	if code, _ := get("/health/live"); code != http.StatusOK {
		t.Errorf("Expected live status %d during shutdown, got %d", http.StatusOK, code)
	}
}
