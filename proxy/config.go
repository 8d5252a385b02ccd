package proxy

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Переменная окружения с адресом каталога
const EnvAPIURL = "API_URL"

// DefaultUpstream - адрес каталога, если API_URL не задан
const DefaultUpstream = "http://localhost:8080"

// Config содержит конфигурацию прокси
type Config struct {
	// ListenAddress - адрес для прослушивания
	ListenAddress string

	// Upstream - базовый URL каталога
	Upstream string

	// Timeout - таймаут одного запроса к каталогу
	Timeout time.Duration

	// ShutdownTimeout - время на завершение активных запросов при остановке
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ListenAddress:   ":80",
		Upstream:        DefaultUpstream,
		Timeout:         30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// FromEnv возвращает конфигурацию по умолчанию с адресом каталога из API_URL.
// Окружение читается один раз при старте.
func FromEnv() Config {
	c := DefaultConfig()
	c.Upstream = getenvDefault(EnvAPIURL, DefaultUpstream)
	return c
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	u, err := url.Parse(c.Upstream)
	if err != nil {
		return fmt.Errorf("invalid upstream %q: %w", c.Upstream, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream %q must be an absolute http(s) URL", c.Upstream)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
