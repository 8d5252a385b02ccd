package catalog

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultBaseURL - адрес апстрима по умолчанию
const DefaultBaseURL = "http://localhost:8080"

// Config содержит конфигурацию клиента каталога
type Config struct {
	// BaseURL - базовый адрес API каталога
	BaseURL string `yaml:"base_url"`

	// Timeout - таймаут одного запроса к апстриму (делегируется http.Client)
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent - значение заголовка User-Agent
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   10 * time.Second,
		UserAgent: "hubgateway/1.0",
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", c.BaseURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}
