package query

import (
	"fmt"
	"time"
)

// Config содержит настройки оркестратора запросов
type Config struct {
	// StaleTime - сколько запись кэша считается свежей и отдается без загрузки
	StaleTime time.Duration `yaml:"stale_time"`

	// FetchTimeout - верхняя граница одной загрузки (включая повторы)
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Retries - количество дополнительных попыток после неудачи
	Retries int `yaml:"retries"`

	// RetryDelay - пауза между попытками
	RetryDelay time.Duration `yaml:"retry_delay"`

	// GCTime - через сколько без обращений запись удаляется из кэша
	GCTime time.Duration `yaml:"gc_time"`

	// WarmupInterval - период прогрева листингов, 0 - только при старте
	WarmupInterval time.Duration `yaml:"warmup_interval"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		StaleTime:    60 * time.Second,
		FetchTimeout: 15 * time.Second,
		Retries:      0,
		RetryDelay:   200 * time.Millisecond,
		GCTime:       5 * time.Minute,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.StaleTime < 0 {
		return fmt.Errorf("stale_time must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.Retries > 0 && c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	if c.GCTime <= 0 {
		return fmt.Errorf("gc_time must be positive")
	}
	if c.WarmupInterval < 0 {
		return fmt.Errorf("warmup_interval must not be negative")
	}
	return nil
}
