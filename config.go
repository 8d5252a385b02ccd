package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"hubgateway/apigw"
	"hubgateway/catalog"
	"hubgateway/featureflag"
	"hubgateway/logger"
	"hubgateway/monitoring"
	"hubgateway/pagemeta"
	"hubgateway/query"
)

// AppConfig содержит полную конфигурацию приложения
type AppConfig struct {
	// Конфигурация BFF-сервера
	Server ServerConfig `yaml:"server"`

	// Конфигурация логирования
	Logging LoggingConfig `yaml:"logging"`

	// Конфигурация клиента каталога
	Upstream catalog.Config `yaml:"upstream"`

	// Конфигурация кэша запросов
	Query query.Config `yaml:"query"`

	// Конфигурация флагов функциональности
	FeatureFlags featureflag.Config `yaml:"feature_flags"`

	// Конфигурация мониторинга
	Monitoring monitoring.Config `yaml:"monitoring"`

	// Реестр метаданных страниц; пусто - встроенный реестр хаба
	Pages []pagemeta.Descriptor `yaml:"pages"`
}

// ServerConfig содержит конфигурацию HTTP сервера
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	TLSCertFile     string        `yaml:"tls_cert_file"`
	TLSKeyFile      string        `yaml:"tls_key_file"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig содержит конфигурацию логирования
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultAppConfig возвращает конфигурацию по умолчанию
func DefaultAppConfig() *AppConfig {
	gw := apigw.DefaultConfig()
	return &AppConfig{
		Server: ServerConfig{
			ListenAddress:   gw.ListenAddress,
			ReadTimeout:     gw.ReadTimeout,
			WriteTimeout:    gw.WriteTimeout,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Upstream:     *catalog.DefaultConfig(),
		Query:        *query.DefaultConfig(),
		FeatureFlags: *featureflag.DefaultConfig(),
		Monitoring:   *monitoring.DefaultConfig(),
	}
}

// LoadConfig загружает конфигурацию из файла
func LoadConfig(filename string) (*AppConfig, error) {
	// Читаем файл
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	// Начинаем с конфигурации по умолчанию
	config := DefaultAppConfig()

	// Парсим YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *AppConfig) Validate() error {
	gw := c.ToAPIGatewayConfig()
	if err := gw.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	// Валидируем уровень логирования
	if !logger.IsValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	// Валидируем конфигурации модулей
	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("upstream config: %w", err)
	}

	if err := c.Query.Validate(); err != nil {
		return fmt.Errorf("query config: %w", err)
	}

	if err := c.FeatureFlags.Validate(); err != nil {
		return fmt.Errorf("feature_flags config: %w", err)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	if len(c.Pages) > 0 {
		if _, err := pagemeta.NewMatcher(c.Pages...); err != nil {
			return fmt.Errorf("pages config: %w", err)
		}
	}

	return nil
}

// ToAPIGatewayConfig преобразует в конфигурацию API Gateway
func (c *AppConfig) ToAPIGatewayConfig() apigw.Config {
	return apigw.Config{
		ListenAddress: c.Server.ListenAddress,
		TLSCertFile:   c.Server.TLSCertFile,
		TLSKeyFile:    c.Server.TLSKeyFile,
		ReadTimeout:   c.Server.ReadTimeout,
		WriteTimeout:  c.Server.WriteTimeout,
	}
}

// PageMatcher возвращает реестр метаданных страниц
func (c *AppConfig) PageMatcher() (*pagemeta.Matcher, error) {
	if len(c.Pages) == 0 {
		return pagemeta.DefaultMatcher(), nil
	}
	return pagemeta.NewMatcher(c.Pages...)
}

// SaveConfig сохраняет конфигурацию в файл (для генерации примера)
func (c *AppConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
