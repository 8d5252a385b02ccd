package apigw

import (
	"fmt"
	"time"
)

// Config содержит конфигурацию для API Gateway
type Config struct {
	// ListenAddress - адрес и порт для прослушивания (например, ":3000")
	ListenAddress string `yaml:"listen_address"`

	// TLSCertFile - путь к файлу SSL-сертификата (опционально, для включения HTTPS)
	TLSCertFile string `yaml:"tls_cert_file"`

	// TLSKeyFile - путь к файлу приватного ключа SSL (опционально)
	TLSKeyFile string `yaml:"tls_key_file"`

	// ReadTimeout - таймаут на чтение всего запроса, включая тело
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout - таймаут на запись всего ответа
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ListenAddress: ":3000",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address cannot be empty")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("both tls_cert_file and tls_key_file must be specified for TLS")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("read_timeout and write_timeout must be positive")
	}
	return nil
}
