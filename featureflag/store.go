package featureflag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hubgateway/logger"
)

// Типы источников флагов
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceS3     = "s3"
)

// Config содержит конфигурацию модуля флагов
type Config struct {
	// Environment - окружение для вычисления флагов (dev, staging, prod)
	Environment string `yaml:"environment"`

	// Source - тип источника: static, file, s3
	Source string `yaml:"source"`

	// File - путь к файлу при source=file
	File string `yaml:"file"`

	// S3 - объект с флагами при source=s3
	S3 S3Config `yaml:"s3"`

	// RefreshInterval - период перечитывания источника, 0 - только при старте
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Flags - флаги при source=static
	Flags Record `yaml:"flags"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Environment: "dev",
		Source:      SourceStatic,
		Flags:       Record{},
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment cannot be empty")
	}
	switch c.Source {
	case SourceStatic:
	case SourceFile:
		if c.File == "" {
			return fmt.Errorf("file must be set when source is %q", SourceFile)
		}
	case SourceS3:
		if err := c.S3.Validate(); err != nil {
			return fmt.Errorf("s3: %w", err)
		}
	default:
		return fmt.Errorf("unknown source %q (expected static, file or s3)", c.Source)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	return nil
}

// NewSource создает источник по конфигурации
func NewSource(ctx context.Context, c *Config) (Source, error) {
	switch c.Source {
	case SourceFile:
		return NewFileSource(c.File), nil
	case SourceS3:
		return NewS3Source(ctx, &c.S3)
	default:
		return StaticSource{Record: c.Flags}, nil
	}
}

// Store хранит текущую запись флагов. Запись заменяется целиком при Refresh,
// потребители получают неизменяемые снимки через Gate.
type Store struct {
	source      Source
	environment string
	log         *logger.Logger

	mu       sync.RWMutex
	record   Record
	loadedAt time.Time
	lastErr  error
}

// NewStore создает хранилище; запись пуста до первого Refresh
func NewStore(source Source, environment string) *Store {
	return &Store{
		source:      source,
		environment: environment,
		record:      Record{},
		log:         logger.Named("featureflag"),
	}
}

// Refresh перечитывает источник. При ошибке прежняя запись сохраняется.
func (s *Store) Refresh(ctx context.Context) error {
	record, err := s.source.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.log.Warn("Failed to load feature flags from %s: %v", s.source.Name(), err)
		return err
	}
	s.record = record
	s.loadedAt = time.Now()
	s.lastErr = nil
	s.log.Debug("Loaded %d feature flags from %s", len(record), s.source.Name())
	return nil
}

// Run периодически перечитывает источник до отмены ctx
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

// Gate разрешает текущую запись для окружения хранилища
func (s *Store) Gate() *Gate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Resolve(s.record, s.environment)
}

// Record возвращает копию текущей записи
func (s *Store) Record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Record, len(s.record))
	for k, v := range s.record {
		out[k] = v
	}
	return out
}

// Status возвращает время последней успешной загрузки и последнюю ошибку
func (s *Store) Status() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, s.lastErr
}
