package featureflag

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source загружает запись флагов из внешнего источника конфигурации
type Source interface {
	// Load возвращает актуальную запись флагов
	Load(ctx context.Context) (Record, error)

	// Name - имя источника для логов
	Name() string
}

// document - формат файла/объекта с флагами
type document struct {
	Flags Record `yaml:"flags"`
}

// Parse разбирает YAML (или JSON) документ с флагами
func Parse(data []byte) (Record, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feature flags: %w", err)
	}
	if doc.Flags == nil {
		doc.Flags = Record{}
	}
	return doc.Flags, nil
}

// StaticSource отдает фиксированную запись. Используется в тестах и при
// отсутствии внешнего источника.
type StaticSource struct {
	Record Record
}

func (s StaticSource) Load(ctx context.Context) (Record, error) {
	out := make(Record, len(s.Record))
	for k, v := range s.Record {
		out[k] = v
	}
	return out, nil
}

func (s StaticSource) Name() string {
	return "static"
}

// FileSource читает флаги из локального файла
type FileSource struct {
	Path string
}

// NewFileSource создает файловый источник
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(ctx context.Context) (Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature flags file %s: %w", s.Path, err)
	}
	return Parse(data)
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}
