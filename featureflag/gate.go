// Package featureflag разрешает именованные флаги функциональности один раз
// на запрос и отдает потребителям неизменяемый снимок.
package featureflag

import (
	"context"
	"encoding/json"
	"slices"
)

// Flag - запись одного флага
type Flag struct {
	// Enabled - глобальное значение флага
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Environments - если задано, флаг включен только в этих окружениях
	Environments []string `yaml:"environments,omitempty" json:"environments,omitempty"`

	// Config - произвольная структурированная конфигурация (например, текст баннера)
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// enabledIn вычисляет значение флага для окружения
func (f Flag) enabledIn(environment string) bool {
	if !f.Enabled {
		return false
	}
	if len(f.Environments) == 0 {
		return true
	}
	return slices.Contains(f.Environments, environment)
}

// Record - набор флагов по имени
type Record map[string]Flag

// Names возвращает отсортированные имена флагов
func (r Record) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolvedFlag - флаг после вычисления для окружения
type resolvedFlag struct {
	enabled bool
	config  json.RawMessage
}

// Gate - разрешенный снимок флагов. После создания только читается.
type Gate struct {
	environment string
	flags       map[string]resolvedFlag
}

// Resolve вычисляет флаги для окружения. Вызывается один раз на запрос/сессию.
func Resolve(record Record, environment string) *Gate {
	g := &Gate{
		environment: environment,
		flags:       make(map[string]resolvedFlag, len(record)),
	}
	for name, f := range record {
		rf := resolvedFlag{enabled: f.enabledIn(environment)}
		if rf.enabled && len(f.Config) > 0 {
			// Конфигурация сериализуется заранее, GetConfig[T] только декодирует
			if raw, err := json.Marshal(f.Config); err == nil {
				rf.config = raw
			}
		}
		g.flags[name] = rf
	}
	return g
}

// Empty возвращает снимок без флагов: все проверки дают false
func Empty() *Gate {
	return &Gate{flags: map[string]resolvedFlag{}}
}

// Environment возвращает окружение, для которого разрешен снимок
func (g *Gate) Environment() string {
	if g == nil {
		return ""
	}
	return g.environment
}

// IsEnabled возвращает значение флага. Неизвестный флаг - false.
func (g *Gate) IsEnabled(name string) bool {
	if g == nil {
		return false
	}
	return g.flags[name].enabled
}

// Enabled возвращает имена включенных флагов
func (g *Gate) Enabled() []string {
	if g == nil {
		return nil
	}
	var out []string
	for name, f := range g.flags {
		if f.enabled {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// GetConfig декодирует конфигурацию флага в T. Возвращает false, если флаг
// выключен, неизвестен, не имеет конфигурации или она не декодируется в T.
func GetConfig[T any](g *Gate, name string) (T, bool) {
	var out T
	if g == nil {
		return out, false
	}
	f, ok := g.flags[name]
	if !ok || !f.enabled || len(f.config) == 0 {
		return out, false
	}
	if err := json.Unmarshal(f.config, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

type gateKey struct{}

// WithGate сохраняет снимок в контексте
func WithGate(ctx context.Context, g *Gate) context.Context {
	return context.WithValue(ctx, gateKey{}, g)
}

// FromContext возвращает снимок из контекста или пустой снимок
func FromContext(ctx context.Context) *Gate {
	if g, ok := ctx.Value(gateKey{}).(*Gate); ok && g != nil {
		return g
	}
	return Empty()
}
