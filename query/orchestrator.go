// Package query кэширует результаты загрузок по идентификатору ресурса,
// схлопывает одновременные запросы одного ресурса в одну загрузку и
// поддерживает условное выполнение.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hubgateway/catalog"
	"hubgateway/logger"
)

// FetchFunc загружает значение ресурса
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Result - результат запроса. Value содержит свежее значение, либо при
// ошибке - последнее успешное значение из кэша (если оно было).
type Result[T any] struct {
	Value     T
	Err       error
	UpdatedAt time.Time // время получения Value; нулевое, если значения нет
	FromCache bool      // значение отдано из свежего кэша без загрузки
	Stale     bool      // Value устарело (загрузка не удалась или была отменена)
	Disabled  bool      // запрос отключен, Value - пустое значение для типа ресурса
}

// OK возвращает true, если запрос завершился без ошибки
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// HasValue возвращает true, если в Value есть загруженные данные
func (r Result[T]) HasValue() bool {
	return !r.UpdatedAt.IsZero()
}

// call - ожидающая загрузка, к которой присоединяются поздние запросы
type call struct {
	done  chan struct{}
	value any
	err   error
}

// entry - запись кэша для одного ResourceID
type entry struct {
	value      any
	updatedAt  time.Time // нулевое - значения нет
	lastAccess time.Time
	inflight   *call
}

// Orchestrator - кэш запросов с дедупликацией загрузок.
// Мьютекс защищает только карту записей и никогда не удерживается во время загрузки,
// поэтому запросы разных ресурсов выполняются параллельно.
type Orchestrator struct {
	config  Config
	metrics *Metrics
	log     *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[catalog.ResourceID]*entry
}

// New создает оркестратор. config и metrics могут быть nil.
func New(config *Config, metrics *Metrics) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query config: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Orchestrator{
		config:  *config,
		metrics: metrics,
		log:     logger.Named("query"),
		now:     time.Now,
		entries: make(map[catalog.ResourceID]*entry),
	}, nil
}

// MustNew как New, но паникует при ошибке конфигурации
func MustNew(config *Config, metrics *Metrics) *Orchestrator {
	o, err := New(config, metrics)
	if err != nil {
		panic(err)
	}
	return o
}

// queryOptions - параметры одного запроса
type queryOptions struct {
	enabled   bool
	staleTime time.Duration
	force     bool
}

// Option настраивает отдельный запрос
type Option func(*queryOptions)

// Enabled задает условие выполнения. При false загрузка не выполняется,
// и возвращается пустое значение для типа ресурса.
func Enabled(enabled bool) Option {
	return func(o *queryOptions) {
		o.enabled = enabled
	}
}

// StaleTime переопределяет окно свежести для запроса
func StaleTime(d time.Duration) Option {
	return func(o *queryOptions) {
		o.staleTime = d
	}
}

// Refetch принудительно загружает ресурс, даже если кэш свежий
func Refetch() Option {
	return func(o *queryOptions) {
		o.force = true
	}
}

// Query возвращает значение ресурса id из кэша или загружает его через fetch.
// Одновременные вызовы с одинаковым id разделяют одну загрузку.
// Отмена ctx прерывает только ожидание: загрузка продолжается и заполняет кэш.
func Query[T any](ctx context.Context, o *Orchestrator, id catalog.ResourceID, fetch FetchFunc[T], opts ...Option) Result[T] {
	qo := queryOptions{enabled: true, staleTime: o.config.StaleTime}
	for _, opt := range opts {
		opt(&qo)
	}

	if !qo.enabled {
		o.log.Debug("Query %s disabled, returning empty value", id)
		return Result[T]{Value: emptyValue[T](id.Kind), Disabled: true}
	}

	o.mu.Lock()
	e, ok := o.entries[id]
	if !ok {
		e = &entry{}
		o.entries[id] = e
		o.metrics.Entries.Set(float64(len(o.entries)))
	}
	e.lastAccess = o.now()

	if !qo.force && !e.updatedAt.IsZero() && o.now().Sub(e.updatedAt) < qo.staleTime {
		if v, ok := e.value.(T); ok {
			res := Result[T]{Value: v, UpdatedAt: e.updatedAt, FromCache: true}
			o.mu.Unlock()
			o.metrics.CacheHitsTotal.Inc()
			return res
		}
	}

	c := e.inflight
	if c != nil {
		o.metrics.CollapsedTotal.Inc()
		o.log.Debug("Query %s attached to in-flight fetch", id)
	} else {
		o.metrics.CacheMissesTotal.Inc()
		c = &call{done: make(chan struct{})}
		e.inflight = c
		// Загрузка не должна зависеть от отмены вызывающего
		fetchCtx := context.WithoutCancel(ctx)
		go o.run(fetchCtx, id, e, c, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	}
	o.mu.Unlock()

	select {
	case <-c.done:
	case <-ctx.Done():
		res := cachedResult[T](o, id)
		res.Err = ctx.Err()
		res.Stale = res.HasValue()
		return res
	}

	if c.err != nil {
		res := cachedResult[T](o, id)
		res.Err = c.err
		res.Stale = res.HasValue()
		return res
	}

	v, _ := c.value.(T)
	o.mu.Lock()
	updatedAt := e.updatedAt
	o.mu.Unlock()
	return Result[T]{Value: v, UpdatedAt: updatedAt}
}

// run выполняет загрузку с повторами и публикует результат в запись
func (o *Orchestrator) run(ctx context.Context, id catalog.ResourceID, e *entry, c *call, fetch FetchFunc[any]) {
	ctx, cancel := context.WithTimeout(ctx, o.config.FetchTimeout)
	defer cancel()

	start := o.now()
	value, err := o.attempt(ctx, id, fetch)
	o.metrics.FetchLatency.WithLabelValues(string(id.Kind)).Observe(o.now().Sub(start).Seconds())

	o.mu.Lock()
	if err != nil {
		o.metrics.FetchesTotal.WithLabelValues(string(id.Kind), "failure").Inc()
		o.log.Warn("Fetch %s failed: %v", id, err)
		// Запись без значения не хранится
		if e.updatedAt.IsZero() {
			o.removeLocked(id, e)
		}
	} else {
		e.value = value
		e.updatedAt = o.now()
		o.metrics.FetchesTotal.WithLabelValues(string(id.Kind), "success").Inc()
	}
	e.inflight = nil
	c.value, c.err = value, err
	o.mu.Unlock()

	close(c.done)
}

// attempt вызывает fetch до 1+Retries раз. Ошибки валидации не повторяются.
func (o *Orchestrator) attempt(ctx context.Context, id catalog.ResourceID, fetch FetchFunc[any]) (value any, err error) {
	for i := 0; i <= o.config.Retries; i++ {
		if i > 0 {
			o.log.Debug("Retrying fetch %s (attempt %d/%d)", id, i+1, o.config.Retries+1)
			select {
			case <-time.After(o.config.RetryDelay):
			case <-ctx.Done():
				return nil, errors.Join(err, ctx.Err())
			}
		}
		value, err = safeFetch(ctx, fetch)
		if err == nil || catalog.IsValidationError(err) {
			return value, err
		}
	}
	return nil, err
}

// safeFetch превращает панику в загрузчике в ошибку, чтобы ожидающие не зависли
func safeFetch(ctx context.Context, fetch FetchFunc[any]) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

// cachedResult возвращает последнее успешное значение записи
func cachedResult[T any](o *Orchestrator, id catalog.ResourceID) Result[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	if !ok || e.updatedAt.IsZero() {
		return Result[T]{}
	}
	v, ok := e.value.(T)
	if !ok {
		return Result[T]{}
	}
	return Result[T]{Value: v, UpdatedAt: e.updatedAt}
}

// emptyValue приводит пустое значение типа ресурса к T
func emptyValue[T any](kind catalog.ResourceKind) T {
	if v, ok := catalog.Empty(kind).(T); ok {
		return v
	}
	var zero T
	return zero
}

// Len возвращает количество записей кэша
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Collect удаляет записи, к которым не обращались дольше GCTime.
// Записи с идущей загрузкой не удаляются. Возвращает число удаленных записей.
func (o *Orchestrator) Collect() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	removed := 0
	for id, e := range o.entries {
		if e.inflight != nil || now.Sub(e.lastAccess) < o.config.GCTime {
			continue
		}
		o.removeLocked(id, e)
		removed++
	}
	if removed > 0 {
		o.metrics.EvictedTotal.Add(float64(removed))
		o.log.Debug("Collected %d inactive entries, %d left", removed, len(o.entries))
	}
	return removed
}

// RunGC периодически вызывает Collect до отмены ctx
func (o *Orchestrator) RunGC(ctx context.Context) {
	interval := o.config.GCTime / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Collect()
		}
	}
}

// removeLocked удаляет запись id, если она все еще e. Вызывается под o.mu.
func (o *Orchestrator) removeLocked(id catalog.ResourceID, e *entry) {
	if o.entries[id] != e {
		return
	}
	delete(o.entries, id)
	o.metrics.Entries.Set(float64(len(o.entries)))
}
