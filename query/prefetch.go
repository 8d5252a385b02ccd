package query

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"hubgateway/catalog"
)

// Spec описывает одну загрузку для Prefetch
type Spec struct {
	ID      catalog.ResourceID
	Fetch   FetchFunc[any]
	Enabled bool
	Refetch bool // загрузить даже при свежем кэше
}

// CatalogSpec возвращает Spec, загружающий ресурс через клиент каталога
func CatalogSpec(api catalog.API, id catalog.ResourceID) Spec {
	return Spec{
		ID:      id,
		Enabled: true,
		Fetch: func(ctx context.Context) (any, error) {
			return catalog.Fetch(ctx, api, id)
		},
	}
}

// maxPrefetchConcurrency ограничивает число параллельных загрузок Prefetch
const maxPrefetchConcurrency = 8

// Prefetch параллельно выполняет запросы и заполняет кэш.
// Возвращает первую ошибку загрузки; остальные запросы при этом не прерываются.
func Prefetch(ctx context.Context, o *Orchestrator, specs ...Spec) error {
	var g errgroup.Group
	g.SetLimit(maxPrefetchConcurrency)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			opts := []Option{Enabled(spec.Enabled)}
			if spec.Refetch {
				opts = append(opts, Refetch())
			}
			return Query(ctx, o, spec.ID, spec.Fetch, opts...).Err
		})
	}
	return g.Wait()
}

// Warmer периодически прогревает кэш листингов каталога
type Warmer struct {
	orchestrator *Orchestrator
	api          catalog.API
	interval     time.Duration
}

// NewWarmer создает прогреватель. interval 0 - только однократный прогрев.
func NewWarmer(o *Orchestrator, api catalog.API, interval time.Duration) *Warmer {
	return &Warmer{orchestrator: o, api: api, interval: interval}
}

// Warm загружает листинги каталога в кэш
func (w *Warmer) Warm(ctx context.Context) error {
	start := time.Now()
	err := Prefetch(ctx, w.orchestrator, w.specs(false)...)
	if err != nil {
		w.orchestrator.log.Warn("Cache warmup failed after %s: %v", time.Since(start), err)
		return err
	}
	w.orchestrator.log.Info("Cache warmup completed in %s", time.Since(start))
	return nil
}

// Run выполняет прогрев сразу и затем с периодом interval до отмены ctx
func (w *Warmer) Run(ctx context.Context) {
	_ = w.Warm(ctx)
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := Prefetch(ctx, w.orchestrator, w.specs(true)...); err != nil {
				w.orchestrator.log.Warn("Periodic cache warmup failed: %v", err)
			}
		}
	}
}

func (w *Warmer) specs(refetch bool) []Spec {
	specs := []Spec{
		CatalogSpec(w.api, catalog.PluginListingID()),
		CatalogSpec(w.api, catalog.ActivityPluginsID()),
	}
	for i := range specs {
		specs[i].Refetch = refetch
	}
	return specs
}
