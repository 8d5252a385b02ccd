package handlers

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"hubgateway/apigw"
	"hubgateway/catalog"
	"hubgateway/featureflag"
	"hubgateway/pagemeta"
	"hubgateway/query"
)

// Флаги, управляющие составом страницы плагина
const (
	FlagActivityDashboard = "activityDashboard"
	FlagPluginMetrics     = "pluginMetrics"
	FlagBanner            = "banner"
)

// Banner - конфигурация флага banner
type Banner struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// ActivitySection - данные вкладки активности
type ActivitySection struct {
	Points      []catalog.DataPoint         `json:"points"`
	Stats       *catalog.InstallStats       `json:"stats"`
	RecentStats *catalog.RecentInstallStats `json:"recentStats"`
}

// PageData - данные страницы плагина. Выключенные флагами разделы равны null.
type PageData struct {
	Plugin   *catalog.PluginDetail  `json:"plugin"`
	Activity *ActivitySection       `json:"activity"`
	Metrics  *catalog.PluginMetrics `json:"metrics"`
	Meta     *pagemeta.Metadata     `json:"meta"`
	Banner   *Banner                `json:"banner,omitempty"`
	Flags    []string               `json:"flags"`
	Stale    []string               `json:"stale,omitempty"`  // разделы, отданные из устаревшего кэша
	Errors   map[string]string      `json:"errors,omitempty"` // ошибки загрузки необязательных разделов
}

// pageErrors собирает ошибки и устаревшие разделы страницы
type pageErrors struct {
	stale  []string
	errors map[string]string
}

// track регистрирует результат запроса раздела и сообщает, есть ли значение
func track[T any](pe *pageErrors, section string, res query.Result[T]) bool {
	if res.Err != nil {
		if pe.errors == nil {
			pe.errors = make(map[string]string)
		}
		pe.errors[section] = res.Err.Error()
	}
	if res.Stale {
		pe.stale = append(pe.stale, section)
	}
	return res.Disabled || res.HasValue()
}

// PluginPage - GET /api/plugins/:name/page. Собирает данные страницы плагина
// через кэш запросов: разделы активности и метрик загружаются только при
// включенных флагах, карточка плагина обязательна.
func (h *Handlers) PluginPage(w http.ResponseWriter, r *http.Request) error {
	name, err := pluginName(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	gate := featureflag.FromContext(ctx)
	activityOn := gate.IsEnabled(FlagActivityDashboard)
	metricsOn := gate.IsEnabled(FlagPluginMetrics)

	var (
		pe      pageErrors
		plugin  query.Result[*catalog.PluginDetail]
		points  query.Result[[]catalog.DataPoint]
		stats   query.Result[*catalog.InstallStats]
		recent  query.Result[*catalog.RecentInstallStats]
		metrics query.Result[*catalog.PluginMetrics]
	)
	o := h.orchestrator
	// Без карточки плагина страницу не собрать: ее ошибка прерывает ожидание остальных разделов
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		plugin = query.Query(gctx, o, catalog.PluginDetailID(name),
			func(ctx context.Context) (*catalog.PluginDetail, error) {
				return h.api.GetPlugin(ctx, name)
			})
		if plugin.Err != nil && !plugin.HasValue() {
			return plugin.Err
		}
		return nil
	})
	g.Go(func() error {
		points = query.Query(gctx, o, catalog.ActivityID(name),
			func(ctx context.Context) ([]catalog.DataPoint, error) {
				return h.api.GetActivity(ctx, name)
			}, query.Enabled(activityOn))
		return nil
	})
	g.Go(func() error {
		stats = query.Query(gctx, o, catalog.InstallStatsID(name),
			func(ctx context.Context) (*catalog.InstallStats, error) {
				return h.api.GetInstallStats(ctx, name)
			}, query.Enabled(activityOn))
		return nil
	})
	g.Go(func() error {
		recent = query.Query(gctx, o, catalog.RecentInstallStatsID(name),
			func(ctx context.Context) (*catalog.RecentInstallStats, error) {
				return h.api.GetRecentInstallStats(ctx, name)
			}, query.Enabled(activityOn))
		return nil
	})
	g.Go(func() error {
		metrics = query.Query(gctx, o, catalog.MetricsID(name),
			func(ctx context.Context) (*catalog.PluginMetrics, error) {
				return h.api.GetMetrics(ctx, name)
			}, query.Enabled(metricsOn))
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	track(&pe, "plugin", plugin)

	page := PageData{
		Plugin: plugin.Value,
		Flags:  gate.Enabled(),
	}
	if page.Flags == nil {
		page.Flags = []string{}
	}

	if activityOn {
		okPoints := track(&pe, "activity", points)
		okStats := track(&pe, "stats", stats)
		okRecent := track(&pe, "recentStats", recent)
		if okPoints || okStats || okRecent {
			page.Activity = &ActivitySection{
				Points:      points.Value,
				Stats:       stats.Value,
				RecentStats: recent.Value,
			}
			if page.Activity.Points == nil {
				page.Activity.Points = []catalog.DataPoint{}
			}
		}
	}
	if metricsOn && track(&pe, "metrics", metrics) {
		page.Metrics = metrics.Value
	}

	if m, ok := h.pages.Resolve("/plugins/" + name); ok {
		page.Meta = &m.Meta
	}
	if banner, ok := featureflag.GetConfig[Banner](gate, FlagBanner); ok {
		page.Banner = &banner
	}

	page.Stale = pe.stale
	page.Errors = pe.errors
	if len(page.Errors) > 0 {
		h.log.Warn("Plugin page %s assembled with errors: %v", name, page.Errors)
	}
	return apigw.WriteOK(w, page)
}
