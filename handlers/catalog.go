// Package handlers содержит BFF-маршруты хаба: каждый маршрут обращается
// к каталогу и отдает результат в стандартном конверте apigw.
package handlers

import (
	"context"
	"net/http"

	"hubgateway/apigw"
	"hubgateway/catalog"
	"hubgateway/logger"
	"hubgateway/pagemeta"
	"hubgateway/query"
)

// Handlers - BFF-маршруты поверх клиента каталога
type Handlers struct {
	api          catalog.API
	orchestrator *query.Orchestrator
	pages        *pagemeta.Matcher
	log          *logger.Logger
}

// New создает обработчики. orchestrator и pages могут быть nil:
// тогда используются кэш по умолчанию и реестр страниц хаба.
func New(api catalog.API, orchestrator *query.Orchestrator, pages *pagemeta.Matcher) *Handlers {
	if orchestrator == nil {
		orchestrator = query.MustNew(nil, nil)
	}
	if pages == nil {
		pages = pagemeta.DefaultMatcher()
	}
	return &Handlers{
		api:          api,
		orchestrator: orchestrator,
		pages:        pages,
		log:          logger.Named("handlers"),
	}
}

// Routes возвращает таблицу маршрутов. Литеральные пути идут раньше
// параметрических с тем же префиксом.
func (h *Handlers) Routes() []apigw.Route {
	return []apigw.Route{
		{Method: http.MethodGet, Pattern: "/api/health", Handler: http.HandlerFunc(h.Health)},
		{Method: http.MethodGet, Pattern: "/api/activity/plugins", Handler: apigw.Wrap(h.ActivityPlugins)},
		{Method: http.MethodGet, Pattern: "/api/activity/:name", Handler: apigw.Wrap(h.Activity)},
		{Method: http.MethodGet, Pattern: "/api/activity/:name/recentStats", Handler: apigw.Wrap(h.RecentStats)},
		{Method: http.MethodGet, Pattern: "/api/activity/:name/stats", Handler: apigw.Wrap(h.Stats)},
		{Method: http.MethodGet, Pattern: "/api/metrics/:name", Handler: apigw.Wrap(h.Metrics)},
		{Method: http.MethodGet, Pattern: "/api/plugins", Handler: apigw.Wrap(h.Plugins)},
		{Method: http.MethodGet, Pattern: "/api/plugins/:name/page", Handler: apigw.Wrap(h.PluginPage)},
		{Method: http.MethodGet, Pattern: "/api/meta", Handler: apigw.Wrap(h.Meta)},
	}
}

// pluginName извлекает и проверяет имя плагина из пути
func pluginName(r *http.Request) (string, error) {
	name := apigw.Param(r, "name")
	if err := catalog.ValidatePluginName(name); err != nil {
		return "", err
	}
	return name, nil
}

// Health всегда отвечает {"status":"ok"} и не зависит от каталога
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := apigw.WriteOK(w, nil); err != nil {
		h.log.Error("Failed to write health response: %v", err)
	}
}

type pointsBody struct {
	Points []catalog.DataPoint `json:"points"`
}

type pluginsBody[T any] struct {
	Plugins []T `json:"plugins"`
}

// Activity - GET /api/activity/:name
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) error {
	name, err := pluginName(r)
	if err != nil {
		return err
	}
	points, err := h.api.GetActivity(r.Context(), name)
	if err != nil {
		return err
	}
	return apigw.WriteOK(w, pointsBody{Points: points})
}

// RecentStats - GET /api/activity/:name/recentStats
func (h *Handlers) RecentStats(w http.ResponseWriter, r *http.Request) error {
	name, err := pluginName(r)
	if err != nil {
		return err
	}
	stats, err := h.api.GetRecentInstallStats(r.Context(), name)
	if err != nil {
		return err
	}
	return apigw.WriteOK(w, stats)
}

// Stats - GET /api/activity/:name/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) error {
	name, err := pluginName(r)
	if err != nil {
		return err
	}
	stats, err := h.api.GetInstallStats(r.Context(), name)
	if err != nil {
		return err
	}
	return apigw.WriteOK(w, stats)
}

// ActivityPlugins - GET /api/activity/plugins
func (h *Handlers) ActivityPlugins(w http.ResponseWriter, r *http.Request) error {
	names, err := h.api.ListActivityPlugins(r.Context())
	if err != nil {
		return err
	}
	return apigw.WriteOK(w, pluginsBody[string]{Plugins: names})
}

// Metrics - GET /api/metrics/:name
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) error {
	name, err := pluginName(r)
	if err != nil {
		return err
	}
	metrics, err := h.api.GetMetrics(r.Context(), name)
	if err != nil {
		return err
	}
	return apigw.WriteOK(w, metrics)
}

// Plugins - GET /api/plugins. Листинг отдается из кэша запросов.
func (h *Handlers) Plugins(w http.ResponseWriter, r *http.Request) error {
	res := query.Query(r.Context(), h.orchestrator, catalog.PluginListingID(),
		func(ctx context.Context) ([]catalog.PluginSummary, error) {
			return h.api.ListPlugins(ctx)
		})
	if res.Err != nil && !res.HasValue() {
		return res.Err
	}
	if res.Stale {
		h.log.Warn("Serving stale plugin listing: %v", res.Err)
	}
	return apigw.WriteOK(w, pluginsBody[catalog.PluginSummary]{Plugins: res.Value})
}

type metaBody struct {
	Path  string             `json:"path"`
	Found bool               `json:"found"`
	Meta  *pagemeta.Metadata `json:"meta"`
}

// Meta - GET /api/meta?path=/plugins/x. Разрешает метаданные страницы по пути.
func (h *Handlers) Meta(w http.ResponseWriter, r *http.Request) error {
	path := r.URL.Query().Get("path")
	if path == "" {
		return &catalog.ValidationError{Field: "path", Reason: "must not be empty"}
	}
	body := metaBody{Path: path}
	if m, ok := h.pages.Resolve(path); ok {
		body.Found = true
		body.Meta = &m.Meta
	}
	return apigw.WriteOK(w, body)
}
