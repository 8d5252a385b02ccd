// Package proxy - отдельный процесс, пересылающий запросы листинга и
// карточек плагинов в каталог без изменений.
package proxy

import (
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hubgateway/apigw"
	"hubgateway/catalog"
	"hubgateway/logger"
	"hubgateway/pathmatch"
)

// ForwardError - каталог не ответил на пересылаемый запрос
type ForwardError struct {
	Route string
	Err   error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("upstream request for %s failed: %v", e.Route, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// HTTPStatus - ответ на сетевую ошибку каталога
func (e *ForwardError) HTTPStatus() int {
	return http.StatusBadGateway
}

// hop-by-hop заголовки не пересылаются
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy пересылает GET /plugins и GET /plugins/:name в каталог
type Proxy struct {
	upstream *url.URL
	client   *http.Client
	routes   *pathmatch.Table[string]
	metrics  *Metrics
	log      *logger.Logger
}

// New создает прокси. metrics может быть nil.
func New(config Config, metrics *Metrics) (*Proxy, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proxy config: %w", err)
	}
	upstream, err := url.Parse(config.Upstream)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	routes := pathmatch.NewTable[string]()
	routes.MustAdd("/plugins", "/plugins")
	routes.MustAdd("/plugins/:name", "/plugins/:name")

	return &Proxy{
		upstream: upstream,
		client:   &http.Client{Timeout: config.Timeout},
		routes:   routes,
		metrics:  metrics,
		log:      logger.Named("proxy"),
	}, nil
}

// WithHTTPClient заменяет HTTP-клиент для запросов к каталогу
func (p *Proxy) WithHTTPClient(hc *http.Client) *Proxy {
	p.client = hc
	return p
}

// Upstream возвращает базовый URL каталога
func (p *Proxy) Upstream() string {
	return p.upstream.String()
}

// ServeHTTP реализует интерфейс http.Handler
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	route, params, ok := p.routes.Lookup(r.URL.Path)
	if !ok {
		route = "unmatched"
	}

	status := p.serve(w, r, route, params, ok)

	latency := time.Since(start)
	p.log.Info("%s %s -> %d, %.3f ms", r.Method, r.URL.Path, status, float64(latency.Microseconds())/1000.0)
	p.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	p.metrics.RequestLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// serve обрабатывает запрос и возвращает отправленный статус
func (p *Proxy) serve(w http.ResponseWriter, r *http.Request, route string, params pathmatch.Params, matched bool) int {
	if !matched {
		return p.fail(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return p.fail(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
	if name, ok := params["name"]; ok {
		if err := catalog.ValidatePluginName(name); err != nil {
			return p.fail(w, http.StatusBadRequest, err)
		}
	}

	resp, err := p.forward(r)
	if err != nil {
		p.metrics.ForwardErrors.Inc()
		ferr := &ForwardError{Route: route, Err: err}
		p.log.Error("%v", ferr)
		return p.fail(w, ferr.HTTPStatus(), ferr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Warn("Upstream returned %d for %s, relaying as is", resp.StatusCode, r.URL.Path)
	}

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if r.Method != http.MethodHead {
		if _, err := io.Copy(w, resp.Body); err != nil {
			// Статус уже отправлен, остается только залогировать обрыв
			p.log.Warn("Failed to relay body for %s: %v", r.URL.Path, err)
		}
	}
	return resp.StatusCode
}

// forward выполняет эквивалентный запрос к каталогу
func (p *Proxy) forward(r *http.Request) (*http.Response, error) {
	target := *p.upstream
	target.Path = strings.TrimSuffix(p.upstream.Path, "/") + r.URL.Path
	target.RawPath = ""
	if r.URL.RawPath != "" {
		target.RawPath = strings.TrimSuffix(p.upstream.EscapedPath(), "/") + r.URL.RawPath
	}
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	copyHeaders(req.Header, r.Header)
	req.Header.Del("Host")
	// Тело должно дойти до клиента байт в байт
	req.Header.Set("Accept-Encoding", "identity")

	p.log.Debug("Forwarding %s %s to %s", r.Method, r.URL.RequestURI(), target.String())
	return p.client.Do(req)
}

// fail записывает конверт ошибки и возвращает статус
func (p *Proxy) fail(w http.ResponseWriter, status int, err error) int {
	if writeErr := apigw.WriteError(w, status, err); writeErr != nil {
		p.log.Debug("Failed to write error response: %v", writeErr)
	}
	return status
}

// copyHeaders копирует заголовки без hop-by-hop, включая перечисленные в Connection
func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				dst.Del(name)
			}
		}
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}
