package apigw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"hubgateway/logger"
	"hubgateway/pathmatch"
)

// endpoint - обработчики одного шаблона пути по методам
type endpoint struct {
	pattern  string
	handlers map[string]http.Handler
}

func (e *endpoint) allowed() string {
	methods := make([]string, 0, len(e.handlers))
	for m := range e.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// Gateway представляет модуль API Gateway: маршрутизатор BFF-маршрутов
// с метриками, логированием и цепочкой middleware
type Gateway struct {
	config     Config
	routes     *pathmatch.Table[*endpoint]
	endpoints  map[string]*endpoint
	middleware []Middleware
	server     *http.Server
	metrics    *Metrics
	log        *logger.Logger
}

// New создает новый экземпляр API Gateway. metrics может быть nil.
func New(config Config, metrics *Metrics) *Gateway {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Gateway{
		config:    config,
		routes:    pathmatch.NewTable[*endpoint](),
		endpoints: make(map[string]*endpoint),
		metrics:   metrics,
		log:       logger.Named("apigw"),
	}
}

// Handle регистрирует обработчик для метода и шаблона пути.
// Шаблоны сопоставляются в порядке регистрации.
func (gw *Gateway) Handle(method, pattern string, h http.Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for %s %s", method, pattern)
	}
	method = strings.ToUpper(method)

	ep, ok := gw.endpoints[pattern]
	if !ok {
		ep = &endpoint{pattern: pattern, handlers: make(map[string]http.Handler)}
		if err := gw.routes.Add(pattern, ep); err != nil {
			return fmt.Errorf("invalid route %s %s: %w", method, pattern, err)
		}
		gw.endpoints[pattern] = ep
	}
	if _, dup := ep.handlers[method]; dup {
		return fmt.Errorf("route %s %s registered twice", method, pattern)
	}
	ep.handlers[method] = h
	return nil
}

// HandleFunc регистрирует HandlerFunc, обернутый в Wrap
func (gw *Gateway) HandleFunc(method, pattern string, h HandlerFunc) error {
	return gw.Handle(method, pattern, Wrap(h))
}

// Register регистрирует набор маршрутов
func (gw *Gateway) Register(routes ...Route) error {
	for _, r := range routes {
		if err := gw.Handle(r.Method, r.Pattern, r.Handler); err != nil {
			return err
		}
	}
	return nil
}

// Use добавляет middleware. Первый добавленный выполняется первым.
func (gw *Gateway) Use(mw ...Middleware) {
	gw.middleware = append(gw.middleware, mw...)
}

// Routes возвращает зарегистрированные маршруты в порядке сопоставления
func (gw *Gateway) Routes() []Route {
	var out []Route
	for _, r := range gw.routes.Routes() {
		ep := r.Value
		methods := make([]string, 0, len(ep.handlers))
		for m := range ep.handlers {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			out = append(out, Route{Method: m, Pattern: ep.pattern, Handler: ep.handlers[m]})
		}
	}
	return out
}

// ServeHTTP реализует интерфейс http.Handler
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	tw := newTrackingWriter(w)

	gw.log.Info("Incoming request: %s %s", r.Method, r.URL.Path)
	gw.log.Debug("Request headers: %+v", r.Header)

	route := "unmatched"
	ep, params, ok := gw.routes.Lookup(r.URL.Path)
	switch {
	case !ok:
		gw.writeError(tw, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	default:
		route = ep.pattern
		h, allowed := ep.handlers[r.Method]
		if !allowed && r.Method == http.MethodHead {
			h, allowed = ep.handlers[http.MethodGet]
		}
		if !allowed {
			tw.Header().Set("Allow", ep.allowed())
			gw.writeError(tw, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			break
		}
		gw.chain(h).ServeHTTP(tw, r.WithContext(withParams(r.Context(), params)))
	}

	latency := time.Since(start)
	gw.log.Info("Response sent: %d, %.3f ms", tw.status, float64(latency.Microseconds())/1000.0)

	gw.metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(tw.status)).Inc()
	gw.metrics.RequestLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// chain оборачивает обработчик зарегистрированными middleware
func (gw *Gateway) chain(h http.Handler) http.Handler {
	for i := len(gw.middleware) - 1; i >= 0; i-- {
		h = gw.middleware[i](h)
	}
	return h
}

// Start запускает сервер и блокируется до его остановки
func (gw *Gateway) Start() error {
	gw.server = &http.Server{
		Addr:         gw.config.ListenAddress,
		Handler:      gw,
		ReadTimeout:  gw.config.ReadTimeout,
		WriteTimeout: gw.config.WriteTimeout,
	}

	gw.log.Info("Starting API Gateway on %s", gw.config.ListenAddress)

	var err error
	if gw.config.TLSCertFile != "" && gw.config.TLSKeyFile != "" {
		gw.log.Info("Starting HTTPS server with TLS")
		err = gw.server.ListenAndServeTLS(gw.config.TLSCertFile, gw.config.TLSKeyFile)
	} else {
		gw.log.Info("Starting HTTP server")
		err = gw.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает сервер
func (gw *Gateway) Stop(ctx context.Context) error {
	if gw.server == nil {
		return nil
	}

	gw.log.Info("Stopping API Gateway...")
	return gw.server.Shutdown(ctx)
}

// writeError отвечает конвертом ошибки маршрутизации
func (gw *Gateway) writeError(w http.ResponseWriter, status int, err error) {
	if writeErr := WriteError(w, status, err); writeErr != nil {
		gw.log.Error("Failed to write error response: %v", writeErr)
	}
}
