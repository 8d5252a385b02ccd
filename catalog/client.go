package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hubgateway/logger"
)

// API - операции каталога, которыми пользуются BFF-обработчики и оркестратор
type API interface {
	ListPlugins(ctx context.Context) ([]PluginSummary, error)
	GetPlugin(ctx context.Context, name string) (*PluginDetail, error)
	GetActivity(ctx context.Context, name string) ([]DataPoint, error)
	GetInstallStats(ctx context.Context, name string) (*InstallStats, error)
	GetRecentInstallStats(ctx context.Context, name string) (*RecentInstallStats, error)
	GetMetrics(ctx context.Context, name string) (*PluginMetrics, error)
	ListActivityPlugins(ctx context.Context) ([]string, error)
}

// maxErrorBody ограничивает объем тела ошибки, попадающий в сообщение
const maxErrorBody = 4 << 10

// Client - HTTP клиент апстрим-каталога. Каждый вызов - ровно одна попытка,
// политика повторов принадлежит вызывающей стороне.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	metrics    *Metrics
	log        *logger.Logger
}

// NewClient создает клиента. metrics может быть nil.
func NewClient(config *Config, metrics *Metrics) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog config: %w", err)
	}
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Client{
		baseURL:    base,
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
		metrics:    metrics,
		log:        logger.Named("catalog"),
	}, nil
}

// WithHTTPClient подменяет транспорт (для тестов и кастомных таймаутов)
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL возвращает базовый адрес апстрима
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) ListPlugins(ctx context.Context) ([]PluginSummary, error) {
	var out []PluginSummary
	if err := c.getJSON(ctx, PluginListingID(), "plugins", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []PluginSummary{}
	}
	return out, nil
}

func (c *Client) GetPlugin(ctx context.Context, name string) (*PluginDetail, error) {
	if err := ValidatePluginName(name); err != nil {
		return nil, err
	}
	id := PluginDetailID(name)
	body, err := c.get(ctx, id, "plugins/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	var detail PluginDetail
	if err := decode(id, body, &detail); err != nil {
		return nil, err
	}
	detail.Raw = json.RawMessage(body)
	return &detail, nil
}

func (c *Client) GetActivity(ctx context.Context, name string) ([]DataPoint, error) {
	if err := ValidatePluginName(name); err != nil {
		return nil, err
	}
	var out []DataPoint
	if err := c.getJSON(ctx, ActivityID(name), "activity/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []DataPoint{}
	}
	return out, nil
}

func (c *Client) GetInstallStats(ctx context.Context, name string) (*InstallStats, error) {
	if err := ValidatePluginName(name); err != nil {
		return nil, err
	}
	var out InstallStats
	if err := c.getJSON(ctx, InstallStatsID(name), "activity/"+url.PathEscape(name)+"/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRecentInstallStats(ctx context.Context, name string) (*RecentInstallStats, error) {
	if err := ValidatePluginName(name); err != nil {
		return nil, err
	}
	var out RecentInstallStats
	if err := c.getJSON(ctx, RecentInstallStatsID(name), "activity/"+url.PathEscape(name)+"/recentStats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetMetrics(ctx context.Context, name string) (*PluginMetrics, error) {
	if err := ValidatePluginName(name); err != nil {
		return nil, err
	}
	var out PluginMetrics
	if err := c.getJSON(ctx, MetricsID(name), "metrics/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListActivityPlugins(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, ActivityPluginsID(), "activity/plugins", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Fetch загружает ресурс по идентификатору
func Fetch(ctx context.Context, api API, id ResourceID) (any, error) {
	switch id.Kind {
	case KindActivity:
		return api.GetActivity(ctx, id.Plugin)
	case KindInstallStats:
		return api.GetInstallStats(ctx, id.Plugin)
	case KindRecentInstallStats:
		return api.GetRecentInstallStats(ctx, id.Plugin)
	case KindMetrics:
		return api.GetMetrics(ctx, id.Plugin)
	case KindPluginDetail:
		return api.GetPlugin(ctx, id.Plugin)
	case KindPluginListing:
		return api.ListPlugins(ctx)
	case KindActivityPlugins:
		return api.ListActivityPlugins(ctx)
	default:
		return nil, fmt.Errorf("unsupported resource kind %q", id.Kind)
	}
}

// getJSON выполняет GET и декодирует JSON-ответ в out
func (c *Client) getJSON(ctx context.Context, id ResourceID, path string, out any) error {
	body, err := c.get(ctx, id, path)
	if err != nil {
		return err
	}
	return decode(id, body, out)
}

// get выполняет GET {base}/{path} и возвращает тело 2xx-ответа.
// path передается в экранированном виде.
func (c *Client) get(ctx context.Context, id ResourceID, path string) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &UpstreamError{Resource: id, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.log.Debug("GET %s (%s)", endpoint.String(), id)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RequestLatency.WithLabelValues(string(id.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RequestsTotal.WithLabelValues(string(id.Kind), "error").Inc()
		c.log.Warn("Upstream request for %s failed: %v", id, err)
		return nil, &UpstreamError{Resource: id, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	c.metrics.RequestsTotal.WithLabelValues(string(id.Kind), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(raw, resp.Status)
		c.log.Debug("Upstream returned %d for %s: %s", resp.StatusCode, id, msg)
		return nil, &UpstreamError{Resource: id, StatusCode: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{
			Resource:   id,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read body: %v", err),
			Err:        err,
		}
	}
	return body, nil
}

// decode разбирает тело ответа. Невалидный JSON от апстрима - тоже UpstreamError.
func decode(id ResourceID, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{
			Resource:   id,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("invalid JSON payload: %v", err),
			Err:        err,
		}
	}
	return nil
}

// errorMessage извлекает сообщение из тела ошибки апстрима:
// поле "error" или "message" JSON-объекта, иначе обрезанное тело.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	return text
}

// AsUpstreamError достает UpstreamError из цепочки ошибок
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
