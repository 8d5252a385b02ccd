package catalog

import (
	"encoding/json"
)

// ResourceKind определяет тип ресурса каталога
type ResourceKind string

const (
	KindActivity           ResourceKind = "activity"
	KindInstallStats       ResourceKind = "install-stats"
	KindRecentInstallStats ResourceKind = "recent-install-stats"
	KindMetrics            ResourceKind = "metrics"
	KindPluginListing      ResourceKind = "plugin-listing"
	KindPluginDetail       ResourceKind = "plugin-detail"
	KindActivityPlugins    ResourceKind = "activity-plugins"
)

// String возвращает строковое представление типа ресурса
func (k ResourceKind) String() string {
	return string(k)
}

// IsListing возвращает true для ресурсов, не привязанных к плагину
func (k ResourceKind) IsListing() bool {
	return k == KindPluginListing || k == KindActivityPlugins
}

// Valid проверяет, что тип ресурса известен
func (k ResourceKind) Valid() bool {
	switch k {
	case KindActivity, KindInstallStats, KindRecentInstallStats, KindMetrics,
		KindPluginListing, KindPluginDetail, KindActivityPlugins:
		return true
	}
	return false
}

// ResourceID однозначно идентифицирует загружаемый ресурс.
// Используется как ключ кэша и ключ схлопывания запросов.
type ResourceID struct {
	Kind   ResourceKind
	Plugin string
}

// String возвращает "kind:plugin" или "kind" для листингов
func (id ResourceID) String() string {
	if id.Plugin == "" {
		return string(id.Kind)
	}
	return string(id.Kind) + ":" + id.Plugin
}

// Конструкторы идентификаторов
func ActivityID(plugin string) ResourceID {
	return ResourceID{Kind: KindActivity, Plugin: plugin}
}

func InstallStatsID(plugin string) ResourceID {
	return ResourceID{Kind: KindInstallStats, Plugin: plugin}
}

func RecentInstallStatsID(plugin string) ResourceID {
	return ResourceID{Kind: KindRecentInstallStats, Plugin: plugin}
}

func MetricsID(plugin string) ResourceID {
	return ResourceID{Kind: KindMetrics, Plugin: plugin}
}

func PluginDetailID(plugin string) ResourceID {
	return ResourceID{Kind: KindPluginDetail, Plugin: plugin}
}

func PluginListingID() ResourceID {
	return ResourceID{Kind: KindPluginListing}
}

func ActivityPluginsID() ResourceID {
	return ResourceID{Kind: KindActivityPlugins}
}

// PluginSummary - элемент листинга плагинов
type PluginSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Version     string `json:"version,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// PluginDetail - описание плагина. Raw хранит исходный JSON без потерь,
// остальные поля разобраны для удобства.
type PluginDetail struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Version     string `json:"version,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// MarshalJSON отдает исходный JSON, если он есть
func (p PluginDetail) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain PluginDetail
	return json.Marshal(plain(p))
}

// DataPoint - точка временного ряда установок
type DataPoint struct {
	X int64 `json:"x"` // unix ms, начало месяца
	Y int   `json:"y"` // количество установок
}

// InstallStats - суммарная статистика установок
type InstallStats struct {
	TotalInstalls     int `json:"totalInstalls"`
	InstallMonthCount int `json:"installMonthCount"`
}

// RecentInstallStats - установки за последние 30 дней
type RecentInstallStats struct {
	InstallsInLast30Days int `json:"installsInLast30Days"`
}

// UsageMetrics - блок использования в метриках плагина
type UsageMetrics struct {
	Timeline []DataPoint `json:"timeline"`
	Stats    struct {
		InstallsInLast30Days int `json:"installs_in_last_30_days"`
		TotalInstalls        int `json:"total_installs"`
	} `json:"stats"`
}

// MaintenanceMetrics - блок сопровождения в метриках плагина
type MaintenanceMetrics struct {
	Timeline []DataPoint `json:"timeline"`
	Stats    struct {
		LatestCommitTimestamp int64 `json:"latest_commit_timestamp,omitempty"`
		TotalCommits          int   `json:"total_commits"`
	} `json:"stats"`
}

// PluginMetrics - метрики плагина
type PluginMetrics struct {
	Usage       UsageMetrics       `json:"usage"`
	Maintenance MaintenanceMetrics `json:"maintenance"`
}

// Empty возвращает значение "пусто" для типа ресурса. Используется, когда
// запрос отключен и загрузка не выполнялась.
func Empty(kind ResourceKind) any {
	switch kind {
	case KindActivity:
		return []DataPoint{}
	case KindPluginListing:
		return []PluginSummary{}
	case KindActivityPlugins:
		return []string{}
	case KindInstallStats:
		return (*InstallStats)(nil)
	case KindRecentInstallStats:
		return (*RecentInstallStats)(nil)
	case KindMetrics:
		return (*PluginMetrics)(nil)
	case KindPluginDetail:
		return (*PluginDetail)(nil)
	default:
		return nil
	}
}
