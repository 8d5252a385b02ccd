package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hubgateway/catalog"
)

// MockCatalog - тестовая реализация catalog.API на testify/mock
type MockCatalog struct {
	mock.Mock
}

// NewMockCatalog создает новый экземпляр тестового каталога
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{}
}

// result извлекает типизированное значение из аргументов вызова (nil допустим)
func result[T any](args mock.Arguments) (T, error) {
	var zero T
	if args.Get(0) == nil {
		return zero, args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

func (m *MockCatalog) ListPlugins(ctx context.Context) ([]catalog.PluginSummary, error) {
	return result[[]catalog.PluginSummary](m.Called())
}

func (m *MockCatalog) GetPlugin(ctx context.Context, name string) (*catalog.PluginDetail, error) {
	return result[*catalog.PluginDetail](m.Called(name))
}

func (m *MockCatalog) GetActivity(ctx context.Context, name string) ([]catalog.DataPoint, error) {
	return result[[]catalog.DataPoint](m.Called(name))
}

func (m *MockCatalog) GetInstallStats(ctx context.Context, name string) (*catalog.InstallStats, error) {
	return result[*catalog.InstallStats](m.Called(name))
}

func (m *MockCatalog) GetRecentInstallStats(ctx context.Context, name string) (*catalog.RecentInstallStats, error) {
	return result[*catalog.RecentInstallStats](m.Called(name))
}

func (m *MockCatalog) GetMetrics(ctx context.Context, name string) (*catalog.PluginMetrics, error) {
	return result[*catalog.PluginMetrics](m.Called(name))
}

func (m *MockCatalog) ListActivityPlugins(ctx context.Context) ([]string, error) {
	return result[[]string](m.Called())
}

var _ catalog.API = (*MockCatalog)(nil)
