package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubgateway/catalog"
)

// stubAPI отвечает фиксированными данными и считает обращения к листингам
type stubAPI struct {
	listCalls     int32
	activityCalls int32
	listErr       error
}

func (s *stubAPI) ListPlugins(ctx context.Context) ([]catalog.PluginSummary, error) {
	atomic.AddInt32(&s.listCalls, 1)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []catalog.PluginSummary{{Name: "napari-foo"}, {Name: "napari-bar"}}, nil
}

func (s *stubAPI) GetPlugin(ctx context.Context, name string) (*catalog.PluginDetail, error) {
	return &catalog.PluginDetail{Name: name}, nil
}

func (s *stubAPI) GetActivity(ctx context.Context, name string) ([]catalog.DataPoint, error) {
	return []catalog.DataPoint{{X: 1, Y: 1}}, nil
}

func (s *stubAPI) GetInstallStats(ctx context.Context, name string) (*catalog.InstallStats, error) {
	return &catalog.InstallStats{TotalInstalls: 1}, nil
}

func (s *stubAPI) GetRecentInstallStats(ctx context.Context, name string) (*catalog.RecentInstallStats, error) {
	return &catalog.RecentInstallStats{InstallsInLast30Days: 1}, nil
}

func (s *stubAPI) GetMetrics(ctx context.Context, name string) (*catalog.PluginMetrics, error) {
	return &catalog.PluginMetrics{}, nil
}

func (s *stubAPI) ListActivityPlugins(ctx context.Context) ([]string, error) {
	atomic.AddInt32(&s.activityCalls, 1)
	return []string{"napari-foo"}, nil
}

func TestPrefetchPopulatesCache(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	api := &stubAPI{}

	err := Prefetch(context.Background(), o,
		CatalogSpec(api, catalog.ActivityID("napari-foo")),
		CatalogSpec(api, catalog.InstallStatsID("napari-foo")),
		CatalogSpec(api, catalog.PluginDetailID("napari-foo")),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, o.Len())

	points, ok := peek[[]catalog.DataPoint](o, catalog.ActivityID("napari-foo"))
	require.True(t, ok)
	assert.Len(t, points, 1)

	detail, ok := peek[*catalog.PluginDetail](o, catalog.PluginDetailID("napari-foo"))
	require.True(t, ok)
	assert.Equal(t, "napari-foo", detail.Name)
}

func TestPrefetchSkipsDisabledSpecs(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	api := &stubAPI{}

	spec := CatalogSpec(api, catalog.PluginListingID())
	spec.Enabled = false
	require.NoError(t, Prefetch(context.Background(), o, spec))
	assert.Equal(t, int32(0), atomic.LoadInt32(&api.listCalls))
}

func TestWarmer(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	api := &stubAPI{}
	warmer := NewWarmer(o, api, 0)

	require.NoError(t, warmer.Warm(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.listCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.activityCalls))

	// Повторный прогрев при свежем кэше не ходит в каталог
	require.NoError(t, warmer.Warm(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.listCalls))

	// Run с нулевым интервалом прогревает однократно и возвращается
	warmer.Run(context.Background())

	plugins, ok := peek[[]catalog.PluginSummary](o, catalog.PluginListingID())
	require.True(t, ok)
	assert.Len(t, plugins, 2)
}

func TestWarmerReportsFailure(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	api := &stubAPI{listErr: errors.New("connection refused")}

	err := NewWarmer(o, api, 0).Warm(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	// Листинг активности прогрет несмотря на ошибку соседнего запроса
	_, ok := peek[[]string](o, catalog.ActivityPluginsID())
	assert.True(t, ok)
}
