package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubgateway/catalog"
)

func newTestOrchestrator(t *testing.T, config *Config) (*Orchestrator, *Metrics) {
	t.Helper()
	metrics := NewMetrics(nil)
	o, err := New(config, metrics)
	require.NoError(t, err)
	return o, metrics
}

// peek возвращает значение из кэша без загрузки
func peek[T any](o *Orchestrator, id catalog.ResourceID) (T, bool) {
	res := cachedResult[T](o, id)
	return res.Value, res.HasValue()
}

// blockingFetch возвращает загрузчик, который ждет release и считает вызовы
func blockingFetch[T any](value T, release <-chan struct{}, calls *int32) FetchFunc[T] {
	return func(ctx context.Context) (T, error) {
		atomic.AddInt32(calls, 1)
		<-release
		return value, nil
	}
}

func TestConcurrentIdenticalQueriesCollapse(t *testing.T) {
	o, metrics := newTestOrchestrator(t, nil)

	var calls int32
	release := make(chan struct{})
	fetch := blockingFetch([]catalog.DataPoint{{X: 1, Y: 2}}, release, &calls)
	id := catalog.ActivityID("napari-foo")

	var wg sync.WaitGroup
	results := make([]Result[[]catalog.DataPoint], 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Query(context.Background(), o, id, fetch)
		}(i)
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.CollapsedTotal) == 1
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, []catalog.DataPoint{{X: 1, Y: 2}}, res.Value)
	}
	assert.Equal(t, 1, o.Len())
}

func TestDifferentIdentifiersFetchIndependently(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	var calls int32
	release := make(chan struct{})
	fetch := blockingFetch(&catalog.InstallStats{TotalInstalls: 10}, release, &calls)

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			res := Query(context.Background(), o, catalog.InstallStatsID(name), fetch)
			assert.NoError(t, res.Err)
		}(name)
	}

	// Обе загрузки стартуют, не дожидаясь друг друга
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 2, o.Len())
}

func TestFreshEntryIsReused(t *testing.T) {
	o, metrics := newTestOrchestrator(t, nil)

	var calls int32
	fetch := func(ctx context.Context) (*catalog.RecentInstallStats, error) {
		atomic.AddInt32(&calls, 1)
		return &catalog.RecentInstallStats{InstallsInLast30Days: 7}, nil
	}
	id := catalog.RecentInstallStatsID("napari-foo")

	first := Query(context.Background(), o, id, fetch)
	second := Query(context.Background(), o, id, fetch)

	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal))

	// Refetch игнорирует свежесть
	third := Query(context.Background(), o, id, fetch, Refetch())
	require.NoError(t, third.Err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStaleEntryIsRefetched(t *testing.T) {
	o, _ := newTestOrchestrator(t, &Config{StaleTime: time.Minute, FetchTimeout: time.Second, GCTime: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	o.now = func() time.Time { return now }

	var calls int32
	fetch := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	id := catalog.MetricsID("napari-foo")

	assert.Equal(t, 1, Query(context.Background(), o, id, fetch).Value)
	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, Query(context.Background(), o, id, fetch).Value)
	now = now.Add(time.Minute)
	assert.Equal(t, 2, Query(context.Background(), o, id, fetch).Value)
}

func TestDisabledQueryReturnsEmptyDefault(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	called := false
	points := Query(context.Background(), o, catalog.ActivityID("napari-foo"),
		func(ctx context.Context) ([]catalog.DataPoint, error) {
			called = true
			return nil, nil
		}, Enabled(false))

	assert.False(t, called)
	assert.True(t, points.Disabled)
	assert.NoError(t, points.Err)
	assert.NotNil(t, points.Value)
	assert.Empty(t, points.Value)

	metrics := Query(context.Background(), o, catalog.MetricsID("napari-foo"),
		func(ctx context.Context) (*catalog.PluginMetrics, error) {
			called = true
			return &catalog.PluginMetrics{}, nil
		}, Enabled(false))

	assert.False(t, called)
	assert.True(t, metrics.Disabled)
	assert.Nil(t, metrics.Value)
	assert.Equal(t, 0, o.Len())
}

func TestFailureKeepsStaleValue(t *testing.T) {
	o, metrics := newTestOrchestrator(t, &Config{StaleTime: time.Minute, FetchTimeout: time.Second, GCTime: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	o.now = func() time.Time { return now }

	id := catalog.InstallStatsID("napari-foo")
	upstreamErr := &catalog.UpstreamError{Resource: id, StatusCode: 503, Message: "unavailable"}

	ok := Query(context.Background(), o, id, func(ctx context.Context) (*catalog.InstallStats, error) {
		return &catalog.InstallStats{TotalInstalls: 42}, nil
	})
	require.NoError(t, ok.Err)

	now = now.Add(2 * time.Minute)
	failed := Query(context.Background(), o, id, func(ctx context.Context) (*catalog.InstallStats, error) {
		return nil, upstreamErr
	})

	require.Error(t, failed.Err)
	assert.ErrorIs(t, failed.Err, upstreamErr)
	assert.True(t, failed.Stale)
	require.NotNil(t, failed.Value)
	assert.Equal(t, 42, failed.Value.TotalInstalls)
	assert.Equal(t, ok.UpdatedAt, failed.UpdatedAt)

	cached, found := peek[*catalog.InstallStats](o, id)
	require.True(t, found)
	assert.Equal(t, 42, cached.TotalInstalls)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("install-stats", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("install-stats", "success")))
}

func TestFailureWithoutPriorValue(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	res := Query(context.Background(), o, catalog.PluginDetailID("napari-foo"),
		func(ctx context.Context) (*catalog.PluginDetail, error) {
			return nil, errors.New("boom")
		})

	assert.EqualError(t, res.Err, "boom")
	assert.False(t, res.Stale)
	assert.False(t, res.HasValue())
	assert.Nil(t, res.Value)
}

func TestCancelledCallerStillPopulatesCache(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	var calls int32
	release := make(chan struct{})
	id := catalog.PluginListingID()
	fetch := blockingFetch([]catalog.PluginSummary{{Name: "napari-foo"}}, release, &calls)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result[[]catalog.PluginSummary])
	go func() {
		done <- Query(ctx, o, id, fetch)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, time.Millisecond)
	cancel()

	res := <-done
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, res.HasValue())

	close(release)
	require.Eventually(t, func() bool {
		_, ok := peek[[]catalog.PluginSummary](o, id)
		return ok
	}, time.Second, time.Millisecond)

	cached := Query(context.Background(), o, id, fetch)
	require.NoError(t, cached.Err)
	assert.True(t, cached.FromCache)
	assert.Equal(t, "napari-foo", cached.Value[0].Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetries(t *testing.T) {
	o, _ := newTestOrchestrator(t, &Config{
		StaleTime:    time.Minute,
		FetchTimeout: time.Second,
		Retries:      2,
		RetryDelay:   time.Millisecond,
		GCTime:       time.Minute,
	})

	var calls int32
	res := Query(context.Background(), o, catalog.ActivityPluginsID(), func(ctx context.Context) ([]string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("temporary")
		}
		return []string{"napari-foo"}, nil
	})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"napari-foo"}, res.Value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	// Ошибки валидации не повторяются
	calls = 0
	res = Query(context.Background(), o, catalog.ActivityID(""), func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &catalog.ValidationError{Field: "name", Reason: "must not be empty"}
	})
	assert.True(t, catalog.IsValidationError(res.Err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchPanicIsReportedAsError(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	res := Query(context.Background(), o, catalog.MetricsID("napari-foo"), func(ctx context.Context) (*catalog.PluginMetrics, error) {
		panic("unexpected nil")
	})
	assert.ErrorContains(t, res.Err, "fetch panicked")

	// Запись не остается в состоянии загрузки
	res = Query(context.Background(), o, catalog.MetricsID("napari-foo"), func(ctx context.Context) (*catalog.PluginMetrics, error) {
		return &catalog.PluginMetrics{}, nil
	})
	assert.NoError(t, res.Err)
}

func TestFailedFirstFetchLeavesNoEntry(t *testing.T) {
	o, metrics := newTestOrchestrator(t, nil)

	fail := func(ctx context.Context) (*catalog.PluginDetail, error) {
		return nil, errors.New("not found")
	}
	for i := 0; i < 1000; i++ {
		res := Query(context.Background(), o, catalog.PluginDetailID(fmt.Sprintf("napari-missing-%d", i)), fail)
		require.Error(t, res.Err)
	}

	assert.Equal(t, 0, o.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Entries))
	assert.Equal(t, float64(1000), testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("plugin-detail", "failure")))
}

func TestCollectRemovesInactiveEntries(t *testing.T) {
	o, metrics := newTestOrchestrator(t, &Config{StaleTime: time.Minute, FetchTimeout: time.Second, GCTime: 5 * time.Minute})
	now := time.Unix(1_700_000_000, 0)
	o.now = func() time.Time { return now }

	fetch := func(ctx context.Context) (string, error) {
		return "value", nil
	}
	active := catalog.PluginDetailID("napari-foo")
	inactive := catalog.PluginDetailID("napari-bar")
	Query(context.Background(), o, active, fetch)
	Query(context.Background(), o, inactive, fetch)
	require.Equal(t, 2, o.Len())

	// До истечения окна ничего не удаляется
	now = now.Add(4 * time.Minute)
	assert.Equal(t, 0, o.Collect())
	Query(context.Background(), o, active, fetch)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, o.Collect())
	assert.Equal(t, 1, o.Len())
	_, ok := peek[string](o, inactive)
	assert.False(t, ok)
	_, ok = peek[string](o, active)
	assert.True(t, ok)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EvictedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Entries))
}

func TestCollectKeepsInFlightEntries(t *testing.T) {
	o, _ := newTestOrchestrator(t, &Config{StaleTime: time.Minute, FetchTimeout: time.Minute, GCTime: time.Minute})
	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	o.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	var calls int32
	release := make(chan struct{})
	id := catalog.PluginListingID()
	done := make(chan Result[[]catalog.PluginSummary])
	go func() {
		done <- Query(context.Background(), o, id, blockingFetch([]catalog.PluginSummary{{Name: "napari-foo"}}, release, &calls))
	}()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()
	assert.Equal(t, 0, o.Collect())

	close(release)
	res := <-done
	require.NoError(t, res.Err)
	assert.Equal(t, 1, o.Len())
}

func TestRunGCStopsOnCancel(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		o.RunGC(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not return after cancel")
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{"Default", DefaultConfig(), false},
		{"Zero fetch timeout", &Config{StaleTime: time.Second}, true},
		{"Negative stale time", &Config{StaleTime: -1, FetchTimeout: time.Second}, true},
		{"Negative retries", &Config{FetchTimeout: time.Second, Retries: -1}, true},
		{"Negative warmup", &Config{FetchTimeout: time.Second, GCTime: time.Minute, WarmupInterval: -1}, true},
		{"Zero gc time", &Config{StaleTime: time.Second, FetchTimeout: time.Second}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := New(&Config{}, nil)
	assert.Error(t, err)

	assert.NotPanics(t, func() { MustNew(nil, nil) })
	assert.Panics(t, func() { MustNew(&Config{FetchTimeout: time.Second}, nil) })
}
