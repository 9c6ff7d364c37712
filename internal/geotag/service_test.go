package geotag

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/internal/platform"
	"github.com/catcha-app/geotag/internal/state"
	"github.com/catcha-app/geotag/internal/storage"
	"github.com/catcha-app/geotag/pkg/logger"
)

func newTestService(fixes ...platform.Fix) (*Service, *platform.ReplayProvider, *state.Facade) {
	provider := platform.NewReplayProvider(fixes...)
	facade := state.NewFacade(storage.NewMemoryStore(), logger.NewNop())
	svc := NewService(provider, facade, logger.NewNop())
	return svc, provider, facade
}

type collector struct {
	mu      sync.Mutex
	samples []model.LocationSample
}

func (c *collector) callback(s model.LocationSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
}

func (c *collector) all() []model.LocationSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.LocationSample, len(c.samples))
	copy(out, c.samples)
	return out
}

func TestGetCurrentLocation(t *testing.T) {
	svc, _, facade := newTestService(platform.Fix{
		Latitude: 37.7749, Longitude: -122.4194, Accuracy: model.Float64(8),
	})
	ctx := context.Background()

	sample := svc.GetCurrentLocation(ctx)
	require.NotNil(t, sample)
	assert.Equal(t, 37.7749, sample.Latitude)
	assert.Equal(t, model.SourceGPS, sample.Source)
	assert.Len(t, sample.Geohash, 10)

	// persisted through the same path
	saved := facade.CurrentPosition(ctx)
	require.NotNil(t, saved)
	assert.Equal(t, *sample, *saved)
}

func TestGetCurrentLocationPermissionDenied(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{Latitude: 1, Longitude: 2})
	provider.SetPermission(platform.PermissionDenied)

	assert.Nil(t, svc.GetCurrentLocation(context.Background()))
}

func TestStartLocationWatchEmitsInitialFix(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{
		Latitude: 10, Longitude: 20, Accuracy: model.Float64(5),
	})
	var c collector

	ok := svc.StartLocationWatch(context.Background(), c.callback)
	require.True(t, ok)
	defer svc.StopLocationWatch()

	samples := c.all()
	require.Len(t, samples, 1)
	assert.Equal(t, model.SourceGPS, samples[0].Source)
	assert.Equal(t, 1, provider.WatcherCount())
}

func TestWatchDeliversSubscriptionFixes(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{
		Latitude: 10, Longitude: 20, Accuracy: model.Float64(5),
	})
	var c collector

	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	defer svc.StopLocationWatch()

	provider.Emit(platform.Fix{Latitude: 10.0001, Longitude: 20.0001, Accuracy: model.Float64(7)})
	provider.Emit(platform.Fix{Latitude: 10.0002, Longitude: 20.0002, Accuracy: model.Float64(6)})

	samples := c.all()
	require.Len(t, samples, 3)
	assert.Equal(t, model.SourceWatch, samples[1].Source)

	// arrival order with non-decreasing timestamps
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i].Timestamp, samples[i-1].Timestamp)
	}
}

func TestConcurrentFixDeliveryKeepsTimestampOrder(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{
		Latitude: 1, Longitude: 1, Accuracy: model.Float64(5),
	})

	// a yielding clock widens the window between stamping and delivery so
	// any ordering race between concurrent fixes surfaces reliably
	var tick int64 = 1_000_000
	svc.now = func() time.Time {
		ms := atomic.AddInt64(&tick, 1)
		runtime.Gosched()
		return time.UnixMilli(ms)
	}

	var c collector
	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	defer svc.StopLocationWatch()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				provider.Emit(platform.Fix{Latitude: 1.0001, Longitude: 1, Accuracy: model.Float64(5)})
			}
		}()
	}
	wg.Wait()

	samples := c.all()
	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		require.GreaterOrEqual(t, samples[i].Timestamp, samples[i-1].Timestamp,
			"delivery %d arrived with an earlier timestamp than delivery %d", i, i-1)
	}
}

func TestPollingFallbackFeedsFilterAndCallback(t *testing.T) {
	svc, _, facade := newTestService(
		platform.Fix{Latitude: 10, Longitude: 20, Accuracy: model.Float64(5)},
		platform.Fix{Latitude: 10.0001, Longitude: 20, Accuracy: model.Float64(6)},
		platform.Fix{Latitude: 10.0002, Longitude: 20, Accuracy: model.Float64(7)},
	)
	svc.pollInterval = 5 * time.Millisecond

	// jump the clock 3 s per read so every poll sample clears the
	// persistence coalescing gap
	base := time.Now()
	var step int64
	svc.now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&step, 1)) * 3 * time.Second)
	}

	var c collector
	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	defer svc.StopLocationWatch()

	require.Eventually(t, func() bool {
		return len(c.all()) >= 3
	}, 2*time.Second, 5*time.Millisecond, "poll ticker never delivered")

	samples := c.all()
	// first delivery is the immediate one-shot fix, the rest come from polls
	assert.Equal(t, model.SourceGPS, samples[0].Source)
	for _, s := range samples[1:] {
		assert.Equal(t, model.SourceWatch, s.Source)
		assert.Len(t, s.Geohash, 10)
	}

	// poll-path samples persist through the same store write
	saved := facade.CurrentPosition(context.Background())
	require.NotNil(t, saved)
	assert.Equal(t, model.SourceWatch, saved.Source)
}

func TestStartLocationWatchReplacesPreviousSubscription(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{Latitude: 1, Longitude: 1})
	var c collector

	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	defer svc.StopLocationWatch()

	assert.Equal(t, 1, provider.WatcherCount())
}

func TestStopLocationWatchIdempotent(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{Latitude: 1, Longitude: 1})
	var c collector

	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	assert.True(t, svc.WatchRunning())

	svc.StopLocationWatch()
	assert.False(t, svc.WatchRunning())
	assert.Equal(t, 0, provider.WatcherCount())

	// second stop is a no-op
	svc.StopLocationWatch()
	assert.Equal(t, 0, provider.WatcherCount())
}

func TestStartLocationWatchPermissionDenied(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{Latitude: 1, Longitude: 1})
	provider.SetPermission(platform.PermissionDenied)
	var c collector

	assert.False(t, svc.StartLocationWatch(context.Background(), c.callback))
	assert.False(t, svc.WatchRunning())
	assert.Empty(t, c.all())
}

func TestSaveAndLoadCurrentPosition(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sample := model.LocationSample{
		Latitude:  18.3568,
		Longitude: 121.6372,
		Accuracy:  model.Float64(4),
		Source:    model.SourceClick,
		Timestamp: 1700000000000,
	}
	require.NoError(t, svc.SaveCurrentPosition(ctx, sample))

	loaded := svc.LoadSavedPosition(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, sample.Latitude, loaded.Latitude)
	assert.Equal(t, sample.Longitude, loaded.Longitude)
	assert.Equal(t, sample.Source, loaded.Source)
	assert.Len(t, loaded.Geohash, 10)

	require.NoError(t, svc.ClearSavedPosition(ctx))
	assert.Nil(t, svc.LoadSavedPosition(ctx))
}

func TestSaveCurrentPositionRejectsBadCoordinates(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	err := svc.SaveCurrentPosition(ctx, model.LocationSample{Latitude: 91, Longitude: 0})
	assert.Error(t, err)

	err = svc.SaveCurrentPosition(ctx, model.LocationSample{Latitude: 0, Longitude: 181})
	assert.Error(t, err)

	// no state change on validation failure
	assert.Nil(t, svc.LoadSavedPosition(ctx))
}

func TestSaveCurrentPositionRejectsNegativeAccuracy(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	err := svc.SaveCurrentPosition(ctx, model.LocationSample{
		Latitude:  1,
		Longitude: 2,
		Accuracy:  model.Float64(-3),
	})
	assert.Error(t, err)
	assert.Nil(t, svc.LoadSavedPosition(ctx))
}

type sinkRecorder struct {
	mu      sync.Mutex
	samples []model.LocationSample
}

func (r *sinkRecorder) Consume(_ context.Context, s model.LocationSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

func (r *sinkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestWatchFanOutToSinks(t *testing.T) {
	svc, provider, _ := newTestService(platform.Fix{Latitude: 1, Longitude: 1, Accuracy: model.Float64(5)})
	recorder := &sinkRecorder{}
	streamer := &sinkRecorder{}
	svc.SetRecorder(recorder)
	svc.SetStreamer(streamer)
	var c collector

	require.True(t, svc.StartLocationWatch(context.Background(), c.callback))
	defer svc.StopLocationWatch()

	// sinks disabled: nothing recorded
	provider.Emit(platform.Fix{Latitude: 1.0001, Longitude: 1, Accuracy: model.Float64(5)})
	assert.Zero(t, recorder.count())
	assert.Zero(t, streamer.count())

	svc.SetRecording(true)
	svc.SetStreaming(true)
	provider.Emit(platform.Fix{Latitude: 1.0002, Longitude: 1, Accuracy: model.Float64(5)})
	assert.Equal(t, 1, recorder.count())
	assert.Equal(t, 1, streamer.count())
}

func TestUpdateSettingsValidatesPrecision(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	bad := model.DefaultSettings()
	bad.GeohashPrecision = 0
	assert.Error(t, svc.UpdateSettings(ctx, bad))

	good := model.DefaultSettings()
	good.GeohashPrecision = 6
	require.NoError(t, svc.UpdateSettings(ctx, good))
	assert.Equal(t, 6, svc.Settings(ctx).GeohashPrecision)
}
