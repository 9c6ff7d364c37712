package geotag

import (
	"context"
	"sync"
	"time"

	"github.com/catcha-app/geotag/internal/geo"
	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/internal/platform"
	"github.com/catcha-app/geotag/internal/state"
	"github.com/catcha-app/geotag/pkg/logger"
	"github.com/catcha-app/geotag/pkg/validator"
)

const (
	watchMinTime        = time.Second
	watchMinDistanceM   = 1.0
	watchPollInterval   = 5 * time.Second
	wayfareMinTime      = 3 * time.Second
	wayfareMinDistanceM = 5.0
	positionWriteMinGap = 2 * time.Second // coalesce watch-path persists
)

// Callback receives smoothed samples from the watch stream.
type Callback func(model.LocationSample)

// SampleSink receives smoothed watch samples for recording or streaming.
type SampleSink interface {
	Consume(ctx context.Context, sample model.LocationSample)
}

// Service orchestrates the platform provider, smoothing filter and
// persistence. Construct one per process; all methods are safe for
// concurrent use.
type Service struct {
	provider platform.Provider
	facade   *state.Facade
	val      validator.Validator
	log      logger.Logger
	now      func() time.Time

	recorder SampleSink // fed when recording is enabled
	streamer SampleSink // fed when streaming is enabled

	// deliverMu serialises the fix pipeline end to end: a sample is
	// stamped, filtered, persisted and handed to the callback before the
	// next one enters, so callers observe non-decreasing timestamps.
	deliverMu sync.Mutex

	mu             sync.Mutex
	filter         *SmoothingFilter
	watchSub       platform.Subscription
	watchStop      context.CancelFunc
	watchRunning   bool
	wayfareSub     platform.Subscription
	wayfareRunning bool
	lastPersist    time.Time
	recording      bool
	streaming      bool

	pollInterval time.Duration
}

func NewService(provider platform.Provider, facade *state.Facade, log logger.Logger) *Service {
	return &Service{
		provider:     provider,
		facade:       facade,
		val:          validator.NewValidator(),
		log:          log,
		now:          time.Now,
		filter:       NewSmoothingFilter(),
		pollInterval: watchPollInterval,
	}
}

// SetRecorder wires the sink that captures watch samples for CSV export.
func (s *Service) SetRecorder(sink SampleSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = sink
}

// SetStreamer wires the sink that forwards samples to a live track.
func (s *Service) SetStreamer(sink SampleSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamer = sink
}

// SetRecording toggles fan-out to the recorder sink.
func (s *Service) SetRecording(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = enabled
}

// SetStreaming toggles fan-out to the live-track sink.
func (s *Service) SetStreaming(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = enabled
}

// RequestPermissions asks the platform for foreground location access.
func (s *Service) RequestPermissions(ctx context.Context) bool {
	status, err := s.provider.RequestPermission(ctx)
	if err != nil {
		s.log.Error("permission request failed", "error", err)
		return false
	}
	if status != platform.PermissionGranted {
		s.log.Warn("location permission not granted", "status", status)
		return false
	}
	return true
}

// GetCurrentLocation takes a one-shot fix, smooths it, persists the result
// and returns it. Nil on permission denial or platform failure.
func (s *Service) GetCurrentLocation(ctx context.Context) *model.LocationSample {
	if !s.RequestPermissions(ctx) {
		return nil
	}

	settings := s.facade.Settings(ctx)
	fix, err := s.provider.GetOnce(ctx, accuracyMode(settings))
	if err != nil {
		s.log.Error("one-shot fix failed", "error", err)
		return nil
	}

	return s.processFix(ctx, fix, model.SourceGPS, settings, true, nil)
}

// StartLocationWatch starts the continuous watch stream. An already-running
// watch is torn down first so only one subscription is live at a time. The
// caller gets an immediate initial fix before subscription deliveries begin.
func (s *Service) StartLocationWatch(ctx context.Context, cb Callback) bool {
	if !s.RequestPermissions(ctx) {
		return false
	}
	if cb == nil {
		cb = func(model.LocationSample) {}
	}

	s.StopLocationWatch()

	settings := s.facade.Settings(ctx)

	// immediate reading so callers update before the first watch delivery
	if fix, err := s.provider.GetOnce(ctx, accuracyMode(settings)); err == nil {
		s.processFix(ctx, fix, model.SourceGPS, settings, false, cb)
	}

	watchCtx, cancel := context.WithCancel(ctx)

	onFix := func(fix platform.Fix) {
		st := s.facade.Settings(watchCtx)
		s.processFix(watchCtx, fix, model.SourceWatch, st, false, cb)
	}

	sub, err := s.provider.Watch(watchCtx, platform.WatchOptions{
		Mode:        accuracyMode(settings),
		MinTime:     watchMinTime,
		MinDistance: watchMinDistanceM,
	}, onFix)
	if err != nil {
		s.log.Error("failed to start location watch", "error", err)
		cancel()
		return false
	}

	// Polling fallback: some platforms gate subscription deliveries behind
	// movement thresholds, so refresh through the same smoothing path.
	go s.pollLoop(watchCtx, cb)

	s.mu.Lock()
	s.watchSub = sub
	s.watchStop = cancel
	s.watchRunning = true
	s.mu.Unlock()

	return true
}

func (s *Service) pollLoop(ctx context.Context, cb Callback) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settings := s.facade.Settings(ctx)
			fix, err := s.provider.GetOnce(ctx, accuracyMode(settings))
			if err != nil {
				continue
			}
			s.processFix(ctx, fix, model.SourceWatch, settings, false, cb)
		}
	}
}

// StopLocationWatch cancels the subscription and the polling timer.
// Idempotent: stopping a stopped watch is a no-op.
func (s *Service) StopLocationWatch() {
	s.mu.Lock()
	sub := s.watchSub
	stop := s.watchStop
	s.watchSub = nil
	s.watchStop = nil
	s.watchRunning = false
	s.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}
	if stop != nil {
		stop()
	}
}

// WatchRunning reports whether the watch stream is active.
func (s *Service) WatchRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchRunning
}

// processFix routes a raw fix through the smoothing filter, persists the
// smoothed sample, fans it out and delivers it to cb. The arrival timestamp
// is assigned under deliverMu so concurrent subscription and poll fixes
// cannot reach cb out of timestamp order. cb must not re-enter the pipeline.
// Returns nil when the filter dropped the sample.
func (s *Service) processFix(ctx context.Context, fix platform.Fix, source model.Source, settings model.Settings, persistAlways bool, cb Callback) *model.LocationSample {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	nowMs := s.now().UnixMilli()
	raw := model.LocationSample{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Accuracy:  fix.Accuracy,
		Source:    source,
		Timestamp: nowMs,
		Geohash:   geo.MustEncodeGeohash(fix.Latitude, fix.Longitude, settings.GeohashPrecision),
	}

	s.mu.Lock()
	out, emit := s.filter.Apply(raw, settings.GeohashPrecision)
	var persist bool
	if emit {
		persist = persistAlways || s.now().Sub(s.lastPersist) >= positionWriteMinGap
		if persist {
			s.lastPersist = s.now()
		}
	}
	recording := s.recording && s.recorder != nil
	streaming := s.streaming && s.streamer != nil
	recorder, streamer := s.recorder, s.streamer
	s.mu.Unlock()

	if !emit {
		return nil
	}

	if persist {
		if err := s.facade.SetCurrentPosition(ctx, out); err != nil {
			// next successful write restores consistency
			s.log.Warn("failed to persist current position", "error", err)
		}
	}

	if recording {
		recorder.Consume(ctx, out)
	}
	if streaming {
		streamer.Consume(ctx, out)
	}
	if cb != nil {
		cb(out)
	}

	return &out
}

// SaveCurrentPosition is the explicit write path used by manual entry. The
// geohash is re-derived from the coordinates before persisting.
func (s *Service) SaveCurrentPosition(ctx context.Context, sample model.LocationSample) error {
	if err := s.val.ValidateCoordinates(sample.Latitude, sample.Longitude); err != nil {
		return err
	}
	if sample.Accuracy != nil {
		if err := s.val.ValidateAccuracy(*sample.Accuracy); err != nil {
			return err
		}
	}

	settings := s.facade.Settings(ctx)
	hash, err := geo.EncodeGeohash(sample.Latitude, sample.Longitude, settings.GeohashPrecision)
	if err != nil {
		return err
	}
	sample.Geohash = hash

	return s.facade.SetCurrentPosition(ctx, sample)
}

// LoadSavedPosition reads the persisted current position.
func (s *Service) LoadSavedPosition(ctx context.Context) *model.LocationSample {
	return s.facade.CurrentPosition(ctx)
}

// ClearSavedPosition removes the persisted current position.
func (s *Service) ClearSavedPosition(ctx context.Context) error {
	return s.facade.ClearCurrentPosition(ctx)
}

// Settings returns the effective settings.
func (s *Service) Settings(ctx context.Context) model.Settings {
	return s.facade.Settings(ctx)
}

// UpdateSettings persists new settings.
func (s *Service) UpdateSettings(ctx context.Context, settings model.Settings) error {
	if err := s.val.ValidatePrecision(settings.GeohashPrecision); err != nil {
		return err
	}
	return s.facade.SetSettings(ctx, settings)
}

func accuracyMode(settings model.Settings) platform.AccuracyMode {
	if settings.HighAccuracy {
		return platform.AccuracyBestForNavigation
	}
	return platform.AccuracyBalanced
}
