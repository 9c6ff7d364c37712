package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/internal/storage"
	"github.com/catcha-app/geotag/pkg/logger"
)

// Facade is the typed persistence layer over the string-keyed store. Read
// failures are logged and reported as absent; write failures are surfaced to
// the caller.
type Facade struct {
	store storage.Store
	log   logger.Logger
}

func NewFacade(store storage.Store, log logger.Logger) *Facade {
	return &Facade{store: store, log: log}
}

// getJSON decodes the value at key into out. The second return is false when
// the key is absent or unreadable.
func (f *Facade) getJSON(ctx context.Context, key string, out any) bool {
	raw, err := f.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			f.log.Warn("store read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		f.log.Warn("stored value is not valid JSON", "key", key, "error", err)
		return false
	}
	return true
}

func (f *Facade) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := f.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (f *Facade) remove(ctx context.Context, key string) error {
	return f.store.Remove(ctx, key)
}

// CurrentPosition returns the persisted current position, or nil when absent.
func (f *Facade) CurrentPosition(ctx context.Context) *model.LocationSample {
	var sample model.LocationSample
	if !f.getJSON(ctx, KeyCurrentPosition, &sample) {
		return nil
	}
	return &sample
}

func (f *Facade) SetCurrentPosition(ctx context.Context, sample model.LocationSample) error {
	return f.setJSON(ctx, KeyCurrentPosition, sample)
}

func (f *Facade) ClearCurrentPosition(ctx context.Context) error {
	return f.remove(ctx, KeyCurrentPosition)
}

// WayfarePoints returns the persisted track points; absent means empty.
func (f *Facade) WayfarePoints(ctx context.Context) []model.WayfarePoint {
	var points []model.WayfarePoint
	if !f.getJSON(ctx, KeyWayfareTrack, &points) {
		return nil
	}
	return points
}

func (f *Facade) SetWayfarePoints(ctx context.Context, points []model.WayfarePoint) error {
	return f.setJSON(ctx, KeyWayfareTrack, points)
}

// WayfareMeta returns the persisted recorder metadata, or zeroed metadata
// when nothing is stored yet.
func (f *Facade) WayfareMeta(ctx context.Context) model.WayfareMeta {
	var meta model.WayfareMeta
	f.getJSON(ctx, KeyWayfareMeta, &meta)
	return meta
}

func (f *Facade) SetWayfareMeta(ctx context.Context, meta model.WayfareMeta) error {
	return f.setJSON(ctx, KeyWayfareMeta, meta)
}

func (f *Facade) ClearWayfare(ctx context.Context) error {
	if err := f.remove(ctx, KeyWayfareTrack); err != nil {
		return err
	}
	return f.remove(ctx, KeyWayfareMeta)
}

// Settings returns the persisted settings with defaults applied for any
// missing field.
func (f *Facade) Settings(ctx context.Context) model.Settings {
	settings := model.DefaultSettings()
	f.getJSON(ctx, KeySettings, &settings)
	return settings
}

func (f *Facade) SetSettings(ctx context.Context, settings model.Settings) error {
	return f.setJSON(ctx, KeySettings, settings)
}

// LiveTrack returns the persisted live-track handle, or nil when absent.
func (f *Facade) LiveTrack(ctx context.Context) *model.LiveTrackHandle {
	var handle model.LiveTrackHandle
	if !f.getJSON(ctx, KeyLiveTrackInfo, &handle) {
		return nil
	}
	return &handle
}

func (f *Facade) SetLiveTrack(ctx context.Context, handle model.LiveTrackHandle) error {
	return f.setJSON(ctx, KeyLiveTrackInfo, handle)
}

func (f *Facade) ClearLiveTrack(ctx context.Context) error {
	return f.remove(ctx, KeyLiveTrackInfo)
}

// WatchCoordinates returns the accumulated watch samples; absent means empty.
func (f *Facade) WatchCoordinates(ctx context.Context) []model.WatchCoordinate {
	var coords []model.WatchCoordinate
	if !f.getJSON(ctx, KeyWatchCoordinates, &coords) {
		return nil
	}
	return coords
}

func (f *Facade) SetWatchCoordinates(ctx context.Context, coords []model.WatchCoordinate) error {
	return f.setJSON(ctx, KeyWatchCoordinates, coords)
}

func (f *Facade) ClearWatchCoordinates(ctx context.Context) error {
	return f.remove(ctx, KeyWatchCoordinates)
}
