package geotag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/catcha-app/geotag/internal/geo"
	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/internal/platform"
)

// StartWayfareTracking opens the long-running track recorder on its own
// subscription. A stale running flag left behind by a crashed session is
// overwritten with the fresh session metadata.
func (s *Service) StartWayfareTracking(ctx context.Context) bool {
	if !s.RequestPermissions(ctx) {
		return false
	}

	nowMs := s.now().UnixMilli()
	meta := s.facade.WayfareMeta(ctx)
	meta.IsRunning = true
	meta.StartedAt = &nowMs
	meta.StoppedAt = nil
	if err := s.facade.SetWayfareMeta(ctx, meta); err != nil {
		s.log.Warn("failed to persist wayfare meta", "error", err)
	}

	s.mu.Lock()
	prev := s.wayfareSub
	s.wayfareSub = nil
	s.mu.Unlock()
	if prev != nil {
		prev.Remove()
	}

	sub, err := s.provider.Watch(ctx, platform.WatchOptions{
		Mode:        platform.AccuracyBestForNavigation,
		MinTime:     wayfareMinTime,
		MinDistance: wayfareMinDistanceM,
	}, func(fix platform.Fix) {
		s.appendWayfareFix(ctx, fix)
	})
	if err != nil {
		s.log.Error("failed to start wayfare tracking", "error", err)
		return false
	}

	s.mu.Lock()
	s.wayfareSub = sub
	s.wayfareRunning = true
	s.mu.Unlock()

	return true
}

// StopWayfareTracking closes the recorder. Idempotent.
func (s *Service) StopWayfareTracking(ctx context.Context) {
	s.mu.Lock()
	sub := s.wayfareSub
	s.wayfareSub = nil
	s.wayfareRunning = false
	s.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}

	nowMs := s.now().UnixMilli()
	meta := s.facade.WayfareMeta(ctx)
	meta.IsRunning = false
	meta.StoppedAt = &nowMs
	if err := s.facade.SetWayfareMeta(ctx, meta); err != nil {
		s.log.Warn("failed to persist wayfare meta", "error", err)
	}
}

// WayfareRunning reports whether a recorder subscription is live in this
// process.
func (s *Service) WayfareRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wayfareRunning
}

func (s *Service) appendWayfareFix(ctx context.Context, fix platform.Fix) {
	settings := s.facade.Settings(ctx)
	point := model.WayfarePoint{
		ID: uuid.NewString(),
		LocationSample: model.LocationSample{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Accuracy:  fix.Accuracy,
			Source:    model.SourceWatch,
			Timestamp: s.now().UnixMilli(),
			Geohash:   geo.MustEncodeGeohash(fix.Latitude, fix.Longitude, settings.GeohashPrecision),
		},
	}
	s.AddWayfarePoint(ctx, point)
}

// AddWayfarePoint appends a point to the persisted track. Late arrivals
// (timestamp before the last stored point) are dropped so the stored list
// stays non-decreasing.
func (s *Service) AddWayfarePoint(ctx context.Context, point model.WayfarePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := s.facade.WayfarePoints(ctx)
	if n := len(points); n > 0 && point.Timestamp < points[n-1].Timestamp {
		s.log.Debug("dropping out-of-order wayfare point", "timestamp", point.Timestamp)
		return
	}

	points = append(points, point)
	if err := s.facade.SetWayfarePoints(ctx, points); err != nil {
		s.log.Warn("failed to persist wayfare point", "error", err)
		return
	}

	meta := s.facade.WayfareMeta(ctx)
	meta.Total = len(points)
	if err := s.facade.SetWayfareMeta(ctx, meta); err != nil {
		s.log.Warn("failed to persist wayfare meta", "error", err)
	}
}

// GetWayfareTrack returns the persisted points with their metadata.
func (s *Service) GetWayfareTrack(ctx context.Context) model.WayfareTrack {
	points := s.facade.WayfarePoints(ctx)
	if points == nil {
		points = []model.WayfarePoint{}
	}
	return model.WayfareTrack{
		Points: points,
		Meta:   s.facade.WayfareMeta(ctx),
	}
}

// ClearWayfareTrack removes the persisted points and metadata.
func (s *Service) ClearWayfareTrack(ctx context.Context) error {
	return s.facade.ClearWayfare(ctx)
}

// CalculateWayfareDistance sums the great-circle legs of the track, in km.
func (s *Service) CalculateWayfareDistance(ctx context.Context) float64 {
	points := s.facade.WayfarePoints(ctx)
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		total += geo.Haversine(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
	}
	return total / 1000
}

// GetWayfareSummary renders the track as "<dist> km (<n> pts)" or "<n> pts"
// when no distance has accumulated.
func (s *Service) GetWayfareSummary(ctx context.Context) string {
	track := s.GetWayfareTrack(ctx)
	distance := s.CalculateWayfareDistance(ctx)

	if distance > 0 {
		return fmt.Sprintf("%.2f km (%d pts)", distance, len(track.Points))
	}
	return fmt.Sprintf("%d pts", len(track.Points))
}
