package livetrack

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/internal/state"
	"github.com/catcha-app/geotag/internal/transport"
	"github.com/catcha-app/geotag/pkg/logger"
)

// PointPayload is the wire shape of a live-track point.
type PointPayload struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *int     `json:"accuracy,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Bearing  *float64 `json:"bearing,omitempty"`
	T        string   `json:"t"` // ISO-8601 with millisecond precision
}

// Client manages the server-side live-track session and its persisted handle.
type Client struct {
	api    *transport.Client
	facade *state.Facade
	log    logger.Logger
}

func NewClient(api *transport.Client, facade *state.Facade, log logger.Logger) *Client {
	return &Client{api: api, facade: facade, log: log}
}

// CreateLiveTrack opens a new session on the server.
func (c *Client) CreateLiveTrack(ctx context.Context) transport.Result {
	return c.api.Do(ctx, http.MethodPost, "/live-tracks", nil, transport.RequestOptions{Live: true})
}

// PushLiveTrackPoint appends one point to the session. Best effort: the
// caller decides whether to care about the result.
func (c *Client) PushLiveTrackPoint(ctx context.Context, publicID, writeKey string, point PointPayload) transport.Result {
	path := fmt.Sprintf("/live-tracks/%s/points", publicID)
	return c.api.Do(ctx, http.MethodPost, path, point, transport.RequestOptions{Live: true, TrackKey: writeKey})
}

// PollLiveTrackPoints fetches points recorded after since (zero time for all).
func (c *Client) PollLiveTrackPoints(ctx context.Context, publicID string, since time.Time) transport.Result {
	path := fmt.Sprintf("/live-tracks/%s/points", publicID)
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(isoMillis(since.UnixMilli()))
	}
	return c.api.Do(ctx, http.MethodGet, path, nil, transport.RequestOptions{Live: true})
}

// EndLiveTrack closes the session on the server.
func (c *Client) EndLiveTrack(ctx context.Context, publicID, writeKey string) transport.Result {
	path := fmt.Sprintf("/live-tracks/%s/end", publicID)
	return c.api.Do(ctx, http.MethodPost, path, nil, transport.RequestOptions{Live: true, TrackKey: writeKey})
}

// GetSavedLiveTrack returns the persisted session handle, nil when absent.
func (c *Client) GetSavedLiveTrack(ctx context.Context) *model.LiveTrackHandle {
	return c.facade.LiveTrack(ctx)
}

// ClearSavedLiveTrack drops the persisted handle without touching the server.
func (c *Client) ClearSavedLiveTrack(ctx context.Context) error {
	return c.facade.ClearLiveTrack(ctx)
}

// EnsureLiveTrack returns the persisted handle when it can still
// authenticate, otherwise creates a session and persists the new handle.
func (c *Client) EnsureLiveTrack(ctx context.Context) (model.LiveTrackHandle, error) {
	if existing := c.facade.LiveTrack(ctx); existing != nil && existing.Valid() {
		return *existing, nil
	}

	res := c.CreateLiveTrack(ctx)
	if !res.OK {
		return model.LiveTrackHandle{}, fmt.Errorf("failed to create live track (%d): %s", res.Status, res.Error)
	}

	var handle model.LiveTrackHandle
	if err := res.DecodeInto(&handle); err != nil {
		return model.LiveTrackHandle{}, fmt.Errorf("unexpected create response: %w", err)
	}

	if err := c.facade.SetLiveTrack(ctx, handle); err != nil {
		return model.LiveTrackHandle{}, err
	}
	return handle, nil
}

// PushLocationAsLivePoint maps a smoothed sample onto the wire shape and
// pushes it.
func (c *Client) PushLocationAsLivePoint(ctx context.Context, handle model.LiveTrackHandle, loc model.LocationSample) transport.Result {
	point := PointPayload{
		Lat: loc.Latitude,
		Lng: loc.Longitude,
		T:   isoMillis(loc.Timestamp),
	}
	if loc.Accuracy != nil {
		rounded := int(math.Round(*loc.Accuracy))
		point.Accuracy = &rounded
	}
	return c.PushLiveTrackPoint(ctx, handle.PublicID, handle.WriteKey, point)
}

// EndLiveTrackSession ends the session and, on success, forgets the handle.
func (c *Client) EndLiveTrackSession(ctx context.Context, handle model.LiveTrackHandle) transport.Result {
	res := c.EndLiveTrack(ctx, handle.PublicID, handle.WriteKey)
	if res.OK {
		if err := c.facade.ClearLiveTrack(ctx); err != nil {
			c.log.Warn("failed to clear live track handle", "error", err)
		}
	}
	return res
}

// Consume adapts the client to the geo service fan-out: ensure a session and
// push the sample, fire and forget. Pushes are independent and never retried.
func (c *Client) Consume(ctx context.Context, sample model.LocationSample) {
	handle, err := c.EnsureLiveTrack(ctx)
	if err != nil {
		c.log.Warn("live track unavailable", "error", err)
		return
	}
	if res := c.PushLocationAsLivePoint(ctx, handle, sample); !res.OK {
		c.log.Debug("live point push failed", "status", res.Status, "error", res.Error)
	}
}

// isoMillis renders epoch milliseconds as ISO-8601 UTC with milliseconds.
func isoMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
