package catchapi

import (
	"context"
	"net/http"

	"github.com/catcha-app/geotag/internal/transport"
)

// EnvironmentalData carries the wayfare context attached to a catch.
type EnvironmentalData struct {
	WayfareTrackJSON any    `json:"wayfare_track_json,omitempty"`
	WayfareSummary   string `json:"wayfare_summary,omitempty"`
}

// CreateCatchPayload is the wire shape of a catch record.
type CreateCatchPayload struct {
	CaughtAt      *string            `json:"caught_at,omitempty"` // ISO-8601
	SpeciesID     *int64             `json:"species_id,omitempty"`
	SpeciesName   *string            `json:"species_name,omitempty"`
	WeightKg      *float64           `json:"weight_kg,omitempty"`
	LengthCm      *float64           `json:"length_cm,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	LocationLabel *string            `json:"location_label,omitempty"`
	Latitude      float64            `json:"latitude"`
	Longitude     float64            `json:"longitude"`
	Geohash       string             `json:"geohash"`
	GeoSource     *string            `json:"geo_source,omitempty"`
	GeoAccuracyM  *float64           `json:"geo_accuracy_m,omitempty"`
	Environmental *EnvironmentalData `json:"environmental_data,omitempty"`
}

// Client submits catch records.
type Client struct {
	api *transport.Client
}

func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

// CreateCatch posts one catch record. Failures come back as a Result, never
// an error.
func (c *Client) CreateCatch(ctx context.Context, payload CreateCatchPayload) transport.Result {
	return c.api.Do(ctx, http.MethodPost, "/catches", payload, transport.RequestOptions{})
}
