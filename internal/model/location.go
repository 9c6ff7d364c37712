package model

// Source describes how a location sample was obtained.
type Source string

const (
	SourceGPS     Source = "gps"
	SourceNetwork Source = "network"
	SourceClick   Source = "click"
	SourceDrag    Source = "drag"
	SourceWatch   Source = "watch"
)

// LocationSample is a single geo fix. Geohash is always derived from the
// stored coordinates at the configured precision; re-encoding reproduces it
// byte for byte.
type LocationSample struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // meters
	Source    Source   `json:"source"`
	Timestamp int64    `json:"timestamp"` // ms since epoch
	Geohash   string   `json:"geohash"`
}

// AccuracyOrDefault returns the sample accuracy, substituting def when the
// accuracy is missing or non-positive.
func (s LocationSample) AccuracyOrDefault(def float64) float64 {
	if s.Accuracy != nil && *s.Accuracy > 0 {
		return *s.Accuracy
	}
	return def
}

// Float64 returns a pointer to v; convenience for optional fields.
func Float64(v float64) *float64 { return &v }

// WayfarePoint is a sample recorded inside a wayfare session.
type WayfarePoint struct {
	ID string `json:"id"`
	LocationSample
}

// WayfareMeta describes the state of the wayfare recorder.
type WayfareMeta struct {
	StartedAt *int64 `json:"startedAt"` // ms, nil until first start
	StoppedAt *int64 `json:"stoppedAt"`
	Total     int    `json:"total"`
	IsRunning bool   `json:"isRunning"`
}

// WayfareTrack bundles the recorded points with their metadata.
type WayfareTrack struct {
	Points []WayfarePoint `json:"points"`
	Meta   WayfareMeta    `json:"meta"`
}

// WatchCoordinate is a watch sample captured for CSV export, optionally
// classified by the operator.
type WatchCoordinate struct {
	LocationSample
	RecordedAt   int64    `json:"recordedAt"` // ms; always >= Timestamp
	Province     string   `json:"province,omitempty"`
	Municipality string   `json:"municipality,omitempty"`
	Value        *float64 `json:"value,omitempty"`
}

// LiveTrackHandle identifies a server-side live track session.
type LiveTrackHandle struct {
	PublicID  string `json:"publicId"`
	WriteKey  string `json:"writeKey"`
	IngestURL string `json:"ingestUrl"`
	PollURL   string `json:"pollUrl"`
	MapURL    string `json:"mapUrl"`
}

// Valid reports whether the handle can authenticate point pushes.
func (h LiveTrackHandle) Valid() bool {
	return h.PublicID != "" && h.WriteKey != ""
}
