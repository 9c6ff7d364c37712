package model

import "encoding/json"

// Settings holds the user-tunable behavior of the geo core.
type Settings struct {
	HighAccuracy     bool `json:"highAccuracy"`
	AutoWatch        bool `json:"autoWatch"`
	SaveWayfare      bool `json:"saveWayfare"`
	GeohashPrecision int  `json:"geohashPrecision"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		HighAccuracy:     true,
		AutoWatch:        false,
		SaveWayfare:      true,
		GeohashPrecision: 10,
	}
}

// UnmarshalJSON applies defaults field-wise so a stored blob that predates a
// setting still picks up its default.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw struct {
		HighAccuracy     *bool `json:"highAccuracy"`
		AutoWatch        *bool `json:"autoWatch"`
		SaveWayfare      *bool `json:"saveWayfare"`
		GeohashPrecision *int  `json:"geohashPrecision"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = DefaultSettings()
	if raw.HighAccuracy != nil {
		s.HighAccuracy = *raw.HighAccuracy
	}
	if raw.AutoWatch != nil {
		s.AutoWatch = *raw.AutoWatch
	}
	if raw.SaveWayfare != nil {
		s.SaveWayfare = *raw.SaveWayfare
	}
	if raw.GeohashPrecision != nil && *raw.GeohashPrecision >= 1 && *raw.GeohashPrecision <= 12 {
		s.GeohashPrecision = *raw.GeohashPrecision
	}
	return nil
}
