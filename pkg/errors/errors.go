package errors

import "errors"

var (
	// Validation errors
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrInvalidPrecision = errors.New("geohash precision must be between 1 and 12")
	ErrNonFiniteInput   = errors.New("coordinates must be finite numbers")
	ErrInvalidAccuracy  = errors.New("accuracy must be non-negative")

	// Configuration errors
	ErrNoAPIBaseURL = errors.New("API base URL is not configured")

	// Export errors
	ErrNothingToExport = errors.New("no coordinates to export")
)
