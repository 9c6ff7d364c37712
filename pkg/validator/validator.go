package validator

import (
	"math"

	apperrors "github.com/catcha-app/geotag/pkg/errors"
)

type Validator interface {
	ValidateCoordinates(lat, lon float64) error
	ValidatePrecision(precision int) error
	ValidateAccuracy(accuracyM float64) error
}

type validator struct{}

func NewValidator() Validator {
	return &validator{}
}

func (v *validator) ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return apperrors.ErrNonFiniteInput
	}

	if lat < -90 || lat > 90 {
		return apperrors.ErrInvalidLatitude
	}

	if lon < -180 || lon > 180 {
		return apperrors.ErrInvalidLongitude
	}

	return nil
}

func (v *validator) ValidatePrecision(precision int) error {
	if precision < 1 || precision > 12 {
		return apperrors.ErrInvalidPrecision
	}

	return nil
}

func (v *validator) ValidateAccuracy(accuracyM float64) error {
	if math.IsNaN(accuracyM) || accuracyM < 0 {
		return apperrors.ErrInvalidAccuracy
	}

	return nil
}
