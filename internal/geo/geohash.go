package geo

import (
	"math"

	apperrors "github.com/catcha-app/geotag/pkg/errors"
)

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// DefaultPrecision is the geohash length used when callers do not override it.
const DefaultPrecision = 10

// EncodeGeohash encodes latitude and longitude into a geohash of exactly
// precision characters. Refinement alternates longitude/latitude starting
// with longitude; a value equal to the midpoint goes into the upper half, so
// boundary coordinates like lat=90 or lon=180 encode cleanly.
func EncodeGeohash(lat, lon float64, precision int) (string, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return "", apperrors.ErrNonFiniteInput
	}
	if precision < 1 || precision > 12 {
		return "", apperrors.ErrInvalidPrecision
	}

	var (
		hash           []byte
		evenBit        = true
		latMin, latMax = -90.0, 90.0
		lonMin, lonMax = -180.0, 180.0
		ch, bit        int
	)

	for len(hash) < precision {
		if evenBit {
			// longitude
			mid := (lonMin + lonMax) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				lonMin = mid
			} else {
				lonMax = mid
			}
		} else {
			// latitude
			mid := (latMin + latMax) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				latMin = mid
			} else {
				latMax = mid
			}
		}

		evenBit = !evenBit

		if bit < 4 {
			bit++
		} else {
			hash = append(hash, base32[ch])
			bit = 0
			ch = 0
		}
	}

	return string(hash), nil
}

// MustEncodeGeohash is EncodeGeohash for inputs already known to be valid;
// it falls back to an empty string instead of returning an error.
func MustEncodeGeohash(lat, lon float64, precision int) string {
	h, err := EncodeGeohash(lat, lon, precision)
	if err != nil {
		return ""
	}
	return h
}
