package geo

import (
	"math"
	"testing"

	"github.com/mmcloughlin/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeGeohash(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lon       float64
		precision int
		want      string
	}{
		{
			name:      "San Francisco",
			lat:       37.7749,
			lon:       -122.4194,
			precision: 8,
			want:      "9q8yyk8y",
		},
		{
			name:      "null island",
			lat:       0,
			lon:       0,
			precision: 5,
			want:      "s0000",
		},
		{
			name:      "single character",
			lat:       37.7749,
			lon:       -122.4194,
			precision: 1,
			want:      "9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeGeohash(tt.lat, tt.lon, tt.precision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeGeohashPrecisionBounds(t *testing.T) {
	short, err := EncodeGeohash(37.7749, -122.4194, 1)
	require.NoError(t, err)
	assert.Len(t, short, 1)

	long, err := EncodeGeohash(37.7749, -122.4194, 12)
	require.NoError(t, err)
	assert.Len(t, long, 12)

	_, err = EncodeGeohash(37.7749, -122.4194, 0)
	assert.Error(t, err)

	_, err = EncodeGeohash(37.7749, -122.4194, 13)
	assert.Error(t, err)
}

func TestEncodeGeohashBoundaryCoordinates(t *testing.T) {
	for _, c := range []struct{ lat, lon float64 }{
		{90, 0}, {-90, 0}, {0, 180}, {0, -180}, {90, 180}, {-90, -180},
	} {
		h, err := EncodeGeohash(c.lat, c.lon, 10)
		require.NoError(t, err)
		assert.Len(t, h, 10)
	}
}

func TestEncodeGeohashNonFinite(t *testing.T) {
	_, err := EncodeGeohash(math.NaN(), 0, 10)
	assert.Error(t, err)

	_, err = EncodeGeohash(0, math.Inf(1), 10)
	assert.Error(t, err)
}

// Cross-check against the reference library on interior coordinates. Exact
// cell boundaries are excluded: the inclusive-midpoint rule and float bit
// twiddling may legitimately disagree there.
func TestEncodeGeohashMatchesReference(t *testing.T) {
	points := []struct{ lat, lon float64 }{
		{37.7749, -122.4194},
		{40.7128, -74.0060},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{35.6762, 139.6503},
		{-6.2, 106.816},
	}

	for _, p := range points {
		for _, precision := range []int{5, 8, 10, 12} {
			got, err := EncodeGeohash(p.lat, p.lon, precision)
			require.NoError(t, err)
			want := geohash.EncodeWithPrecision(p.lat, p.lon, uint(precision))
			assert.Equalf(t, want, got, "lat=%v lon=%v precision=%d", p.lat, p.lon, precision)
		}
	}
}

func TestMustEncodeGeohash(t *testing.T) {
	assert.Equal(t, "s0000", MustEncodeGeohash(0, 0, 5))
	assert.Equal(t, "", MustEncodeGeohash(math.NaN(), 0, 5))
}

func BenchmarkEncodeGeohash(b *testing.B) {
	for i := 0; i < b.N; i++ {
		EncodeGeohash(37.7749, -122.4194, 10)
	}
}
