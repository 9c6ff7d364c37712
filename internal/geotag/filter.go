package geotag

import (
	"github.com/catcha-app/geotag/internal/geo"
	"github.com/catcha-app/geotag/internal/model"
)

const (
	windowSize       = 5
	goodAccuracyM    = 50.0 // samples at or under this are trusted
	maxAccuracyM     = 5000.0
	defaultAccuracyM = goodAccuracyM
)

// SmoothingFilter keeps a FIFO window of accepted samples and produces an
// accuracy-weighted mean position. It is not safe for concurrent use; the
// service serialises access under its own mutex.
type SmoothingFilter struct {
	window     []model.LocationSample
	lastOutput *model.LocationSample
}

func NewSmoothingFilter() *SmoothingFilter {
	return &SmoothingFilter{}
}

// Apply feeds one raw sample through the filter. The returned bool is false
// when the sample was dropped entirely and nothing should be emitted.
//
// Obviously-bad readings (accuracy above 5 km) never enter the window; the
// previous smoothed output is re-emitted instead. During a watch, a
// low-quality sample is dropped while the window still holds a good one.
func (f *SmoothingFilter) Apply(sample model.LocationSample, precision int) (model.LocationSample, bool) {
	if sample.Accuracy != nil && *sample.Accuracy > maxAccuracyM {
		if f.lastOutput != nil {
			return *f.lastOutput, true
		}
		return sample, true
	}

	if sample.Source == model.SourceWatch && sample.Accuracy != nil && *sample.Accuracy > goodAccuracyM {
		if last, ok := f.newest(); ok && last.AccuracyOrDefault(defaultAccuracyM) <= goodAccuracyM {
			return model.LocationSample{}, false
		}
	}

	f.window = append(f.window, sample)
	if len(f.window) > windowSize {
		f.window = f.window[1:]
	}

	var sumLat, sumLon, sumW float64
	bestAcc := maxAccuracyM
	for _, s := range f.window {
		acc := s.AccuracyOrDefault(defaultAccuracyM)
		w := 1 / acc
		sumLat += s.Latitude * w
		sumLon += s.Longitude * w
		sumW += w
		if acc < bestAcc {
			bestAcc = acc
		}
	}

	out := sample
	out.Latitude = sumLat / sumW
	out.Longitude = sumLon / sumW
	out.Accuracy = model.Float64(bestAcc)
	out.Geohash = geo.MustEncodeGeohash(out.Latitude, out.Longitude, precision)

	f.lastOutput = &out
	return out, true
}

func (f *SmoothingFilter) newest() (model.LocationSample, bool) {
	if len(f.window) == 0 {
		return model.LocationSample{}, false
	}
	return f.window[len(f.window)-1], true
}

// WindowLen reports the current window occupancy.
func (f *SmoothingFilter) WindowLen() int {
	return len(f.window)
}

// Reset empties the window and forgets the last output.
func (f *SmoothingFilter) Reset() {
	f.window = nil
	f.lastOutput = nil
}
