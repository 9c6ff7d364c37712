package csvexport

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/catcha-app/geotag/internal/model"
	"github.com/catcha-app/geotag/internal/state"
	"github.com/catcha-app/geotag/pkg/errors"
	"github.com/catcha-app/geotag/pkg/logger"
)

const csvHeader = "latitude,longitude,Province,Municipality,Value"

// Classification defaults used when a coordinate carries none.
const (
	defaultProvince     = "Cagayan"
	defaultMunicipality = "Aparri"
	defaultValue        = "80"
)

// Service accumulates watch coordinates and exports them as CSV.
type Service struct {
	facade      *state.Facade
	sink        FileSink
	documentDir string
	cacheDir    string
	log         logger.Logger
	now         func() time.Time
}

func NewService(facade *state.Facade, sink FileSink, documentDir, cacheDir string, log logger.Logger) *Service {
	return &Service{
		facade:      facade,
		sink:        sink,
		documentDir: documentDir,
		cacheDir:    cacheDir,
		log:         log,
		now:         time.Now,
	}
}

// RecordWatchCoordinate appends a watch sample to the persisted list,
// stamping the recording time.
func (s *Service) RecordWatchCoordinate(ctx context.Context, sample model.LocationSample) error {
	coords := s.facade.WatchCoordinates(ctx)
	coords = append(coords, model.WatchCoordinate{
		LocationSample: sample,
		RecordedAt:     s.now().UnixMilli(),
	})
	return s.facade.SetWatchCoordinates(ctx, coords)
}

// Consume adapts the recorder to the geo service fan-out. Failures are
// logged; the stream must not stall on a full disk.
func (s *Service) Consume(ctx context.Context, sample model.LocationSample) {
	if err := s.RecordWatchCoordinate(ctx, sample); err != nil {
		s.log.Warn("failed to record watch coordinate", "error", err)
	}
}

// WatchCoordinates returns the accumulated coordinates.
func (s *Service) WatchCoordinates(ctx context.Context) []model.WatchCoordinate {
	return s.facade.WatchCoordinates(ctx)
}

// WatchCoordinateCount returns the number of accumulated coordinates.
func (s *Service) WatchCoordinateCount(ctx context.Context) int {
	return len(s.facade.WatchCoordinates(ctx))
}

// ClearWatchCoordinates removes the accumulated coordinates.
func (s *Service) ClearWatchCoordinates(ctx context.Context) error {
	return s.facade.ClearWatchCoordinates(ctx)
}

// CSVString renders the accumulated coordinates without touching the sink.
func (s *Service) CSVString(ctx context.Context) string {
	return generateCSV(s.facade.WatchCoordinates(ctx))
}

// ExportCSV writes the CSV to the document directory (cache directory as
// fallback) and hands it to the sharing surface. Returns the written path.
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	coords := s.facade.WatchCoordinates(ctx)
	if len(coords) == 0 {
		return "", errors.ErrNothingToExport
	}

	dir := s.documentDir
	if dir == "" {
		dir = s.cacheDir
	}
	name := "catcha-coordinates-" + s.now().UTC().Format("2006-01-02") + ".csv"
	path := filepath.Join(dir, name)

	if err := s.sink.WriteUTF8(path, generateCSV(coords)); err != nil {
		return "", err
	}

	if err := s.sink.Share(path, ShareOptions{
		MimeType:    "text/csv",
		DialogTitle: "Export Coordinates",
	}); err != nil {
		return "", err
	}

	return path, nil
}

func generateCSV(coords []model.WatchCoordinate) string {
	if len(coords) == 0 {
		return csvHeader + "\n"
	}

	lines := make([]string, 0, len(coords)+1)
	lines = append(lines, csvHeader)
	for _, c := range coords {
		cells := []string{
			strconv.FormatFloat(c.Latitude, 'f', -1, 64),
			strconv.FormatFloat(c.Longitude, 'f', -1, 64),
			orDefault(c.Province, defaultProvince),
			orDefault(c.Municipality, defaultMunicipality),
			valueCell(c.Value),
		}
		for i, cell := range cells {
			cells[i] = escapeCell(cell)
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

// escapeCell wraps a cell in double quotes when it contains a comma, quote
// or newline, doubling any embedded quote.
func escapeCell(cell string) string {
	if strings.ContainsAny(cell, ",\"\n") {
		return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return cell
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func valueCell(v *float64) string {
	if v == nil {
		return defaultValue
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
