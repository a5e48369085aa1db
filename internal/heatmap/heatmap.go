package heatmap

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/vbonduro/floodzone/internal/domain"
)

// ErrorMessage is the user-facing text set when a fetch fails.
const ErrorMessage = "failed to load heatmap data"

// pointSource is the subset of service.ReportService that Data requires.
type pointSource interface {
	Heatmap(ctx context.Context, latitude, longitude float64) ([]domain.RawHeatmapPoint, error)
}

// Data holds the validated density points currently shown on the map.
type Data struct {
	src    pointSource
	logger *slog.Logger

	mu      sync.RWMutex
	points  []domain.HeatmapPoint
	loading bool
	errMsg  string
	last    domain.Coordinate
}

func NewData(src pointSource, logger *slog.Logger) *Data {
	return &Data{src: src, logger: logger, points: []domain.HeatmapPoint{}}
}

// Fetch loads points around at; a nil coordinate means (0, 0). On success the
// whole set is replaced. On failure the previous set is kept and Err is set.
func (d *Data) Fetch(ctx context.Context, at *domain.Coordinate) error {
	var coord domain.Coordinate
	if at != nil {
		coord = *at
	}

	d.mu.Lock()
	d.loading = true
	d.errMsg = ""
	d.last = coord
	d.mu.Unlock()

	raw, err := d.src.Heatmap(ctx, coord.Latitude, coord.Longitude)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		d.errMsg = ErrorMessage
		d.logger.Error("heatmap fetch failed", "lat", coord.Latitude, "lon", coord.Longitude, "error", err)
		return err
	}

	d.points = Validate(raw)
	d.logger.Debug("heatmap loaded", "received", len(raw), "kept", len(d.points))
	return nil
}

// Refresh fetches again without a coordinate, which queries (0, 0).
// TODO: confirm with product whether refresh should reuse LastCoordinate.
func (d *Data) Refresh(ctx context.Context) error {
	d.logger.Warn("heatmap refresh has no coordinate, querying origin")
	return d.Fetch(ctx, nil)
}

// Points returns a copy of the validated set.
func (d *Data) Points() []domain.HeatmapPoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.HeatmapPoint, len(d.points))
	copy(out, d.points)
	return out
}

func (d *Data) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

func (d *Data) Err() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.errMsg
}

// LastCoordinate is the coordinate queried by the most recent fetch.
func (d *Data) LastCoordinate() domain.Coordinate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Validate keeps points whose latitude and longitude are finite JSON numbers.
// Weight is the source weight when it is a usable non-zero number, else 1.
// Numeric strings are parsed first, so "4" weighs 4 and "0" falls back to 1
// like a numeric zero.
func Validate(raw []domain.RawHeatmapPoint) []domain.HeatmapPoint {
	out := make([]domain.HeatmapPoint, 0, len(raw))
	for _, p := range raw {
		lat, ok := finite(p.Latitude)
		if !ok {
			continue
		}
		lon, ok := finite(p.Longitude)
		if !ok {
			continue
		}
		out = append(out, domain.HeatmapPoint{Latitude: lat, Longitude: lon, Weight: weight(p.Weight)})
	}
	return out
}

func finite(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func weight(v any) float64 {
	var w float64
	switch t := v.(type) {
	case float64:
		w = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 1
		}
		w = parsed
	default:
		return 1
	}
	if w == 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return 1
	}
	return w
}
