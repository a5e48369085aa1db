package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/vbonduro/floodzone/internal/domain"
	"github.com/vbonduro/floodzone/internal/heatmap"
	"github.com/vbonduro/floodzone/internal/search"
)

// heatmapLoader is the subset of heatmap.Data that MapScreen requires.
type heatmapLoader interface {
	Fetch(ctx context.Context, at *domain.Coordinate) error
	Refresh(ctx context.Context) error
	Points() []domain.HeatmapPoint
	Err() string
}

// MapScreen centres the map, keeps the heatmap in step with it and owns the
// search box shown above it.
type MapScreen struct {
	location LocationProvider
	heat     heatmapLoader
	flow     *search.Flow
	logger   *slog.Logger

	mu     sync.RWMutex
	region Region
}

func NewMapScreen(location LocationProvider, heat heatmapLoader, flow *search.Flow, logger *slog.Logger) *MapScreen {
	return &MapScreen{
		location: location,
		heat:     heat,
		flow:     flow,
		logger:   logger,
		region:   regionAt(FallbackCoordinate, FallbackDelta),
	}
}

// Open centres on the device, or on FallbackCoordinate when the device
// location is unavailable, and loads the heatmap there. The region is set
// even when the heatmap fails.
func (m *MapScreen) Open(ctx context.Context) (Region, error) {
	region := regionAt(FallbackCoordinate, FallbackDelta)
	coord, err := m.location.Current(ctx)
	switch {
	case err != nil:
		m.logger.Warn("using fallback location", "error", err)
	case coord != nil:
		region = regionAt(*coord, DeviceDelta)
	}
	m.setRegion(region)

	center := region.Center
	return region, m.heat.Fetch(ctx, &center)
}

// Flow is the search box; feed keystrokes to Flow().SetQuery.
func (m *MapScreen) Flow() *search.Flow {
	return m.flow
}

// SelectResult jumps to the i-th autocomplete result.
func (m *MapScreen) SelectResult(ctx context.Context, i int) (*domain.SearchResult, error) {
	res, err := m.flow.Select(i)
	if err != nil {
		return nil, err
	}
	return res, m.moveTo(ctx, res)
}

// Search resolves the typed text with a fuzzy search and jumps there.
func (m *MapScreen) Search(ctx context.Context) (*domain.SearchResult, error) {
	res, err := m.flow.Search(ctx)
	if err != nil {
		return nil, err
	}
	return res, m.moveTo(ctx, res)
}

func (m *MapScreen) Refresh(ctx context.Context) error {
	return m.heat.Refresh(ctx)
}

func (m *MapScreen) Region() Region {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.region
}

func (m *MapScreen) Points() []domain.HeatmapPoint {
	return m.heat.Points()
}

// VisiblePoints are the heatmap points inside the current region.
func (m *MapScreen) VisiblePoints() []domain.HeatmapPoint {
	bound := m.Region().Bound()
	visible := []domain.HeatmapPoint{}
	for _, p := range m.heat.Points() {
		if bound.Contains(orb.Point{p.Longitude, p.Latitude}) {
			visible = append(visible, p)
		}
	}
	return visible
}

// GeoJSON is the loaded heatmap as a FeatureCollection for a map renderer.
func (m *MapScreen) GeoJSON() *geojson.FeatureCollection {
	return heatmap.FeatureCollection(m.heat.Points())
}

// HeatmapError is the user-facing heatmap error, or "".
func (m *MapScreen) HeatmapError() string {
	return m.heat.Err()
}

func (m *MapScreen) Close() {
	m.flow.Close()
}

func (m *MapScreen) moveTo(ctx context.Context, res *domain.SearchResult) error {
	center := res.Coordinate()
	m.setRegion(regionAt(center, SearchDelta))
	return m.heat.Fetch(ctx, &center)
}

func (m *MapScreen) setRegion(r Region) {
	m.mu.Lock()
	m.region = r
	m.mu.Unlock()
}
