package app

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/vbonduro/floodzone/internal/config"
	"github.com/vbonduro/floodzone/internal/domain"
)

// FallbackCoordinate is used when the device location is unavailable.
var FallbackCoordinate = domain.Coordinate{Latitude: -23.5438, Longitude: -46.5610}

// Region spans, in degrees, for each way the map can be centred.
const (
	DeviceDelta   = 0.02
	FallbackDelta = 0.05
	SearchDelta   = 0.01
)

var ErrLocationUnavailable = errors.New("device location unavailable")

// LocationProvider reports where the device is.
type LocationProvider interface {
	Current(ctx context.Context) (*domain.Coordinate, error)
}

// StaticLocation is a fixed device location, typically from configuration.
type StaticLocation struct {
	coord *domain.Coordinate
}

// NewConfigLocation reads FLOODZONE_LATITUDE and FLOODZONE_LONGITUDE. When
// either is missing the provider reports ErrLocationUnavailable.
func NewConfigLocation(cfg *config.Config) StaticLocation {
	if cfg.DeviceLatitude == nil || cfg.DeviceLongitude == nil {
		return StaticLocation{}
	}
	return StaticLocation{coord: &domain.Coordinate{Latitude: *cfg.DeviceLatitude, Longitude: *cfg.DeviceLongitude}}
}

func (l StaticLocation) Current(context.Context) (*domain.Coordinate, error) {
	if l.coord == nil {
		return nil, ErrLocationUnavailable
	}
	c := *l.coord
	return &c, nil
}

// Region is the visible map area.
type Region struct {
	Center         domain.Coordinate
	LatitudeDelta  float64
	LongitudeDelta float64
}

func regionAt(c domain.Coordinate, delta float64) Region {
	return Region{Center: c, LatitudeDelta: delta, LongitudeDelta: delta}
}

// Bound is the visible rectangle. Points are (longitude, latitude).
func (r Region) Bound() orb.Bound {
	halfLat, halfLon := r.LatitudeDelta/2, r.LongitudeDelta/2
	return orb.Bound{
		Min: orb.Point{r.Center.Longitude - halfLon, r.Center.Latitude - halfLat},
		Max: orb.Point{r.Center.Longitude + halfLon, r.Center.Latitude + halfLat},
	}
}
