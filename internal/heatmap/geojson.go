package heatmap

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/vbonduro/floodzone/internal/domain"
)

// FeatureCollection encodes points as GeoJSON Point features carrying a
// "weight" property, the shape map renderers take for heatmap layers.
func FeatureCollection(points []domain.HeatmapPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		feat := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
		feat.Properties["weight"] = p.Weight
		fc.Append(feat)
	}
	return fc
}

// FeatureCollection encodes the current validated set.
func (d *Data) FeatureCollection() *geojson.FeatureCollection {
	return FeatureCollection(d.Points())
}
