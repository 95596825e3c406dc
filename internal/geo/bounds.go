package geo

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/cheapeats/internal/model"
)

// milesPerDegreeLat is the arc length of one degree of latitude.
const milesPerDegreeLat = EarthRadiusMiles * math.Pi / 180

// Radius is a circular search area around a center point. It keeps a
// lon/lat bounding box so most far-away points are rejected without
// trigonometry.
type Radius struct {
	Center model.Location
	Miles  float64
	box    *geom.Bounds
}

// NewRadius builds a search area of the given size in miles. The bounding box
// is padded by 0.1 mile to absorb the one-decimal rounding in Distance.
func NewRadius(center model.Location, miles float64) *Radius {
	pad := miles + 0.1
	dLat := pad / milesPerDegreeLat

	minLon, maxLon := -180.0, 180.0
	if cosLat := math.Cos(toRadians(center.Latitude)); cosLat > 1e-6 {
		dLon := dLat / cosLat
		if dLon < 180 {
			minLon = center.Longitude - dLon
			maxLon = center.Longitude + dLon
		}
	}

	box := geom.NewBounds(geom.XY).Set(
		minLon, center.Latitude-dLat,
		maxLon, center.Latitude+dLat,
	)
	return &Radius{Center: center, Miles: miles, box: box}
}

// Contains reports whether the point lies within the radius.
func (r *Radius) Contains(lat, lon float64) bool {
	if !r.box.OverlapsPoint(geom.XY, geom.Coord{lon, lat}) &&
		!r.box.OverlapsPoint(geom.XY, geom.Coord{wrapLon(lon), lat}) {
		return false
	}
	return Distance(r.Center.Latitude, r.Center.Longitude, lat, lon) <= r.Miles
}

// wrapLon shifts lon by a full turn toward the box so points across the
// antimeridian are still considered.
func wrapLon(lon float64) float64 {
	if lon < 0 {
		return lon + 360
	}
	return lon - 360
}
