// Package geo provides great-circle distance and coordinate helpers for deal listings.
package geo

import (
	"math"

	"github.com/sells-group/cheapeats/internal/model"
)

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3959.0

// Distance returns the Haversine great-circle distance in miles between two
// points, rounded to one decimal place. NaN inputs propagate to the result;
// callers validate coordinates with Valid first.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(EarthRadiusMiles*c*10) / 10
}

// Between is Distance for two locations.
func Between(from, to model.Location) float64 {
	return Distance(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

// Valid reports whether lat/lon are finite and inside [-90,90] x [-180,180].
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidLocation is Valid for a Location.
func ValidLocation(loc model.Location) bool {
	return Valid(loc.Latitude, loc.Longitude)
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
