package geo

import (
	"strings"

	"github.com/sells-group/cheapeats/internal/model"
)

// City is a named metro used as a default location and as a daily
// generation target.
type City struct {
	Name  string
	State string
	model.Location
}

// Label returns "Name, ST".
func (c City) Label() string {
	if c.State == "" {
		return c.Name
	}
	return c.Name + ", " + c.State
}

// MajorCities lists the metros deals are generated for, largest first.
var MajorCities = []City{
	{Name: "New York", State: "NY", Location: model.Location{Latitude: 40.7128, Longitude: -74.0060}},
	{Name: "Los Angeles", State: "CA", Location: model.Location{Latitude: 34.0522, Longitude: -118.2437}},
	{Name: "Chicago", State: "IL", Location: model.Location{Latitude: 41.8781, Longitude: -87.6298}},
	{Name: "Houston", State: "TX", Location: model.Location{Latitude: 29.7604, Longitude: -95.3698}},
	{Name: "Phoenix", State: "AZ", Location: model.Location{Latitude: 33.4484, Longitude: -112.0740}},
	{Name: "Philadelphia", State: "PA", Location: model.Location{Latitude: 39.9526, Longitude: -75.1652}},
	{Name: "San Antonio", State: "TX", Location: model.Location{Latitude: 29.4241, Longitude: -98.4936}},
	{Name: "San Diego", State: "CA", Location: model.Location{Latitude: 32.7157, Longitude: -117.1611}},
	{Name: "Dallas", State: "TX", Location: model.Location{Latitude: 32.7767, Longitude: -96.7970}},
	{Name: "Austin", State: "TX", Location: model.Location{Latitude: 30.2672, Longitude: -97.7431}},
}

// LookupCity finds a major city by name, ignoring case and an optional
// ", ST" suffix.
func LookupCity(name string) (City, bool) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	for _, c := range MajorCities {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return City{}, false
}

// SelectCities returns the named cities in the given order, or all major
// cities when names is empty. Unknown names are reported in missing.
func SelectCities(names []string) (cities []City, missing []string) {
	if len(names) == 0 {
		return append([]City(nil), MajorCities...), nil
	}
	for _, n := range names {
		c, ok := LookupCity(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		cities = append(cities, c)
	}
	return cities, missing
}
