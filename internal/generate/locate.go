package generate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/normalize"
	"github.com/sells-group/cheapeats/pkg/places"
)

// jitterSpan is the width in degrees of the box a fallback location is drawn
// from, centered on the user.
const jitterSpan = 0.05

// Spot is a resolved restaurant location.
type Spot struct {
	model.Location
	Address string
}

// Locator finds the nearest branch of a chain. Without a places client, or
// when a search fails or finds nothing, it returns a point near the user.
type Locator struct {
	places       places.Client
	radiusMeters float64
	rand         normalize.Rand
}

// NewLocator creates a Locator. pc may be nil. r must be safe for concurrent
// use when the Locator is shared.
func NewLocator(pc places.Client, radiusMeters float64, r normalize.Rand) *Locator {
	if r == nil {
		r = normalize.Locked(normalize.SystemRand())
	}
	return &Locator{places: pc, radiusMeters: radiusMeters, rand: r}
}

// Nearest returns the closest known branch of chain to user.
func (l *Locator) Nearest(ctx context.Context, chain string, user model.Location) Spot {
	if l.places != nil {
		if spot, ok := l.search(ctx, chain, user); ok {
			return spot
		}
	}
	return l.jitter(chain, user)
}

func (l *Locator) search(ctx context.Context, chain string, user model.Location) (Spot, bool) {
	resp, err := l.places.SearchNearby(ctx, places.SearchRequest{
		Keyword:      chain,
		Latitude:     user.Latitude,
		Longitude:    user.Longitude,
		RadiusMeters: l.radiusMeters,
	})
	if err != nil {
		zap.L().Warn("generate: places search failed",
			zap.String("chain", chain),
			zap.Error(err),
		)
		return Spot{}, false
	}

	var (
		best     Spot
		bestDist float64
		found    bool
	)
	for _, p := range resp.Places {
		if p.Location == nil || !geo.Valid(p.Location.Latitude, p.Location.Longitude) {
			continue
		}
		loc := model.Location{Latitude: p.Location.Latitude, Longitude: p.Location.Longitude}
		d := geo.Between(user, loc)
		if !found || d < bestDist {
			address := p.FormattedAddress
			if address == "" {
				address = "Address not available"
			}
			best, bestDist, found = Spot{Location: loc, Address: address}, d, true
		}
	}
	return best, found
}

func (l *Locator) jitter(chain string, user model.Location) Spot {
	lat := user.Latitude + (l.rand.Float64()-0.5)*jitterSpan
	lon := user.Longitude + (l.rand.Float64()-0.5)*jitterSpan
	if !geo.Valid(lat, lon) {
		lat, lon = user.Latitude, user.Longitude
	}
	name := strings.TrimSpace(chain)
	if name == "" {
		name = normalize.DefaultRestaurant
	}
	return Spot{
		Location: model.Location{Latitude: lat, Longitude: lon},
		Address:  name + " near you",
	}
}
