// Package normalize turns loosely typed deal candidates into canonical deals.
package normalize

import (
	"math"
	"strconv"
	"time"

	"github.com/sells-group/cheapeats/internal/classify"
	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/price"
)

// Defaults applied to blank candidate fields.
const (
	DefaultRestaurant      = "Local Restaurant"
	DefaultTitle           = "Special Fast Food Deal"
	DefaultDescription     = "Limited time offer on fast food favorites"
	DefaultGeneratedSource = "AI Generated - Fast Food Database"
	DefaultStoreScore      = 75
	MinGeneratedScore      = 75
	MaxGeneratedScore      = 100
)

// Result is the output of one Normalize call.
type Result struct {
	Deals []model.Deal
	// Dropped counts candidates that had neither a restaurant nor a title.
	Dropped int
	// RawIndex[i] is the position in the input of the candidate Deals[i]
	// was built from.
	RawIndex []int
}

// Normalizer converts candidates to deals. Time, ids and randomness are
// injected so output is reproducible under test.
type Normalizer struct {
	clock Clock
	ids   IDSource
	rand  Rand
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(n *Normalizer) { n.clock = c }
}

// WithIDs sets the id source.
func WithIDs(ids IDSource) Option {
	return func(n *Normalizer) { n.ids = ids }
}

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(n *Normalizer) { n.rand = r }
}

// New creates a Normalizer using the wall clock, UUID ids and an entropy
// seeded generator unless overridden.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{clock: SystemClock, ids: UUIDs, rand: Locked(SystemRand())}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts raws in order. Candidates missing both restaurantName
// and title are dropped and counted; every other malformed field falls back
// to a default. len(Deals)+Dropped always equals len(raws).
func (n *Normalizer) Normalize(raws []model.Candidate, user model.Location, origin model.Origin) Result {
	res := Result{Deals: make([]model.Deal, 0, len(raws)), RawIndex: make([]int, 0, len(raws))}
	usedIDs := make(map[string]bool, len(raws))
	now := n.clock.Now()

	for i, raw := range raws {
		d, ok := n.one(raw, user, origin, now)
		if !ok {
			res.Dropped++
			continue
		}
		if d.ID == "" || usedIDs[d.ID] {
			d.ID = n.freshID(usedIDs)
		}
		usedIDs[d.ID] = true
		res.Deals = append(res.Deals, d)
		res.RawIndex = append(res.RawIndex, i)
	}
	return res
}

// freshID asks the id source for an unused id, suffixing a counter if the
// source keeps repeating itself.
func (n *Normalizer) freshID(used map[string]bool) string {
	id := n.ids.NewID()
	for attempt := 0; attempt < 3 && (id == "" || used[id]); attempt++ {
		id = n.ids.NewID()
	}
	base := id
	if base == "" {
		base = "deal"
	}
	for i := 1; id == "" || used[id]; i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	return id
}

func (n *Normalizer) one(raw model.Candidate, user model.Location, origin model.Origin, now time.Time) (model.Deal, bool) {
	restaurant := raw.String("restaurantName")
	title := raw.String("title")
	if restaurant == "" && title == "" {
		return model.Deal{}, false
	}
	if restaurant == "" {
		restaurant = DefaultRestaurant
	}
	if title == "" {
		title = DefaultTitle
	}
	description := raw.String("description")
	if description == "" {
		description = DefaultDescription
	}

	category, ok := model.ParseCategory(raw.String("category"))
	if !ok {
		category = classify.Category(restaurant)
	}

	originalPrice := raw.String("originalPrice")
	dealPrice := raw.String("dealPrice")

	dealType := model.DealType(raw.String("dealType"))
	if !dealType.Valid() {
		dealType = classify.DealType(title, dealPrice)
	}

	lat, lon := position(raw, user)

	d := model.Deal{
		ID:              raw.String("id"),
		RestaurantName:  restaurant,
		Title:           title,
		Description:     description,
		Category:        category,
		OriginalPrice:   originalPrice,
		DealPrice:       dealPrice,
		DiscountPercent: price.Discount(originalPrice, dealPrice),
		DealType:        dealType,
		Restrictions:    classify.RestrictionsFor(title, description),
		Latitude:        lat,
		Longitude:       lon,
		Distance:        geo.Distance(user.Latitude, user.Longitude, lat, lon),
		Source:          raw.String("source"),
		SourceURL:       raw.String("sourceUrl"),
		ExpirationDate:  raw.String("expirationDate"),
	}

	switch origin {
	case model.OriginStore:
		d.Verified = true
		d.QualityScore = storedScore(raw)
	default:
		d.Verified = false
		d.QualityScore = MinGeneratedScore + n.rand.IntN(MaxGeneratedScore-MinGeneratedScore+1)
		if d.Source == "" {
			d.Source = DefaultGeneratedSource
		}
		if d.ExpirationDate == "" {
			d.ExpirationDate = n.expiration(now)
		}
	}
	return d, true
}

// position returns the candidate's coordinates, or the user's when either is
// missing or out of range.
func position(raw model.Candidate, user model.Location) (float64, float64) {
	lat, okLat := raw.Float("latitude")
	lon, okLon := raw.Float("longitude")
	if okLat && okLon && geo.Valid(lat, lon) {
		return lat, lon
	}
	return user.Latitude, user.Longitude
}

func storedScore(raw model.Candidate) int {
	v, ok := raw.Float("qualityScore")
	if !ok || v <= 0 {
		return DefaultStoreScore
	}
	return int(math.Min(100, math.Round(v)))
}

// expiration is 7 to 27 days after now.
func (n *Normalizer) expiration(now time.Time) string {
	return now.AddDate(0, 0, 7+n.rand.IntN(21)).UTC().Format(time.DateOnly)
}
