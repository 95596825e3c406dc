// Package listing filters, sorts and summarises deals for presentation.
package listing

import (
	"math"
	"slices"
	"strings"

	"github.com/sells-group/cheapeats/internal/classify"
	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/price"
)

// DistanceBand is the distance difference in miles below which two deals are
// ordered by quality instead.
const DistanceBand = 0.5

// SortKey selects the listing order.
type SortKey string

const (
	SortDistance SortKey = "distance"
	SortPrice    SortKey = "price"
	SortSavings  SortKey = "savings"
	SortRating   SortKey = "rating"
)

// ParseSortKey maps s to a SortKey. Blank input is SortDistance; ok is false
// for unknown keys.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortDistance, true
	case SortDistance, SortPrice, SortSavings, SortRating:
		return k, true
	default:
		return SortDistance, false
	}
}

// Options controls Assemble.
type Options struct {
	// Search is matched case-insensitively against title, restaurant name
	// and description. Blank means no filtering.
	Search string
	Sort   SortKey
	// Radius, when set, drops deals outside it.
	Radius *geo.Radius
}

// Assemble returns the deals matching opts in the requested order. The input
// slice is not modified.
//
// The distance order is primary with a DistanceBand indifference band inside
// which higher quality comes first. That comparison is not transitive, so
// for long runs of closely spaced deals the result depends on input order;
// the sort is stable to keep it reproducible.
func Assemble(deals []model.Deal, opts Options) []model.Deal {
	term := classify.Fold(opts.Search)
	out := make([]model.Deal, 0, len(deals))
	for _, d := range deals {
		if term != "" && !matches(d, term) {
			continue
		}
		if opts.Radius != nil && !opts.Radius.Contains(d.Latitude, d.Longitude) {
			continue
		}
		out = append(out, d)
	}

	switch opts.Sort {
	case SortPrice:
		slices.SortStableFunc(out, func(a, b model.Deal) int {
			return compareFloat(price.Parse(a.DealPrice), price.Parse(b.DealPrice))
		})
	case SortSavings:
		slices.SortStableFunc(out, func(a, b model.Deal) int {
			return savings(b) - savings(a)
		})
	case SortRating:
		slices.SortStableFunc(out, func(a, b model.Deal) int {
			return b.QualityScore - a.QualityScore
		})
	default:
		slices.SortStableFunc(out, compareDistance)
	}
	return out
}

func compareDistance(a, b model.Deal) int {
	if math.Abs(a.Distance-b.Distance) > DistanceBand {
		return compareFloat(a.Distance, b.Distance)
	}
	return b.QualityScore - a.QualityScore
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func matches(d model.Deal, term string) bool {
	return strings.Contains(classify.Fold(d.Title), term) ||
		strings.Contains(classify.Fold(d.RestaurantName), term) ||
		strings.Contains(classify.Fold(d.Description), term)
}

// savings is the deal's discount, derived from its prices when unset.
func savings(d model.Deal) int {
	if d.DiscountPercent != nil {
		return *d.DiscountPercent
	}
	if pct := price.DiscountPercent(price.Parse(d.OriginalPrice), price.Parse(d.DealPrice)); pct != nil {
		return *pct
	}
	return 0
}
