// Package dedup removes exact and near-duplicate deals and caps how many
// deals a single restaurant may contribute.
//
// Deduplicate is a greedy single pass: each deal is compared only against
// deals already accepted, so the caller's input order decides which of two
// near-duplicates survives. The first one seen wins. Callers that merge
// several batches must merge first and deduplicate once.
package dedup

import (
	"strings"

	"github.com/sells-group/cheapeats/internal/model"
)

// MaxPerRestaurant caps accepted deals per restaurant name (case-insensitive).
const MaxPerRestaurant = 2

// SimilarityThreshold is the title word-overlap ratio above which two deals
// of the same restaurant are near-duplicates.
const SimilarityThreshold = 0.6

// Reason explains why a deal was rejected.
type Reason string

const (
	ReasonExactDuplicate Reason = "exact_duplicate"
	ReasonRestaurantCap  Reason = "restaurant_cap"
	ReasonNearDuplicate  Reason = "near_duplicate"
)

// promoMarkers are promotional phrases that make two titles of the same
// restaurant near-duplicates when both contain one.
var promoMarkers = []string{
	"bogo", "happy hour", "free", "$1", "$2", "$3", "$4", "$5",
	"combo", "meal", "box", "special", "off",
}

// keyStopwords are skipped when picking the significant title words of a key.
var keyStopwords = map[string]bool{
	"deal": true, "off": true, "the": true, "and": true, "for": true, "with": true,
}

// Result is the accepted deals plus rejection counts per reason.
type Result struct {
	Deals    []model.Deal
	Rejected map[Reason]int
}

// Total returns the number of rejected deals.
func (r Result) Total() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Deduplicate filters deals in input order. A deal is rejected when its key
// was already accepted, when its restaurant already has MaxPerRestaurant
// accepted deals, or when it is similar to an accepted deal of the same
// restaurant.
func Deduplicate(deals []model.Deal) Result {
	res := Result{
		Deals:    make([]model.Deal, 0, len(deals)),
		Rejected: make(map[Reason]int),
	}
	seen := make(map[string]bool, len(deals))
	accepted := make(map[string][]string) // restaurant -> lowered titles

	for _, d := range deals {
		restaurant := strings.ToLower(d.RestaurantName)
		key := Key(d)
		if seen[key] {
			res.Rejected[ReasonExactDuplicate]++
			continue
		}
		titles := accepted[restaurant]
		if len(titles) >= MaxPerRestaurant {
			res.Rejected[ReasonRestaurantCap]++
			continue
		}
		title := strings.ToLower(d.Title)
		if similarToAny(title, titles) {
			res.Rejected[ReasonNearDuplicate]++
			continue
		}

		seen[key] = true
		accepted[restaurant] = append(titles, title)
		res.Deals = append(res.Deals, d)
	}
	return res
}

// Key is the exact-duplicate key: lowered restaurant, up to three
// significant title words and the lowered deal price.
func Key(d model.Deal) string {
	var words []string
	for _, w := range strings.Split(strings.ToLower(d.Title), " ") {
		if len(w) > 3 && !keyStopwords[w] {
			words = append(words, w)
			if len(words) == 3 {
				break
			}
		}
	}
	return strings.ToLower(d.RestaurantName) + "-" + strings.Join(words, "-") + "-" + strings.ToLower(d.DealPrice)
}

func similarToAny(title string, accepted []string) bool {
	for _, other := range accepted {
		if Similar(title, other) {
			return true
		}
	}
	return false
}

// Similar reports whether two lowered titles share a promotional marker or
// overlap by more than SimilarityThreshold of their words.
func Similar(a, b string) bool {
	for _, m := range promoMarkers {
		if strings.Contains(a, m) && strings.Contains(b, m) {
			return true
		}
	}
	return Overlap(a, b) > SimilarityThreshold
}

// Overlap is the number of distinct words the titles share, divided by the
// larger distinct word count.
func Overlap(a, b string) float64 {
	setA, setB := wordSet(a), wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	matches := 0
	for w := range setA {
		if setB[w] {
			matches++
		}
	}
	return float64(matches) / float64(max(len(setA), len(setB)))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
