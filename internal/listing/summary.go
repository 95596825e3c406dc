package listing

import (
	"math"
	"strings"

	"github.com/sells-group/cheapeats/internal/model"
)

// Summary aggregates a listing.
type Summary struct {
	TotalDeals     int              `json:"totalDeals"`
	AverageQuality int              `json:"averageQuality"`
	Categories     []model.Category `json:"categories"`
	Restaurants    int              `json:"restaurants"`
}

// Summarize computes listing stats. Categories keep first-seen order and
// restaurants are counted case-insensitively.
func Summarize(deals []model.Deal) Summary {
	s := Summary{TotalDeals: len(deals), Categories: []model.Category{}}
	if len(deals) == 0 {
		return s
	}

	seenCategory := make(map[model.Category]bool)
	restaurants := make(map[string]bool)
	total := 0
	for _, d := range deals {
		total += d.QualityScore
		if !seenCategory[d.Category] {
			seenCategory[d.Category] = true
			s.Categories = append(s.Categories, d.Category)
		}
		restaurants[strings.ToLower(d.RestaurantName)] = true
	}
	s.AverageQuality = int(math.Round(float64(total) / float64(len(deals))))
	s.Restaurants = len(restaurants)
	return s
}
