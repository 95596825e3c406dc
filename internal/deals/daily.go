package deals

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cheapeats/internal/dedup"
	"github.com/sells-group/cheapeats/internal/generate"
	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/model"
)

// CityResult reports one city of a daily run.
type CityResult struct {
	City   string          `json:"city"`
	Deals  int             `json:"deals"`
	Source generate.Source `json:"source,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// DailySummary aggregates a daily run.
type DailySummary struct {
	Restaurants     int      `json:"restaurants"`
	Categories      []string `json:"categories"`
	AverageDiscount int      `json:"averageDiscount"`
}

// DailyResult is what GenerateDaily saved.
type DailyResult struct {
	Deals       []model.StoredDeal
	Cities      []CityResult
	GeneratedAt time.Time
	Summary     DailySummary
}

// GenerateDaily regenerates the stored deal list. Each city is generated,
// normalized and deduplicated on its own since every city is a separate
// listing context. Results are merged in city order, stamped and saved,
// replacing the previous list. A failing city is logged and skipped; a run
// that produces nothing returns ErrNoDeals and leaves the store untouched.
// Empty cities means every major city; perCity <= 0 uses the configured size.
// Without a live LLM it returns ErrDisabled rather than replace the stored
// list with templates.
func (s *Service) GenerateDaily(ctx context.Context, cities []geo.City, perCity int) (*DailyResult, error) {
	if s.gen == nil || !s.gen.Enabled() {
		return nil, generate.ErrDisabled
	}
	if len(cities) == 0 {
		cities = geo.MajorCities
	}
	if perCity <= 0 {
		perCity = s.cfg.CountPerCity
	}

	log := zap.L().With(zap.Int("cities", len(cities)), zap.Int("per_city", perCity))
	log.Info("deals: starting daily generation")
	start := time.Now()
	now := s.clock.Now()

	perCityDeals := make([][]model.StoredDeal, len(cities))
	results := make([]CityResult, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, city := range cities {
		g.Go(func() error {
			results[i].City = city.Label()
			stored, source, err := s.generateCity(gctx, city, perCity, now)
			if err != nil {
				zap.L().Error("deals: city generation failed",
					zap.String("city", city.Label()),
					zap.Error(err))
				results[i].Error = err.Error()
				return nil // don't abort other cities
			}
			perCityDeals[i] = stored
			results[i].Deals = len(stored)
			results[i].Source = source
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "deals: daily generation")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "deals: daily generation")
	}

	var all []model.StoredDeal
	for _, batch := range perCityDeals {
		all = append(all, batch...)
	}
	if len(all) == 0 {
		return nil, eris.Wrap(ErrNoDeals, "deals: daily generation produced no deals")
	}

	if err := s.store.SaveDeals(ctx, all); err != nil {
		return nil, eris.Wrap(err, "deals: save daily deals")
	}

	log.Info("deals: daily generation complete",
		zap.Int("deals", len(all)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &DailyResult{
		Deals:       all,
		Cities:      results,
		GeneratedAt: now.UTC(),
		Summary:     summarizeStored(all),
	}, nil
}

func (s *Service) generateCity(ctx context.Context, city geo.City, perCity int, now time.Time) ([]model.StoredDeal, generate.Source, error) {
	batch, err := s.gen.Generate(ctx, city.Location, perCity)
	if err != nil {
		return nil, "", err
	}

	norm := s.norm.Normalize(batch.Candidates, city.Location, model.OriginGenerated)
	addresses := make(map[string]string, len(norm.Deals))
	for i, d := range norm.Deals {
		addresses[d.ID] = batch.Candidates[norm.RawIndex[i]].String("address")
	}
	dd := dedup.Deduplicate(norm.Deals)
	observe(model.OriginGenerated, norm, dd)

	source := "AI Generated - " + city.Label()
	stored := make([]model.StoredDeal, 0, len(dd.Deals))
	for _, d := range dd.Deals {
		sd := model.NewStoredDeal(d, addresses[d.ID], now)
		sd.Source = source
		stored = append(stored, sd)
	}
	return stored, batch.Source, nil
}

func summarizeStored(deals []model.StoredDeal) DailySummary {
	sum := DailySummary{Categories: []string{}}
	if len(deals) == 0 {
		return sum
	}
	restaurants := make(map[string]bool)
	categories := make(map[string]bool)
	discount := 0
	for _, d := range deals {
		restaurants[strings.ToLower(d.RestaurantName)] = true
		if !categories[d.Category] {
			categories[d.Category] = true
			sum.Categories = append(sum.Categories, d.Category)
		}
		discount += d.DiscountPercent
	}
	sum.Restaurants = len(restaurants)
	sum.AverageDiscount = int(math.Round(float64(discount) / float64(len(deals))))
	return sum
}

// --- Status ---

// Status describes the stored deal list.
type Status struct {
	Configured        bool   `json:"configured"`
	GenerationEnabled bool   `json:"generationEnabled"`
	TotalActiveDeals  int    `json:"totalActiveDeals"`
	LastGenerated     string `json:"lastGenerated,omitempty"`
	Cities            int    `json:"cities"`
	Restaurants       int    `json:"restaurants"`
}

// Status reads the store without normalizing it. Cities counts distinct
// sources, which daily runs tag per city.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Configured: s.store != nil, GenerationEnabled: s.gen != nil && s.gen.Enabled()}
	if s.store == nil {
		return st, nil
	}

	raws, err := s.store.ActiveDeals(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "deals: read store")
	}
	last, err := s.store.LastAdded(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "deals: last added")
	}

	sources := make(map[string]bool)
	restaurants := make(map[string]bool)
	for _, c := range raws {
		sources[c.String("source")] = true
		restaurants[c.String("restaurantName")] = true
	}
	st.TotalActiveDeals = len(raws)
	st.LastGenerated = last
	st.Cities = len(sources)
	st.Restaurants = len(restaurants)
	return st, nil
}
