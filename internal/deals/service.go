// Package deals orchestrates listing, generation and daily refresh of deals
// on top of the store, the generator and the normalize/dedup/listing core.
package deals

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cheapeats/internal/dedup"
	"github.com/sells-group/cheapeats/internal/generate"
	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/listing"
	"github.com/sells-group/cheapeats/internal/metrics"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/normalize"
	"github.com/sells-group/cheapeats/internal/store"
)

var (
	// ErrNoDeals is returned when the store holds no usable deals.
	ErrNoDeals = eris.New("deals: no deals available")
	// ErrInvalidLocation is returned for non-finite or out-of-range coordinates.
	ErrInvalidLocation = eris.New("deals: invalid location")
	// ErrUnauthorized is returned when a daily generation key does not match.
	ErrUnauthorized = eris.New("deals: unauthorized")
)

// DefaultGenerateCount is used by Generate when the request names no count.
const DefaultGenerateCount = 50

// Generator produces raw candidates. *generate.Generator implements it.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, loc model.Location, count int) (generate.Batch, error)
	GenerateForChains(ctx context.Context, chains []string, loc model.Location) ([]model.Candidate, error)
}

// Config tunes the service.
type Config struct {
	// DefaultCity is the listing location when the caller sends none.
	DefaultCity geo.City
	// DefaultRadius is reported in listings that set no radius, in miles.
	DefaultRadius float64
	// CountPerCity is the daily generation size per city.
	CountPerCity int
	// Concurrency bounds how many cities generate at once.
	Concurrency int
	// DailyKey guards GenerateDaily over HTTP. Empty rejects every key.
	DailyKey string
}

// DefaultConfig returns New York, 25 miles, 35 deals per city and 3
// concurrent cities.
func DefaultConfig() Config {
	nyc, _ := geo.LookupCity("New York")
	return Config{
		DefaultCity:   nyc,
		DefaultRadius: 25,
		CountPerCity:  35,
		Concurrency:   3,
	}
}

// Service ties the store and the generator to the deal core.
type Service struct {
	store store.DealStore
	gen   Generator
	norm  *normalize.Normalizer
	clock normalize.Clock
	cfg   Config
}

// Option configures a Service.
type Option func(*Service)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) { s.norm = n }
}

// WithClock sets the clock used to stamp saved deals.
func WithClock(c normalize.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New creates a Service. gen may be nil when only listings are served.
func New(st store.DealStore, gen Generator, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.DefaultCity.Name == "" {
		cfg.DefaultCity = def.DefaultCity
	}
	if cfg.DefaultRadius <= 0 {
		cfg.DefaultRadius = def.DefaultRadius
	}
	if cfg.CountPerCity <= 0 {
		cfg.CountPerCity = def.CountPerCity
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	s := &Service{store: st, gen: gen, cfg: cfg, clock: normalize.SystemClock}
	for _, opt := range opts {
		opt(s)
	}
	if s.norm == nil {
		s.norm = normalize.New(normalize.WithClock(s.clock))
	}
	return s
}

// Authorize checks a daily generation key.
func (s *Service) Authorize(key string) error {
	if s.cfg.DailyKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.DailyKey)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// --- Listing ---

// ListRequest selects and orders stored deals.
type ListRequest struct {
	// Location is the caller's position. Nil uses the default city.
	Location *model.Location
	Search   string
	Sort     listing.SortKey
	// RadiusMiles drops deals farther away when positive.
	RadiusMiles float64
}

// ListResult is one listing.
type ListResult struct {
	Deals       []model.Deal
	Location    model.Location
	Radius      float64
	Dropped     int
	Duplicates  int
	Summary     listing.Summary
	LastUpdated time.Time
}

// List reads the store and returns its deals relative to the request
// location. ErrNoDeals is returned when the store has nothing usable; a
// search or radius that matches nothing is an empty, successful listing.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	timer := prometheus.NewTimer(metrics.ListingDuration)
	defer timer.ObserveDuration()

	loc := s.cfg.DefaultCity.Location
	if req.Location != nil {
		if !geo.ValidLocation(*req.Location) {
			return nil, ErrInvalidLocation
		}
		loc = *req.Location
	}

	raws, err := s.store.ActiveDeals(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "deals: read store")
	}

	norm := s.norm.Normalize(raws, loc, model.OriginStore)
	dd := dedup.Deduplicate(norm.Deals)
	observe(model.OriginStore, norm, dd)
	if len(dd.Deals) == 0 {
		return nil, ErrNoDeals
	}

	radius := s.cfg.DefaultRadius
	opts := listing.Options{Search: req.Search, Sort: req.Sort}
	if req.RadiusMiles > 0 {
		radius = req.RadiusMiles
		opts.Radius = geo.NewRadius(loc, req.RadiusMiles)
	}
	out := listing.Assemble(dd.Deals, opts)
	metrics.DealsServed.Add(float64(len(out)))

	zap.L().Info("deals: listing served",
		zap.Int("candidates", len(raws)),
		zap.Int("dropped", norm.Dropped),
		zap.Int("duplicates", dd.Total()),
		zap.Int("deals", len(out)),
	)

	return &ListResult{
		Deals:       out,
		Location:    loc,
		Radius:      radius,
		Dropped:     norm.Dropped,
		Duplicates:  dd.Total(),
		Summary:     listing.Summarize(out),
		LastUpdated: s.clock.Now().UTC(),
	}, nil
}

// --- On-demand generation ---

// GenerateRequest asks for fresh deals near a location.
type GenerateRequest struct {
	Location model.Location
	// Chains, when set, targets those restaurant chains.
	Chains []string
	// Count is the general generation size; 0 means DefaultGenerateCount.
	Count int
}

// GenerateResult is a generated listing ordered by distance.
type GenerateResult struct {
	Deals      []model.Deal
	Source     generate.Source
	Dropped    int
	Duplicates int
}

// Generate produces deals without touching the store.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if !geo.ValidLocation(req.Location) {
		return nil, ErrInvalidLocation
	}
	if s.gen == nil {
		return nil, generate.ErrDisabled
	}

	var batch generate.Batch
	if len(req.Chains) > 0 {
		cands, err := s.gen.GenerateForChains(ctx, req.Chains, req.Location)
		if err != nil {
			return nil, eris.Wrap(err, "deals: generate chain deals")
		}
		batch = generate.Batch{Candidates: cands, Source: generate.SourceLLM}
	} else {
		count := req.Count
		if count <= 0 {
			count = DefaultGenerateCount
		}
		var err error
		batch, err = s.gen.Generate(ctx, req.Location, count)
		if err != nil {
			return nil, eris.Wrap(err, "deals: generate")
		}
	}

	norm := s.norm.Normalize(batch.Candidates, req.Location, model.OriginGenerated)
	dd := dedup.Deduplicate(norm.Deals)
	observe(model.OriginGenerated, norm, dd)

	return &GenerateResult{
		Deals:      listing.Assemble(dd.Deals, listing.Options{Sort: listing.SortDistance}),
		Source:     batch.Source,
		Dropped:    norm.Dropped,
		Duplicates: dd.Total(),
	}, nil
}

func observe(origin model.Origin, norm normalize.Result, dd dedup.Result) {
	if norm.Dropped > 0 {
		metrics.CandidatesDropped.WithLabelValues(string(origin)).Add(float64(norm.Dropped))
	}
	for reason, n := range dd.Rejected {
		metrics.DuplicatesRejected.WithLabelValues(string(reason)).Add(float64(n))
	}
}
