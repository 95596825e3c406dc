// Package generate produces deal candidates with an LLM, falling back to
// canned templates when the model is disabled or unavailable.
package generate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cheapeats/internal/brand"
	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/metrics"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/normalize"
	"github.com/sells-group/cheapeats/internal/resilience"
	"github.com/sells-group/cheapeats/pkg/anthropic"
	"github.com/sells-group/cheapeats/pkg/places"
)

// ErrDisabled is returned by operations that have no fallback when the LLM is
// switched off.
var ErrDisabled = eris.New("generate: text generation disabled")

// DefaultCount is the number of deals requested when the caller gives none.
const DefaultCount = 75

// Source says where a batch came from.
type Source string

const (
	SourceLLM      Source = metrics.GenerationLLM
	SourceFallback Source = metrics.GenerationFallback
	SourceCache    Source = metrics.GenerationCache
)

// Batch is the output of Generate.
type Batch struct {
	Candidates []model.Candidate
	Source     Source
}

// Cache stores generated candidates per location cell.
type Cache interface {
	Get(ctx context.Context, loc model.Location, count int) ([]model.Candidate, bool, error)
	Set(ctx context.Context, loc model.Location, count int, cands []model.Candidate) error
}

// Config holds LLM call settings.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
	Disabled    bool
	// MinInterval spaces LLM calls. Zero disables throttling.
	MinInterval time.Duration
	Retry       resilience.RetryConfig
}

// DefaultConfig returns settings for the general deals prompt.
func DefaultConfig() Config {
	return Config{
		Model:       anthropic.DefaultModel,
		MaxTokens:   4000,
		Temperature: 0.7,
		Timeout:     15 * time.Second,
		Retry:       resilience.DefaultRetryConfig(),
	}
}

// Targeted prompts run cooler and shorter than the general prompt.
const (
	targetedMaxTokens   = 3000
	targetedTemperature = 0.4
)

// Generator writes deal candidates.
type Generator struct {
	ai        anthropic.Client
	cfg       Config
	templates []Template
	locator   *Locator
	cache     Cache
	breaker   *resilience.Breaker
	limiter   *rate.Limiter
	brands    *brand.Catalog
}

// Option configures a Generator.
type Option func(*Generator)

// WithPlaces resolves restaurant locations through a places client.
func WithPlaces(pc places.Client, radiusMeters float64) Option {
	return func(g *Generator) { g.locator.places, g.locator.radiusMeters = pc, radiusMeters }
}

// WithRand sets the random source for fallback locations.
func WithRand(r normalize.Rand) Option {
	return func(g *Generator) { g.locator.rand = r }
}

// WithCache caches generated batches.
func WithCache(c Cache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithTemplates replaces the embedded fallback templates.
func WithTemplates(t []Template) Option {
	return func(g *Generator) { g.templates = t }
}

// WithBreaker replaces the default circuit breaker around the LLM.
func WithBreaker(b *resilience.Breaker) Option {
	return func(g *Generator) { g.breaker = b }
}

// New creates a Generator. A nil ai client disables the LLM.
func New(ai anthropic.Client, cfg Config, opts ...Option) *Generator {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if ai == nil {
		cfg.Disabled = true
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	}

	g := &Generator{
		ai:        ai,
		cfg:       cfg,
		templates: DefaultTemplates(),
		locator:   NewLocator(nil, places.DefaultRadiusMeters, nil),
		breaker: resilience.NewBreaker(5, 30*time.Second, resilience.WithStateChange(func(from, to resilience.BreakerState) {
			zap.L().Warn("generate: llm breaker state change",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		})),
		brands: brand.Default(),
	}
	if cfg.MinInterval > 0 {
		g.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Enabled reports whether the LLM is in use.
func (g *Generator) Enabled() bool {
	return !g.cfg.Disabled
}

// Generate returns about count candidates near loc. LLM failures and
// unparseable replies fall back to templates; only a cancelled context is
// returned as an error.
func (g *Generator) Generate(ctx context.Context, loc model.Location, count int) (Batch, error) {
	if count <= 0 {
		count = DefaultCount
	}
	log := zap.L().With(
		zap.Float64("latitude", loc.Latitude),
		zap.Float64("longitude", loc.Longitude),
		zap.Int("count", count),
	)

	if g.cache != nil {
		cands, ok, err := g.cache.Get(ctx, loc, count)
		if err != nil {
			log.Warn("generate: cache read failed", zap.Error(err))
		} else if ok {
			metrics.Generation.WithLabelValues(metrics.GenerationCache).Inc()
			return Batch{Candidates: cands, Source: SourceCache}, nil
		}
	}

	batch := Batch{Source: SourceLLM}
	if g.cfg.Disabled {
		log.Info("generate: llm disabled, using fallback deals")
		batch = Batch{Candidates: Fallback(g.templates, count), Source: SourceFallback}
	} else {
		cands, err := g.ask(ctx, generalPrompt(loc, count), g.cfg.MaxTokens, g.cfg.Temperature, "generate_deals")
		if err != nil {
			if ctx.Err() != nil {
				return Batch{}, eris.Wrap(ctx.Err(), "generate: deals")
			}
			log.Warn("generate: llm failed, using fallback deals", zap.Error(err))
			metrics.Generation.WithLabelValues(metrics.GenerationError).Inc()
			batch = Batch{Candidates: Fallback(g.templates, count), Source: SourceFallback}
		} else {
			batch.Candidates = cands
		}
	}

	g.fill(ctx, batch.Candidates, loc)
	metrics.Generation.WithLabelValues(string(batch.Source)).Inc()
	log.Info("generate: candidates ready",
		zap.String("source", string(batch.Source)),
		zap.Int("candidates", len(batch.Candidates)),
	)

	if g.cache != nil && len(batch.Candidates) > 0 {
		if err := g.cache.Set(ctx, loc, count, batch.Candidates); err != nil {
			log.Warn("generate: cache write failed", zap.Error(err))
		}
	}
	return batch, nil
}

// GenerateForChains asks for deals from specific chains. Failures yield an
// empty list rather than templates. ErrDisabled is returned when the LLM is
// off.
func (g *Generator) GenerateForChains(ctx context.Context, chains []string, loc model.Location) ([]model.Candidate, error) {
	if g.cfg.Disabled {
		return nil, ErrDisabled
	}
	if len(chains) == 0 {
		return []model.Candidate{}, nil
	}

	cands, err := g.ask(ctx, targetedPrompt(chains, loc), targetedMaxTokens, targetedTemperature, "generate_chain_deals")
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "generate: chain deals")
		}
		zap.L().Warn("generate: targeted chain deals failed",
			zap.Strings("chains", chains),
			zap.Error(err),
		)
		metrics.Generation.WithLabelValues(metrics.GenerationError).Inc()
		return []model.Candidate{}, nil
	}

	g.fill(ctx, cands, loc)
	metrics.Generation.WithLabelValues(metrics.GenerationLLM).Inc()
	return cands, nil
}

// ask sends prompt to the LLM and parses the reply.
func (g *Generator) ask(ctx context.Context, prompt string, maxTokens int64, temperature float64, operation string) ([]model.Candidate, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "generate: rate limit wait")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req := anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   maxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt, Cached: true}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	}
	resp, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, g.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return g.ai.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "generate: create message")
	}
	resp.Usage.LogCost(g.cfg.Model, operation)

	cands, err := parseCandidates(resp.Text())
	if err != nil {
		text := resp.Text()
		if len(text) > 500 {
			text = text[:500]
		}
		zap.L().Debug("generate: unparseable reply", zap.String("reply", text))
		return nil, err
	}
	return cands, nil
}

// fill sets coordinates, address and source URL on candidates that lack
// them. Each chain is located once per call.
func (g *Generator) fill(ctx context.Context, cands []model.Candidate, user model.Location) {
	spots := make(map[string]Spot)
	for _, c := range cands {
		name := c.String("restaurantName")

		lat, okLat := c.Float("latitude")
		lon, okLon := c.Float("longitude")
		if !okLat || !okLon || !geo.Valid(lat, lon) {
			spot, ok := spots[name]
			if !ok {
				spot = g.locator.Nearest(ctx, name, user)
				spots[name] = spot
			}
			c["latitude"] = spot.Latitude
			c["longitude"] = spot.Longitude
			if !c.Has("address") {
				c["address"] = spot.Address
			}
		}

		if !c.Has("sourceUrl") && name != "" {
			c["sourceUrl"] = g.brands.DealsURL(name)
		}
	}
}
