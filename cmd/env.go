package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cheapeats/internal/brand"
	"github.com/sells-group/cheapeats/internal/cache"
	"github.com/sells-group/cheapeats/internal/config"
	"github.com/sells-group/cheapeats/internal/deals"
	"github.com/sells-group/cheapeats/internal/generate"
	"github.com/sells-group/cheapeats/internal/geo"
	"github.com/sells-group/cheapeats/internal/store"
	"github.com/sells-group/cheapeats/pkg/anthropic"
	"github.com/sells-group/cheapeats/pkg/places"
)

// appEnv holds the stores, clients and the deals service needed by the
// serve/generate/deals commands.
type appEnv struct {
	Deals  *deals.Service
	Store  store.DealStore
	Users  store.UserStore // nil outside serve
	Brands *brand.Catalog
	// Source names the deal store in listing responses.
	Source string
	cache  *cache.RedisCache
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if e.Users != nil {
		_ = e.Users.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode and wires the deal store, the generator and
// the service. The user store is only opened for serve. Callers should defer
// env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{Brands: brand.Default(), Source: storeSource(cfg.Store.Driver)}

	st, err := initDealStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	env.Store = st

	if mode == "serve" {
		users, err := initUserStore(ctx, cfg.Users)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Users = users
	}

	gen, rc := initGenerator(ctx, cfg)
	env.cache = rc

	svcCfg, err := serviceConfig(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Deals = deals.New(st, gen, svcCfg)

	return env, nil
}

// initDealStore opens the configured deal store and migrates database
// backends.
func initDealStore(ctx context.Context, sc config.StoreConfig) (store.DealStore, error) {
	switch sc.Driver {
	case "sheet":
		zap.L().Info("deal store: spreadsheet", zap.String("path", sc.SheetPath))
		return store.NewSheet(sc.SheetPath, sc.SheetName), nil
	case "sqlite":
		st, err := openSQLite(sc.DatabaseURL, "data/deals.db")
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initUserStore opens the user and newsletter database.
func initUserStore(ctx context.Context, uc config.UsersConfig) (store.UserStore, error) {
	switch uc.Driver {
	case "sqlite":
		st, err := openSQLite(uc.DatabaseURL, "data/users.db")
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, uc.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported users driver: %s", uc.Driver)
	}
}

func openSQLite(dsn, fallback string) (*store.SQLiteStore, error) {
	if dsn == "" {
		dsn = fallback
	}
	if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create sqlite dir %s", dir)
		}
	}
	return store.NewSQLite(dsn)
}

type migratable interface {
	store.Migrator
	Close() error
}

// migrate runs schema migrations, closing st on failure.
func migrate(ctx context.Context, st migratable) error {
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return eris.Wrap(err, "migrate store")
	}
	return nil
}

// initGenerator builds the deal generator. Claude, Places and Redis are each
// optional; a missing key degrades to templates, jittered locations or no
// caching respectively.
func initGenerator(ctx context.Context, c *config.Config) (*generate.Generator, *cache.RedisCache) {
	var ai anthropic.Client
	if c.Anthropic.Key != "" && !c.Anthropic.Disabled {
		ai = anthropic.NewClient(c.Anthropic.Key)
		zap.L().Info("claude generation enabled", zap.String("model", c.Anthropic.Model))
	} else {
		zap.L().Warn("CHEAPEATS_ANTHROPIC_KEY not set or generation disabled, using fallback templates")
	}

	var opts []generate.Option

	if c.Places.Key != "" {
		pc := places.NewClient(c.Places.Key,
			places.WithBaseURL(c.Places.BaseURL),
			places.WithRateLimit(c.Places.RateLimit),
		)
		opts = append(opts, generate.WithPlaces(pc, c.Places.RadiusMeters))
		zap.L().Info("google places lookups enabled")
	} else {
		zap.L().Debug("CHEAPEATS_PLACES_KEY not set, restaurant locations are approximated")
	}

	var rc *cache.RedisCache
	if c.Cache.RedisAddr != "" {
		rc = cache.NewRedis(cache.Config{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			TTL:      time.Duration(c.Cache.TTLMinutes) * time.Minute,
		})
		if err := rc.Ping(ctx); err != nil {
			zap.L().Warn("redis unreachable, candidate cache disabled", zap.Error(err))
			_ = rc.Close()
			rc = nil
		} else {
			opts = append(opts, generate.WithCache(rc))
			zap.L().Info("candidate cache enabled", zap.String("addr", c.Cache.RedisAddr))
		}
	}

	gen := generate.New(ai, generate.Config{
		Model:       c.Anthropic.Model,
		MaxTokens:   c.Anthropic.MaxTokens,
		Temperature: c.Anthropic.Temperature,
		Timeout:     time.Duration(c.Anthropic.TimeoutSecs) * time.Second,
		Disabled:    c.Anthropic.Disabled,
		MinInterval: time.Duration(c.Generate.MinIntervalMS) * time.Millisecond,
	}, opts...)
	return gen, rc
}

// serviceConfig maps config onto the deals service settings.
func serviceConfig(c *config.Config) (deals.Config, error) {
	city, ok := geo.LookupCity(c.Listing.DefaultCity)
	if !ok {
		return deals.Config{}, eris.Errorf("unknown listing.default_city %q", c.Listing.DefaultCity)
	}
	return deals.Config{
		DefaultCity:   city,
		DefaultRadius: c.Listing.DefaultRadius,
		CountPerCity:  c.Generate.CountPerCity,
		Concurrency:   c.Generate.Concurrency,
		DailyKey:      c.Generate.DailyKey,
	}, nil
}

func storeSource(driver string) string {
	switch driver {
	case "sheet":
		return "Spreadsheet"
	case "sqlite":
		return "SQLite"
	case "postgres":
		return "Postgres"
	default:
		return driver
	}
}
