// Package cache keeps generated deal candidates in Redis, keyed by the
// geohash cell of the requesting location.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cheapeats/internal/model"
)

const (
	// Precision is the geohash length of a cache cell, roughly 5 km square.
	Precision = 5
	// DefaultTTL applies when no TTL is configured.
	DefaultTTL = 30 * time.Minute

	keyPrefix = "cheapeats:candidates:"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache stores candidate batches as JSON strings.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis dials Redis.
func NewRedis(cfg Config) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return New(rdb, cfg.TTL)
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Key is the cache key for a location and batch size.
func Key(loc model.Location, count int) string {
	return keyPrefix + geohash.EncodeWithPrecision(loc.Latitude, loc.Longitude, Precision) + ":" + strconv.Itoa(count)
}

// Get returns the cached batch for the cell containing loc.
func (c *RedisCache) Get(ctx context.Context, loc model.Location, count int) ([]model.Candidate, bool, error) {
	raw, err := c.client.Get(ctx, Key(loc, count)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: get")
	}

	var cands []model.Candidate
	if err := json.Unmarshal(raw, &cands); err != nil {
		return nil, false, eris.Wrap(err, "cache: decode")
	}
	return cands, true, nil
}

// Set stores a batch for the cell containing loc.
func (c *RedisCache) Set(ctx context.Context, loc model.Location, count int, cands []model.Candidate) error {
	raw, err := json.Marshal(cands)
	if err != nil {
		return eris.Wrap(err, "cache: encode")
	}
	if err := c.client.Set(ctx, Key(loc, count), raw, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: set")
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return eris.Wrap(c.client.Ping(ctx).Err(), "cache: ping")
}

// Close closes the connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
