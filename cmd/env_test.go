package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cheapeats/internal/config"
	"github.com/sells-group/cheapeats/internal/store"
)

func TestInitDealStore_Sheet(t *testing.T) {
	st, err := initDealStore(context.Background(), config.StoreConfig{
		Driver:    "sheet",
		SheetPath: filepath.Join(t.TempDir(), "deals.xlsx"),
		SheetName: "Deals",
	})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	assert.IsType(t, &store.SheetStore{}, st)
	deals, err := st.ActiveDeals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestInitDealStore_SQLiteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deals.db")
	st, err := initDealStore(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: path})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	assert.IsType(t, &store.SQLiteStore{}, st)
	last, err := st.LastAdded(context.Background())
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestInitDealStore_Unsupported(t *testing.T) {
	_, err := initDealStore(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.ErrorContains(t, err, "unsupported store driver: mongo")
}

func TestInitUserStore(t *testing.T) {
	st, err := initUserStore(context.Background(), config.UsersConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "users.db"),
	})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	subs, err := st.ActiveSubscribers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = initUserStore(context.Background(), config.UsersConfig{Driver: "sheet"})
	assert.ErrorContains(t, err, "unsupported users driver")
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 4000, TimeoutSecs: 15},
		Generate:  config.GenerateConfig{CountPerCity: 35, Concurrency: 3, DailyKey: "k"},
		Listing:   config.ListingConfig{DefaultCity: "Chicago", DefaultRadius: 10},
		Cache:     config.CacheConfig{TTLMinutes: 30},
	}
}

func TestInitGenerator_NoKeys(t *testing.T) {
	gen, rc := initGenerator(context.Background(), testConfig())
	require.NotNil(t, gen)
	assert.False(t, gen.Enabled())
	assert.Nil(t, rc)
}

func TestInitGenerator_WithKeyAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c := testConfig()
	c.Anthropic.Key = "sk-test"
	c.Cache.RedisAddr = mr.Addr()

	gen, rc := initGenerator(context.Background(), c)
	require.NotNil(t, gen)
	assert.True(t, gen.Enabled())
	require.NotNil(t, rc)
	require.NoError(t, rc.Close())
}

func TestInitGenerator_DisabledAndRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := testConfig()
	c.Anthropic.Key = "sk-test"
	c.Anthropic.Disabled = true
	c.Cache.RedisAddr = addr

	gen, rc := initGenerator(context.Background(), c)
	assert.False(t, gen.Enabled())
	assert.Nil(t, rc)
}

func TestServiceConfig(t *testing.T) {
	sc, err := serviceConfig(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "Chicago", sc.DefaultCity.Name)
	assert.InDelta(t, 10, sc.DefaultRadius, 1e-9)
	assert.Equal(t, 35, sc.CountPerCity)
	assert.Equal(t, 3, sc.Concurrency)
	assert.Equal(t, "k", sc.DailyKey)

	c := testConfig()
	c.Listing.DefaultCity = "Atlantis"
	_, err = serviceConfig(c)
	assert.ErrorContains(t, err, "Atlantis")
}

func TestStoreSource(t *testing.T) {
	assert.Equal(t, "Spreadsheet", storeSource("sheet"))
	assert.Equal(t, "SQLite", storeSource("sqlite"))
	assert.Equal(t, "Postgres", storeSource("postgres"))
	assert.Equal(t, "custom", storeSource("custom"))
}

func TestInitEnv_Deals(t *testing.T) {
	dir := t.TempDir()
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = testConfig()
	cfg.Log = config.LogConfig{Level: "info", Format: "json"}
	cfg.Store = config.StoreConfig{Driver: "sheet", SheetPath: filepath.Join(dir, "deals.xlsx"), SheetName: "Deals"}

	env, err := initEnv(context.Background(), "deals")
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Users)
	assert.Equal(t, "Spreadsheet", env.Source)

	st, err := env.Deals.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Configured)
	assert.Zero(t, st.TotalActiveDeals)
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = testConfig()
	cfg.Log = config.LogConfig{Format: "xml"}
	cfg.Store = config.StoreConfig{Driver: "sheet", SheetPath: "deals.xlsx"}

	_, err := initEnv(context.Background(), "deals")
	assert.ErrorContains(t, err, "log.format")
}
