package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cheapeats/internal/model"
)

type listBody struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	TotalDeals  int    `json:"totalDeals"`
	Dropped     int    `json:"dropped"`
	Source      string `json:"source"`
	LastUpdated string `json:"lastUpdated"`
	Deals       []struct {
		ID             string  `json:"id"`
		RestaurantName string  `json:"restaurantName"`
		Title          string  `json:"title"`
		Distance       float64 `json:"distance"`
		QualityScore   int     `json:"qualityScore"`
	} `json:"deals"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Radius    float64 `json:"radius"`
	} `json:"location"`
	Stats struct {
		TotalDeals     int      `json:"totalDeals"`
		AverageQuality int      `json:"averageQuality"`
		Categories     []string `json:"categories"`
		Restaurants    int      `json:"restaurants"`
	} `json:"stats"`
}

func restaurants(b listBody) []string {
	out := make([]string, 0, len(b.Deals))
	for _, d := range b.Deals {
		out = append(out, d.RestaurantName)
	}
	return out
}

func TestBuildMux_HealthEndpoint(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	w := serveJSON(t, mux, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeBody[map[string]string](t, w)["status"])
}

func TestBuildMux_RequestID(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	w := serveJSON(t, mux, http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	const id = "7f1c0d2e-8a55-4c8f-9d57-3f1b2a0c9e11"
	r := newRequest(t, http.MethodGet, "/health")
	r.Header.Set(requestIDHeader, id)
	w = record(mux, r)
	assert.Equal(t, id, w.Header().Get(requestIDHeader))
}

func TestBuildMux_Metrics(t *testing.T) {
	env := newTestEnv(t, seedDeals())
	mux := buildMux(env, nil)

	require.Equal(t, http.StatusOK, serveJSON(t, mux, http.MethodGet, "/api/deals", nil).Code)

	w := serveJSON(t, mux, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cheapeats_deals_served_total")
}

func TestBuildMux_CORS(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), []string{"https://cheapeats.example"})

	r := newRequest(t, http.MethodOptions, "/api/deals")
	r.Header.Set("Origin", "https://cheapeats.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := record(mux, r)
	assert.Equal(t, "https://cheapeats.example", w.Header().Get("Access-Control-Allow-Origin"))

	r = newRequest(t, http.MethodOptions, "/api/deals")
	r.Header.Set("Origin", "https://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = record(mux, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListDeals_DefaultLocation(t *testing.T) {
	mux := buildMux(newTestEnv(t, seedDeals()), nil)

	w := serveJSON(t, mux, http.MethodGet, "/api/deals", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

	body := decodeBody[listBody](t, w)
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.TotalDeals)
	assert.Equal(t, "Spreadsheet", body.Source)
	assert.Equal(t, []string{"McDonald's", "Taco Bell", "Pizza Hut"}, restaurants(body))
	assert.InDelta(t, 40.7128, body.Location.Latitude, 1e-9)
	assert.InDelta(t, -74.0060, body.Location.Longitude, 1e-9)
	assert.InDelta(t, 25, body.Location.Radius, 1e-9)
	assert.Equal(t, 3, body.Stats.TotalDeals)
	assert.Equal(t, 80, body.Stats.AverageQuality)
	assert.Equal(t, 3, body.Stats.Restaurants)
	assert.Equal(t, []string{"Burgers", "Mexican", "Pizza"}, body.Stats.Categories)
	assert.True(t, strings.HasPrefix(body.LastUpdated, "2026-10-17T09:30:00"))
}

func TestListDeals_ReportsDroppedRows(t *testing.T) {
	seed := append(seedDeals(), model.NewStoredDeal(model.Deal{ID: "d-4", DealPrice: "$3.00"}, "", testNow))
	mux := buildMux(newTestEnv(t, seed), nil)

	w := serveJSON(t, mux, http.MethodGet, "/api/deals", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[listBody](t, w)
	assert.Equal(t, 3, body.TotalDeals)
	assert.Equal(t, 1, body.Dropped)
}

func TestListDeals_RadiusAndSearch(t *testing.T) {
	mux := buildMux(newTestEnv(t, seedDeals()), nil)

	w := serveJSON(t, mux, http.MethodGet, "/api/deals?lat=40.7128&lng=-74.0060&radius=10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody[listBody](t, w)
	assert.Equal(t, []string{"McDonald's", "Taco Bell"}, restaurants(body))
	assert.InDelta(t, 10, body.Location.Radius, 1e-9)

	w = serveJSON(t, mux, http.MethodGet, "/api/deals?q=PIZZA", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody[listBody](t, w)
	assert.Equal(t, []string{"Pizza Hut"}, restaurants(body))

	w = serveJSON(t, mux, http.MethodGet, "/api/deals?q=sushi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody[listBody](t, w)
	assert.Equal(t, 0, body.TotalDeals)
	assert.NotNil(t, body.Deals)
}

func TestListDeals_SortByRating(t *testing.T) {
	seed := seedDeals()
	seed[2].QualityScore = 99
	mux := buildMux(newTestEnv(t, seed), nil)

	w := serveJSON(t, mux, http.MethodGet, "/api/deals?sort=rating", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody[listBody](t, w)
	assert.Equal(t, []string{"Pizza Hut", "McDonald's", "Taco Bell"}, restaurants(body))
}

func TestListDeals_BadRequests(t *testing.T) {
	mux := buildMux(newTestEnv(t, seedDeals()), nil)

	tests := []struct {
		name   string
		target string
		errMsg string
	}{
		{"latitude out of range", "/api/deals?lat=91&lng=0", "invalid location"},
		{"longitude out of range", "/api/deals?lat=0&lng=-181", "invalid location"},
		{"lat without lng", "/api/deals?lat=40.7", "invalid location"},
		{"not a number", "/api/deals?lat=abc&lng=1", "invalid location"},
		{"nan", "/api/deals?lat=NaN&lng=1", "invalid location"},
		{"unknown sort", "/api/deals?sort=cheapest", "sort must be"},
		{"zero radius", "/api/deals?radius=0", "radius must be"},
		{"negative radius", "/api/deals?radius=-5", "radius must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveJSON(t, mux, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody[listBody](t, w)
			assert.False(t, body.Success)
			assert.Contains(t, body.Error, tt.errMsg)
		})
	}
}

func TestListDeals_EmptyStore(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	w := serveJSON(t, mux, http.MethodGet, "/api/deals", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody[listBody](t, w)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "No deals found")
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestGenerateDeals_Fallback(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	w := serveJSON(t, mux, http.MethodPost, "/api/deals", map[string]any{
		"location": map[string]float64{"latitude": 34.0522, "longitude": -118.2437},
		"count":    6,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[listBody](t, w)
	assert.True(t, body.Success)
	assert.Equal(t, "fallback", body.Source)
	assert.NotZero(t, body.TotalDeals)
	assert.LessOrEqual(t, body.TotalDeals, 6)
	assert.Len(t, body.Deals, body.TotalDeals)
	for _, d := range body.Deals {
		assert.NotEmpty(t, d.ID)
		assert.Less(t, d.Distance, 5.0)
	}
}

func TestGenerateDeals_PreferencesCount(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	w := serveJSON(t, mux, http.MethodPost, "/api/deals", map[string]any{
		"location":    map[string]float64{"latitude": 40.7128, "longitude": -74.0060},
		"preferences": map[string]int{"count": 3},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody[listBody](t, w)
	assert.LessOrEqual(t, body.TotalDeals, 3)
}

func TestGenerateDeals_Errors(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	tests := []struct {
		name   string
		body   any
		status int
		errMsg string
	}{
		{"missing location", map[string]any{"count": 5}, http.StatusBadRequest, "location is required"},
		{"invalid location", map[string]any{"location": map[string]float64{"latitude": 95, "longitude": 0}}, http.StatusBadRequest, "invalid location"},
		{"count too large", map[string]any{"location": map[string]float64{"latitude": 1, "longitude": 1}, "count": 500}, http.StatusBadRequest, "count must be"},
		{"chains without llm", map[string]any{"location": map[string]float64{"latitude": 1, "longitude": 1}, "chains": []string{"Wendy's"}}, http.StatusServiceUnavailable, "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveJSON(t, mux, http.MethodPost, "/api/deals", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, decodeBody[listBody](t, w).Error, tt.errMsg)
		})
	}

	r := newRequest(t, http.MethodPost, "/api/deals")
	r.Body = http.NoBody
	w := record(mux, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestGenerateDaily_Unauthorized(t *testing.T) {
	env := newTestEnv(t, seedDeals())
	mux := buildMux(env, nil)

	for _, target := range []string{"/api/deals/generate-daily", "/api/deals/generate-daily?key=wrong"} {
		w := serveJSON(t, mux, http.MethodPost, target, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}

	// The stored list is untouched.
	w := serveJSON(t, mux, http.MethodGet, "/api/deals", nil)
	assert.Equal(t, 3, decodeBody[listBody](t, w).TotalDeals)
}

// llmDeals is a well-formed generator reply with three distinct deals.
const llmDeals = "```json\n" + `[
  {"restaurantName": "Wendy's", "title": "Biggie Bag", "description": "Burger, nuggets, fries and a drink", "originalPrice": "$9.99", "dealPrice": "$5.00"},
  {"restaurantName": "Sonic", "title": "Half-Price Shakes", "description": "After 8pm every night", "dealPrice": "50% off"},
  {"restaurantName": "Arby's", "title": "2 for $7 Gyros", "description": "Mix and match gyros", "dealPrice": "$7.00"}
]` + "\n```"

func TestGenerateDaily_GenerationDisabled(t *testing.T) {
	mux := buildMux(newTestEnv(t, seedDeals()), nil)

	w := serveJSON(t, mux, http.MethodPost, "/api/deals/generate-daily?key="+testDailyKey, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")

	// The seeded list survives.
	w = serveJSON(t, mux, http.MethodGet, "/api/deals", nil)
	assert.Equal(t, 3, decodeBody[listBody](t, w).TotalDeals)
}

func TestGenerateDaily_ReplacesStore(t *testing.T) {
	env := newTestEnvWithLLM(t, seedDeals(), stubLLM{text: llmDeals})
	mux := buildMux(env, nil)

	w := serveJSON(t, mux, http.MethodPost, "/api/deals/generate-daily?key="+testDailyKey, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		TotalDeals int    `json:"totalDeals"`
		Cities     []struct {
			City   string `json:"city"`
			Deals  int    `json:"deals"`
			Source string `json:"source"`
		} `json:"cities"`
	}](t, w)
	assert.True(t, body.Success)
	assert.NotZero(t, body.TotalDeals)
	require.Len(t, body.Cities, 10)
	assert.Equal(t, "New York, NY", body.Cities[0].City)
	assert.Equal(t, "llm", body.Cities[0].Source)
	assert.Equal(t, 3, body.Cities[0].Deals)
	assert.Equal(t, 30, body.TotalDeals)
	assert.Contains(t, body.Message, "10 cities")

	w = serveJSON(t, mux, http.MethodGet, "/api/deals/generate-daily", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeBody[struct {
		Success           bool   `json:"success"`
		Configured        bool   `json:"configured"`
		GenerationEnabled bool   `json:"generationEnabled"`
		TotalActiveDeals  int    `json:"totalActiveDeals"`
		LastGenerated     string `json:"lastGenerated"`
		Cities            int    `json:"cities"`
	}](t, w)
	assert.True(t, status.Success)
	assert.True(t, status.Configured)
	assert.True(t, status.GenerationEnabled)
	assert.Equal(t, body.TotalDeals, status.TotalActiveDeals)
	assert.Equal(t, "2026-10-17", status.LastGenerated)
	assert.Equal(t, 10, status.Cities)
}

func TestDailyStatus_Seeded(t *testing.T) {
	mux := buildMux(newTestEnv(t, seedDeals()), nil)

	w := serveJSON(t, mux, http.MethodGet, "/api/deals/generate-daily", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeBody[map[string]any](t, w)
	assert.Equal(t, true, status["success"])
	assert.EqualValues(t, 3, status["totalActiveDeals"])
	assert.EqualValues(t, 1, status["cities"])
	assert.EqualValues(t, 3, status["restaurants"])
}

func TestLookupBrand(t *testing.T) {
	mux := buildMux(newTestEnv(t, nil), nil)

	type brandBody struct {
		Success bool `json:"success"`
		Matched bool `json:"matched"`
		Score   int  `json:"score"`
		Brand   struct {
			Name     string `json:"name"`
			Color    string `json:"color"`
			DealsURL string `json:"dealsUrl"`
		} `json:"brand"`
		Error string `json:"error"`
	}

	w := serveJSON(t, mux, http.MethodGet, "/api/brands?name=mcdonalds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decodeBody[brandBody](t, w)
	assert.True(t, b.Matched)
	assert.Equal(t, "McDonald's", b.Brand.Name)
	assert.NotEqual(t, "#6B7280", b.Brand.Color)
	assert.NotEmpty(t, b.Brand.DealsURL)

	w = serveJSON(t, mux, http.MethodGet, "/api/brands?name=Joe%27s+Diner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	b = decodeBody[brandBody](t, w)
	assert.False(t, b.Matched)
	assert.Equal(t, "#6B7280", b.Brand.Color)
	assert.Equal(t, "https://www.google.com/search?q=Joe%27s+Diner+deals", b.Brand.DealsURL)

	w = serveJSON(t, mux, http.MethodGet, "/api/brands", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", decodeBody[brandBody](t, w).Error)
}
