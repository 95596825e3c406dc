package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/cheapeats/internal/brand"
	"github.com/sells-group/cheapeats/internal/deals"
	"github.com/sells-group/cheapeats/internal/listing"
	"github.com/sells-group/cheapeats/internal/model"
)

// maxGenerateCount caps the count of an on-demand generation request.
const maxGenerateCount = 100

type apiHandler struct {
	env *appEnv
}

type locationEnvelope struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

type listResponse struct {
	Success     bool             `json:"success"`
	Deals       []model.Deal     `json:"deals"`
	TotalDeals  int              `json:"totalDeals"`
	Dropped     int              `json:"dropped"`
	Source      string           `json:"source"`
	LastUpdated time.Time        `json:"lastUpdated"`
	Location    locationEnvelope `json:"location"`
	Stats       listing.Summary  `json:"stats"`
}

// listDeals handles GET /api/deals?lat=&lng=&q=&sort=&radius=.
func (h *apiHandler) listDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortKey, ok := listing.ParseSortKey(q.Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "sort must be one of distance, price, savings, rating")
		return
	}
	req := deals.ListRequest{Search: strings.TrimSpace(q.Get("q")), Sort: sortKey}

	loc, err := parseLocation(q.Get("lat"), q.Get("lng"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	req.Location = loc

	if s := q.Get("radius"); s != "" {
		miles, err := strconv.ParseFloat(s, 64)
		if err != nil || !(miles > 0) {
			writeError(w, http.StatusBadRequest, "radius must be a positive number of miles")
			return
		}
		req.RadiusMiles = miles
	}

	res, err := h.env.Deals.List(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := res.Deals
	if out == nil {
		out = []model.Deal{}
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, listResponse{
		Success:     true,
		Deals:       out,
		TotalDeals:  len(out),
		Dropped:     res.Dropped,
		Source:      h.env.Source,
		LastUpdated: res.LastUpdated,
		Location: locationEnvelope{
			Latitude:  res.Location.Latitude,
			Longitude: res.Location.Longitude,
			Radius:    res.Radius,
		},
		Stats: res.Summary,
	})
}

// parseLocation reads an optional lat/lng pair. Both blank means no
// location; one without the other is invalid.
func parseLocation(latStr, lngStr string) (*model.Location, error) {
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, deals.ErrInvalidLocation
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, deals.ErrInvalidLocation
	}
	return &model.Location{Latitude: lat, Longitude: lng}, nil
}

type generateRequest struct {
	Location    *model.Location `json:"location"`
	Chains      []string        `json:"chains"`
	Count       int             `json:"count"`
	Preferences *struct {
		Count int `json:"count"`
	} `json:"preferences"`
}

type generateResponse struct {
	Success    bool         `json:"success"`
	Deals      []model.Deal `json:"deals"`
	TotalDeals int          `json:"totalDeals"`
	Dropped    int          `json:"dropped"`
	Source     string       `json:"source"`
}

// generateDeals handles POST /api/deals.
func (h *apiHandler) generateDeals(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Location == nil {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}

	count := body.Count
	if count == 0 && body.Preferences != nil {
		count = body.Preferences.Count
	}
	if count < 0 || count > maxGenerateCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 0 and %d", maxGenerateCount))
		return
	}

	var chains []string
	for _, c := range body.Chains {
		if c = strings.TrimSpace(c); c != "" {
			chains = append(chains, c)
		}
	}

	res, err := h.env.Deals.Generate(r.Context(), deals.GenerateRequest{
		Location: *body.Location,
		Chains:   chains,
		Count:    count,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := res.Deals
	if out == nil {
		out = []model.Deal{}
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Success:    true,
		Deals:      out,
		TotalDeals: len(out),
		Dropped:    res.Dropped,
		Source:     string(res.Source),
	})
}

type dailyResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	TotalDeals  int                `json:"totalDeals"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Cities      []deals.CityResult `json:"cities"`
	Summary     deals.DailySummary `json:"summary"`
}

// generateDaily handles POST /api/deals/generate-daily?key=.
func (h *apiHandler) generateDaily(w http.ResponseWriter, r *http.Request) {
	if err := h.env.Deals.Authorize(r.URL.Query().Get("key")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.env.Deals.GenerateDaily(r.Context(), nil, 0)
	if errors.Is(err, deals.ErrNoDeals) {
		writeError(w, http.StatusInternalServerError, "no deals were generated")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dailyResponse{
		Success:     true,
		Message:     fmt.Sprintf("Generated %d deals for %d cities", len(res.Deals), len(res.Cities)),
		TotalDeals:  len(res.Deals),
		GeneratedAt: res.GeneratedAt,
		Cities:      res.Cities,
		Summary:     res.Summary,
	})
}

// dailyStatus handles GET /api/deals/generate-daily.
func (h *apiHandler) dailyStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.env.Deals.Status(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*deals.Status
	}{true, st})
}

type brandResponse struct {
	Success bool        `json:"success"`
	Brand   brand.Brand `json:"brand"`
	Matched bool        `json:"matched"`
	Score   int         `json:"score"`
}

// lookupBrand handles GET /api/brands?name=.
func (h *apiHandler) lookupBrand(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	b, score, ok := h.env.Brands.Match(name)
	if !ok {
		b = brand.Brand{Name: name, Color: brand.DefaultColor, DealsURL: brand.SearchURL(name)}
	} else if b.DealsURL == "" {
		b.DealsURL = brand.SearchURL(b.Name)
	}
	writeJSON(w, http.StatusOK, brandResponse{Success: true, Brand: b, Matched: ok, Score: score})
}
