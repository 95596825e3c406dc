package model

import (
	"strconv"
	"time"
)

// DealStatus is the lifecycle flag of a persisted deal row.
type DealStatus string

const (
	DealStatusActive   DealStatus = "active"
	DealStatusInactive DealStatus = "inactive"
)

// StoredDeal is the persisted shape of a deal: one spreadsheet row or one row
// of the deals table.
type StoredDeal struct {
	ID              string     `json:"id"`
	RestaurantName  string     `json:"restaurantName"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	OriginalPrice   string     `json:"originalPrice"`
	DealPrice       string     `json:"dealPrice"`
	DiscountPercent int        `json:"discountPercent"`
	Category        string     `json:"category"`
	ExpirationDate  string     `json:"expirationDate"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	Address         string     `json:"address"`
	QualityScore    int        `json:"qualityScore"`
	Verified        bool       `json:"verified"`
	Source          string     `json:"source"`
	SourceURL       string     `json:"sourceUrl"`
	DateAdded       string     `json:"dateAdded"`
	Status          DealStatus `json:"status"`
}

// StoredColumns is the fixed column order of the deals sheet and table.
var StoredColumns = []string{
	"id", "restaurantName", "title", "description", "originalPrice", "dealPrice",
	"discountPercent", "category", "expirationDate", "latitude", "longitude",
	"address", "qualityScore", "verified", "source", "sourceUrl", "dateAdded", "status",
}

// NewStoredDeal converts a normalized deal into its persisted form.
func NewStoredDeal(d Deal, address string, added time.Time) StoredDeal {
	discount := 0
	if d.DiscountPercent != nil {
		discount = *d.DiscountPercent
	}
	return StoredDeal{
		ID:              d.ID,
		RestaurantName:  d.RestaurantName,
		Title:           d.Title,
		Description:     d.Description,
		OriginalPrice:   d.OriginalPrice,
		DealPrice:       d.DealPrice,
		DiscountPercent: discount,
		Category:        string(d.Category),
		ExpirationDate:  d.ExpirationDate,
		Latitude:        d.Latitude,
		Longitude:       d.Longitude,
		Address:         address,
		QualityScore:    d.QualityScore,
		Verified:        d.Verified,
		Source:          d.Source,
		SourceURL:       d.SourceURL,
		DateAdded:       added.UTC().Format(time.DateOnly),
		Status:          DealStatusActive,
	}
}

// Row renders the deal as strings in StoredColumns order.
func (s StoredDeal) Row() []string {
	return []string{
		s.ID,
		s.RestaurantName,
		s.Title,
		s.Description,
		s.OriginalPrice,
		s.DealPrice,
		strconv.Itoa(s.DiscountPercent),
		s.Category,
		s.ExpirationDate,
		strconv.FormatFloat(s.Latitude, 'f', -1, 64),
		strconv.FormatFloat(s.Longitude, 'f', -1, 64),
		s.Address,
		strconv.Itoa(s.QualityScore),
		strconv.FormatBool(s.Verified),
		s.Source,
		s.SourceURL,
		s.DateAdded,
		string(s.Status),
	}
}

// CandidateFromRow builds a candidate from a header row and a data row. Cells
// beyond the header are ignored; missing cells are left out.
func CandidateFromRow(header, row []string) Candidate {
	c := make(Candidate, len(header))
	for i, key := range header {
		if key == "" || i >= len(row) {
			continue
		}
		c[key] = row[i]
	}
	return c
}
