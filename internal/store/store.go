// Package store persists deals, users and newsletter subscriptions.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cheapeats/internal/model"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = eris.New("store: not found")

// DealStore reads and replaces the persisted deal list.
type DealStore interface {
	// ActiveDeals returns every non-empty, non-inactive row in stored order.
	ActiveDeals(ctx context.Context) ([]model.Candidate, error)
	// SaveDeals replaces all rows with deals.
	SaveDeals(ctx context.Context, deals []model.StoredDeal) error
	// LastAdded is the dateAdded of the first row, or "" when empty.
	LastAdded(ctx context.Context) (string, error)
	Close() error
}

// UserStore manages user profiles, favorites and the newsletter list.
type UserStore interface {
	// UpsertUser creates or updates a profile. Creation time, favorites and
	// newsletter flag of an existing user are kept.
	UpsertUser(ctx context.Context, u model.UserProfile) (*model.UserProfile, error)
	GetUser(ctx context.Context, id string) (*model.UserProfile, error)
	// AddFavorite is a no-op when the deal is already a favorite.
	AddFavorite(ctx context.Context, userID, dealID string) error
	RemoveFavorite(ctx context.Context, userID, dealID string) error
	// Subscribe adds a subscriber or reactivates an existing one.
	Subscribe(ctx context.Context, email, name string) error
	// Unsubscribe reports false when the email was never subscribed.
	Unsubscribe(ctx context.Context, email string) (bool, error)
	ActiveSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error)
	Close() error
}

// Migrator is implemented by stores with a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// dealColumns are the deals table columns in model.StoredColumns order.
var dealColumns = []string{
	"id", "restaurant_name", "title", "description", "original_price", "deal_price",
	"discount_percent", "category", "expiration_date", "latitude", "longitude",
	"address", "quality_score", "verified", "source", "source_url", "date_added", "status",
}

// keep reports whether a stored row should be served. Rows missing a name
// and title are left for the normalizer to drop and count.
func keep(c model.Candidate) bool {
	return !strings.EqualFold(c.String("status"), string(model.DealStatusInactive))
}

// dealArgs flattens a stored deal for an insert.
func dealArgs(d model.StoredDeal, position int) []any {
	return []any{
		position,
		d.ID, d.RestaurantName, d.Title, d.Description, d.OriginalPrice, d.DealPrice,
		d.DiscountPercent, d.Category, d.ExpirationDate, d.Latitude, d.Longitude,
		d.Address, d.QualityScore, d.Verified, d.Source, d.SourceURL, d.DateAdded, string(d.Status),
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDeal(row scannable) (model.StoredDeal, error) {
	var (
		d      model.StoredDeal
		status string
	)
	err := row.Scan(
		&d.ID, &d.RestaurantName, &d.Title, &d.Description, &d.OriginalPrice, &d.DealPrice,
		&d.DiscountPercent, &d.Category, &d.ExpirationDate, &d.Latitude, &d.Longitude,
		&d.Address, &d.QualityScore, &d.Verified, &d.Source, &d.SourceURL, &d.DateAdded, &status,
	)
	d.Status = model.DealStatus(status)
	return d, err
}

// candidate converts a scanned row to the loosely typed form the
// normalizer reads.
func candidate(d model.StoredDeal) model.Candidate {
	return model.CandidateFromRow(model.StoredColumns, d.Row())
}
