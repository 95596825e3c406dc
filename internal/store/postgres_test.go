package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cheapeats/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS deals`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveDeals(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows(dealColumns).
		AddRow("a", "McDonald's", "Big Mac Meal", "", "$9.99", "$6.99", 30, "Burgers", "",
			40.7128, -74.006, "Near you", 85, true, "Static", "", "2026-10-17", "active").
		AddRow("b", "KFC", "Old Bucket", "", "", "$20", 0, "Chicken", "",
			40.7, -74.0, "", 70, false, "Static", "", "2026-10-17", "inactive").
		AddRow("", "", "", "", "", "", 0, "", "",
			0.0, 0.0, "", 0, false, "", "", "", "active")
	mock.ExpectQuery(`SELECT id, restaurant_name, .* FROM deals ORDER BY position`).WillReturnRows(rows)

	deals, err := s.ActiveDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "McDonald's", deals[0].String("restaurantName"))
	assert.Equal(t, "30", deals[0].String("discountPercent"))
	assert.True(t, deals[0].Bool("verified"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveDeals_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM deals`).WillReturnError(errors.New("connection refused"))

	_, err := s.ActiveDeals(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: query deals")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDeals(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := append([]string{"position"}, dealColumns...)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "deals"`).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectCopyFrom(pgx.Identifier{"deals"}, cols).WillReturnResult(2)
	mock.ExpectCommit()

	err := s.SaveDeals(context.Background(), []model.StoredDeal{
		sampleStored("a", "A", "one"),
		sampleStored("b", "B", "two"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDeals_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := s.SaveDeals(context.Background(), []model.StoredDeal{sampleStored("a", "A", "one")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save deals")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastAdded(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT date_added FROM deals`).
		WillReturnRows(pgxmock.NewRows([]string{"date_added"}).AddRow("2026-10-17"))

	last, err := s.LastAdded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastAdded_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT date_added FROM deals`).WillReturnError(pgx.ErrNoRows)

	last, err := s.LastAdded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, email, name, image, newsletter_subscribed, created_at FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "image", "newsletter_subscribed", "created_at"}).
			AddRow("u1", "a@example.com", "Ada", "", true, created))
	mock.ExpectQuery(`SELECT deal_id FROM favorites WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"deal_id"}).AddRow("d1").AddRow("d2"))

	u, err := s.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.True(t, u.NewsletterSubscribed)
	assert.Equal(t, created, u.CreatedAt)
	assert.Equal(t, []string{"d1", "d2"}, u.FavoriteDeals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUser_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("u1", "a@example.com", "Ada", "", false, created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "image", "newsletter_subscribed", "created_at"}).
			AddRow("u1", "a@example.com", "Ada", "", false, created))
	mock.ExpectQuery(`FROM favorites`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"deal_id"}))

	u, err := s.UpsertUser(context.Background(), model.UserProfile{
		ID: "u1", Email: "a@example.com", Name: "Ada", CreatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Empty(t, u.FavoriteDeals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddFavorite(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO favorites .* ON CONFLICT \(user_id, deal_id\) DO NOTHING`).
		WithArgs("u1", "d1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AddFavorite(context.Background(), "u1", "d1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RemoveFavorite_UnknownUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := s.RemoveFavorite(context.Background(), "ghost", "d1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Subscribe(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO newsletter .* ON CONFLICT \(email\) DO UPDATE SET is_active = true`).
		WithArgs("a@example.com", "Ada", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.Subscribe(context.Background(), "a@example.com", "Ada"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Unsubscribe(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE newsletter SET is_active = false`).
		WithArgs("a@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET newsletter_subscribed = false`).
		WithArgs("a@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	ok, err := s.Unsubscribe(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Unsubscribe_Unknown(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE newsletter SET is_active = false`).
		WithArgs("nobody@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	ok, err := s.Unsubscribe(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveSubscribers(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM newsletter WHERE is_active`).
		WillReturnRows(pgxmock.NewRows([]string{"email", "name", "subscribed_at", "is_active"}).
			AddRow("a@example.com", "Ada", at, true))

	subs, err := s.ActiveSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "a@example.com", subs[0].Email)
	assert.Equal(t, at, subs[0].SubscribedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}
