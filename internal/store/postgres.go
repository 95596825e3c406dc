package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cheapeats/internal/db"
	"github.com/sells-group/cheapeats/internal/model"
)

// PostgresStore implements DealStore and UserStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS deals (
	position         INTEGER PRIMARY KEY,
	id               TEXT NOT NULL DEFAULT '',
	restaurant_name  TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	original_price   TEXT NOT NULL DEFAULT '',
	deal_price       TEXT NOT NULL DEFAULT '',
	discount_percent INTEGER NOT NULL DEFAULT 0,
	category         TEXT NOT NULL DEFAULT '',
	expiration_date  TEXT NOT NULL DEFAULT '',
	latitude         DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude        DOUBLE PRECISION NOT NULL DEFAULT 0,
	address          TEXT NOT NULL DEFAULT '',
	quality_score    INTEGER NOT NULL DEFAULT 0,
	verified         BOOLEAN NOT NULL DEFAULT false,
	source           TEXT NOT NULL DEFAULT '',
	source_url       TEXT NOT NULL DEFAULT '',
	date_added       TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS users (
	id                    TEXT PRIMARY KEY,
	email                 TEXT NOT NULL DEFAULT '',
	name                  TEXT NOT NULL DEFAULT '',
	image                 TEXT NOT NULL DEFAULT '',
	newsletter_subscribed BOOLEAN NOT NULL DEFAULT false,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS favorites (
	seq      BIGSERIAL PRIMARY KEY,
	user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	deal_id  TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, deal_id)
);

CREATE TABLE IF NOT EXISTS newsletter (
	email         TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	subscribed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	is_active     BOOLEAN NOT NULL DEFAULT true
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites(user_id);
CREATE INDEX IF NOT EXISTS idx_newsletter_active ON newsletter(is_active);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Deals ---

func (s *PostgresStore) ActiveDeals(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(dealColumns, ", ")+` FROM deals ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query deals")
	}
	defer rows.Close()

	out := []model.Candidate{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan deal")
		}
		if c := candidate(d); keep(c) {
			out = append(out, c)
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate deals")
}

// SaveDeals swaps the deals table contents in one transaction using COPY.
func (s *PostgresStore) SaveDeals(ctx context.Context, deals []model.StoredDeal) error {
	rows := make([][]any, len(deals))
	for i, d := range deals {
		rows[i] = dealArgs(d, i)
	}
	cols := append([]string{"position"}, dealColumns...)
	_, err := db.Replace(ctx, s.pool, "deals", cols, rows)
	return eris.Wrap(err, "postgres: save deals")
}

func (s *PostgresStore) LastAdded(ctx context.Context) (string, error) {
	var added string
	err := s.pool.QueryRow(ctx,
		`SELECT date_added FROM deals ORDER BY position LIMIT 1`).Scan(&added)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: last added")
	}
	return added, nil
}

// --- Users ---

func (s *PostgresStore) UpsertUser(ctx context.Context, u model.UserProfile) (*model.UserProfile, error) {
	if u.ID == "" {
		return nil, eris.New("postgres: user id is required")
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, image, newsletter_subscribed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, image = EXCLUDED.image`,
		u.ID, u.Email, u.Name, u.Image, u.NewsletterSubscribed, created,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert user %s", u.ID)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.UserProfile, error) {
	var u model.UserProfile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, image, newsletter_subscribed, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.NewsletterSubscribed, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: user %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get user %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT deal_id FROM favorites WHERE user_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query favorites %s", id)
	}
	defer rows.Close()

	u.FavoriteDeals = []string{}
	for rows.Next() {
		var dealID string
		if err := rows.Scan(&dealID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan favorite")
		}
		u.FavoriteDeals = append(u.FavoriteDeals, dealID)
	}
	return &u, eris.Wrap(rows.Err(), "postgres: iterate favorites")
}

func (s *PostgresStore) AddFavorite(ctx context.Context, userID, dealID string) error {
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO favorites (user_id, deal_id, added_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, deal_id) DO NOTHING`,
		userID, dealID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: add favorite %s", dealID)
}

func (s *PostgresStore) RemoveFavorite(ctx context.Context, userID, dealID string) error {
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND deal_id = $2`, userID, dealID)
	return eris.Wrapf(err, "postgres: remove favorite %s", dealID)
}

func (s *PostgresStore) userExists(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return eris.Wrapf(err, "postgres: lookup user %s", id)
	}
	if !exists {
		return eris.Wrapf(ErrNotFound, "postgres: user %s", id)
	}
	return nil
}

// --- Newsletter ---

func (s *PostgresStore) Subscribe(ctx context.Context, email, name string) error {
	_, err := s.pool.Exec(ctx,
		`WITH sub AS (
			INSERT INTO newsletter (email, name, subscribed_at, is_active) VALUES ($1, $2, $3, true)
			ON CONFLICT (email) DO UPDATE SET is_active = true
			RETURNING email
		)
		UPDATE users SET newsletter_subscribed = true WHERE email IN (SELECT email FROM sub)`,
		email, name, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: subscribe %s", email)
}

func (s *PostgresStore) Unsubscribe(ctx context.Context, email string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE newsletter SET is_active = false WHERE email = $1`, email)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: unsubscribe %s", email)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET newsletter_subscribed = false WHERE email = $1`, email); err != nil {
		return false, eris.Wrapf(err, "postgres: unflag user %s", email)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "postgres: commit unsubscribe")
	}
	return true, nil
}

func (s *PostgresStore) ActiveSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email, name, subscribed_at, is_active FROM newsletter WHERE is_active ORDER BY subscribed_at, email`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query subscribers")
	}
	defer rows.Close()

	out := []model.NewsletterSubscriber{}
	for rows.Next() {
		var sub model.NewsletterSubscriber
		if err := rows.Scan(&sub.Email, &sub.Name, &sub.SubscribedAt, &sub.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subscriber")
		}
		out = append(out, sub)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate subscribers")
}

var (
	_ DealStore = (*PostgresStore)(nil)
	_ UserStore = (*PostgresStore)(nil)
	_ Migrator  = (*PostgresStore)(nil)
	_ DealStore = (*SQLiteStore)(nil)
	_ UserStore = (*SQLiteStore)(nil)
	_ Migrator  = (*SQLiteStore)(nil)
	_ DealStore = (*SheetStore)(nil)
)
