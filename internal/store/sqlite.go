package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cheapeats/internal/model"
)

// SQLiteStore implements DealStore and UserStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	latitude         REAL NOT NULL DEFAULT 0,
	longitude        REAL NOT NULL DEFAULT 0,
	address          TEXT NOT NULL DEFAULT '',
	quality_score    INTEGER NOT NULL DEFAULT 0,
	verified         BOOLEAN NOT NULL DEFAULT 0,
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
	newsletter_subscribed BOOLEAN NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS favorites (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	deal_id  TEXT NOT NULL,
	added_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (user_id, deal_id)
);

CREATE TABLE IF NOT EXISTS newsletter (
	email         TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	subscribed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	is_active     BOOLEAN NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites(user_id);
CREATE INDEX IF NOT EXISTS idx_newsletter_active ON newsletter(is_active);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Deals ---

func (s *SQLiteStore) ActiveDeals(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(dealColumns, ", ")+` FROM deals ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query deals")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Candidate{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deal")
		}
		if c := candidate(d); keep(c) {
			out = append(out, c)
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate deals")
}

func (s *SQLiteStore) SaveDeals(ctx context.Context, deals []model.StoredDeal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM deals`); err != nil {
		return eris.Wrap(err, "sqlite: clear deals")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(dealColumns)+1), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO deals (position, `+strings.Join(dealColumns, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert deal")
	}
	defer stmt.Close() //nolint:errcheck

	for i, d := range deals {
		if _, err := stmt.ExecContext(ctx, dealArgs(d, i)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert deal %s", d.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit deals")
}

func (s *SQLiteStore) LastAdded(ctx context.Context) (string, error) {
	var added string
	err := s.db.QueryRowContext(ctx,
		`SELECT date_added FROM deals ORDER BY position LIMIT 1`).Scan(&added)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: last added")
	}
	return added, nil
}

// --- Users ---

func (s *SQLiteStore) UpsertUser(ctx context.Context, u model.UserProfile) (*model.UserProfile, error) {
	if u.ID == "" {
		return nil, eris.New("sqlite: user id is required")
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, image, newsletter_subscribed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name, image = excluded.image`,
		u.ID, u.Email, u.Name, u.Image, u.NewsletterSubscribed, created,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert user %s", u.ID)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.UserProfile, error) {
	var u model.UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, image, newsletter_subscribed, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.NewsletterSubscribed, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: user %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get user %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT deal_id FROM favorites WHERE user_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query favorites %s", id)
	}
	defer rows.Close() //nolint:errcheck

	u.FavoriteDeals = []string{}
	for rows.Next() {
		var dealID string
		if err := rows.Scan(&dealID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan favorite")
		}
		u.FavoriteDeals = append(u.FavoriteDeals, dealID)
	}
	return &u, eris.Wrap(rows.Err(), "sqlite: iterate favorites")
}

func (s *SQLiteStore) AddFavorite(ctx context.Context, userID, dealID string) error {
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (user_id, deal_id, added_at) VALUES (?, ?, ?)`,
		userID, dealID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: add favorite %s", dealID)
}

func (s *SQLiteStore) RemoveFavorite(ctx context.Context, userID, dealID string) error {
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND deal_id = ?`, userID, dealID)
	return eris.Wrapf(err, "sqlite: remove favorite %s", dealID)
}

func (s *SQLiteStore) userExists(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n); err != nil {
		return eris.Wrapf(err, "sqlite: lookup user %s", id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: user %s", id)
	}
	return nil
}

// --- Newsletter ---

func (s *SQLiteStore) Subscribe(ctx context.Context, email, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO newsletter (email, name, subscribed_at, is_active) VALUES (?, ?, ?, 1)
		ON CONFLICT(email) DO UPDATE SET is_active = 1`,
		email, name, time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: subscribe %s", email)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET newsletter_subscribed = 1 WHERE email = ?`, email); err != nil {
		return eris.Wrapf(err, "sqlite: flag user %s", email)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit subscribe")
}

func (s *SQLiteStore) Unsubscribe(ctx context.Context, email string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE newsletter SET is_active = 0 WHERE email = ?`, email)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: unsubscribe %s", email)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET newsletter_subscribed = 0 WHERE email = ?`, email); err != nil {
		return false, eris.Wrapf(err, "sqlite: unflag user %s", email)
	}
	return true, eris.Wrap(tx.Commit(), "sqlite: commit unsubscribe")
}

func (s *SQLiteStore) ActiveSubscribers(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, subscribed_at, is_active FROM newsletter WHERE is_active = 1 ORDER BY subscribed_at, email`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query subscribers")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.NewsletterSubscriber{}
	for rows.Next() {
		var sub model.NewsletterSubscriber
		if err := rows.Scan(&sub.Email, &sub.Name, &sub.SubscribedAt, &sub.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subscriber")
		}
		out = append(out, sub)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate subscribers")
}
