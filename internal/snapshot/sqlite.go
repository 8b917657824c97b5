package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLite stores snapshots in the snapshots table as JSONB. The table is
// created by the migrations package.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLite(db *sql.DB, ttl time.Duration) *SQLite {
	return &SQLite{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	var expires any
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl).UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, data, expires_at) VALUES (?, jsonb(?), ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		key, string(data), expires,
	)
	return err
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		data    string
		expires sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data), expires_at FROM snapshots WHERE key = ?`, key,
	).Scan(&data, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid && expires.String <= s.now().UTC().Format(timeLayout) {
		if err := s.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("deleting expired snapshot: %w", err)
		}
		return nil, ErrNotFound
	}
	return []byte(data), nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	return err
}

// Purge removes expired rows.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ Store = (*SQLite)(nil)
