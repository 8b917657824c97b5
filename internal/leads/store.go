// Package leads stores submitted assessments and builds the admin views over
// them: search, per-email roll-up, statistics and exports.
package leads

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/quiz"
)

const (
	StatusNew       = "new"
	StatusCompleted = "completed"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Record is a persisted assessment. It is written once and never updated.
type Record struct {
	ID              string                 `json:"id"`
	ContactName     string                 `json:"contactName"`
	ContactEmail    string                 `json:"contactEmail"`
	ContactRole     string                 `json:"contactRole"`
	ContactIndustry string                 `json:"contactIndustry"`
	Answers         []quiz.FormattedAnswer `json:"answers"`
	ScoreTotal      int                    `json:"scoreTotal"`
	TierResult      string                 `json:"tierResult"`
	Status          string                 `json:"status"`
	SessionID       string                 `json:"sessionId,omitempty"`
	InsertedAt      string                 `json:"insertedAt"`
}

// Completed reports whether the record counts as a finished assessment.
func (r Record) Completed() bool {
	return r.Status == StatusNew || r.Status == StatusCompleted
}

func (r Record) insertedAt() time.Time {
	t, _ := time.Parse(timeLayout, r.InsertedAt)
	return t
}

// Store keeps lead records as JSONB documents in the leads table.
type Store struct {
	db      *sql.DB
	catalog *assessment.Catalog
	now     func() time.Time
}

func NewStore(db *sql.DB, catalog *assessment.Catalog) *Store {
	return &Store{db: db, catalog: catalog, now: time.Now}
}

func (s *Store) Catalog() *assessment.Catalog { return s.catalog }

// Result scores a stored record against the current catalog. The stored tier
// label is not consulted.
func (s *Store) Result(r Record) assessment.Result {
	return s.catalog.ScoreResult(r.ScoreTotal)
}

// Insert assigns an id and timestamp and writes the record.
func (s *Store) Insert(ctx context.Context, r Record) (Record, error) {
	r.ID = uuid.NewString()
	r.InsertedAt = s.now().UTC().Format(timeLayout)
	if r.Status == "" {
		r.Status = StatusNew
	}
	if r.Answers == nil {
		r.Answers = []quiz.FormattedAnswer{}
	}

	data, err := json.Marshal(r)
	if err != nil {
		return Record{}, &StoreError{Op: "encode lead", kind: ErrValidation, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, email, status, score, inserted_at, data) VALUES (?, ?, ?, ?, ?, jsonb(?))`,
		r.ID, normalizeEmail(r.ContactEmail), r.Status, r.ScoreTotal, r.InsertedAt, string(data),
	)
	if err != nil {
		return Record{}, classify("insert lead", err)
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM leads WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// All returns every record, newest first.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM leads ORDER BY inserted_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Filter narrows List. Query matches name, email, role or industry,
// ignoring case. A zero Tier matches every tier.
type Filter struct {
	Query string
	Tier  assessment.Tier
}

func (f Filter) match(r Record, tier assessment.Tier) bool {
	if f.Tier != assessment.TierUnknown && f.Tier != tier {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{r.ContactName, r.ContactEmail, r.ContactRole, r.ContactIndustry} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if f.match(r, s.Result(r).Tier) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEmail removes every record of a contact and returns the ids removed.
func (s *Store) DeleteByEmail(ctx context.Context, email string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM leads WHERE email = ?`, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE email = ?`, normalizeEmail(email)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newestFirst orders records by insertion time, most recent first.
func newestFirst(a, b Record) int {
	return cmp.Compare(b.InsertedAt, a.InsertedAt)
}
