package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const defaultSlug = "default"

// SQLiteStore keeps the profile as one JSON payload row in the profiles table created
// by store.Open.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sqlx.DB
	slug   string
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, slug: defaultSlug}
}

func (s *SQLiteStore) Get(ctx context.Context) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.getLocked(ctx, s.db)
}

func (s *SQLiteStore) Save(ctx context.Context, p *Profile) error {
	if p == nil {
		return ErrNilProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.saveLocked(ctx, s.db, p)
}

func (s *SQLiteStore) Merge(ctx context.Context, u Update) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	p, err := s.getLocked(ctx, tx)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	if err := s.saveLocked(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit profile update")
	}
	return p, nil
}

// Close marks the store closed. The database handle belongs to the caller.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SQLiteStore) getLocked(ctx context.Context, q sqlx.QueryerContext) (*Profile, error) {
	var payload string
	err := sqlx.GetContext(ctx, q, &payload, `SELECT payload_json FROM profiles WHERE slug = ?`, s.slug)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not load profile")
	}

	p := &Profile{}
	if err := json.Unmarshal([]byte(payload), p); err != nil {
		return nil, errors.Wrap(err, "could not decode profile")
	}
	return p, nil
}

func (s *SQLiteStore) saveLocked(ctx context.Context, e sqlx.ExecerContext, p *Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "could not encode profile")
	}
	_, err = e.ExecContext(ctx, `
INSERT INTO profiles (slug, payload_json, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET payload_json = excluded.payload_json, updated_at_ms = excluded.updated_at_ms`,
		s.slug, string(b), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "could not save profile")
	}
	return nil
}
