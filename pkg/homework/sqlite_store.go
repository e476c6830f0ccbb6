package homework

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type row struct {
	ID          string `db:"id"`
	Subject     string `db:"subject"`
	Description string `db:"description"`
	DueDate     string `db:"due_date"`
	Completed   bool   `db:"completed"`
	CreatedAtMs int64  `db:"created_at_ms"`
}

func (r row) toHomework() (*Homework, error) {
	due, err := ParseDueDate(r.DueDate)
	if err != nil {
		return nil, err
	}
	return &Homework{
		ID:          r.ID,
		Subject:     Subject(r.Subject),
		Description: r.Description,
		DueDate:     due,
		Completed:   r.Completed,
	}, nil
}

// SQLiteStore keeps homework in the homework table created by store.Open.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sqlx.DB
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Add(ctx context.Context, h *Homework) (*Homework, error) {
	ret, err := prepare(h)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	_, err = s.db.NamedExecContext(ctx, `
INSERT INTO homework (id, subject, description, due_date, completed, created_at_ms)
VALUES (:id, :subject, :description, :due_date, :completed, :created_at_ms)`, row{
		ID:          ret.ID,
		Subject:     string(ret.Subject),
		Description: ret.Description,
		DueDate:     ret.DueDate.Format(DateLayout),
		Completed:   ret.Completed,
		CreatedAtMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not insert homework")
	}
	return ret, nil
}

func (s *SQLiteStore) Toggle(ctx context.Context, id string) (*Homework, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `UPDATE homework SET completed = NOT completed WHERE id = ?`, id)
	if err != nil {
		return nil, errors.Wrap(err, "could not toggle homework")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	var r row
	if err := s.db.GetContext(ctx, &r, `SELECT * FROM homework WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "could not load homework")
	}
	return r.toHomework()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM homework WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "could not delete homework")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Homework, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM homework ORDER BY created_at_ms ASC`); err != nil {
		return nil, errors.Wrap(err, "could not list homework")
	}
	ret := make([]*Homework, 0, len(rows))
	for _, r := range rows {
		h, err := r.toHomework()
		if err != nil {
			return nil, err
		}
		ret = append(ret, h)
	}
	Sort(ret)
	return ret, nil
}

// Close marks the store closed. The database handle belongs to the caller.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
