package homework

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("homework not found")
	ErrStoreClosed = errors.New("homework store is closed")
)

type Store interface {
	// Add validates h, assigns it a new ID and stores it.
	Add(ctx context.Context, h *Homework) (*Homework, error)
	// Toggle flips the completed flag.
	Toggle(ctx context.Context, id string) (*Homework, error)
	Delete(ctx context.Context, id string) error
	// List returns all homework, sorted with Sort.
	List(ctx context.Context) ([]*Homework, error)
	Close() error
}

func prepare(h *Homework) (*Homework, error) {
	if h == nil {
		return nil, errors.New("homework is nil")
	}
	ret := h.Clone()
	if err := Validate(ret); err != nil {
		return nil, err
	}
	ret.ID = uuid.NewString()
	y, m, d := ret.DueDate.Date()
	ret.DueDate = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return ret, nil
}

type InMemoryStore struct {
	mu     sync.RWMutex
	items  []*Homework
	closed bool
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Add(_ context.Context, h *Homework) (*Homework, error) {
	ret, err := prepare(h)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	s.items = append(s.items, ret)
	return ret.Clone(), nil
}

func (s *InMemoryStore) Toggle(_ context.Context, id string) (*Homework, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	for _, h := range s.items {
		if h.ID == id {
			h.Completed = !h.Completed
			return h.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	for i, h := range s.items {
		if h.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*Homework, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ret := make([]*Homework, 0, len(s.items))
	for _, h := range s.items {
		ret = append(ret, h.Clone())
	}
	Sort(ret)
	return ret, nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
