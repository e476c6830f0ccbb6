package profiles

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrStoreClosed = errors.New("profile store is closed")
	ErrNilProfile  = errors.New("profile is nil")
)

// Store persists the single student profile. Get returns DefaultProfile until
// something was saved.
type Store interface {
	Get(ctx context.Context) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	// Merge applies u to the stored profile and returns the result.
	Merge(ctx context.Context, u Update) (*Profile, error)
	Close() error
}

// InMemoryStore is a thread-safe Store kept in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	profile *Profile
	closed  bool
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profile: DefaultProfile()}
}

func (s *InMemoryStore) Get(_ context.Context) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.profile.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, p *Profile) error {
	if p == nil {
		return ErrNilProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.profile = p.Clone()
	return nil
}

func (s *InMemoryStore) Merge(_ context.Context, u Update) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	u.Apply(s.profile)
	return s.profile.Clone(), nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
