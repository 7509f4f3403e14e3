package profile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/park285/chess-coach/internal/domain"
)

var (
	// ErrConflict is returned when an update kept losing to concurrent writers.
	ErrConflict   = errors.New("profile: too many concurrent updates")
	errNilProfile = errors.New("profile: update produced nil profile")
)

// updateRetries bounds optimistic retries in the redis and mongo stores.
const updateRetries = 8

// UpdateFunc receives the stored profile, or nil when none exists, and
// returns the value to store. Returning an error aborts the write.
type UpdateFunc func(cur *domain.RatingProfile) (*domain.RatingProfile, error)

// Store is a flat id -> profile mapping. Update is a serialized
// read-modify-write per id; Get returns nil, nil for an unknown id.
type Store interface {
	Get(ctx context.Context, id string) (*domain.RatingProfile, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*domain.RatingProfile, error)
	List(ctx context.Context) ([]*domain.RatingProfile, error)
	Close() error
}

// MemoryStore keeps profiles in process. Used when no backing store is configured.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.RatingProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*domain.RatingProfile)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.RatingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[id].Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.RatingProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.profiles[id].Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errNilProfile
	}
	next = next.Clone()
	next.ID = id
	m.profiles[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*domain.RatingProfile, error) {
	m.mu.Lock()
	out := make([]*domain.RatingProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Clone())
	}
	m.mu.Unlock()
	sortByID(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func sortByID(list []*domain.RatingProfile) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
