package cart

import (
	"context"
	stderrors "errors"
	"sync"
)

var (
	ErrCartNotFound = stderrors.New("cart not found")
	ErrItemNotFound = stderrors.New("item not found in cart")
)

// Store persists carts by id. Get and the Find methods return ErrCartNotFound
// when nothing matches.
type Store interface {
	Create(ctx context.Context, c *Cart) error
	Get(ctx context.Context, id string) (*Cart, error)
	FindByUser(ctx context.Context, userID string) (*Cart, error)
	FindBySession(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps carts in a map. Reads and writes copy, so callers never
// share a cart value with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

func (s *MemoryStore) Create(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) FindByUser(_ context.Context, userID string) (*Cart, error) {
	return s.find(func(c *Cart) bool { return userID != "" && c.UserID == userID })
}

func (s *MemoryStore) FindBySession(_ context.Context, sessionID string) (*Cart, error) {
	return s.find(func(c *Cart) bool { return sessionID != "" && c.SessionID == sessionID })
}

// find returns the most recently updated match
func (s *MemoryStore) find(match func(*Cart) bool) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *Cart
	for _, c := range s.carts {
		if match(c) && (found == nil || c.UpdatedAt.After(found.UpdatedAt)) {
			found = c
		}
	}
	if found == nil {
		return nil, ErrCartNotFound
	}
	return found.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[id]; !ok {
		return ErrCartNotFound
	}
	delete(s.carts, id)
	return nil
}
