package cart

import (
	"context"
	stderrors "errors"
	"sync"

	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
)

// Service applies cart mutations as load-modify-save against a Store.
// A per-cart lock serializes writers inside one process; writers in other
// processes sharing the store are last-write-wins.
type Service struct {
	store Store

	mu    sync.Mutex
	locks map[string]*cartLock
}

type cartLock struct {
	sync.Mutex
	refs int
}

func NewService(store Store) *Service {
	return &Service{store: store, locks: make(map[string]*cartLock)}
}

func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &cartLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Create stores a new empty cart
func (s *Service) Create(ctx context.Context, owner Owner) (*Cart, error) {
	c := New(owner)
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.ForCart().Info().Str("cart_id", c.ID).Msg("Cart created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	return s.store.Get(ctx, id)
}

// GetOrCreateForUser returns the user's latest cart, creating one when none exists
func (s *Service) GetOrCreateForUser(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.store.FindByUser(ctx, userID)
	if stderrors.Is(err, ErrCartNotFound) {
		return s.Create(ctx, Owner{UserID: userID})
	}
	return c, err
}

// GetOrCreateForSession returns the session's latest cart, creating one when none exists
func (s *Service) GetOrCreateForSession(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.store.FindBySession(ctx, sessionID)
	if stderrors.Is(err, ErrCartNotFound) {
		return s.Create(ctx, Owner{SessionID: sessionID})
	}
	return c, err
}

// update loads a cart, applies fn and saves it when fn reports a change
func (s *Service) update(ctx context.Context, id string, fn func(*Cart) (bool, error)) (*Cart, error) {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := fn(c)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.store.Save(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddItem adds quantity of p on platform, merging with a matching line.
// An empty platform selects the product's own.
func (s *Service) AddItem(ctx context.Context, id string, p product.Product, quantity int, platform product.Platform) (*Cart, error) {
	if quantity < 1 {
		return nil, errors.NewValidation("", "quantity must be at least 1")
	}
	if platform != "" && !platform.Valid() {
		return nil, errors.NewValidation(platform.String(), "unknown platform")
	}
	if p.Platform == "" && platform == "" {
		return nil, errors.NewValidation("", "product platform is required")
	}
	p = p.Clone()
	if p.Platform != "" {
		p.Tag(p.Platform, now())
	} else {
		p.Tag(platform, now())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return s.update(ctx, id, func(c *Cart) (bool, error) {
		item := c.AddItem(p, quantity, platform)
		logger.ForCart().Debug().
			Str("cart_id", id).
			Str("item_id", item.ID).
			Int("quantity", item.Quantity).
			Msg("Item added")
		return true, nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) (bool, error) {
		if !c.RemoveItem(itemID) {
			return false, ErrItemNotFound
		}
		return true, nil
	})
}

// UpdateQuantity sets an item's quantity; zero or less removes the item
func (s *Service) UpdateQuantity(ctx context.Context, id, itemID string, quantity int) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) (bool, error) {
		if !c.UpdateQuantity(itemID, quantity) {
			return false, ErrItemNotFound
		}
		return true, nil
	})
}

func (s *Service) Clear(ctx context.Context, id string) (*Cart, error) {
	return s.update(ctx, id, func(c *Cart) (bool, error) {
		c.Clear()
		return true, nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

func (s *Service) Summary(ctx context.Context, id string) (Summary, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return c.Summary(), nil
}
