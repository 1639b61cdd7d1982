package cart

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"sjsage522/shopcompare/logger"
)

const defaultCartTTL = 15 * time.Minute

// CachedStore reads carts through Redis and writes through to the backing store.
// Cache failures are logged and never fail the operation.
type CachedStore struct {
	next    Store
	client  *redis.Client
	baseTTL time.Duration
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &CachedStore{next: next, client: client, baseTTL: ttl}
}

func cacheKey(id string) string {
	return fmt.Sprintf("cart:%s", id)
}

func (s *CachedStore) Create(ctx context.Context, c *Cart) error {
	if err := s.next.Create(ctx, c); err != nil {
		return err
	}
	s.set(ctx, c)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (*Cart, error) {
	if c, ok := s.get(ctx, id); ok {
		return c, nil
	}
	c, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, c)
	return c, nil
}

func (s *CachedStore) FindByUser(ctx context.Context, userID string) (*Cart, error) {
	return s.next.FindByUser(ctx, userID)
}

func (s *CachedStore) FindBySession(ctx context.Context, sessionID string) (*Cart, error) {
	return s.next.FindBySession(ctx, sessionID)
}

func (s *CachedStore) Save(ctx context.Context, c *Cart) error {
	if err := s.next.Save(ctx, c); err != nil {
		s.invalidate(ctx, c.ID)
		return err
	}
	s.set(ctx, c)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.invalidate(ctx, id)
	return s.next.Delete(ctx, id)
}

func (s *CachedStore) get(ctx context.Context, id string) (*Cart, bool) {
	data, err := s.client.Get(ctx, cacheKey(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.ForCart().Warn().Err(err).Str("cart_id", id).Msg("Cart cache read failed")
		return nil, false
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		logger.ForCart().Warn().Err(err).Str("cart_id", id).Msg("Dropping undecodable cached cart")
		s.invalidate(ctx, id)
		return nil, false
	}
	return &c, true
}

func (s *CachedStore) set(ctx context.Context, c *Cart) {
	data, err := json.Marshal(c)
	if err != nil {
		logger.ForCart().Warn().Err(err).Str("cart_id", c.ID).Msg("Cart cache encode failed")
		return
	}
	// jitter spreads expiry of carts written together
	ttl := s.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := s.client.Set(ctx, cacheKey(c.ID), data, ttl).Err(); err != nil {
		logger.ForCart().Warn().Err(err).Str("cart_id", c.ID).Msg("Cart cache write failed")
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	if err := s.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		logger.ForCart().Warn().Err(err).Str("cart_id", id).Msg("Cart cache delete failed")
	}
}
