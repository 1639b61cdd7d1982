package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcompare/internal/product"
)

// MockStore counts Get calls on top of a MemoryStore
type MockStore struct {
	*MemoryStore
	gets int
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) Get(ctx context.Context, id string) (*Cart, error) {
	m.gets++
	return m.MemoryStore.Get(ctx, id)
}

func setupCachedStore(t *testing.T) (*CachedStore, *MockStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := &MockStore{MemoryStore: NewMemoryStore()}
	return NewCachedStore(backing, client, time.Minute), backing, mr
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	store, backing, mr := setupCachedStore(t)

	c := New(Owner{UserID: "u1"})
	c.AddItem(newProduct(product.Blinkit, "a", "Bread", 40, 0, "10 mins"), 2, "")
	require.NoError(t, backing.Save(ctx, c))

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.gets)
	assert.True(t, mr.Exists(cacheKey(c.ID)))

	again, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, got.ID, again.ID)
	require.Len(t, again.Items, 1)
	assert.Equal(t, 2, again.Items[0].Quantity)
	assert.Equal(t, product.Blinkit, again.Items[0].SelectedPlatform)

	ttl := mr.TTL(cacheKey(c.ID))
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, 6*time.Minute)
}

func TestCachedStoreWriteThrough(t *testing.T) {
	ctx := context.Background()
	store, backing, mr := setupCachedStore(t)

	c := New(Owner{})
	require.NoError(t, store.Create(ctx, c))

	c.AddItem(newProduct(product.Zepto, "a", "Eggs", 70, 0, "15 mins"), 1, "")
	require.NoError(t, store.Save(ctx, c))

	raw, err := mr.Get(cacheKey(c.ID))
	require.NoError(t, err)
	var cached Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Len(t, cached.Items, 1)

	stored, err := backing.MemoryStore.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)

	require.NoError(t, store.Delete(ctx, c.ID))
	assert.False(t, mr.Exists(cacheKey(c.ID)))
	_, err = store.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCachedStoreIgnoresCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store, backing, mr := setupCachedStore(t)

	c := New(Owner{})
	require.NoError(t, backing.Save(ctx, c))
	require.NoError(t, mr.Set(cacheKey(c.ID), "{not json"))

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, 1, backing.gets)
}

func TestCachedStoreSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	backing := NewMemoryStore()
	store := NewCachedStore(backing, client, 0)

	c := New(Owner{})
	require.NoError(t, backing.Save(ctx, c))
	mr.Close()

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	require.NoError(t, store.Save(ctx, got))
}
