package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcompare/pkg/errors"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestPublishSearch(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	p := NewStreamPublisher(client, "searches", 1, 100)

	ev := SearchEvent{
		Query:       "milk",
		Platforms:   []PlatformResult{{Platform: "blinkit", Tier: "real", Products: 4}},
		DataSource:  "real",
		ResultCount: 4,
		ElapsedMS:   120,
		At:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.PublishSearch(ctx, ev))

	msgs, err := client.XRange(ctx, "searches:0", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "milk", msgs[0].Values[FieldQuery])
	assert.Equal(t, "real", msgs[0].Values[FieldDataSource])

	var got SearchEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values[FieldEvent].(string)), &got))
	assert.Equal(t, ev, got)
}

func TestStreamForIsStablePerQuery(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	p := NewStreamPublisher(client, "searches", 4, 0)

	assert.Equal(t, p.StreamFor("Gaming Laptop"), p.StreamFor("  gaming laptop "))

	queries := make([]string, 40)
	for i := range queries {
		queries[i] = fmt.Sprintf("query %d", i)
		require.NoError(t, p.PublishSearch(ctx, SearchEvent{Query: queries[i]}))
		require.NoError(t, p.PublishSearch(ctx, SearchEvent{Query: queries[i], CacheHit: true}))
	}

	var total int64
	used := 0
	for i := 0; i < 4; i++ {
		n, err := client.XLen(ctx, fmt.Sprintf("searches:%d", i)).Result()
		require.NoError(t, err)
		total += n
		if n > 0 {
			used++
		}
	}
	assert.Equal(t, int64(80), total)
	assert.Greater(t, used, 1)

	// both events of a query share its stream, first the miss then the hit
	msgs, err := client.XRange(ctx, p.StreamFor(queries[7]), "-", "+").Result()
	require.NoError(t, err)
	var hits []bool
	for _, m := range msgs {
		if m.Values[FieldQuery] != queries[7] {
			continue
		}
		var ev SearchEvent
		require.NoError(t, json.Unmarshal([]byte(m.Values[FieldEvent].(string)), &ev))
		hits = append(hits, ev.CacheHit)
	}
	assert.Equal(t, []bool{false, true}, hits)
}

func TestTrimStreams(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	p := NewStreamPublisher(client, "searches", 2, 5)

	for _, stream := range []string{"searches:0", "searches:1"} {
		for i := 0; i < 12; i++ {
			require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: []any{FieldQuery, fmt.Sprint(i)}}).Err())
		}
	}
	require.NoError(t, p.TrimStreams(ctx))

	for _, stream := range []string{"searches:0", "searches:1"} {
		n, err := client.XLen(ctx, stream).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(5), n, stream)
	}

	// unbounded publishers leave streams alone
	require.NoError(t, NewStreamPublisher(client, "other", 1, 0).TrimStreams(ctx))
}

func TestPublishSearchReportsFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	p := NewStreamPublisher(client, "searches", 1, 100)
	mr.Close()

	err = p.PublishSearch(context.Background(), SearchEvent{Query: "milk"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypePublisher))
}
