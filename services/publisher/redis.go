package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"sjsage522/shopcompare/pkg/errors"
)

// StreamPublisher writes search events to a fixed set of Redis streams named
// prefix:0 to prefix:N-1. Events for the same query always land in the same
// stream, so a consumer sees them in order.
type StreamPublisher struct {
	client  redis.Cmdable
	streams []string
	maxLen  int64
}

var _ Publisher = (*StreamPublisher)(nil)

// NewStreamPublisher publishes over client. maxLen <= 0 leaves the streams unbounded.
func NewStreamPublisher(client redis.Cmdable, prefix string, shards, maxLen int) *StreamPublisher {
	shards = max(shards, 1)
	streams := make([]string, shards)
	for i := range streams {
		streams[i] = prefix + ":" + strconv.Itoa(i)
	}
	return &StreamPublisher{client: client, streams: streams, maxLen: int64(max(maxLen, 0))}
}

// StreamFor returns the stream a query's events go to
func (p *StreamPublisher) StreamFor(query string) string {
	key := strings.ToLower(strings.TrimSpace(query))
	return p.streams[xxhash.Sum64String(key)%uint64(len(p.streams))]
}

// PublishSearch appends ev as JSON. Streams are capped approximately on every add.
func (p *StreamPublisher) PublishSearch(ctx context.Context, ev SearchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.NewPublisher("failed to encode search event", err)
	}
	args := &redis.XAddArgs{
		Stream: p.StreamFor(ev.Query),
		Values: []any{
			FieldQuery, ev.Query,
			FieldDataSource, ev.DataSource,
			FieldEvent, string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return errors.NewPublisher("failed to publish search event", err)
	}
	return nil
}

// TrimStreams caps every stream exactly. Approximate trimming on add can leave
// a stream somewhat over the limit.
func (p *StreamPublisher) TrimStreams(ctx context.Context) error {
	if p.maxLen <= 0 {
		return nil
	}
	for _, stream := range p.streams {
		if err := p.client.XTrimMaxLen(ctx, stream, p.maxLen).Err(); err != nil {
			return errors.NewPublisher("failed to trim "+stream, err)
		}
	}
	return nil
}
