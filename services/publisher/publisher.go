package publisher

import (
	"context"
	"time"
)

// Stream entry fields. The query and data source are duplicated out of the
// event so consumers can filter without decoding it.
const (
	FieldQuery      = "query"
	FieldDataSource = "data_source"
	FieldEvent      = "event"
)

// Publisher sends completed searches to downstream consumers
type Publisher interface {
	// PublishSearch appends one search event
	PublishSearch(ctx context.Context, ev SearchEvent) error

	// TrimStreams caps every stream at the configured length
	TrimStreams(ctx context.Context) error
}

// PlatformResult is one platform's share of a search
type PlatformResult struct {
	Platform string `json:"platform"`
	Tier     string `json:"tier"`
	Products int    `json:"products"`
}

// SearchEvent describes a completed search
type SearchEvent struct {
	Query       string           `json:"query"`
	SubQueries  []string         `json:"sub_queries,omitempty"`
	Platforms   []PlatformResult `json:"platforms"`
	DataSource  string           `json:"data_source"`
	ResultCount int              `json:"result_count"`
	ElapsedMS   int64            `json:"elapsed_ms"`
	CacheHit    bool             `json:"cache_hit"`
	At          time.Time        `json:"at"`
}
