package items

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "erpgate:item:"

// SummaryCache serves item summaries from Redis with database fallthrough.
// The invoice pipeline consults it for every existing line item.
type SummaryCache struct {
	logger *slog.Logger
	client *redis.Client
	repo   Repository
	ttl    time.Duration
}

// NewSummaryCache constructs the cache. client may be nil; every read then
// falls through to the repository.
func NewSummaryCache(logger *slog.Logger, client *redis.Client, repo Repository, ttl time.Duration) *SummaryCache {
	return &SummaryCache{logger: logger, client: client, repo: repo, ttl: ttl}
}

// Get returns the cached summary for an existing item, loading and caching
// it on a miss.
func (c *SummaryCache) Get(ctx context.Context, code string) (*Summary, error) {
	if c.client != nil {
		if data, err := c.client.Get(ctx, summaryKeyPrefix+code).Bytes(); err == nil {
			var s Summary
			if err := json.Unmarshal(data, &s); err == nil {
				return &s, nil
			}
		}
	}

	s, err := c.repo.Summary(ctx, code)
	if err != nil {
		return nil, err
	}
	c.Put(ctx, s)
	return s, nil
}

// Put stores a summary. Failures are logged and ignored; the cache is an
// optimization, never a source of truth.
func (c *SummaryCache) Put(ctx context.Context, s *Summary) {
	if c.client == nil || s == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKeyPrefix+s.ItemCode, data, c.ttl).Err(); err != nil {
		c.logger.Warn("item summary cache set failed",
			slog.String("item_code", s.ItemCode), slog.Any("error", err))
	}
}
