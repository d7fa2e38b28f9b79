package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const templateCacheKeyPrefix = "erpgate:taxtpl:"

// Service fronts the reference-data repository with a Redis cache for the
// template lists the tax code resolver iterates on every invoice line.
type Service struct {
	Repository

	logger *slog.Logger
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewService wraps repo with template-list caching. cache may be nil, in
// which case every read goes to the database.
func NewService(logger *slog.Logger, repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{Repository: repo, logger: logger, cache: cache, ttl: ttl}
}

// ItemTaxTemplates returns a company's templates with rate rows, serving
// from Redis when possible. Concurrent misses for the same company are
// collapsed into one database load.
func (s *Service) ItemTaxTemplates(ctx context.Context, company string) ([]ItemTaxTemplate, error) {
	if s.cache == nil {
		return s.Repository.ItemTaxTemplates(ctx, company)
	}

	key := templateCacheKeyPrefix + company
	if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var templates []ItemTaxTemplate
		if err := json.Unmarshal(data, &templates); err == nil {
			return templates, nil
		}
		s.logger.Warn("template cache entry corrupt, reloading", slog.String("company", company))
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		templates, err := s.Repository.ItemTaxTemplates(ctx, company)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(templates); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
				s.logger.Warn("template cache set failed", slog.Any("error", err))
			}
		}
		return templates, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]ItemTaxTemplate), nil
}

// WarmCompany refreshes the cached template list for one company. Used by
// the background warmup job.
func (s *Service) WarmCompany(ctx context.Context, company string) error {
	if s.cache == nil {
		return nil
	}
	templates, err := s.Repository.ItemTaxTemplates(ctx, company)
	if err != nil {
		return fmt.Errorf("masterdata: warm templates for %s: %w", company, err)
	}
	data, err := json.Marshal(templates)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, templateCacheKeyPrefix+company, data, s.ttl).Err()
}
