package app

import (
	"context"
	"fmt"
	"time"

	"replypilot/internal/domain"
)

// BusinessReader serves business configs through the cache. Configs are read-only here.
type BusinessReader struct {
	repo     domain.BusinessRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewBusinessReader(r domain.BusinessRepository, c domain.Cache, ttl time.Duration) *BusinessReader {
	return &BusinessReader{repo: r, cache: c, cacheTTL: ttl}
}

func businessKey(id string) string { return fmt.Sprintf("business:%s", id) }

// GetBusiness returns the config with defaults filled in.
func (s *BusinessReader) GetBusiness(ctx context.Context, id string) (domain.BusinessConfig, error) {
	key := businessKey(id)
	var b domain.BusinessConfig
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &b); ok {
			return b.WithDefaults(), nil
		}
	}
	b, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return domain.BusinessConfig{}, err
	}
	b = b.WithDefaults()
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, b, int(s.cacheTTL.Seconds()))
	}
	return b, nil
}

// Invalidate drops the cached config, e.g. after the configuration system reports a change.
func (s *BusinessReader) Invalidate(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, businessKey(id))
}
