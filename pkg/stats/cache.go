package stats

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/caduceuspress/pulse/pkg/notify"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// DefaultCacheSize bounds the aggregate cache entry count.
const DefaultCacheSize = 256

// CachedService caches Service results until the change feed reports a
// write. Entries have no TTL: invalidation is event-driven, so a quiet
// backend serves from cache indefinitely while an active one stays fresh.
type CachedService struct {
	inner  *Service
	cache  *lru.Cache[string, any]
	group  singleflight.Group
	cancel func()
	logger *observability.Logger
}

// NewCachedService wraps inner with an LRU of the given size, subscribed
// to notifier for invalidation. A nil notifier disables invalidation and
// is only sensible in tests.
func NewCachedService(inner *Service, size int, notifier notify.Notifier, logger *observability.Logger) (*CachedService, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats cache: %w", err)
	}

	s := &CachedService{
		inner:  inner,
		cache:  cache,
		logger: logger,
	}
	if notifier != nil {
		s.cancel = notifier.Subscribe(s.onChange)
	}
	return s, nil
}

// Close detaches from the change feed.
func (s *CachedService) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// ByDocumentType is the cached form of Service.ByDocumentType.
func (s *CachedService) ByDocumentType(ctx context.Context) ([]TypeStats, error) {
	v, err := s.cached(ctx, "by_document_type", func(ctx context.Context) (any, error) {
		return s.inner.ByDocumentType(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]TypeStats), nil
}

// Daily is the cached form of Service.Daily.
func (s *CachedService) Daily(ctx context.Context, days int) ([]DailyStat, error) {
	key := fmt.Sprintf("daily:%d", days)
	v, err := s.cached(ctx, key, func(ctx context.Context) (any, error) {
		return s.inner.Daily(ctx, days)
	})
	if err != nil {
		return nil, err
	}
	return v.([]DailyStat), nil
}

// Overall is the cached form of Service.Overall.
func (s *CachedService) Overall(ctx context.Context) (*Totals, error) {
	v, err := s.cached(ctx, "overall", func(ctx context.Context) (any, error) {
		return s.inner.Overall(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Totals), nil
}

// ForDocument is the cached form of Service.ForDocument.
func (s *CachedService) ForDocument(ctx context.Context, documentID string) (*DocumentStats, error) {
	key := "document:" + documentID
	v, err := s.cached(ctx, key, func(ctx context.Context) (any, error) {
		return s.inner.ForDocument(ctx, documentID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DocumentStats), nil
}

// cached serves key from the LRU, collapsing concurrent misses for the
// same key into a single backend query. Errors are never cached.
func (s *CachedService) cached(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, v)
		return v, nil
	})
	return v, err
}

// onChange drops every cached aggregate. Any write can shift the
// per-type, daily, and overall numbers at once, so selective invalidation
// buys nothing here.
func (s *CachedService) onChange(ctx context.Context, change notify.Change) {
	s.cache.Purge()
}
