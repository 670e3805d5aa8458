package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-oauth/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const applicationCacheKeyPrefix = "go-oauth::application::v1"

// CachedApplicationStore serves client lookups from cache. Every token
// endpoint resolves the client, so reads dominate.
type CachedApplicationStore struct {
	base  core.ApplicationStore
	cache repositorycache.CacheService
}

func NewCachedApplicationStore(
	base core.ApplicationStore,
	cacheService repositorycache.CacheService,
) (*CachedApplicationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base application store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: application cache service is required")
	}
	return &CachedApplicationStore{base: base, cache: cacheService}, nil
}

// ApplicationCacheKey returns go-oauth::application::v1::<field>::<value>
// with the value URL-path escaped.
func ApplicationCacheKey(field string, value string) string {
	return strings.Join([]string{
		applicationCacheKeyPrefix,
		field,
		url.PathEscape(strings.TrimSpace(value)),
	}, "::")
}

func (s *CachedApplicationStore) Create(ctx context.Context, app core.Application) (core.Application, error) {
	if s == nil || s.base == nil {
		return core.Application{}, fmt.Errorf("sqlstore: cached application store is not configured")
	}
	return s.base.Create(ctx, app)
}

func (s *CachedApplicationStore) Get(ctx context.Context, id string) (core.Application, error) {
	return s.cached(ctx, ApplicationCacheKey("id", id), func(ctx context.Context) (core.Application, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedApplicationStore) GetByClientID(ctx context.Context, clientID string) (core.Application, error) {
	return s.cached(ctx, ApplicationCacheKey("client_id", clientID), func(ctx context.Context) (core.Application, error) {
		return s.base.GetByClientID(ctx, clientID)
	})
}

func (s *CachedApplicationStore) cached(
	ctx context.Context,
	key string,
	fetch func(context.Context) (core.Application, error),
) (core.Application, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Application{}, fmt.Errorf("sqlstore: cached application store is not configured")
	}
	app, err := repositorycache.GetOrFetch(ctx, s.cache, key, fetch)
	if err != nil {
		return core.Application{}, err
	}
	return cloneApplication(app), nil
}

func (s *CachedApplicationStore) Update(ctx context.Context, app core.Application) (core.Application, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Application{}, fmt.Errorf("sqlstore: cached application store is not configured")
	}
	previous, err := s.base.Get(ctx, app.ID)
	if err != nil {
		return core.Application{}, err
	}
	updated, err := s.base.Update(ctx, app)
	if err != nil {
		return core.Application{}, err
	}
	if err := s.invalidate(ctx, previous, updated); err != nil {
		return core.Application{}, err
	}
	return updated, nil
}

func (s *CachedApplicationStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached application store is not configured")
	}
	previous, err := s.base.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, previous)
}

func (s *CachedApplicationStore) invalidate(ctx context.Context, apps ...core.Application) error {
	for _, app := range apps {
		for _, key := range []string{
			ApplicationCacheKey("id", app.ID),
			ApplicationCacheKey("client_id", app.ClientID),
		} {
			if err := s.cache.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func cloneApplication(app core.Application) core.Application {
	app.UserID = copyString(app.UserID)
	return app
}
