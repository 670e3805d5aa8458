package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-oauth/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithApplicationCache serves application lookups through cacheService.
func WithApplicationCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

type RepositoryFactory struct {
	db     *bun.DB
	tables tableSet
	cache  repositorycache.CacheService

	applicationStore  core.ApplicationStore
	grantStore        *GrantStore
	accessTokenStore  *AccessTokenStore
	refreshTokenStore *RefreshTokenStore
	idTokenStore      *IDTokenStore
	tokenStore        *TokenStore
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(
	client *persistence.Client,
	registry *core.ModelRegistry,
	opts ...FactoryOption,
) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client, registry); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, registry *core.ModelRegistry, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db, registry); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores binds every store to the tables registry resolves. A model
// specifier that cannot be resolved fails here, before any query runs.
func (f *RepositoryFactory) BuildStores(persistenceClient any, registry *core.ModelRegistry) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.tokenStore != nil {
		return f, nil
	}
	tables, err := resolveTables(registry)
	if err != nil {
		return nil, err
	}
	f.tables = tables
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) initStores() error {
	idTokenRepo := repository.NewRepository[*idTokenRecord](f.db, idTokenHandlers())
	if validator, ok := idTokenRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid id token repository wiring: %w", err)
		}
	}

	var applications core.ApplicationStore = &ApplicationStore{db: f.db, tables: f.tables}
	if f.cache != nil {
		cached, err := NewCachedApplicationStore(applications, f.cache)
		if err != nil {
			return err
		}
		applications = cached
	}
	f.applicationStore = applications
	f.grantStore = &GrantStore{db: f.db, tables: f.tables}
	f.accessTokenStore = &AccessTokenStore{db: f.db, tables: f.tables}
	f.refreshTokenStore = &RefreshTokenStore{db: f.db, tables: f.tables}
	f.idTokenStore = &IDTokenStore{db: f.db, tables: f.tables, repo: idTokenRepo}
	f.tokenStore = &TokenStore{db: f.db, tables: f.tables, idTokens: f.idTokenStore}
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) ApplicationStore() core.ApplicationStore {
	if f == nil {
		return nil
	}
	return f.applicationStore
}

func (f *RepositoryFactory) GrantStore() core.GrantStore {
	if f == nil || f.grantStore == nil {
		return nil
	}
	return f.grantStore
}

func (f *RepositoryFactory) AccessTokenStore() core.AccessTokenStore {
	if f == nil || f.accessTokenStore == nil {
		return nil
	}
	return f.accessTokenStore
}

func (f *RepositoryFactory) RefreshTokenStore() core.RefreshTokenStore {
	if f == nil || f.refreshTokenStore == nil {
		return nil
	}
	return f.refreshTokenStore
}

func (f *RepositoryFactory) IDTokenStore() core.IDTokenStore {
	if f == nil || f.idTokenStore == nil {
		return nil
	}
	return f.idTokenStore
}

func (f *RepositoryFactory) TokenIssueStore() core.TokenIssueStore {
	if f == nil || f.tokenStore == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) ExpiredTokenStore() core.ExpiredTokenStore {
	if f == nil || f.tokenStore == nil {
		return nil
	}
	return f.tokenStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
