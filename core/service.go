package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service implements the authorization server data and policy operations on
// top of the configured stores.
type Service struct {
	config             Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	persistenceClient  any
	repositoryFactory  any
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	modelRegistry      *ModelRegistry
	applicationStore   ApplicationStore
	grantStore         GrantStore
	accessTokenStore   AccessTokenStore
	refreshTokenStore  RefreshTokenStore
	idTokenStore       IDTokenStore
	tokenIssueStore    TokenIssueStore
	expiredTokenStore  ExpiredTokenStore
	idTokenSigner      IDTokenSigner
	secretHasher       SecretHasher
	tokenGenerator     TokenGenerator
	claimsContributors []ClaimsContributor
	issuerResolver     IssuerResolver
	scopes             ScopeDescriptions
	now                func() time.Time
}

type ServiceDependencies struct {
	Logger             Logger
	LoggerProvider     LoggerProvider
	MetricsRecorder    MetricsRecorder
	ErrorFactory       ErrorFactory
	ErrorMapper        ErrorMapper
	PersistenceClient  any
	RepositoryFactory  any
	ConfigProvider     ConfigProvider
	OptionsResolver    OptionsResolver
	ModelRegistry      *ModelRegistry
	ApplicationStore   ApplicationStore
	GrantStore         GrantStore
	AccessTokenStore   AccessTokenStore
	RefreshTokenStore  RefreshTokenStore
	IDTokenStore       IDTokenStore
	TokenIssueStore    TokenIssueStore
	ExpiredTokenStore  ExpiredTokenStore
	IDTokenSigner      IDTokenSigner
	SecretHasher       SecretHasher
	TokenGenerator     TokenGenerator
	ClaimsContributors []ClaimsContributor
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("oauth", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("oauth"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.tokenGenerator == nil {
		builder.tokenGenerator = RandomTokenGenerator{}
	}
	if builder.clock == nil {
		builder.clock = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.modelRegistry == nil {
		builder.modelRegistry = NewModelRegistry(finalConfig.Models)
	}
	for _, def := range builder.models {
		if err := builder.modelRegistry.Register(def); err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}
	if _, err := builder.modelRegistry.ResolveAll(); err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.applicationStore == nil && builder.repositoryFactory != nil {
		var stores StoreProvider
		switch factory := builder.repositoryFactory.(type) {
		case RepositoryStoreFactory:
			built, buildErr := factory.BuildStores(builder.persistenceClient, builder.modelRegistry)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		case StoreProvider:
			stores = factory
		}
		if stores != nil {
			WithStoreProvider(stores)(&builder)
		}
	}
	if builder.applicationStore == nil {
		WithStoreProvider(NewMemoryStore())(&builder)
	}
	if builder.grantStore == nil || builder.accessTokenStore == nil || builder.refreshTokenStore == nil ||
		builder.idTokenStore == nil || builder.tokenIssueStore == nil || builder.expiredTokenStore == nil {
		return nil, mapBuildError(
			builder.errorMapper,
			NewConfigurationError("core: application store was set without the remaining token stores"),
		)
	}

	svc := &Service{
		config:             finalConfig,
		logger:             logger,
		loggerProvider:     provider,
		metricsRecorder:    builder.metricsRecorder,
		errorFactory:       builder.errorFactory,
		errorMapper:        builder.errorMapper,
		persistenceClient:  builder.persistenceClient,
		repositoryFactory:  builder.repositoryFactory,
		configProvider:     builder.configProvider,
		optionsResolver:    builder.optionsResolver,
		modelRegistry:      builder.modelRegistry,
		applicationStore:   builder.applicationStore,
		grantStore:         builder.grantStore,
		accessTokenStore:   builder.accessTokenStore,
		refreshTokenStore:  builder.refreshTokenStore,
		idTokenStore:       builder.idTokenStore,
		tokenIssueStore:    builder.tokenIssueStore,
		expiredTokenStore:  builder.expiredTokenStore,
		idTokenSigner:      builder.idTokenSigner,
		secretHasher:       builder.secretHasher,
		tokenGenerator:     builder.tokenGenerator,
		claimsContributors: append([]ClaimsContributor(nil), builder.claimsContributors...),
		issuerResolver:     builder.issuerResolver,
		scopes:             finalConfig.scopeDescriptions(),
		now:                builder.clock,
	}
	return svc, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:             s.logger,
		LoggerProvider:     s.loggerProvider,
		MetricsRecorder:    s.metricsRecorder,
		ErrorFactory:       s.errorFactory,
		ErrorMapper:        s.errorMapper,
		PersistenceClient:  s.persistenceClient,
		RepositoryFactory:  s.repositoryFactory,
		ConfigProvider:     s.configProvider,
		OptionsResolver:    s.optionsResolver,
		ModelRegistry:      s.modelRegistry,
		ApplicationStore:   s.applicationStore,
		GrantStore:         s.grantStore,
		AccessTokenStore:   s.accessTokenStore,
		RefreshTokenStore:  s.refreshTokenStore,
		IDTokenStore:       s.idTokenStore,
		TokenIssueStore:    s.tokenIssueStore,
		ExpiredTokenStore:  s.expiredTokenStore,
		IDTokenSigner:      s.idTokenSigner,
		SecretHasher:       s.secretHasher,
		TokenGenerator:     s.tokenGenerator,
		ClaimsContributors: append([]ClaimsContributor(nil), s.claimsContributors...),
	}
}

// ResolveModel returns the active model definition for kind.
func (s *Service) ResolveModel(kind ModelKind) (ModelDefinition, error) {
	if s == nil || s.modelRegistry == nil {
		return ModelDefinition{}, NewConfigurationError("core: model registry is not configured")
	}
	def, err := s.modelRegistry.Resolve(kind)
	if err != nil {
		return ModelDefinition{}, s.mapError(err)
	}
	return def, nil
}

// ScopeDescriptions returns the configured scope catalogue.
func (s *Service) ScopeDescriptions() ScopeDescriptions {
	out := make(ScopeDescriptions, len(s.scopes))
	for name, description := range s.scopes {
		out[name] = description
	}
	return out
}

// DescribeScopes maps each scope of a space-delimited string to its
// description. Unknown scopes are omitted.
func (s *Service) DescribeScopes(scope string) map[string]string {
	return DescribeScopes(ParseScopes(scope), s.scopes)
}

func (s *Service) currentTime() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Service) generateToken() (string, error) {
	value, err := s.tokenGenerator.Generate()
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("core: token generator returned an empty value")
	}
	return value, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
