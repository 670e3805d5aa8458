package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// IssuerResolver returns the OIDC issuer for the current request.
type IssuerResolver func(ctx context.Context) string

type serviceBuilder struct {
	runtimeConfig      Config
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
	models             []ModelDefinition
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
	clock              func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

// WithRepositoryFactory accepts a RepositoryStoreFactory or a StoreProvider.
func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

// WithModelRegistry replaces the registry built from Config.Models.
func WithModelRegistry(registry *ModelRegistry) Option {
	return func(b *serviceBuilder) {
		b.modelRegistry = registry
	}
}

// WithModels registers additional model definitions on the service registry.
func WithModels(defs ...ModelDefinition) Option {
	return func(b *serviceBuilder) {
		b.models = append(b.models, defs...)
	}
}

// WithStoreProvider wires every store from provider.
func WithStoreProvider(provider StoreProvider) Option {
	return func(b *serviceBuilder) {
		if provider == nil {
			return
		}
		b.applicationStore = provider.ApplicationStore()
		b.grantStore = provider.GrantStore()
		b.accessTokenStore = provider.AccessTokenStore()
		b.refreshTokenStore = provider.RefreshTokenStore()
		b.idTokenStore = provider.IDTokenStore()
		b.tokenIssueStore = provider.TokenIssueStore()
		b.expiredTokenStore = provider.ExpiredTokenStore()
	}
}

func WithApplicationStore(store ApplicationStore) Option {
	return func(b *serviceBuilder) {
		b.applicationStore = store
	}
}

func WithIDTokenSigner(signer IDTokenSigner) Option {
	return func(b *serviceBuilder) {
		b.idTokenSigner = signer
	}
}

func WithSecretHasher(hasher SecretHasher) Option {
	return func(b *serviceBuilder) {
		b.secretHasher = hasher
	}
}

func WithTokenGenerator(generator TokenGenerator) Option {
	return func(b *serviceBuilder) {
		b.tokenGenerator = generator
	}
}

func WithClaimsContributors(contributors ...ClaimsContributor) Option {
	return func(b *serviceBuilder) {
		b.claimsContributors = append(b.claimsContributors, contributors...)
	}
}

func WithIssuerResolver(resolver IssuerResolver) Option {
	return func(b *serviceBuilder) {
		b.issuerResolver = resolver
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("oauth", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		tokenGenerator:  RandomTokenGenerator{},
		clock:           func() time.Time { return time.Now().UTC() },
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return oauthErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader serves a fixed raw configuration map.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// configToLayerMap flattens cfg into an options layer. Outside the defaults
// layer only non-zero values are emitted so they do not mask lower layers.
func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	oidc := map[string]any{}
	if includeZero || cfg.OIDC.Enabled {
		oidc["enabled"] = cfg.OIDC.Enabled
	}
	if includeZero || strings.TrimSpace(cfg.OIDC.Issuer) != "" {
		oidc["issuer"] = cfg.OIDC.Issuer
	}
	if includeZero || cfg.OIDC.IDTokenExpireSeconds != 0 {
		oidc["id_token_expire_seconds"] = cfg.OIDC.IDTokenExpireSeconds
	}
	if len(oidc) > 0 {
		layer["oidc"] = oidc
	}

	if includeZero || len(cfg.Scopes) > 0 {
		scopes := make(map[string]any, len(cfg.Scopes))
		for name, description := range cfg.Scopes {
			scopes[name] = description
		}
		layer["scopes"] = scopes
	}
	if includeZero || len(cfg.DefaultScopes) > 0 {
		defaults := append([]string(nil), cfg.DefaultScopes...)
		sort.Strings(defaults)
		layer["default_scopes"] = defaults
	}
	if includeZero || cfg.AccessTokenExpireSeconds != 0 {
		layer["access_token_expire_seconds"] = cfg.AccessTokenExpireSeconds
	}
	if includeZero || cfg.AuthorizationCodeExpireSeconds != 0 {
		layer["authorization_code_expire_seconds"] = cfg.AuthorizationCodeExpireSeconds
	}
	if cfg.RefreshTokenExpireSeconds != nil {
		layer["refresh_token_expire_seconds"] = cfg.RefreshTokenExpireSeconds
	}
	if includeZero || cfg.RefreshTokenReuseProtection {
		layer["refresh_token_reuse_protection"] = cfg.RefreshTokenReuseProtection
	}
	if includeZero || len(cfg.AllowedRedirectURISchemes) > 0 {
		layer["allowed_redirect_uri_schemes"] = append([]string(nil), cfg.AllowedRedirectURISchemes...)
	}
	if includeZero || cfg.PKCERequired {
		layer["pkce_required"] = cfg.PKCERequired
	}

	clearExpired := map[string]any{}
	if includeZero || cfg.ClearExpired.BatchSize != 0 {
		clearExpired["batch_size"] = cfg.ClearExpired.BatchSize
	}
	if includeZero || cfg.ClearExpired.BatchIntervalMS != 0 {
		clearExpired["batch_interval_ms"] = cfg.ClearExpired.BatchIntervalMS
	}
	if len(clearExpired) > 0 {
		layer["clear_expired"] = clearExpired
	}

	models := map[string]any{}
	for _, kind := range []ModelKind{ModelApplication, ModelAccessToken, ModelRefreshToken, ModelGrant} {
		if override := cfg.Models.Override(kind); includeZero || override != "" {
			models[string(kind)] = override
		}
	}
	if len(models) > 0 {
		layer["models"] = models
	}
	return layer
}
