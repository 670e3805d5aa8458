package oauth

import "github.com/goliatone/go-oauth/core"

type Config = core.Config

type OIDCConfig = core.OIDCConfig

type ClearExpiredConfig = core.ClearExpiredConfig

type ModelsConfig = core.ModelsConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type ApplicationStore = core.ApplicationStore
type GrantStore = core.GrantStore
type AccessTokenStore = core.AccessTokenStore
type RefreshTokenStore = core.RefreshTokenStore
type IDTokenStore = core.IDTokenStore
type StoreProvider = core.StoreProvider
type SecretHasher = core.SecretHasher
type IDTokenSigner = core.IDTokenSigner
type ClaimsContributor = core.ClaimsContributor
type ClaimsContributorFunc = core.ClaimsContributorFunc
type TokenGenerator = core.TokenGenerator
type ModelRegistry = core.ModelRegistry
type ModelDefinition = core.ModelDefinition

type Application = core.Application
type Grant = core.Grant
type AccessToken = core.AccessToken
type RefreshToken = core.RefreshToken
type IDToken = core.IDToken
type Claims = core.Claims

type RegisterApplicationRequest = core.RegisterApplicationRequest
type RegisteredApplication = core.RegisteredApplication

type CreateGrantRequest = core.CreateGrantRequest
type ExchangeGrantRequest = core.ExchangeGrantRequest

type IssueTokensRequest = core.IssueTokensRequest
type RefreshTokensRequest = core.RefreshTokensRequest
type IssuedTokens = core.IssuedTokens

type TokenValidation = core.TokenValidation

type ClearExpiredResult = core.ClearExpiredResult

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithModelRegistry      = core.WithModelRegistry
	WithModels             = core.WithModels
	WithStoreProvider      = core.WithStoreProvider
	WithApplicationStore   = core.WithApplicationStore
	WithIDTokenSigner      = core.WithIDTokenSigner
	WithSecretHasher       = core.WithSecretHasher
	WithTokenGenerator     = core.WithTokenGenerator
	WithClaimsContributors = core.WithClaimsContributors
	WithIssuerResolver     = core.WithIssuerResolver
	WithClock              = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
