package oauth

import (
	"fmt"

	oauthcommand "github.com/goliatone/go-oauth/command"
	oauthquery "github.com/goliatone/go-oauth/query"
)

// CommandQueryService is everything the facade delegates to. *Service
// satisfies it.
type CommandQueryService interface {
	oauthcommand.MutatingService
	oauthquery.ApplicationReader
	oauthquery.AccessTokenValidator
	oauthquery.IDTokenReader
}

type Commands struct {
	RegisterApplication *oauthcommand.RegisterApplicationCommand
	DeleteApplication   *oauthcommand.DeleteApplicationCommand
	CreateGrant         *oauthcommand.CreateGrantCommand
	ExchangeGrant       *oauthcommand.ExchangeGrantCommand
	IssueTokens         *oauthcommand.IssueTokensCommand
	RefreshTokens       *oauthcommand.RefreshTokensCommand
	RevokeAccessToken   *oauthcommand.RevokeAccessTokenCommand
	RevokeRefreshToken  *oauthcommand.RevokeRefreshTokenCommand
	RevokeIDToken       *oauthcommand.RevokeIDTokenCommand
	ClearExpired        *oauthcommand.ClearExpiredCommand
}

type Queries struct {
	GetApplication      *oauthquery.GetApplicationQuery
	ValidateAccessToken *oauthquery.ValidateAccessTokenQuery
	IDTokenClaims       *oauthquery.IDTokenClaimsQuery
	DescribeScopes      *oauthquery.DescribeScopesQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	scopeDescriber oauthquery.ScopeDescriber
}

// WithScopeDescriber replaces the scope catalogue used by the DescribeScopes
// query.
func WithScopeDescriber(describer oauthquery.ScopeDescriber) FacadeOption {
	return func(options *facadeOptions) {
		options.scopeDescriber = describer
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("oauth: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	describer := cfg.scopeDescriber
	if describer == nil {
		if fromService, ok := service.(oauthquery.ScopeDescriber); ok {
			describer = fromService
		}
	}
	if describer == nil {
		return nil, fmt.Errorf("oauth: scope describer is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterApplication: oauthcommand.NewRegisterApplicationCommand(service),
		DeleteApplication:   oauthcommand.NewDeleteApplicationCommand(service),
		CreateGrant:         oauthcommand.NewCreateGrantCommand(service),
		ExchangeGrant:       oauthcommand.NewExchangeGrantCommand(service),
		IssueTokens:         oauthcommand.NewIssueTokensCommand(service),
		RefreshTokens:       oauthcommand.NewRefreshTokensCommand(service),
		RevokeAccessToken:   oauthcommand.NewRevokeAccessTokenCommand(service),
		RevokeRefreshToken:  oauthcommand.NewRevokeRefreshTokenCommand(service),
		RevokeIDToken:       oauthcommand.NewRevokeIDTokenCommand(service),
		ClearExpired:        oauthcommand.NewClearExpiredCommand(service),
	}
	facade.queries = Queries{
		GetApplication:      oauthquery.NewGetApplicationQuery(service),
		ValidateAccessToken: oauthquery.NewValidateAccessTokenQuery(service),
		IDTokenClaims:       oauthquery.NewIDTokenClaimsQuery(service),
		DescribeScopes:      oauthquery.NewDescribeScopesQuery(describer),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
