package query

import (
	"context"

	"github.com/goliatone/go-oauth/core"
)

type ApplicationReader interface {
	GetApplication(ctx context.Context, clientID string) (core.Application, error)
}

type AccessTokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string, required []string) (core.TokenValidation, error)
}

type IDTokenReader interface {
	GetIDToken(ctx context.Context, token string) (core.IDToken, error)
	IDTokenClaims(ctx context.Context, token core.IDToken) (core.Claims, error)
}

type ScopeDescriber interface {
	DescribeScopes(scope string) map[string]string
}

type GetApplicationQuery struct {
	reader ApplicationReader
}

func NewGetApplicationQuery(reader ApplicationReader) *GetApplicationQuery {
	return &GetApplicationQuery{reader: reader}
}

func (q *GetApplicationQuery) Query(ctx context.Context, msg GetApplicationMessage) (core.Application, error) {
	if q == nil || q.reader == nil {
		return core.Application{}, queryDependencyError("query: application reader is required")
	}
	return q.reader.GetApplication(ctx, msg.ClientID)
}

type ValidateAccessTokenQuery struct {
	validator AccessTokenValidator
}

func NewValidateAccessTokenQuery(validator AccessTokenValidator) *ValidateAccessTokenQuery {
	return &ValidateAccessTokenQuery{validator: validator}
}

func (q *ValidateAccessTokenQuery) Query(
	ctx context.Context,
	msg ValidateAccessTokenMessage,
) (core.TokenValidation, error) {
	if q == nil || q.validator == nil {
		return core.TokenValidation{}, queryDependencyError("query: access token validator is required")
	}
	return q.validator.ValidateAccessToken(ctx, msg.Token, msg.RequiredScopes)
}

// IDTokenClaimsQuery resolves a stored ID token and recomputes its claims.
type IDTokenClaimsQuery struct {
	reader IDTokenReader
}

func NewIDTokenClaimsQuery(reader IDTokenReader) *IDTokenClaimsQuery {
	return &IDTokenClaimsQuery{reader: reader}
}

func (q *IDTokenClaimsQuery) Query(ctx context.Context, msg IDTokenClaimsMessage) (core.Claims, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: id token reader is required")
	}
	token, err := q.reader.GetIDToken(ctx, msg.Token)
	if err != nil {
		return nil, err
	}
	return q.reader.IDTokenClaims(ctx, token)
}

type DescribeScopesQuery struct {
	describer ScopeDescriber
}

func NewDescribeScopesQuery(describer ScopeDescriber) *DescribeScopesQuery {
	return &DescribeScopesQuery{describer: describer}
}

func (q *DescribeScopesQuery) Query(_ context.Context, msg DescribeScopesMessage) (map[string]string, error) {
	if q == nil || q.describer == nil {
		return nil, queryDependencyError("query: scope describer is required")
	}
	return q.describer.DescribeScopes(msg.Scope), nil
}
