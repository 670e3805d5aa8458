package query

import "strings"

const (
	TypeGetApplication      = "oauth.query.application.get"
	TypeValidateAccessToken = "oauth.query.access_token.validate"
	TypeIDTokenClaims       = "oauth.query.id_token.claims"
	TypeDescribeScopes      = "oauth.query.scopes.describe"
)

type GetApplicationMessage struct {
	ClientID string
}

func (GetApplicationMessage) Type() string { return TypeGetApplication }

func (m GetApplicationMessage) Validate() error {
	if strings.TrimSpace(m.ClientID) == "" {
		return queryValidationError("client_id", "client id is required")
	}
	return nil
}

type ValidateAccessTokenMessage struct {
	Token          string
	RequiredScopes []string
}

func (ValidateAccessTokenMessage) Type() string { return TypeValidateAccessToken }

func (m ValidateAccessTokenMessage) Validate() error {
	if strings.TrimSpace(m.Token) == "" {
		return queryValidationError("token", "access token is required")
	}
	return nil
}

// IDTokenClaimsMessage identifies an ID token by its serialized JWT.
type IDTokenClaimsMessage struct {
	Token string
}

func (IDTokenClaimsMessage) Type() string { return TypeIDTokenClaims }

func (m IDTokenClaimsMessage) Validate() error {
	if strings.TrimSpace(m.Token) == "" {
		return queryValidationError("token", "id token is required")
	}
	return nil
}

type DescribeScopesMessage struct {
	Scope string
}

func (DescribeScopesMessage) Type() string { return TypeDescribeScopes }

func (DescribeScopesMessage) Validate() error { return nil }
