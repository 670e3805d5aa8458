package command

import (
	"strings"

	"github.com/goliatone/go-oauth/core"
)

const (
	TypeRegisterApplication = "oauth.command.application.register"
	TypeDeleteApplication   = "oauth.command.application.delete"
	TypeCreateGrant         = "oauth.command.grant.create"
	TypeExchangeGrant       = "oauth.command.grant.exchange"
	TypeIssueTokens         = "oauth.command.tokens.issue"
	TypeRefreshTokens       = "oauth.command.tokens.refresh"
	TypeRevokeAccessToken   = "oauth.command.access_token.revoke"
	TypeRevokeRefreshToken  = "oauth.command.refresh_token.revoke"
	TypeRevokeIDToken       = "oauth.command.id_token.revoke"
	TypeClearExpired        = "oauth.command.tokens.clear_expired"
)

type RegisterApplicationMessage struct {
	Request core.RegisterApplicationRequest
}

func (RegisterApplicationMessage) Type() string { return TypeRegisterApplication }

func (m RegisterApplicationMessage) Validate() error {
	if strings.TrimSpace(string(m.Request.ClientType)) == "" {
		return commandValidationError("client_type", "client type is required")
	}
	if strings.TrimSpace(m.Request.AuthorizationGrantType) == "" {
		return commandValidationError("authorization_grant_type", "authorization grant type is required")
	}
	return nil
}

type DeleteApplicationMessage struct {
	ClientID string
}

func (DeleteApplicationMessage) Type() string { return TypeDeleteApplication }

func (m DeleteApplicationMessage) Validate() error {
	return requireClientID(m.ClientID)
}

type CreateGrantMessage struct {
	Request core.CreateGrantRequest
}

func (CreateGrantMessage) Type() string { return TypeCreateGrant }

func (m CreateGrantMessage) Validate() error {
	if err := requireClientID(m.Request.ClientID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

type ExchangeGrantMessage struct {
	Request core.ExchangeGrantRequest
}

func (ExchangeGrantMessage) Type() string { return TypeExchangeGrant }

func (m ExchangeGrantMessage) Validate() error {
	if err := requireClientID(m.Request.ClientID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	return nil
}

type IssueTokensMessage struct {
	Request core.IssueTokensRequest
}

func (IssueTokensMessage) Type() string { return TypeIssueTokens }

func (m IssueTokensMessage) Validate() error {
	return requireClientID(m.Request.ClientID)
}

type RefreshTokensMessage struct {
	Request core.RefreshTokensRequest
}

func (RefreshTokensMessage) Type() string { return TypeRefreshTokens }

func (m RefreshTokensMessage) Validate() error {
	if err := requireClientID(m.Request.ClientID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.RefreshToken) == "" {
		return commandValidationError("refresh_token", "refresh token is required")
	}
	return nil
}

type RevokeAccessTokenMessage struct {
	Token string
}

func (RevokeAccessTokenMessage) Type() string { return TypeRevokeAccessToken }

func (m RevokeAccessTokenMessage) Validate() error {
	return requireToken(m.Token)
}

type RevokeRefreshTokenMessage struct {
	Token string
}

func (RevokeRefreshTokenMessage) Type() string { return TypeRevokeRefreshToken }

func (m RevokeRefreshTokenMessage) Validate() error {
	return requireToken(m.Token)
}

type RevokeIDTokenMessage struct {
	Token string
}

func (RevokeIDTokenMessage) Type() string { return TypeRevokeIDToken }

func (m RevokeIDTokenMessage) Validate() error {
	return requireToken(m.Token)
}

type ClearExpiredMessage struct{}

func (ClearExpiredMessage) Type() string { return TypeClearExpired }

func (ClearExpiredMessage) Validate() error { return nil }

func requireClientID(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return commandValidationError("client_id", "client id is required")
	}
	return nil
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return commandValidationError("token", "token is required")
	}
	return nil
}
