package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type CreateGrantRequest struct {
	ClientID            string
	UserID              string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	Claims              string
}

// CreateGrant issues an authorization code for an approved request.
func (s *Service) CreateGrant(ctx context.Context, req CreateGrantRequest) (grant Grant, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"client_id":  req.ClientID,
		"grant_type": GrantAuthorizationCode,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_grant", err, fields)
	}()

	app, err := s.lookupClient(ctx, req.ClientID)
	if err != nil {
		err = s.mapError(err)
		return Grant{}, err
	}
	switch app.AuthorizationGrantType {
	case GrantAuthorizationCode, GrantOpenIDHybrid:
	default:
		err = s.mapError(NewInvalidClientError(
			fmt.Sprintf("core: client %s is not allowed to request authorization codes", app.ClientID),
		))
		return Grant{}, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		err = s.mapError(NewValidationError("user_id", "user id is required"))
		return Grant{}, err
	}

	redirectURI, err := resolveRedirectURI(app, req.RedirectURI)
	if err != nil {
		err = s.mapError(err)
		return Grant{}, err
	}
	scope, err := s.resolveRequestedScope(req.Scope)
	if err != nil {
		err = s.mapError(err)
		return Grant{}, err
	}

	challenge := strings.TrimSpace(req.CodeChallenge)
	method := strings.TrimSpace(req.CodeChallengeMethod)
	if challenge == "" {
		if s.config.PKCERequired {
			err = s.mapError(NewValidationError("code_challenge", "code challenge is required"))
			return Grant{}, err
		}
		method = ""
	} else {
		if method == "" {
			method = PKCEMethodPlain
		}
		if method != PKCEMethodPlain && method != PKCEMethodS256 {
			err = s.mapError(NewValidationError(
				"code_challenge_method",
				fmt.Sprintf("unsupported code challenge method %q", method),
			))
			return Grant{}, err
		}
	}

	code, err := s.generateToken()
	if err != nil {
		err = s.mapError(err)
		return Grant{}, err
	}
	now := s.currentTime()
	grant, err = s.grantStore.Create(ctx, Grant{
		Code:                code,
		ApplicationID:       app.ID,
		UserID:              userID,
		Expires:             timePtr(now.Add(s.config.AuthorizationCodeTTL())),
		RedirectURI:         redirectURI,
		RedirectURIExplicit: strings.TrimSpace(req.RedirectURI) != "",
		Scope:               scope,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		Nonce:               req.Nonce,
		Claims:              req.Claims,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		err = s.mapError(err)
		return Grant{}, err
	}
	return grant, nil
}

type ExchangeGrantRequest struct {
	ClientID     string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// ExchangeGrant redeems an authorization code. A code can be redeemed once.
func (s *Service) ExchangeGrant(ctx context.Context, req ExchangeGrantRequest) (issued IssuedTokens, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"client_id":  req.ClientID,
		"grant_type": GrantAuthorizationCode,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "exchange_grant", err, fields)
	}()

	app, err := s.lookupClient(ctx, req.ClientID)
	if err != nil {
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		err = s.mapError(NewValidationError("code", "authorization code is required"))
		return IssuedTokens{}, err
	}

	now := s.currentTime()
	issued, err = s.tokenIssueStore.ExchangeGrant(ctx, code, func(grant Grant) (IssueTokensInput, error) {
		if grant.ApplicationID != app.ID {
			return IssueTokensInput{}, NewInvalidGrantError("core: authorization code was issued to another client")
		}
		if grant.IsExpiredAt(now) {
			return IssueTokensInput{}, NewInvalidGrantError("core: authorization code has expired")
		}
		if !grant.RedirectURIAllowed(strings.TrimSpace(req.RedirectURI)) {
			return IssueTokensInput{}, NewInvalidGrantError("core: redirect uri does not match the authorization request")
		}
		if !grant.VerifyCodeVerifier(req.CodeVerifier) {
			return IssueTokensInput{}, NewInvalidGrantError("core: code verifier does not match the code challenge")
		}
		userID := grant.UserID
		return s.buildTokenSet(ctx, tokenSetRequest{
			app:     app,
			userID:  &userID,
			scope:   grant.Scope,
			nonce:   grant.Nonce,
			refresh: app.IssuesRefreshTokens(),
			now:     now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = NewInvalidGrantError("core: authorization code is invalid or was already used")
		}
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	return issued, nil
}

func resolveRedirectURI(app Application, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		uris := app.RedirectURIList()
		if len(uris) == 1 {
			return uris[0], nil
		}
		return "", NewValidationError("redirect_uri", "redirect uri is required when several are registered")
	}
	if !app.RedirectURIAllowed(requested) {
		return "", NewValidationError("redirect_uri", "redirect uri is not registered for this client")
	}
	return requested, nil
}

// resolveRequestedScope applies default scopes and rejects unknown ones.
func (s *Service) resolveRequestedScope(scope string) (string, error) {
	requested := ParseScopes(scope)
	if requested.Len() == 0 {
		requested = NewScopeSet(s.config.DefaultScopes...)
	}
	if unknown := s.scopes.Unknown(requested); len(unknown) > 0 {
		return "", NewInvalidScopeError(fmt.Sprintf("core: unknown scopes: %s", strings.Join(unknown, " ")))
	}
	return requested.String(), nil
}
