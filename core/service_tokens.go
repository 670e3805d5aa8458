package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type tokenSetRequest struct {
	app     Application
	userID  *string
	scope   string
	nonce   string
	refresh bool
	family  string
	source  *RefreshToken
	now     time.Time
}

// buildTokenSet mints an access token, an optional refresh token and, for
// openid requests on OIDC enabled deployments, a signed ID token.
func (s *Service) buildTokenSet(ctx context.Context, req tokenSetRequest) (IssueTokensInput, error) {
	value, err := s.generateToken()
	if err != nil {
		return IssueTokensInput{}, err
	}
	now := req.now
	access := AccessToken{
		ID:            uuid.NewString(),
		Token:         value,
		ApplicationID: req.app.ID,
		UserID:        cloneStringPtr(req.userID),
		Scope:         req.scope,
		Expires:       timePtr(now.Add(s.config.AccessTokenTTL())),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.source != nil {
		access.SourceRefreshTokenID = cloneStringPtr(&req.source.ID)
	}
	in := IssueTokensInput{AccessToken: access}

	if req.refresh {
		refreshValue, genErr := s.generateToken()
		if genErr != nil {
			return IssueTokensInput{}, genErr
		}
		family := req.family
		if family == "" {
			family = uuid.NewString()
		}
		in.RefreshToken = &RefreshToken{
			ID:            uuid.NewString(),
			Token:         refreshValue,
			ApplicationID: req.app.ID,
			UserID:        cloneStringPtr(req.userID),
			AccessTokenID: cloneStringPtr(&access.ID),
			TokenFamily:   family,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	if s.shouldIssueIDToken(req.app, req.userID, req.scope) {
		idToken, signErr := s.mintIDToken(ctx, req.app, req.userID, req.scope, req.nonce, now)
		if signErr != nil {
			return IssueTokensInput{}, signErr
		}
		in.IDToken = &idToken
		in.AccessToken.IDTokenID = cloneStringPtr(&idToken.ID)
	}
	return in, nil
}

func (s *Service) shouldIssueIDToken(app Application, userID *string, scope string) bool {
	if !s.config.OIDC.Enabled || userID == nil {
		return false
	}
	if app.Algorithm == AlgorithmNone {
		return false
	}
	return ParseScopes(scope).Has(ScopeOpenID)
}

type IssueTokensRequest struct {
	ClientID string
	UserID   *string
	Scope    string
}

// IssueTokens mints tokens for direct grants: resource owner password and
// client credentials.
func (s *Service) IssueTokens(ctx context.Context, req IssueTokensRequest) (issued IssuedTokens, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": req.ClientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "issue_tokens", err, fields)
	}()

	app, err := s.lookupClient(ctx, req.ClientID)
	if err != nil {
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	fields["grant_type"] = app.AuthorizationGrantType

	userID := req.UserID
	switch app.AuthorizationGrantType {
	case GrantPassword:
		if userID == nil || strings.TrimSpace(*userID) == "" {
			err = s.mapError(NewValidationError("user_id", "user id is required for the password grant"))
			return IssuedTokens{}, err
		}
	case GrantClientCredentials:
		if userID != nil {
			err = s.mapError(NewValidationError("user_id", "client credentials tokens are not bound to a user"))
			return IssuedTokens{}, err
		}
	default:
		err = s.mapError(NewInvalidClientError(
			fmt.Sprintf("core: client %s cannot obtain tokens directly", app.ClientID),
		))
		return IssuedTokens{}, err
	}

	scope, err := s.resolveRequestedScope(req.Scope)
	if err != nil {
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	in, err := s.buildTokenSet(ctx, tokenSetRequest{
		app:     app,
		userID:  userID,
		scope:   scope,
		refresh: app.IssuesRefreshTokens(),
		now:     s.currentTime(),
	})
	if err != nil {
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	issued, err = s.tokenIssueStore.IssueTokens(ctx, in)
	if err != nil {
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	return issued, nil
}

type RefreshTokensRequest struct {
	ClientID     string
	RefreshToken string
	Scope        string
}

// RefreshTokens rotates a refresh token into a new access/refresh pair. The
// presented token is revoked and its access token deleted. Presenting a
// token that was already rotated fails; with reuse protection enabled the
// whole token family is revoked as well.
func (s *Service) RefreshTokens(ctx context.Context, req RefreshTokensRequest) (issued IssuedTokens, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"client_id":  req.ClientID,
		"grant_type": "refresh_token",
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_tokens", err, fields)
	}()

	app, err := s.lookupClient(ctx, req.ClientID)
	if err != nil {
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	value := strings.TrimSpace(req.RefreshToken)
	if value == "" {
		err = s.mapError(NewValidationError("refresh_token", "refresh token is required"))
		return IssuedTokens{}, err
	}

	now := s.currentTime()
	issued, err = s.tokenIssueStore.RotateRefreshToken(ctx, value, now,
		func(refresh RefreshToken, access *AccessToken) (IssueTokensInput, error) {
			if refresh.ApplicationID != app.ID {
				return IssueTokensInput{}, NewInvalidGrantError("core: refresh token was issued to another client")
			}
			if access == nil {
				return IssueTokensInput{}, NewInvalidGrantError("core: refresh token is no longer bound to an access token")
			}
			scope := access.Scope
			if requested := ParseScopes(req.Scope); requested.Len() > 0 {
				if !requested.SubsetOf(access.ScopeSet()) {
					return IssueTokensInput{}, NewInvalidScopeError("core: requested scope exceeds the original grant")
				}
				scope = requested.String()
			}
			return s.buildTokenSet(ctx, tokenSetRequest{
				app:     app,
				userID:  refresh.UserID,
				scope:   scope,
				refresh: true,
				family:  refresh.TokenFamily,
				source:  &refresh,
				now:     now,
			})
		})
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenRotated):
			err = s.handleRefreshReuse(ctx, value, now, fields)
		case errors.Is(err, ErrNotFound):
			err = NewInvalidGrantError("core: refresh token is invalid")
		}
		err = s.mapError(err)
		return IssuedTokens{}, err
	}
	return issued, nil
}

func (s *Service) handleRefreshReuse(ctx context.Context, value string, now time.Time, fields map[string]any) error {
	reused := NewTokenReusedError("core: refresh token was already used")
	if !s.config.RefreshTokenReuseProtection {
		return reused
	}
	refresh, err := s.refreshTokenStore.GetByToken(ctx, value)
	if err != nil {
		return reused
	}
	revoked, err := s.refreshTokenStore.RevokeFamily(ctx, refresh.TokenFamily, now)
	fields["token_family"] = refresh.TokenFamily
	fields["family_revoked"] = revoked
	if err != nil {
		s.logError(ctx, "refresh token family revocation failed", map[string]any{
			"token_family": refresh.TokenFamily,
			"error":        err.Error(),
		})
		return reused
	}
	s.logWarn(ctx, "refresh token reuse detected", map[string]any{
		"token_family": refresh.TokenFamily,
		"revoked":      revoked,
	})
	return reused
}

// ValidateAccessToken reports whether token exists, is unexpired and covers
// the required scopes. Unknown tokens are reported through the status.
func (s *Service) ValidateAccessToken(ctx context.Context, token string, required []string) (TokenValidation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenValidation{Status: TokenStatusNotFound}, nil
	}
	access, err := s.accessTokenStore.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenValidation{Status: TokenStatusNotFound}, nil
		}
		return TokenValidation{}, s.mapError(err)
	}
	result := TokenValidation{Status: TokenStatusValid, Token: access}
	switch {
	case access.IsExpiredAt(s.currentTime()):
		result.Status = TokenStatusExpired
	case !access.AllowScopes(required):
		result.Status = TokenStatusInsufficientScope
	}
	return result, nil
}

// RevokeAccessToken deletes the token and refresh tokens bound to it.
// Unknown tokens are ignored.
func (s *Service) RevokeAccessToken(ctx context.Context, token string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "revoke_access_token", err, fields)
	}()

	access, err := s.accessTokenStore.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			fields["found"] = false
			return nil
		}
		err = s.mapError(err)
		return err
	}
	if deleteErr := s.accessTokenStore.Delete(ctx, access.ID); deleteErr != nil && !errors.Is(deleteErr, ErrNotFound) {
		err = s.mapError(deleteErr)
		return err
	}
	return nil
}

// RevokeRefreshToken stamps the refresh token revoked and deletes its access
// token. Unknown tokens are ignored.
func (s *Service) RevokeRefreshToken(ctx context.Context, token string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "revoke_refresh_token", err, fields)
	}()

	refresh, err := s.refreshTokenStore.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			fields["found"] = false
			return nil
		}
		err = s.mapError(err)
		return err
	}
	if revokeErr := s.refreshTokenStore.Revoke(ctx, refresh.ID, s.currentTime()); revokeErr != nil && !errors.Is(revokeErr, ErrNotFound) {
		err = s.mapError(revokeErr)
		return err
	}
	return nil
}
