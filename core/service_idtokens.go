package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

func (s *Service) mintIDToken(
	ctx context.Context,
	app Application,
	userID *string,
	scope string,
	nonce string,
	now time.Time,
) (IDToken, error) {
	if s.idTokenSigner == nil {
		return IDToken{}, NewConfigurationError("core: oidc is enabled but no id token signer is configured")
	}
	token := IDToken{
		ID:            uuid.NewString(),
		JTI:           uuid.NewString(),
		ApplicationID: app.ID,
		UserID:        cloneStringPtr(userID),
		Scope:         scope,
		Nonce:         nonce,
		Expires:       timePtr(now.Add(s.config.IDTokenTTL())),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	claims, err := s.claimsFor(ctx, token, app)
	if err != nil {
		return IDToken{}, err
	}
	signed, err := s.idTokenSigner.SignIDToken(ctx, app, claims)
	if err != nil {
		return IDToken{}, err
	}
	token.Token = signed
	return token, nil
}

func (s *Service) claimsFor(ctx context.Context, token IDToken, app Application) (Claims, error) {
	claims := BuildIDTokenClaims(token, app.ClientID, s.issuer(ctx))
	claims["azp"] = app.ClientID
	return mergeContributedClaims(ctx, claims, s.claimsContributors, token, app)
}

// issuer is read on every call so deployments can vary it per request.
func (s *Service) issuer(ctx context.Context) string {
	if s.issuerResolver != nil {
		if issuer := strings.TrimSpace(s.issuerResolver(ctx)); issuer != "" {
			return issuer
		}
	}
	return s.config.OIDC.Issuer
}

// GetIDToken looks up an ID token by its serialized JWT.
func (s *Service) GetIDToken(ctx context.Context, token string) (IDToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return IDToken{}, s.mapError(NewValidationError("token", "id token is required"))
	}
	found, err := s.idTokenStore.GetByToken(ctx, token)
	if err != nil {
		return IDToken{}, s.mapError(err)
	}
	return found, nil
}

// IDTokenClaims recomputes the claim set of token from the current
// configuration and registered contributors.
func (s *Service) IDTokenClaims(ctx context.Context, token IDToken) (claims Claims, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "id_token_claims", err, fields)
	}()

	app, err := s.applicationStore.Get(ctx, token.ApplicationID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	fields["client_id"] = app.ClientID
	claims, err = s.claimsFor(ctx, token, app)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return claims, nil
}

// RevokeIDToken deletes the persisted ID token. Unknown tokens are ignored.
func (s *Service) RevokeIDToken(ctx context.Context, token string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "revoke_id_token", err, fields)
	}()

	found, err := s.idTokenStore.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			fields["found"] = false
			return nil
		}
		err = s.mapError(err)
		return err
	}
	if deleteErr := s.idTokenStore.Delete(ctx, found.ID); deleteErr != nil && !errors.Is(deleteErr, ErrNotFound) {
		err = s.mapError(deleteErr)
		return err
	}
	return nil
}
