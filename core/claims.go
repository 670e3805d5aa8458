package core

import (
	"context"
	"fmt"
)

// Claims is the JSON claim set of an ID token.
type Claims map[string]any

var registeredClaims = map[string]struct{}{
	"iss":   {},
	"sub":   {},
	"aud":   {},
	"exp":   {},
	"iat":   {},
	"jti":   {},
	"nonce": {},
	"azp":   {},
}

// ClaimsContributor adds claims to ID tokens. Contributed values never
// replace the registered claims computed by the service.
type ClaimsContributor interface {
	ContributeClaims(ctx context.Context, token IDToken, app Application) (map[string]any, error)
}

type ClaimsContributorFunc func(ctx context.Context, token IDToken, app Application) (map[string]any, error)

func (f ClaimsContributorFunc) ContributeClaims(ctx context.Context, token IDToken, app Application) (map[string]any, error) {
	return f(ctx, token, app)
}

// IDTokenSigner turns a claim set into a compact JWT for app.
type IDTokenSigner interface {
	SignIDToken(ctx context.Context, app Application, claims Claims) (string, error)
}

// BuildIDTokenClaims computes the registered claims of token for clientID.
func BuildIDTokenClaims(token IDToken, clientID string, issuer string) Claims {
	claims := Claims{
		"aud": clientID,
		"iss": issuer,
	}
	if token.UserID != nil {
		claims["sub"] = *token.UserID
	}
	if token.JTI != "" {
		claims["jti"] = token.JTI
	}
	if !token.CreatedAt.IsZero() {
		claims["iat"] = token.CreatedAt.Unix()
	}
	if token.Expires != nil {
		claims["exp"] = token.Expires.Unix()
	}
	if token.Nonce != "" {
		claims["nonce"] = token.Nonce
	}
	return claims
}

func mergeContributedClaims(
	ctx context.Context,
	claims Claims,
	contributors []ClaimsContributor,
	token IDToken,
	app Application,
) (Claims, error) {
	for _, contributor := range contributors {
		if contributor == nil {
			continue
		}
		extra, err := contributor.ContributeClaims(ctx, token, app)
		if err != nil {
			return nil, fmt.Errorf("core: contribute id token claims: %w", err)
		}
		for key, value := range extra {
			if _, reserved := registeredClaims[key]; reserved {
				continue
			}
			claims[key] = value
		}
	}
	return claims, nil
}
