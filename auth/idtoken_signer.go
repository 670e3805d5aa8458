package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-oauth/core"
)

type JWTIDTokenSignerConfig struct {
	// SigningKey is a PEM encoded RSA key used for RS256 clients.
	SigningKey string
	KeyID      string
	Now        func() time.Time
}

// JWTIDTokenSigner signs ID tokens with the algorithm configured on each
// client: RS256 with the server key, HS256 with the client secret.
type JWTIDTokenSigner struct {
	key   *rsa.PrivateKey
	keyID string
	now   func() time.Time
}

func NewJWTIDTokenSigner(cfg JWTIDTokenSignerConfig) (*JWTIDTokenSigner, error) {
	signer := &JWTIDTokenSigner{
		keyID: strings.TrimSpace(cfg.KeyID),
		now:   cfg.Now,
	}
	if signer.now == nil {
		signer.now = time.Now
	}
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return signer, nil
	}
	key, err := ParseRSAPrivateKeyPEM(cfg.SigningKey)
	if err != nil {
		return nil, core.NewConfigurationError(err.Error())
	}
	signer.key = key
	if signer.keyID == "" {
		if signer.keyID, err = DeriveKeyID(key); err != nil {
			return nil, err
		}
	}
	return signer, nil
}

// NewRSAIDTokenSigner wraps an already parsed key.
func NewRSAIDTokenSigner(key *rsa.PrivateKey, keyID string) (*JWTIDTokenSigner, error) {
	if key == nil {
		return nil, core.NewConfigurationError("auth: rsa signing key is required")
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		derived, err := DeriveKeyID(key)
		if err != nil {
			return nil, err
		}
		keyID = derived
	}
	return &JWTIDTokenSigner{key: key, keyID: keyID, now: time.Now}, nil
}

func (s *JWTIDTokenSigner) KeyID() string {
	return s.keyID
}

func (s *JWTIDTokenSigner) SignIDToken(_ context.Context, app core.Application, claims core.Claims) (string, error) {
	switch app.Algorithm {
	case core.AlgorithmRS256:
		if s.key == nil {
			return "", core.NewConfigurationError("auth: RS256 signing requires an rsa key")
		}
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
		token.Header["kid"] = s.keyID
		signed, err := token.SignedString(s.key)
		if err != nil {
			return "", fmt.Errorf("auth: sign id token: %w", err)
		}
		return signed, nil
	case core.AlgorithmHS256:
		secret, err := hmacSecret(app)
		if err != nil {
			return "", err
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
		signed, err := token.SignedString(secret)
		if err != nil {
			return "", fmt.Errorf("auth: sign id token: %w", err)
		}
		return signed, nil
	default:
		return "", core.NewConfigurationError(
			fmt.Sprintf("auth: client %s has no id token signing algorithm", app.ClientID),
		)
	}
}

// VerifyIDToken checks the signature, expiry and audience of a token issued
// to app and returns its claims.
func (s *JWTIDTokenSigner) VerifyIDToken(raw string, app core.Application) (core.Claims, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(raw), func(token *jwt.Token) (any, error) {
		switch app.Algorithm {
		case core.AlgorithmRS256:
			if s.key == nil {
				return nil, fmt.Errorf("auth: no rsa key configured")
			}
			return &s.key.PublicKey, nil
		case core.AlgorithmHS256:
			return hmacSecret(app)
		}
		return nil, fmt.Errorf("auth: unsupported algorithm %q", app.Algorithm)
	},
		jwt.WithValidMethods([]string{app.Algorithm}),
		jwt.WithAudience(app.ClientID),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: verify id token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("auth: invalid id token")
	}
	return core.Claims(claims), nil
}

// JWKS publishes the public half of the RS256 key. HS256 secrets are never
// published.
func (s *JWTIDTokenSigner) JWKS() jose.JSONWebKeySet {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	if s.key == nil {
		return set
	}
	set.Keys = append(set.Keys, jose.JSONWebKey{
		Key:       &s.key.PublicKey,
		KeyID:     s.keyID,
		Algorithm: core.AlgorithmRS256,
		Use:       "sig",
	})
	return set
}

func (s *JWTIDTokenSigner) MarshalJWKS() ([]byte, error) {
	raw, err := json.Marshal(s.JWKS())
	if err != nil {
		return nil, fmt.Errorf("auth: marshal jwks: %w", err)
	}
	return raw, nil
}

func hmacSecret(app core.Application) ([]byte, error) {
	if app.HashClientSecret {
		return nil, core.NewConfigurationError("auth: HS256 cannot use a hashed client secret")
	}
	if strings.TrimSpace(app.ClientSecret) == "" {
		return nil, core.NewConfigurationError("auth: HS256 requires a client secret")
	}
	return []byte(app.ClientSecret), nil
}
