package core

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"time"
)

const (
	PKCEMethodPlain = "plain"
	PKCEMethodS256  = "S256"
)

// Grant is a short lived authorization code issued to a client on behalf of
// a user.
type Grant struct {
	ID            string
	Code          string
	ApplicationID string
	UserID        string
	Expires       *time.Time
	RedirectURI   string
	// RedirectURIExplicit is false when the authorization request left the
	// redirect URI out and the single registered one was used.
	RedirectURIExplicit bool
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	Claims              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (g Grant) String() string {
	return g.Code
}

func (g Grant) IsExpired() bool {
	return g.IsExpiredAt(time.Now().UTC())
}

func (g Grant) IsExpiredAt(now time.Time) bool {
	return isExpiredAt(g.Expires, now)
}

// RedirectURIAllowed requires the exchange redirect URI to equal the one the
// code was issued for. It may be left out only when the authorization request
// left it out too.
func (g Grant) RedirectURIAllowed(uri string) bool {
	if uri == "" {
		return !g.RedirectURIExplicit
	}
	return uri == g.RedirectURI
}

func (g Grant) ScopeSet() ScopeSet {
	return ParseScopes(g.Scope)
}

// VerifyCodeVerifier checks a PKCE verifier against the stored challenge.
// A grant without a challenge rejects any verifier.
func (g Grant) VerifyCodeVerifier(verifier string) bool {
	if g.CodeChallenge == "" {
		return verifier == ""
	}
	if !validCodeVerifier(verifier) {
		return false
	}
	var computed string
	switch g.CodeChallengeMethod {
	case PKCEMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case PKCEMethodPlain, "":
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(g.CodeChallenge)) == 1
}

func validCodeVerifier(verifier string) bool {
	if len(verifier) < 43 || len(verifier) > 128 {
		return false
	}
	for idx := 0; idx < len(verifier); idx++ {
		c := verifier[idx]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return true
}

func S256CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
