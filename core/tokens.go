package core

import "time"

// AccessToken is a bearer token granting scoped access on behalf of a user or
// of the client itself.
type AccessToken struct {
	ID                   string
	Token                string
	ApplicationID        string
	UserID               *string
	Scope                string
	Expires              *time.Time
	IDTokenID            *string
	SourceRefreshTokenID *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (t AccessToken) String() string {
	return t.Token
}

func (t AccessToken) IsExpired() bool {
	return t.IsExpiredAt(time.Now().UTC())
}

func (t AccessToken) IsExpiredAt(now time.Time) bool {
	return isExpiredAt(t.Expires, now)
}

func (t AccessToken) ScopeSet() ScopeSet {
	return ParseScopes(t.Scope)
}

func (t AccessToken) AllowScopes(required []string) bool {
	return t.ScopeSet().ContainsAll(required)
}

func (t AccessToken) IsValid(required []string) bool {
	return t.IsValidAt(time.Now().UTC(), required)
}

func (t AccessToken) IsValidAt(now time.Time, required []string) bool {
	return !t.IsExpiredAt(now) && t.AllowScopes(required)
}

// Scopes maps each scope on the token to its configured description.
func (t AccessToken) Scopes(describer ScopeDescriber) map[string]string {
	return DescribeScopes(t.ScopeSet(), describer)
}

// RefreshToken is exchanged for a new access/refresh pair. Revoked marks a
// token that was rotated or explicitly revoked.
type RefreshToken struct {
	ID            string
	Token         string
	ApplicationID string
	UserID        *string
	AccessTokenID *string
	TokenFamily   string
	Revoked       *time.Time
	// Rotated marks a token revoked because a successor replaced it.
	Rotated   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t RefreshToken) String() string {
	return t.Token
}

func (t RefreshToken) IsRevoked() bool {
	return t.Revoked != nil
}

// IDToken is an OpenID Connect identity assertion. Token holds the signed
// JWT, which is also the token's string form.
type IDToken struct {
	ID            string
	JTI           string
	Token         string
	ApplicationID string
	UserID        *string
	Scope         string
	Nonce         string
	Expires       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t IDToken) String() string {
	return t.Token
}

func (t IDToken) IsExpired() bool {
	return t.IsExpiredAt(time.Now().UTC())
}

func (t IDToken) IsExpiredAt(now time.Time) bool {
	return isExpiredAt(t.Expires, now)
}

func (t IDToken) ScopeSet() ScopeSet {
	return ParseScopes(t.Scope)
}

func (t IDToken) AllowScopes(required []string) bool {
	return t.ScopeSet().ContainsAll(required)
}

func (t IDToken) IsValid(required []string) bool {
	return !t.IsExpired() && t.AllowScopes(required)
}

func (t IDToken) Scopes(describer ScopeDescriber) map[string]string {
	return DescribeScopes(t.ScopeSet(), describer)
}

type TokenStatus string

const (
	TokenStatusValid             TokenStatus = "valid"
	TokenStatusNotFound          TokenStatus = "not_found"
	TokenStatusExpired           TokenStatus = "expired"
	TokenStatusInsufficientScope TokenStatus = "insufficient_scope"
)

// TokenValidation is the outcome of checking a presented access token.
type TokenValidation struct {
	Status TokenStatus
	Token  AccessToken
}

func (v TokenValidation) Valid() bool {
	return v.Status == TokenStatusValid
}
