package sqlstore

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-oauth/core"
	"github.com/uptrace/bun"
)

const (
	applicationAlias  = "oa"
	grantAlias        = "og"
	accessTokenAlias  = "oat"
	refreshTokenAlias = "ort"
	idTokenAlias      = "oit"
)

type applicationRecord struct {
	bun.BaseModel `bun:"table:oauth_applications,alias:oa"`

	ID                     string    `bun:"id,pk"`
	ClientID               string    `bun:"client_id,notnull"`
	ClientSecret           string    `bun:"client_secret,notnull"`
	HashClientSecret       bool      `bun:"hash_client_secret,notnull"`
	ClientType             string    `bun:"client_type,notnull"`
	AuthorizationGrantType string    `bun:"authorization_grant_type,notnull"`
	RedirectURIs           string    `bun:"redirect_uris,notnull"`
	UserID                 *string   `bun:"user_id"`
	Name                   string    `bun:"name,notnull"`
	Algorithm              string    `bun:"algorithm,notnull"`
	SkipAuthorization      bool      `bun:"skip_authorization,notnull"`
	CreatedAt              time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt              time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type grantRecord struct {
	bun.BaseModel `bun:"table:oauth_grants,alias:og"`

	ID                  string     `bun:"id,pk"`
	Code                string     `bun:"code,notnull"`
	ApplicationID       string     `bun:"application_id,notnull"`
	UserID              string     `bun:"user_id,notnull"`
	Expires             *time.Time `bun:"expires"`
	RedirectURI         string     `bun:"redirect_uri,notnull"`
	RedirectURIExplicit bool       `bun:"redirect_uri_explicit,notnull"`
	Scope               string     `bun:"scope,notnull"`
	CodeChallenge       string     `bun:"code_challenge,notnull"`
	CodeChallengeMethod string     `bun:"code_challenge_method,notnull"`
	Nonce               string     `bun:"nonce,notnull"`
	Claims              string     `bun:"claims,notnull"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type accessTokenRecord struct {
	bun.BaseModel `bun:"table:oauth_access_tokens,alias:oat"`

	ID                   string     `bun:"id,pk"`
	Token                string     `bun:"token,notnull"`
	ApplicationID        string     `bun:"application_id,notnull"`
	UserID               *string    `bun:"user_id"`
	Scope                string     `bun:"scope,notnull"`
	Expires              *time.Time `bun:"expires"`
	IDTokenID            *string    `bun:"id_token_id"`
	SourceRefreshTokenID *string    `bun:"source_refresh_token_id"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type refreshTokenRecord struct {
	bun.BaseModel `bun:"table:oauth_refresh_tokens,alias:ort"`

	ID            string     `bun:"id,pk"`
	Token         string     `bun:"token,notnull"`
	ApplicationID string     `bun:"application_id,notnull"`
	UserID        *string    `bun:"user_id"`
	AccessTokenID *string    `bun:"access_token_id"`
	TokenFamily   string     `bun:"token_family,notnull"`
	Revoked       *time.Time `bun:"revoked"`
	Rotated       bool       `bun:"rotated,notnull"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// idTokenRecord is looked up by a digest of the JWT, which can outgrow
// index key limits.
type idTokenRecord struct {
	bun.BaseModel `bun:"table:oauth_id_tokens,alias:oit"`

	ID            string     `bun:"id,pk"`
	JTI           string     `bun:"jti,notnull"`
	Token         string     `bun:"token,notnull"`
	TokenChecksum string     `bun:"token_checksum,notnull"`
	ApplicationID string     `bun:"application_id,notnull"`
	UserID        *string    `bun:"user_id"`
	Scope         string     `bun:"scope,notnull"`
	Nonce         string     `bun:"nonce,notnull"`
	Expires       *time.Time `bun:"expires"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newApplicationRecord(app core.Application) *applicationRecord {
	return &applicationRecord{
		ID:                     app.ID,
		ClientID:               app.ClientID,
		ClientSecret:           app.ClientSecret,
		HashClientSecret:       app.HashClientSecret,
		ClientType:             string(app.ClientType),
		AuthorizationGrantType: app.AuthorizationGrantType,
		RedirectURIs:           app.RedirectURIs,
		UserID:                 copyString(app.UserID),
		Name:                   app.Name,
		Algorithm:              app.Algorithm,
		SkipAuthorization:      app.SkipAuthorization,
		CreatedAt:              dbTime(app.CreatedAt),
		UpdatedAt:              dbTime(app.UpdatedAt),
	}
}

func (r *applicationRecord) toDomain() core.Application {
	if r == nil {
		return core.Application{}
	}
	return core.Application{
		ID:                     r.ID,
		ClientID:               r.ClientID,
		ClientSecret:           r.ClientSecret,
		HashClientSecret:       r.HashClientSecret,
		ClientType:             core.ClientType(r.ClientType),
		AuthorizationGrantType: r.AuthorizationGrantType,
		RedirectURIs:           r.RedirectURIs,
		UserID:                 copyString(r.UserID),
		Name:                   r.Name,
		Algorithm:              r.Algorithm,
		SkipAuthorization:      r.SkipAuthorization,
		CreatedAt:              r.CreatedAt.UTC(),
		UpdatedAt:              r.UpdatedAt.UTC(),
	}
}

func newGrantRecord(grant core.Grant) *grantRecord {
	return &grantRecord{
		ID:                  grant.ID,
		Code:                grant.Code,
		ApplicationID:       grant.ApplicationID,
		UserID:              grant.UserID,
		Expires:             dbTimePtr(grant.Expires),
		RedirectURI:         grant.RedirectURI,
		RedirectURIExplicit: grant.RedirectURIExplicit,
		Scope:               grant.Scope,
		CodeChallenge:       grant.CodeChallenge,
		CodeChallengeMethod: grant.CodeChallengeMethod,
		Nonce:               grant.Nonce,
		Claims:              grant.Claims,
		CreatedAt:           dbTime(grant.CreatedAt),
		UpdatedAt:           dbTime(grant.UpdatedAt),
	}
}

func (r *grantRecord) toDomain() core.Grant {
	if r == nil {
		return core.Grant{}
	}
	return core.Grant{
		ID:                  r.ID,
		Code:                r.Code,
		ApplicationID:       r.ApplicationID,
		UserID:              r.UserID,
		Expires:             utcTimePtr(r.Expires),
		RedirectURI:         r.RedirectURI,
		RedirectURIExplicit: r.RedirectURIExplicit,
		Scope:               r.Scope,
		CodeChallenge:       r.CodeChallenge,
		CodeChallengeMethod: r.CodeChallengeMethod,
		Nonce:               r.Nonce,
		Claims:              r.Claims,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
}

func newAccessTokenRecord(token core.AccessToken) *accessTokenRecord {
	return &accessTokenRecord{
		ID:                   token.ID,
		Token:                token.Token,
		ApplicationID:        token.ApplicationID,
		UserID:               copyString(token.UserID),
		Scope:                token.Scope,
		Expires:              dbTimePtr(token.Expires),
		IDTokenID:            copyString(token.IDTokenID),
		SourceRefreshTokenID: copyString(token.SourceRefreshTokenID),
		CreatedAt:            dbTime(token.CreatedAt),
		UpdatedAt:            dbTime(token.UpdatedAt),
	}
}

func (r *accessTokenRecord) toDomain() core.AccessToken {
	if r == nil {
		return core.AccessToken{}
	}
	return core.AccessToken{
		ID:                   r.ID,
		Token:                r.Token,
		ApplicationID:        r.ApplicationID,
		UserID:               copyString(r.UserID),
		Scope:                r.Scope,
		Expires:              utcTimePtr(r.Expires),
		IDTokenID:            copyString(r.IDTokenID),
		SourceRefreshTokenID: copyString(r.SourceRefreshTokenID),
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
}

func newRefreshTokenRecord(token core.RefreshToken) *refreshTokenRecord {
	return &refreshTokenRecord{
		ID:            token.ID,
		Token:         token.Token,
		ApplicationID: token.ApplicationID,
		UserID:        copyString(token.UserID),
		AccessTokenID: copyString(token.AccessTokenID),
		TokenFamily:   token.TokenFamily,
		Revoked:       dbTimePtr(token.Revoked),
		Rotated:       token.Rotated,
		CreatedAt:     dbTime(token.CreatedAt),
		UpdatedAt:     dbTime(token.UpdatedAt),
	}
}

func (r *refreshTokenRecord) toDomain() core.RefreshToken {
	if r == nil {
		return core.RefreshToken{}
	}
	return core.RefreshToken{
		ID:            r.ID,
		Token:         r.Token,
		ApplicationID: r.ApplicationID,
		UserID:        copyString(r.UserID),
		AccessTokenID: copyString(r.AccessTokenID),
		TokenFamily:   r.TokenFamily,
		Revoked:       utcTimePtr(r.Revoked),
		Rotated:       r.Rotated,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func newIDTokenRecord(token core.IDToken) *idTokenRecord {
	return &idTokenRecord{
		ID:            token.ID,
		JTI:           token.JTI,
		Token:         token.Token,
		TokenChecksum: tokenChecksum(token.Token),
		ApplicationID: token.ApplicationID,
		UserID:        copyString(token.UserID),
		Scope:         token.Scope,
		Nonce:         token.Nonce,
		Expires:       dbTimePtr(token.Expires),
		CreatedAt:     dbTime(token.CreatedAt),
		UpdatedAt:     dbTime(token.UpdatedAt),
	}
}

func (r *idTokenRecord) toDomain() core.IDToken {
	if r == nil {
		return core.IDToken{}
	}
	return core.IDToken{
		ID:            r.ID,
		JTI:           r.JTI,
		Token:         r.Token,
		ApplicationID: r.ApplicationID,
		UserID:        copyString(r.UserID),
		Scope:         r.Scope,
		Nonce:         r.Nonce,
		Expires:       utcTimePtr(r.Expires),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func tokenChecksum(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// dbTime normalizes to UTC microseconds so stored values compare the same way
// on every dialect.
func dbTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC().Truncate(time.Microsecond)
}

func dbTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := dbTime(*value)
	return &normalized
}

func utcTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
