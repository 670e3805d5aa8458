package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ClientType string

const (
	ClientConfidential ClientType = "confidential"
	ClientPublic       ClientType = "public"
)

const (
	GrantAuthorizationCode = "authorization-code"
	GrantImplicit          = "implicit"
	GrantPassword          = "password"
	GrantClientCredentials = "client-credentials"
	GrantOpenIDHybrid      = "openid-hybrid"
	GrantDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"
)

const (
	AlgorithmNone  = ""
	AlgorithmRS256 = "RS256"
	AlgorithmHS256 = "HS256"
)

var defaultRedirectURISchemes = []string{"http", "https"}

// Application is a registered OAuth2 client.
type Application struct {
	ID                     string
	ClientID               string
	ClientSecret           string
	HashClientSecret       bool
	ClientType             ClientType
	AuthorizationGrantType string
	RedirectURIs           string
	UserID                 *string
	Name                   string
	Algorithm              string
	SkipAuthorization      bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// String returns the name once set, the client id otherwise.
func (a Application) String() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ClientID
}

func (a Application) RedirectURIList() []string {
	return strings.Fields(a.RedirectURIs)
}

// DefaultRedirectURI returns the first registered redirect URI.
func (a Application) DefaultRedirectURI() string {
	uris := a.RedirectURIList()
	if len(uris) == 0 {
		return ""
	}
	return uris[0]
}

// RedirectURIAllowed requires an exact match against a registered URI.
func (a Application) RedirectURIAllowed(uri string) bool {
	if strings.TrimSpace(uri) == "" {
		return false
	}
	for _, registered := range a.RedirectURIList() {
		if registered == uri {
			return true
		}
	}
	return false
}

func (a Application) IsConfidential() bool {
	return a.ClientType == ClientConfidential
}

// IssuesRefreshTokens reports whether tokens minted for this client carry a
// refresh token.
func (a Application) IssuesRefreshTokens() bool {
	switch a.AuthorizationGrantType {
	case GrantClientCredentials, GrantImplicit:
		return false
	default:
		return true
	}
}

// RequiresRedirectURIs reports whether grantType needs at least one
// registered redirect URI.
func RequiresRedirectURIs(grantType string) bool {
	switch grantType {
	case GrantAuthorizationCode, GrantImplicit, GrantOpenIDHybrid:
		return true
	default:
		return false
	}
}

func (a Application) Validate() error {
	return a.ValidateWithSchemes(nil)
}

// ValidateWithSchemes runs application validation with the given allowed
// redirect URI schemes. An empty list means http and https.
func (a Application) ValidateWithSchemes(allowedSchemes []string) error {
	switch a.ClientType {
	case ClientConfidential, ClientPublic:
	default:
		return NewValidationError("client_type", fmt.Sprintf("unsupported client type %q", a.ClientType))
	}
	if strings.TrimSpace(a.AuthorizationGrantType) == "" {
		return NewValidationError("authorization_grant_type", "authorization grant type is required")
	}

	uris := a.RedirectURIList()
	if RequiresRedirectURIs(a.AuthorizationGrantType) && len(uris) == 0 {
		return NewValidationError(
			"redirect_uris",
			fmt.Sprintf("redirect_uris cannot be empty with grant_type %s", a.AuthorizationGrantType),
		)
	}
	if len(allowedSchemes) == 0 {
		allowedSchemes = defaultRedirectURISchemes
	}
	for _, uri := range uris {
		if err := validateRedirectURI(uri, allowedSchemes); err != nil {
			return err
		}
	}

	switch a.Algorithm {
	case AlgorithmNone, AlgorithmRS256:
	case AlgorithmHS256:
		if a.ClientType == ClientPublic {
			return NewValidationError("algorithm", "HS256 requires a confidential client")
		}
		if a.HashClientSecret {
			return NewValidationError("algorithm", "HS256 cannot be used with a hashed client secret")
		}
	default:
		return NewValidationError("algorithm", fmt.Sprintf("unsupported algorithm %q", a.Algorithm))
	}
	return nil
}

func validateRedirectURI(uri string, allowedSchemes []string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return NewValidationError("redirect_uris", fmt.Sprintf("redirect uri %q is not a valid URL", uri))
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return NewValidationError("redirect_uris", fmt.Sprintf("redirect uri %q must be absolute", uri))
	}
	allowed := false
	for _, candidate := range allowedSchemes {
		if strings.EqualFold(strings.TrimSpace(candidate), scheme) {
			allowed = true
			break
		}
	}
	if !allowed {
		return NewValidationError("redirect_uris", fmt.Sprintf("redirect uri scheme %q is not allowed", scheme))
	}
	if (scheme == "http" || scheme == "https") && parsed.Host == "" {
		return NewValidationError("redirect_uris", fmt.Sprintf("redirect uri %q has no host", uri))
	}
	if parsed.Fragment != "" {
		return NewValidationError("redirect_uris", fmt.Sprintf("redirect uri %q must not contain a fragment", uri))
	}
	return nil
}
