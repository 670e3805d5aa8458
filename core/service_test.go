package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type reversingHasher struct{}

func (reversingHasher) Hash(secret string) (string, error) {
	runes := []rune(secret)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return "rev$" + string(runes), nil
}

func (h reversingHasher) Verify(hashed string, secret string) bool {
	expected, _ := h.Hash(secret)
	return expected == hashed
}

func issueCode(t *testing.T, svc *Service, app Application, req CreateGrantRequest) Grant {
	t.Helper()
	req.ClientID = app.ClientID
	if req.UserID == "" {
		req.UserID = "user-1"
	}
	grant, err := svc.CreateGrant(context.Background(), req)
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	return grant
}

func TestRegisterApplication_GeneratesCredentials(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	registered, err := svc.RegisterApplication(context.Background(), RegisterApplicationRequest{
		Name:                   "test_app",
		ClientType:             ClientConfidential,
		AuthorizationGrantType: GrantAuthorizationCode,
		RedirectURIs:           []string{"http://localhost/callback"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(registered.Application.ClientID) != 40 || len(registered.ClientSecret) != 128 {
		t.Fatalf("expected generated credentials, got %q/%q", registered.Application.ClientID, registered.ClientSecret)
	}
	if registered.Application.ID == "" {
		t.Fatalf("expected stored id")
	}
	got, err := svc.GetApplication(context.Background(), registered.Application.ClientID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if got.String() != "test_app" {
		t.Fatalf("unexpected application %q", got.String())
	}
}

func TestRegisterApplication_RejectsEmptyRedirectURIs(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	for _, grantType := range []string{GrantAuthorizationCode, GrantImplicit} {
		_, err := svc.RegisterApplication(context.Background(), RegisterApplicationRequest{
			Name:                   "test_app",
			ClientType:             ClientConfidential,
			AuthorizationGrantType: grantType,
		})
		if !IsValidationError(err) {
			t.Fatalf("expected validation error for %s, got %v", grantType, err)
		}
	}
}

func TestRegisterApplication_HashedSecrets(t *testing.T) {
	svc, _ := newTestService(t, Config{}, WithSecretHasher(reversingHasher{}))
	registered, err := svc.RegisterApplication(context.Background(), RegisterApplicationRequest{
		ClientType:             ClientConfidential,
		AuthorizationGrantType: GrantClientCredentials,
		ClientSecret:           "s3cret",
		HashClientSecret:       true,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.ClientSecret != "s3cret" {
		t.Fatalf("expected plaintext secret to be returned once")
	}
	if registered.Application.ClientSecret != "rev$terc3s" {
		t.Fatalf("expected stored secret to be hashed, got %q", registered.Application.ClientSecret)
	}
	if _, err := svc.AuthenticateClient(context.Background(), registered.Application.ClientID, "s3cret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.AuthenticateClient(context.Background(), registered.Application.ClientID, "wrong"); !IsInvalidClient(err) {
		t.Fatalf("expected invalid client, got %v", err)
	}

	noHasher, _ := newTestService(t, Config{})
	_, err = noHasher.RegisterApplication(context.Background(), RegisterApplicationRequest{
		ClientType:             ClientConfidential,
		AuthorizationGrantType: GrantClientCredentials,
		HashClientSecret:       true,
	})
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error without hasher, got %v", err)
	}
}

func TestRegisterApplication_MissingHasherErrorIsMapped(t *testing.T) {
	mapped := 0
	svc, _ := newTestService(t, Config{}, WithErrorMapper(func(err error) *goerrors.Error {
		mapped++
		return oauthErrorMapper(err)
	}))
	_, err := svc.RegisterApplication(context.Background(), RegisterApplicationRequest{
		ClientType:             ClientConfidential,
		AuthorizationGrantType: GrantClientCredentials,
		ClientSecret:           "secret",
		HashClientSecret:       true,
	})
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if mapped == 0 {
		t.Fatalf("expected the configuration error to pass through the error mapper")
	}
}

func TestAuthorizationCodeFlow_ExchangeOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{}, WithTokenGenerator(&sequenceGenerator{}))
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "flow"})
	grant := issueCode(t, svc, app, CreateGrantRequest{Scope: "read write"})
	if grant.Expires == nil || grant.IsExpired() {
		t.Fatalf("expected live grant, got %#v", grant.Expires)
	}
	if grant.RedirectURI != "http://localhost/callback" {
		t.Fatalf("expected single registered redirect uri to be used, got %q", grant.RedirectURI)
	}

	issued, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{
		ClientID:    app.ClientID,
		Code:        grant.Code,
		RedirectURI: grant.RedirectURI,
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if issued.AccessToken.Scope != "read write" || issued.RefreshToken == nil {
		t.Fatalf("unexpected issued tokens %#v", issued)
	}
	if issued.RefreshToken.AccessTokenID == nil || *issued.RefreshToken.AccessTokenID != issued.AccessToken.ID {
		t.Fatalf("expected refresh token to reference the access token")
	}
	if issued.AccessToken.UserID == nil || *issued.AccessToken.UserID != "user-1" {
		t.Fatalf("expected token bound to grant user")
	}

	_, err = svc.ExchangeGrant(ctx, ExchangeGrantRequest{
		ClientID:    app.ClientID,
		Code:        grant.Code,
		RedirectURI: grant.RedirectURI,
	})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected second exchange to fail with invalid grant, got %v", err)
	}
}

func TestExchangeGrant_ConcurrentRedemptionSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "race"})
	grant := issueCode(t, svc, app, CreateGrantRequest{Scope: "read"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{
				ClientID:    app.ClientID,
				Code:        grant.Code,
				RedirectURI: grant.RedirectURI,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful exchange, got %d", successes)
	}
}

func TestExchangeGrant_Rejections(t *testing.T) {
	ctx := context.Background()
	clock := newFixedClock(time.Now())
	svc, _ := newTestService(t, Config{}, WithClock(clock.Now))
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "owner"})
	other := registerApp(t, svc, RegisterApplicationRequest{Name: "other"})

	grant := issueCode(t, svc, app, CreateGrantRequest{})
	_, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{ClientID: other.ClientID, Code: grant.Code, RedirectURI: grant.RedirectURI})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected other client to be rejected, got %v", err)
	}
	_, err = svc.ExchangeGrant(ctx, ExchangeGrantRequest{ClientID: app.ClientID, Code: grant.Code, RedirectURI: "http://localhost/other"})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected redirect mismatch to be rejected, got %v", err)
	}

	clock.Advance(61 * time.Second)
	_, err = svc.ExchangeGrant(ctx, ExchangeGrantRequest{ClientID: app.ClientID, Code: grant.Code, RedirectURI: grant.RedirectURI})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected expired code to be rejected, got %v", err)
	}
}

func TestExchangeGrant_RedirectURIOmittedAtBothSteps(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "implicit-redirect"})

	grant, err := svc.CreateGrant(ctx, CreateGrantRequest{ClientID: app.ClientID, UserID: "user-1"})
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	if grant.RedirectURIExplicit {
		t.Fatalf("expected omitted redirect uri to be recorded as implicit")
	}
	if _, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{ClientID: app.ClientID, Code: grant.Code}); err != nil {
		t.Fatalf("expected exchange without redirect uri to succeed, got %v", err)
	}

	again, err := svc.CreateGrant(ctx, CreateGrantRequest{ClientID: app.ClientID, UserID: "user-1"})
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	if _, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{
		ClientID:    app.ClientID,
		Code:        again.Code,
		RedirectURI: "http://localhost/callback",
	}); err != nil {
		t.Fatalf("expected default redirect uri to be accepted, got %v", err)
	}
}

func TestExchangeGrant_ExplicitRedirectURIMustBeRepeated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "explicit-redirect"})

	grant, err := svc.CreateGrant(ctx, CreateGrantRequest{
		ClientID:    app.ClientID,
		UserID:      "user-1",
		RedirectURI: "http://localhost/callback",
	})
	if err != nil {
		t.Fatalf("create grant: %v", err)
	}
	if !grant.RedirectURIExplicit {
		t.Fatalf("expected requested redirect uri to be recorded as explicit")
	}
	_, err = svc.ExchangeGrant(ctx, ExchangeGrantRequest{ClientID: app.ClientID, Code: grant.Code})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected missing redirect uri to be rejected, got %v", err)
	}
}

func TestExchangeGrant_PKCE(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{PKCERequired: true})
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "pkce", ClientType: ClientPublic})

	if _, err := svc.CreateGrant(ctx, CreateGrantRequest{ClientID: app.ClientID, UserID: "u"}); !IsValidationError(err) {
		t.Fatalf("expected missing challenge to fail, got %v", err)
	}
	verifier := strings.Repeat("v", 64)
	grant := issueCode(t, svc, app, CreateGrantRequest{
		CodeChallenge:       S256CodeChallenge(verifier),
		CodeChallengeMethod: PKCEMethodS256,
	})
	_, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{
		ClientID:     app.ClientID,
		Code:         grant.Code,
		RedirectURI:  grant.RedirectURI,
		CodeVerifier: strings.Repeat("w", 64),
	})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected wrong verifier to fail, got %v", err)
	}
	if _, err := svc.ExchangeGrant(ctx, ExchangeGrantRequest{
		ClientID:     app.ClientID,
		Code:         grant.Code,
		RedirectURI:  grant.RedirectURI,
		CodeVerifier: verifier,
	}); err != nil {
		t.Fatalf("expected matching verifier to succeed after failed attempt: %v", err)
	}
}

func TestCreateGrant_ScopePolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{DefaultScopes: []string{"read"}})
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "scopes"})

	grant := issueCode(t, svc, app, CreateGrantRequest{})
	if grant.Scope != "read" {
		t.Fatalf("expected default scope, got %q", grant.Scope)
	}
	if _, err := svc.CreateGrant(ctx, CreateGrantRequest{ClientID: app.ClientID, UserID: "u", Scope: "read destroy"}); !IsInvalidScope(err) {
		t.Fatalf("expected unknown scope to fail, got %v", err)
	}
	if _, err := svc.CreateGrant(ctx, CreateGrantRequest{ClientID: app.ClientID, UserID: "u", Scope: "openid"}); !IsInvalidScope(err) {
		t.Fatalf("expected openid to be unknown without oidc, got %v", err)
	}
	if _, err := svc.CreateGrant(ctx, CreateGrantRequest{ClientID: "missing", UserID: "u"}); !IsInvalidClient(err) {
		t.Fatalf("expected unknown client, got %v", err)
	}
}

func TestIssueTokens_DirectGrants(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})
	machine := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantClientCredentials})
	issued, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: machine.ClientID, Scope: "read"})
	if err != nil {
		t.Fatalf("client credentials: %v", err)
	}
	if issued.AccessToken.UserID != nil || issued.RefreshToken != nil {
		t.Fatalf("expected user-less token without refresh, got %#v", issued)
	}

	password := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})
	if _, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: password.ClientID}); !IsValidationError(err) {
		t.Fatalf("expected password grant without user to fail, got %v", err)
	}
	issued, err = svc.IssueTokens(ctx, IssueTokensRequest{ClientID: password.ClientID, UserID: strPtr("u1"), Scope: "write"})
	if err != nil {
		t.Fatalf("password grant: %v", err)
	}
	if issued.RefreshToken == nil {
		t.Fatalf("expected refresh token for password grant")
	}

	code := registerApp(t, svc, RegisterApplicationRequest{})
	if _, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: code.ClientID, UserID: strPtr("u1")}); !IsInvalidClient(err) {
		t.Fatalf("expected authorization code client to be rejected, got %v", err)
	}
}

func TestRefreshTokens_RotatesAndDetectsReuse(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})
	first, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1"), Scope: "read write"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	second, err := svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: first.RefreshToken.Token, Scope: "read"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.AccessToken.Scope != "read" {
		t.Fatalf("expected narrowed scope, got %q", second.AccessToken.Scope)
	}
	if second.RefreshToken.TokenFamily != first.RefreshToken.TokenFamily {
		t.Fatalf("expected rotation to keep the token family")
	}
	if second.AccessToken.SourceRefreshTokenID == nil || *second.AccessToken.SourceRefreshTokenID != first.RefreshToken.ID {
		t.Fatalf("expected new access token to reference its source refresh token")
	}
	if _, err := store.AccessTokenStore().GetByToken(ctx, first.AccessToken.Token); !IsNotFound(err) {
		t.Fatalf("expected old access token to be deleted, got %v", err)
	}
	old, err := store.RefreshTokenStore().GetByToken(ctx, first.RefreshToken.Token)
	if err != nil || !old.IsRevoked() {
		t.Fatalf("expected old refresh token to be revoked, got %#v %v", old, err)
	}

	_, err = svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: first.RefreshToken.Token})
	if !IsTokenReused(err) {
		t.Fatalf("expected reuse error, got %v", err)
	}
	validation, err := svc.ValidateAccessToken(ctx, second.AccessToken.Token, nil)
	if err != nil || !validation.Valid() {
		t.Fatalf("expected family to survive without reuse protection, got %#v %v", validation, err)
	}

	_, err = svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: second.RefreshToken.Token, Scope: "write"})
	if !IsInvalidScope(err) {
		t.Fatalf("expected scope widening to fail, got %v", err)
	}
}

func TestRefreshTokens_ReuseProtectionRevokesFamily(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{RefreshTokenReuseProtection: true})
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})
	first, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1"), Scope: "read"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: first.RefreshToken.Token})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: first.RefreshToken.Token}); !IsTokenReused(err) {
		t.Fatalf("expected reuse error, got %v", err)
	}
	validation, err := svc.ValidateAccessToken(ctx, second.AccessToken.Token, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validation.Status != TokenStatusNotFound {
		t.Fatalf("expected family access token to be revoked, got %s", validation.Status)
	}
	if _, err := svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: second.RefreshToken.Token}); !IsInvalidGrant(err) {
		t.Fatalf("expected revoked family member to be rejected, got %v", err)
	}
}

func TestRefreshTokens_ExplicitlyRevokedTokenIsNotReuse(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Config{RefreshTokenReuseProtection: true})
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})
	first, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1"), Scope: "read"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: first.RefreshToken.Token})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	sibling, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1"), Scope: "read"})
	if err != nil {
		t.Fatalf("issue sibling: %v", err)
	}
	if err := svc.RevokeRefreshToken(ctx, sibling.RefreshToken.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, err = svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: sibling.RefreshToken.Token})
	if !IsInvalidGrant(err) || IsTokenReused(err) {
		t.Fatalf("expected invalid grant for a revoked token, got %v", err)
	}
	revoked, err := store.RefreshTokenStore().GetByToken(ctx, sibling.RefreshToken.Token)
	if err != nil {
		t.Fatalf("load revoked token: %v", err)
	}
	if revoked.Rotated {
		t.Fatalf("expected explicit revocation to leave the token unrotated")
	}
	rotated, err := store.RefreshTokenStore().GetByToken(ctx, first.RefreshToken.Token)
	if err != nil || !rotated.Rotated {
		t.Fatalf("expected rotated token to be marked, got %#v %v", rotated, err)
	}
	validation, err := svc.ValidateAccessToken(ctx, second.AccessToken.Token, nil)
	if err != nil || !validation.Valid() {
		t.Fatalf("expected unrelated family to stay live, got %#v %v", validation, err)
	}
}

func TestRefreshTokens_ConcurrentRotationSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})
	first, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1")})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RefreshTokens(ctx, RefreshTokensRequest{ClientID: app.ClientID, RefreshToken: first.RefreshToken.Token}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", successes)
	}
}

func TestValidateAccessToken_Statuses(t *testing.T) {
	ctx := context.Background()
	clock := newFixedClock(time.Now())
	svc, _ := newTestService(t, Config{AccessTokenExpireSeconds: 30}, WithClock(clock.Now))
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantClientCredentials})
	issued, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, Scope: "read"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	check := func(token string, required []string, want TokenStatus) {
		t.Helper()
		got, err := svc.ValidateAccessToken(ctx, token, required)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if got.Status != want {
			t.Fatalf("expected %s, got %s", want, got.Status)
		}
	}
	check(issued.AccessToken.Token, []string{"read"}, TokenStatusValid)
	check(issued.AccessToken.Token, []string{"read", "write"}, TokenStatusInsufficientScope)
	check("unknown", nil, TokenStatusNotFound)
	clock.Advance(30 * time.Second)
	check(issued.AccessToken.Token, []string{"read"}, TokenStatusExpired)
}

func TestRevocation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})

	first, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1")})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.RevokeAccessToken(ctx, first.AccessToken.Token); err != nil {
		t.Fatalf("revoke access: %v", err)
	}
	if _, err := store.RefreshTokenStore().GetByToken(ctx, first.RefreshToken.Token); !IsNotFound(err) {
		t.Fatalf("expected dependent refresh token to be deleted, got %v", err)
	}

	second, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1")})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.RevokeRefreshToken(ctx, second.RefreshToken.Token); err != nil {
		t.Fatalf("revoke refresh: %v", err)
	}
	refresh, err := store.RefreshTokenStore().GetByToken(ctx, second.RefreshToken.Token)
	if err != nil || !refresh.IsRevoked() || refresh.AccessTokenID != nil {
		t.Fatalf("expected revoked refresh token without access link, got %#v %v", refresh, err)
	}
	if _, err := store.AccessTokenStore().GetByToken(ctx, second.AccessToken.Token); !IsNotFound(err) {
		t.Fatalf("expected access token to be deleted, got %v", err)
	}

	if err := svc.RevokeAccessToken(ctx, "unknown"); err != nil {
		t.Fatalf("expected unknown token revocation to be a no-op: %v", err)
	}
	if err := svc.RevokeRefreshToken(ctx, "unknown"); err != nil {
		t.Fatalf("expected unknown refresh revocation to be a no-op: %v", err)
	}
}

func TestDeleteApplication_Cascades(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Config{})
	app := registerApp(t, svc, RegisterApplicationRequest{AuthorizationGrantType: GrantPassword})
	issued, err := svc.IssueTokens(ctx, IssueTokensRequest{ClientID: app.ClientID, UserID: strPtr("u1")})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.DeleteApplication(ctx, app.ClientID); err != nil {
		t.Fatalf("delete application: %v", err)
	}
	if _, err := store.AccessTokenStore().GetByToken(ctx, issued.AccessToken.Token); !IsNotFound(err) {
		t.Fatalf("expected access token removed with application, got %v", err)
	}
	if _, err := store.RefreshTokenStore().GetByToken(ctx, issued.RefreshToken.Token); !IsNotFound(err) {
		t.Fatalf("expected refresh token removed with application, got %v", err)
	}
	if _, err := svc.GetApplication(ctx, app.ClientID); !IsNotFound(err) {
		t.Fatalf("expected application to be gone, got %v", err)
	}
}

func TestDescribeScopes(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	got := svc.DescribeScopes("read write")
	if len(got) != 2 || got["read"] != "Reading scope" || got["write"] != "Writing scope" {
		t.Fatalf("unexpected descriptions %#v", got)
	}

	oidc, _ := newTestService(t, oidcConfig(), WithIDTokenSigner(stubSigner{}))
	if oidc.DescribeScopes("openid")["openid"] != "OpenID connect" {
		t.Fatalf("expected openid description with oidc enabled")
	}
}
