package oauth_test

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	oauth "github.com/goliatone/go-oauth"
	"github.com/goliatone/go-oauth/auth"
	oauthcommand "github.com/goliatone/go-oauth/command"
	"github.com/goliatone/go-oauth/core"
	oauthquery "github.com/goliatone/go-oauth/query"
	"github.com/goliatone/go-oauth/security"
)

func TestHostComposition_OIDCCodeFlowThroughFacade(t *testing.T) {
	ctx := context.Background()

	hooks := oauth.NewExtensionHooks()
	if err := hooks.RegisterScopePack(oauth.ScopePack{
		Name:   "profile",
		Scopes: map[string]string{"profile": "Basic profile"},
	}); err != nil {
		t.Fatalf("register scope pack: %v", err)
	}
	if err := hooks.RegisterClaimsPack(oauth.ClaimsPack{
		Name: "tenant",
		Contributors: []oauth.ClaimsContributor{oauth.ClaimsContributorFunc(
			func(_ context.Context, token oauth.IDToken, _ oauth.Application) (map[string]any, error) {
				return map[string]any{"tenant": "acme", "sub": "spoofed"}, nil
			},
		)},
	}); err != nil {
		t.Fatalf("register claims pack: %v", err)
	}

	signer, err := auth.NewJWTIDTokenSigner(auth.JWTIDTokenSignerConfig{})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	cfg := oauth.DefaultConfig()
	cfg.OIDC.Enabled = true
	cfg.OIDC.Issuer = "https://id.example.com"

	svc, err := hooks.NewService(cfg,
		oauth.WithIDTokenSigner(signer),
		oauth.WithSecretHasher(security.NewBcryptSecretHasher()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := oauth.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	registered := gocmd.NewResult[oauth.RegisteredApplication]()
	if err := facade.Commands().RegisterApplication.Execute(gocmd.ContextWithResult(ctx, registered), oauthcommand.RegisterApplicationMessage{
		Request: oauth.RegisterApplicationRequest{
			Name:                   "portal",
			ClientSecret:           "portal-secret",
			ClientType:             core.ClientConfidential,
			AuthorizationGrantType: core.GrantAuthorizationCode,
			RedirectURIs:           []string{"https://portal.example.com/callback"},
			Algorithm:              core.AlgorithmHS256,
		},
	}); err != nil {
		t.Fatalf("register application: %v", err)
	}
	app, ok := registered.Load()
	if !ok {
		t.Fatalf("expected registered application")
	}
	clientID := app.Application.ClientID

	grantResult := gocmd.NewResult[oauth.Grant]()
	if err := facade.Commands().CreateGrant.Execute(gocmd.ContextWithResult(ctx, grantResult), oauthcommand.CreateGrantMessage{
		Request: oauth.CreateGrantRequest{
			ClientID:    clientID,
			UserID:      "user-7",
			RedirectURI: "https://portal.example.com/callback",
			Scope:       "openid profile",
			Nonce:       "n-1",
		},
	}); err != nil {
		t.Fatalf("create grant: %v", err)
	}
	grant, ok := grantResult.Load()
	if !ok {
		t.Fatalf("expected grant result")
	}

	issuedResult := gocmd.NewResult[oauth.IssuedTokens]()
	if err := facade.Commands().ExchangeGrant.Execute(gocmd.ContextWithResult(ctx, issuedResult), oauthcommand.ExchangeGrantMessage{
		Request: oauth.ExchangeGrantRequest{
			ClientID:    clientID,
			Code:        grant.Code,
			RedirectURI: "https://portal.example.com/callback",
		},
	}); err != nil {
		t.Fatalf("exchange grant: %v", err)
	}
	issued, ok := issuedResult.Load()
	if !ok || issued.IDToken == nil || issued.RefreshToken == nil {
		t.Fatalf("expected access, refresh and id tokens, got %#v", issued)
	}

	if err := facade.Commands().ExchangeGrant.Execute(ctx, oauthcommand.ExchangeGrantMessage{
		Request: oauth.ExchangeGrantRequest{ClientID: clientID, Code: grant.Code, RedirectURI: "https://portal.example.com/callback"},
	}); !core.IsInvalidGrant(err) {
		t.Fatalf("expected a redeemed code to be rejected, got %v", err)
	}

	claims, err := facade.Queries().IDTokenClaims.Query(ctx, oauthquery.IDTokenClaimsMessage{Token: issued.IDToken.Token})
	if err != nil {
		t.Fatalf("id token claims: %v", err)
	}
	if claims["tenant"] != "acme" {
		t.Fatalf("expected contributed claim, got %#v", claims)
	}
	if claims["sub"] != "user-7" || claims["nonce"] != "n-1" || claims["iss"] != "https://id.example.com" {
		t.Fatalf("expected registered claims to win, got %#v", claims)
	}

	stored, err := facade.Queries().GetApplication.Query(ctx, oauthquery.GetApplicationMessage{ClientID: clientID})
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	verified, err := signer.VerifyIDToken(issued.IDToken.Token, stored)
	if err != nil {
		t.Fatalf("verify id token: %v", err)
	}
	if verified["aud"] != clientID {
		t.Fatalf("expected audience %q, got %v", clientID, verified["aud"])
	}

	described, err := facade.Queries().DescribeScopes.Query(ctx, oauthquery.DescribeScopesMessage{Scope: "openid profile"})
	if err != nil {
		t.Fatalf("describe scopes: %v", err)
	}
	if described["profile"] != "Basic profile" || described["openid"] == "" {
		t.Fatalf("unexpected scope descriptions %#v", described)
	}
}
