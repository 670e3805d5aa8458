package core

import (
	"strings"
	"testing"
)

func TestApplication_StringPrefersName(t *testing.T) {
	app := Application{ClientID: "my_client_id", ClientType: ClientConfidential}
	if app.String() != "my_client_id" {
		t.Fatalf("expected client id, got %q", app.String())
	}
	app.Name = "test_app"
	if app.String() != "test_app" {
		t.Fatalf("expected name, got %q", app.String())
	}
}

func TestApplication_RedirectURIsRequiredForRedirectGrants(t *testing.T) {
	for _, grantType := range []string{GrantAuthorizationCode, GrantImplicit, GrantOpenIDHybrid} {
		app := Application{
			Name:                   "test_app",
			ClientType:             ClientConfidential,
			AuthorizationGrantType: grantType,
		}
		err := app.Validate()
		if err == nil {
			t.Fatalf("expected validation error for %s without redirect uris", grantType)
		}
		if !IsValidationError(err) {
			t.Fatalf("expected validation category for %s, got %v", grantType, err)
		}
	}
}

func TestApplication_RedirectURIsOptionalForDirectGrants(t *testing.T) {
	for _, grantType := range []string{GrantPassword, GrantClientCredentials, GrantDeviceCode} {
		app := Application{
			ClientType:             ClientConfidential,
			AuthorizationGrantType: grantType,
		}
		if err := app.Validate(); err != nil {
			t.Fatalf("unexpected validation error for %s: %v", grantType, err)
		}
	}
}

func TestApplication_RedirectURIValidation(t *testing.T) {
	base := Application{ClientType: ClientPublic, AuthorizationGrantType: GrantAuthorizationCode}
	cases := []struct {
		name    string
		uris    string
		schemes []string
		valid   bool
	}{
		{name: "https", uris: "https://example.com/cb", valid: true},
		{name: "several", uris: "http://localhost/a https://example.com/b", valid: true},
		{name: "relative", uris: "/callback", valid: false},
		{name: "fragment", uris: "https://example.com/cb#frag", valid: false},
		{name: "disallowed scheme", uris: "myapp://callback", valid: false},
		{name: "custom scheme allowed", uris: "myapp://callback", schemes: []string{"https", "myapp"}, valid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := base
			app.RedirectURIs = tc.uris
			err := app.ValidateWithSchemes(tc.schemes)
			if tc.valid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.valid && !IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestApplication_AlgorithmRules(t *testing.T) {
	app := Application{
		ClientType:             ClientPublic,
		AuthorizationGrantType: GrantPassword,
		Algorithm:              AlgorithmHS256,
	}
	if err := app.Validate(); !IsValidationError(err) {
		t.Fatalf("expected HS256 on a public client to fail, got %v", err)
	}
	app.ClientType = ClientConfidential
	if err := app.Validate(); err != nil {
		t.Fatalf("unexpected error for confidential HS256: %v", err)
	}
	app.HashClientSecret = true
	if err := app.Validate(); !IsValidationError(err) {
		t.Fatalf("expected HS256 with hashed secret to fail, got %v", err)
	}
	app.Algorithm = "ES512"
	app.HashClientSecret = false
	if err := app.Validate(); !IsValidationError(err) {
		t.Fatalf("expected unsupported algorithm to fail, got %v", err)
	}
}

func TestApplication_RedirectURIAllowedIsExact(t *testing.T) {
	app := Application{RedirectURIs: "http://example.com/a http://example.com/b"}
	if !app.RedirectURIAllowed("http://example.com/b") {
		t.Fatalf("expected registered uri to be allowed")
	}
	if app.RedirectURIAllowed("http://example.com/b/") {
		t.Fatalf("expected trailing slash variant to be rejected")
	}
	if app.DefaultRedirectURI() != "http://example.com/a" {
		t.Fatalf("unexpected default redirect uri %q", app.DefaultRedirectURI())
	}
}

func TestGenerateClientCredentials(t *testing.T) {
	clientID, err := GenerateClientID()
	if err != nil {
		t.Fatalf("generate client id: %v", err)
	}
	secret, err := GenerateClientSecret()
	if err != nil {
		t.Fatalf("generate client secret: %v", err)
	}
	if len(clientID) != 40 || len(secret) != 128 {
		t.Fatalf("unexpected credential lengths %d/%d", len(clientID), len(secret))
	}
	if strings.Trim(clientID, clientCharset) != "" {
		t.Fatalf("client id contains characters outside the charset: %q", clientID)
	}
}
