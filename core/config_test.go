package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRefreshTokenGracePeriod_Coercion(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  time.Duration
		fails bool
	}{
		{name: "unset", value: nil, want: 0},
		{name: "int", value: 60, want: time.Minute},
		{name: "float", value: 1.5, want: 1500 * time.Millisecond},
		{name: "numeric string", value: " 30 ", want: 30 * time.Second},
		{name: "json number", value: json.Number("10"), want: 10 * time.Second},
		{name: "duration", value: 2 * time.Second, want: 2 * time.Second},
		{name: "non numeric", value: "A", fails: true},
		{name: "negative", value: -1, fails: true},
		{name: "wrong type", value: []string{"1"}, fails: true},
		{name: "overflowing string", value: "1e30", fails: true},
		{name: "overflowing float", value: 1e30, fails: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Config{RefreshTokenExpireSeconds: tc.value}.RefreshTokenGracePeriod()
			if tc.fails {
				if !IsConfigurationError(err) {
					t.Fatalf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	cfg.OIDC.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing issuer to fail")
	}
	cfg.OIDC.Issuer = "https://issuer.example.com"
	cfg.DefaultScopes = []string{"openid"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected openid default scope with oidc enabled: %v", err)
	}
	cfg.DefaultScopes = []string{"admin"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown default scope to fail")
	}
}

func TestConfig_ScopeDescriptionsAddsOpenID(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.scopeDescriptions()[ScopeOpenID]; ok {
		t.Fatalf("expected no openid scope without oidc")
	}
	cfg.OIDC.Enabled = true
	if got := cfg.scopeDescriptions()[ScopeOpenID]; got != "OpenID connect" {
		t.Fatalf("unexpected openid description %q", got)
	}
}
