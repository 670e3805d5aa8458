package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// stubSigner encodes claims as unsigned JSON so tests can read them back.
type stubSigner struct{}

func (stubSigner) SignIDToken(_ context.Context, app Application, claims Claims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return "stub." + base64.RawURLEncoding.EncodeToString(payload) + "." + app.Algorithm, nil
}

func decodeStubToken(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != "stub" {
		t.Fatalf("unexpected stub token %q", token)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode stub token: %v", err)
	}
	claims := map[string]any{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		t.Fatalf("unmarshal stub token: %v", err)
	}
	return claims
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now.UTC()}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequenceGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("tok-%03d", g.next), nil
}

func newTestService(t *testing.T, cfg Config, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	all := append([]Option{
		WithLogger(stubLogger{}),
		WithStoreProvider(store),
	}, opts...)
	svc, err := NewService(cfg, all...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func oidcConfig() Config {
	return Config{
		OIDC: OIDCConfig{
			Enabled: true,
			Issuer:  "https://issuer.example.com",
		},
	}
}

func registerApp(t *testing.T, svc *Service, req RegisterApplicationRequest) Application {
	t.Helper()
	if req.ClientType == "" {
		req.ClientType = ClientConfidential
	}
	if req.AuthorizationGrantType == "" {
		req.AuthorizationGrantType = GrantAuthorizationCode
	}
	if len(req.RedirectURIs) == 0 && RequiresRedirectURIs(req.AuthorizationGrantType) {
		req.RedirectURIs = []string{"http://localhost/callback"}
	}
	registered, err := svc.RegisterApplication(context.Background(), req)
	if err != nil {
		t.Fatalf("register application: %v", err)
	}
	return registered.Application
}

func strPtr(value string) *string {
	return &value
}
