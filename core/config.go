package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type OIDCConfig struct {
	Enabled              bool   `koanf:"enabled" mapstructure:"enabled"`
	Issuer               string `koanf:"issuer" mapstructure:"issuer"`
	IDTokenExpireSeconds int    `koanf:"id_token_expire_seconds" mapstructure:"id_token_expire_seconds"`
}

type ClearExpiredConfig struct {
	BatchSize       int `koanf:"batch_size" mapstructure:"batch_size"`
	BatchIntervalMS int `koanf:"batch_interval_ms" mapstructure:"batch_interval_ms"`
}

type Config struct {
	ServiceName                    string             `koanf:"service_name" mapstructure:"service_name"`
	OIDC                           OIDCConfig         `koanf:"oidc" mapstructure:"oidc"`
	Scopes                         map[string]string  `koanf:"scopes" mapstructure:"scopes"`
	DefaultScopes                  []string           `koanf:"default_scopes" mapstructure:"default_scopes"`
	AccessTokenExpireSeconds       int                `koanf:"access_token_expire_seconds" mapstructure:"access_token_expire_seconds"`
	AuthorizationCodeExpireSeconds int                `koanf:"authorization_code_expire_seconds" mapstructure:"authorization_code_expire_seconds"`
	RefreshTokenExpireSeconds      any                `koanf:"refresh_token_expire_seconds" mapstructure:"refresh_token_expire_seconds"`
	RefreshTokenReuseProtection    bool               `koanf:"refresh_token_reuse_protection" mapstructure:"refresh_token_reuse_protection"`
	AllowedRedirectURISchemes      []string           `koanf:"allowed_redirect_uri_schemes" mapstructure:"allowed_redirect_uri_schemes"`
	PKCERequired                   bool               `koanf:"pkce_required" mapstructure:"pkce_required"`
	ClearExpired                   ClearExpiredConfig `koanf:"clear_expired" mapstructure:"clear_expired"`
	Models                         ModelsConfig       `koanf:"models" mapstructure:"models"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "oauth",
		OIDC: OIDCConfig{
			IDTokenExpireSeconds: 36000,
		},
		Scopes: map[string]string{
			"read":  "Reading scope",
			"write": "Writing scope",
		},
		AccessTokenExpireSeconds:       36000,
		AuthorizationCodeExpireSeconds: 60,
		AllowedRedirectURISchemes:      []string{"http", "https"},
		ClearExpired: ClearExpiredConfig{
			BatchSize: 10000,
		},
	}
}

// Validate checks static settings. The refresh token grace period is checked
// when the sweeper runs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.AccessTokenExpireSeconds < 0 {
		return fmt.Errorf("core: access_token_expire_seconds must not be negative")
	}
	if c.AuthorizationCodeExpireSeconds < 0 {
		return fmt.Errorf("core: authorization_code_expire_seconds must not be negative")
	}
	if c.OIDC.IDTokenExpireSeconds < 0 {
		return fmt.Errorf("core: oidc.id_token_expire_seconds must not be negative")
	}
	if c.OIDC.Enabled && strings.TrimSpace(c.OIDC.Issuer) == "" {
		return fmt.Errorf("core: oidc.issuer is required when oidc is enabled")
	}
	if c.ClearExpired.BatchSize < 0 {
		return fmt.Errorf("core: clear_expired.batch_size must not be negative")
	}
	if c.ClearExpired.BatchIntervalMS < 0 {
		return fmt.Errorf("core: clear_expired.batch_interval_ms must not be negative")
	}
	known := c.scopeDescriptions()
	for _, scope := range c.DefaultScopes {
		if _, ok := known[scope]; !ok {
			return fmt.Errorf("core: default scope %q is not a configured scope", scope)
		}
	}
	return nil
}

// scopeDescriptions adds the openid scope when OIDC is enabled.
func (c Config) scopeDescriptions() ScopeDescriptions {
	out := make(ScopeDescriptions, len(c.Scopes)+1)
	for name, description := range c.Scopes {
		out[name] = description
	}
	if c.OIDC.Enabled {
		if _, ok := out[ScopeOpenID]; !ok {
			out[ScopeOpenID] = "OpenID connect"
		}
	}
	return out
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireSeconds) * time.Second
}

func (c Config) AuthorizationCodeTTL() time.Duration {
	return time.Duration(c.AuthorizationCodeExpireSeconds) * time.Second
}

func (c Config) IDTokenTTL() time.Duration {
	return time.Duration(c.OIDC.IDTokenExpireSeconds) * time.Second
}

func (c Config) BatchInterval() time.Duration {
	return time.Duration(c.ClearExpired.BatchIntervalMS) * time.Millisecond
}

// RefreshTokenGracePeriod coerces refresh_token_expire_seconds. Unset means
// zero; anything that is not a non-negative number is a configuration error.
func (c Config) RefreshTokenGracePeriod() (time.Duration, error) {
	return coerceSeconds("refresh_token_expire_seconds", c.RefreshTokenExpireSeconds)
}

func coerceSeconds(name string, value any) (time.Duration, error) {
	var seconds float64
	switch typed := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		if typed < 0 {
			return 0, NewConfigurationError(fmt.Sprintf("core: %s must not be negative", name))
		}
		return typed, nil
	case int:
		seconds = float64(typed)
	case int8:
		seconds = float64(typed)
	case int16:
		seconds = float64(typed)
	case int32:
		seconds = float64(typed)
	case int64:
		seconds = float64(typed)
	case uint:
		seconds = float64(typed)
	case uint8:
		seconds = float64(typed)
	case uint16:
		seconds = float64(typed)
	case uint32:
		seconds = float64(typed)
	case uint64:
		seconds = float64(typed)
	case float32:
		seconds = float64(typed)
	case float64:
		seconds = typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, NewConfigurationError(fmt.Sprintf("core: %s must be a number of seconds, got %q", name, typed.String()))
		}
		seconds = parsed
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, NewConfigurationError(fmt.Sprintf("core: %s must be a number of seconds, got %q", name, typed))
		}
		seconds = parsed
	default:
		return 0, NewConfigurationError(fmt.Sprintf("core: %s must be a number of seconds, got %T", name, value))
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, NewConfigurationError(fmt.Sprintf("core: %s must be a finite number of seconds", name))
	}
	if seconds < 0 {
		return 0, NewConfigurationError(fmt.Sprintf("core: %s must not be negative", name))
	}
	if seconds >= maxDurationSeconds {
		return 0, NewConfigurationError(fmt.Sprintf("core: %s exceeds the largest supported duration", name))
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

var maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)
