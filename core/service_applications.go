package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"
)

type RegisterApplicationRequest struct {
	Name                   string
	ClientID               string
	ClientSecret           string
	HashClientSecret       bool
	ClientType             ClientType
	AuthorizationGrantType string
	RedirectURIs           []string
	UserID                 *string
	Algorithm              string
	SkipAuthorization      bool
}

// RegisteredApplication carries the plaintext secret, which is only available
// at registration time when secrets are hashed.
type RegisteredApplication struct {
	Application  Application
	ClientSecret string
}

func (s *Service) RegisterApplication(
	ctx context.Context,
	req RegisterApplicationRequest,
) (registered RegisteredApplication, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"grant_type":  req.AuthorizationGrantType,
		"client_type": string(req.ClientType),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "register_application", err, fields)
	}()

	app := Application{
		Name:                   strings.TrimSpace(req.Name),
		ClientID:               strings.TrimSpace(req.ClientID),
		ClientSecret:           req.ClientSecret,
		HashClientSecret:       req.HashClientSecret,
		ClientType:             req.ClientType,
		AuthorizationGrantType: strings.TrimSpace(req.AuthorizationGrantType),
		RedirectURIs:           strings.Join(req.RedirectURIs, " "),
		UserID:                 cloneStringPtr(req.UserID),
		Algorithm:              strings.TrimSpace(req.Algorithm),
		SkipAuthorization:      req.SkipAuthorization,
	}
	if app.ClientID == "" {
		if app.ClientID, err = GenerateClientID(); err != nil {
			err = s.mapError(err)
			return RegisteredApplication{}, err
		}
	}
	fields["client_id"] = app.ClientID
	if app.ClientSecret == "" && app.ClientType == ClientConfidential {
		if app.ClientSecret, err = GenerateClientSecret(); err != nil {
			err = s.mapError(err)
			return RegisteredApplication{}, err
		}
	}
	if err = app.ValidateWithSchemes(s.config.AllowedRedirectURISchemes); err != nil {
		err = s.mapError(err)
		return RegisteredApplication{}, err
	}

	plaintext := app.ClientSecret
	if app.HashClientSecret && app.ClientSecret != "" {
		if s.secretHasher == nil {
			err = s.mapError(NewConfigurationError("core: hashed client secrets require a secret hasher"))
			return RegisteredApplication{}, err
		}
		hashed, hashErr := s.secretHasher.Hash(app.ClientSecret)
		if hashErr != nil {
			err = s.mapError(hashErr)
			return RegisteredApplication{}, err
		}
		app.ClientSecret = hashed
	}

	created, err := s.applicationStore.Create(ctx, app)
	if err != nil {
		err = s.mapError(err)
		return RegisteredApplication{}, err
	}
	return RegisteredApplication{Application: created, ClientSecret: plaintext}, nil
}

func (s *Service) GetApplication(ctx context.Context, clientID string) (Application, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Application{}, s.mapError(NewValidationError("client_id", "client id is required"))
	}
	app, err := s.applicationStore.GetByClientID(ctx, clientID)
	if err != nil {
		return Application{}, s.mapError(err)
	}
	return app, nil
}

// DeleteApplication removes a client with its grants and tokens.
func (s *Service) DeleteApplication(ctx context.Context, clientID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_application", err, fields)
	}()

	app, err := s.GetApplication(ctx, clientID)
	if err != nil {
		return err
	}
	if err = s.applicationStore.Delete(ctx, app.ID); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// AuthenticateClient checks client credentials. Public clients authenticate
// with their client id alone.
func (s *Service) AuthenticateClient(ctx context.Context, clientID string, secret string) (Application, error) {
	app, err := s.applicationStore.GetByClientID(ctx, strings.TrimSpace(clientID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, s.mapError(NewInvalidClientError("core: unknown client"))
		}
		return Application{}, s.mapError(err)
	}
	if !app.IsConfidential() {
		return app, nil
	}
	if !s.verifyClientSecret(app, secret) {
		return Application{}, s.mapError(NewInvalidClientError("core: client authentication failed"))
	}
	return app, nil
}

func (s *Service) verifyClientSecret(app Application, secret string) bool {
	if secret == "" || app.ClientSecret == "" {
		return false
	}
	if app.HashClientSecret {
		return s.secretHasher != nil && s.secretHasher.Verify(app.ClientSecret, secret)
	}
	return subtle.ConstantTimeCompare([]byte(app.ClientSecret), []byte(secret)) == 1
}

// lookupClient resolves clientID for token operations.
func (s *Service) lookupClient(ctx context.Context, clientID string) (Application, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Application{}, NewValidationError("client_id", "client id is required")
	}
	app, err := s.applicationStore.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, NewInvalidClientError("core: unknown client " + clientID)
		}
		return Application{}, err
	}
	return app, nil
}
