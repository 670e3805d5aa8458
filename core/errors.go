package core

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorValidation           = "OAUTH_VALIDATION_FAILED"
	ErrorImproperlyConfigured = "OAUTH_IMPROPERLY_CONFIGURED"
	ErrorLookup               = "OAUTH_LOOKUP_FAILED"
	ErrorNotFound             = "OAUTH_NOT_FOUND"
	ErrorInvalidGrant         = "OAUTH_INVALID_GRANT"
	ErrorTokenReused          = "OAUTH_TOKEN_REUSED"
	ErrorInvalidScope         = "OAUTH_INVALID_SCOPE"
	ErrorInvalidClient        = "OAUTH_INVALID_CLIENT"
	ErrorInternal             = "OAUTH_INTERNAL_ERROR"
)

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("core: record not found")
	// ErrRefreshTokenRotated is returned by stores when a refresh token was
	// already revoked or rotated by another caller.
	ErrRefreshTokenRotated = errors.New("core: refresh token already rotated")
	// ErrRefreshTokenRevoked is returned by stores when a refresh token was
	// revoked without being rotated.
	ErrRefreshTokenRevoked = errors.New("core: refresh token was revoked")
)

func NewValidationError(field, message string) *goerrors.Error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithTextCode(ErrorValidation).
		WithSeverity(goerrors.SeverityError)
}

func NewConfigurationError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(ErrorImproperlyConfigured).
		WithSeverity(goerrors.SeverityError)
}

func NewLookupError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(ErrorLookup).
		WithSeverity(goerrors.SeverityError)
}

func NewNotFoundError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(ErrorNotFound)
}

func NewInvalidGrantError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(ErrorInvalidGrant)
}

func NewTokenReusedError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(ErrorTokenReused).
		WithSeverity(goerrors.SeverityError)
}

func NewInvalidScopeError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(ErrorInvalidScope)
}

func NewInvalidClientError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(ErrorInvalidClient)
}

func IsValidationError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == ErrorValidation || rich.Category == goerrors.CategoryValidation
}

func IsConfigurationError(err error) bool {
	return hasTextCode(err, ErrorImproperlyConfigured)
}

func IsLookupError(err error) bool {
	return hasTextCode(err, ErrorLookup)
}

func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return hasTextCode(err, ErrorNotFound)
}

func IsInvalidGrant(err error) bool {
	return hasTextCode(err, ErrorInvalidGrant)
}

func IsTokenReused(err error) bool {
	return hasTextCode(err, ErrorTokenReused)
}

func IsInvalidScope(err error) bool {
	return hasTextCode(err, ErrorInvalidScope)
}

func IsInvalidClient(err error) bool {
	return hasTextCode(err, ErrorInvalidClient)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

func oauthErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, ErrRefreshTokenRotated), errors.Is(err, ErrRefreshTokenRevoked):
		return NewInvalidGrantError(err.Error())
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorValidation
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorInvalidClient
	default:
		return ErrorInternal
	}
}
