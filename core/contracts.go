package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type ApplicationStore interface {
	Create(ctx context.Context, app Application) (Application, error)
	Get(ctx context.Context, id string) (Application, error)
	GetByClientID(ctx context.Context, clientID string) (Application, error)
	Update(ctx context.Context, app Application) (Application, error)
	// Delete removes the application with its grants and tokens.
	Delete(ctx context.Context, id string) error
}

type GrantStore interface {
	Create(ctx context.Context, grant Grant) (Grant, error)
	GetByCode(ctx context.Context, code string) (Grant, error)
	Delete(ctx context.Context, id string) error
}

type AccessTokenStore interface {
	Get(ctx context.Context, id string) (AccessToken, error)
	GetByToken(ctx context.Context, token string) (AccessToken, error)
	// Delete removes the token and refresh tokens bound to it.
	Delete(ctx context.Context, id string) error
}

type RefreshTokenStore interface {
	GetByToken(ctx context.Context, token string) (RefreshToken, error)
	// Revoke deletes the bound access token and stamps the refresh token as
	// revoked at the given time.
	Revoke(ctx context.Context, id string, at time.Time) error
	// RevokeFamily revokes every refresh token sharing family.
	RevokeFamily(ctx context.Context, family string, at time.Time) (int, error)
}

type IDTokenStore interface {
	Get(ctx context.Context, id string) (IDToken, error)
	GetByToken(ctx context.Context, token string) (IDToken, error)
	Delete(ctx context.Context, id string) error
}

// IssueTokensInput is a fully built token set to persist. IDs and links are
// assigned by the caller.
type IssueTokensInput struct {
	AccessToken  AccessToken
	RefreshToken *RefreshToken
	IDToken      *IDToken
}

type IssuedTokens struct {
	AccessToken  AccessToken
	RefreshToken *RefreshToken
	IDToken      *IDToken
}

// GrantExchangeFunc validates a grant inside the exchange transaction and
// builds the tokens that replace it.
type GrantExchangeFunc func(grant Grant) (IssueTokensInput, error)

// RefreshRotationFunc validates a refresh token and its bound access token
// inside the rotation transaction and builds the replacement pair.
type RefreshRotationFunc func(refresh RefreshToken, access *AccessToken) (IssueTokensInput, error)

// TokenIssueStore persists token sets atomically.
type TokenIssueStore interface {
	IssueTokens(ctx context.Context, in IssueTokensInput) (IssuedTokens, error)
	// ExchangeGrant consumes the grant identified by code. Exactly one caller
	// succeeds for a given code; the others get ErrNotFound.
	ExchangeGrant(ctx context.Context, code string, build GrantExchangeFunc) (IssuedTokens, error)
	// RotateRefreshToken revokes the refresh token, deletes its access token
	// and stores the replacement pair. A token that is already revoked yields
	// ErrRefreshTokenRotated.
	RotateRefreshToken(ctx context.Context, token string, at time.Time, build RefreshRotationFunc) (IssuedTokens, error)
}

// ExpiredTokenStore deletes stale rows. A limit of zero or less removes every
// match in one pass; otherwise at most limit rows are removed per call.
type ExpiredTokenStore interface {
	DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time, limit int) (int, error)
	DeleteExpiredAccessTokens(ctx context.Context, cutoff time.Time, limit int) (int, error)
	DeleteExpiredIDTokens(ctx context.Context, cutoff time.Time, limit int) (int, error)
	DeleteExpiredGrants(ctx context.Context, now time.Time, limit int) (int, error)
}

type StoreProvider interface {
	ApplicationStore() ApplicationStore
	GrantStore() GrantStore
	AccessTokenStore() AccessTokenStore
	RefreshTokenStore() RefreshTokenStore
	IDTokenStore() IDTokenStore
	TokenIssueStore() TokenIssueStore
	ExpiredTokenStore() ExpiredTokenStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any, registry *ModelRegistry) (StoreProvider, error)
}

// SecretHasher protects client secrets at rest.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(hashed string, secret string) bool
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
