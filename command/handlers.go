package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-oauth/core"
)

type MutatingService interface {
	RegisterApplication(ctx context.Context, req core.RegisterApplicationRequest) (core.RegisteredApplication, error)
	DeleteApplication(ctx context.Context, clientID string) error
	CreateGrant(ctx context.Context, req core.CreateGrantRequest) (core.Grant, error)
	ExchangeGrant(ctx context.Context, req core.ExchangeGrantRequest) (core.IssuedTokens, error)
	IssueTokens(ctx context.Context, req core.IssueTokensRequest) (core.IssuedTokens, error)
	RefreshTokens(ctx context.Context, req core.RefreshTokensRequest) (core.IssuedTokens, error)
	RevokeAccessToken(ctx context.Context, token string) error
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeIDToken(ctx context.Context, token string) error
	ClearExpired(ctx context.Context) (core.ClearExpiredResult, error)
}

type RegisterApplicationCommand struct {
	service MutatingService
}

func NewRegisterApplicationCommand(service MutatingService) *RegisterApplicationCommand {
	return &RegisterApplicationCommand{service: service}
}

// Execute stores the core.RegisteredApplication in the result collector,
// which is the only place the plaintext secret is available.
func (c *RegisterApplicationCommand) Execute(ctx context.Context, msg RegisterApplicationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: application service is required")
	}
	out, err := c.service.RegisterApplication(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteApplicationCommand struct {
	service MutatingService
}

func NewDeleteApplicationCommand(service MutatingService) *DeleteApplicationCommand {
	return &DeleteApplicationCommand{service: service}
}

func (c *DeleteApplicationCommand) Execute(ctx context.Context, msg DeleteApplicationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: application service is required")
	}
	return c.service.DeleteApplication(ctx, msg.ClientID)
}

type CreateGrantCommand struct {
	service MutatingService
}

func NewCreateGrantCommand(service MutatingService) *CreateGrantCommand {
	return &CreateGrantCommand{service: service}
}

func (c *CreateGrantCommand) Execute(ctx context.Context, msg CreateGrantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: grant service is required")
	}
	out, err := c.service.CreateGrant(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ExchangeGrantCommand struct {
	service MutatingService
}

func NewExchangeGrantCommand(service MutatingService) *ExchangeGrantCommand {
	return &ExchangeGrantCommand{service: service}
}

func (c *ExchangeGrantCommand) Execute(ctx context.Context, msg ExchangeGrantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: grant service is required")
	}
	out, err := c.service.ExchangeGrant(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type IssueTokensCommand struct {
	service MutatingService
}

func NewIssueTokensCommand(service MutatingService) *IssueTokensCommand {
	return &IssueTokensCommand{service: service}
}

func (c *IssueTokensCommand) Execute(ctx context.Context, msg IssueTokensMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.IssueTokens(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshTokensCommand struct {
	service MutatingService
}

func NewRefreshTokensCommand(service MutatingService) *RefreshTokensCommand {
	return &RefreshTokensCommand{service: service}
}

func (c *RefreshTokensCommand) Execute(ctx context.Context, msg RefreshTokensMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.RefreshTokens(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RevokeAccessTokenCommand struct {
	service MutatingService
}

func NewRevokeAccessTokenCommand(service MutatingService) *RevokeAccessTokenCommand {
	return &RevokeAccessTokenCommand{service: service}
}

func (c *RevokeAccessTokenCommand) Execute(ctx context.Context, msg RevokeAccessTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	return c.service.RevokeAccessToken(ctx, msg.Token)
}

type RevokeRefreshTokenCommand struct {
	service MutatingService
}

func NewRevokeRefreshTokenCommand(service MutatingService) *RevokeRefreshTokenCommand {
	return &RevokeRefreshTokenCommand{service: service}
}

func (c *RevokeRefreshTokenCommand) Execute(ctx context.Context, msg RevokeRefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	return c.service.RevokeRefreshToken(ctx, msg.Token)
}

type RevokeIDTokenCommand struct {
	service MutatingService
}

func NewRevokeIDTokenCommand(service MutatingService) *RevokeIDTokenCommand {
	return &RevokeIDTokenCommand{service: service}
}

func (c *RevokeIDTokenCommand) Execute(ctx context.Context, msg RevokeIDTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: id token service is required")
	}
	return c.service.RevokeIDToken(ctx, msg.Token)
}

type ClearExpiredCommand struct {
	service MutatingService
}

func NewClearExpiredCommand(service MutatingService) *ClearExpiredCommand {
	return &ClearExpiredCommand{service: service}
}

func (c *ClearExpiredCommand) Execute(ctx context.Context, _ ClearExpiredMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.ClearExpired(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
