package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-oauth/core"
)

var (
	_ gocmd.Commander[RegisterApplicationMessage] = (*RegisterApplicationCommand)(nil)
	_ gocmd.Commander[DeleteApplicationMessage]   = (*DeleteApplicationCommand)(nil)
	_ gocmd.Commander[CreateGrantMessage]         = (*CreateGrantCommand)(nil)
	_ gocmd.Commander[ExchangeGrantMessage]       = (*ExchangeGrantCommand)(nil)
	_ gocmd.Commander[IssueTokensMessage]         = (*IssueTokensCommand)(nil)
	_ gocmd.Commander[RefreshTokensMessage]       = (*RefreshTokensCommand)(nil)
	_ gocmd.Commander[RevokeAccessTokenMessage]   = (*RevokeAccessTokenCommand)(nil)
	_ gocmd.Commander[RevokeRefreshTokenMessage]  = (*RevokeRefreshTokenCommand)(nil)
	_ gocmd.Commander[RevokeIDTokenMessage]       = (*RevokeIDTokenCommand)(nil)
	_ gocmd.Commander[ClearExpiredMessage]        = (*ClearExpiredCommand)(nil)

	_ MutatingService = (*core.Service)(nil)
)
