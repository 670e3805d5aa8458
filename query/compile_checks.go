package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-oauth/core"
)

var (
	_ gocmd.Querier[GetApplicationMessage, core.Application]          = (*GetApplicationQuery)(nil)
	_ gocmd.Querier[ValidateAccessTokenMessage, core.TokenValidation] = (*ValidateAccessTokenQuery)(nil)
	_ gocmd.Querier[IDTokenClaimsMessage, core.Claims]                = (*IDTokenClaimsQuery)(nil)
	_ gocmd.Querier[DescribeScopesMessage, map[string]string]         = (*DescribeScopesQuery)(nil)

	_ ApplicationReader    = (*core.Service)(nil)
	_ AccessTokenValidator = (*core.Service)(nil)
	_ IDTokenReader        = (*core.Service)(nil)
	_ ScopeDescriber       = (*core.Service)(nil)
)
