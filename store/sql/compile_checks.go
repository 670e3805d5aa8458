package sqlstore

import "github.com/goliatone/go-oauth/core"

var (
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.ApplicationStore       = (*ApplicationStore)(nil)
	_ core.ApplicationStore       = (*CachedApplicationStore)(nil)
	_ core.GrantStore             = (*GrantStore)(nil)
	_ core.AccessTokenStore       = (*AccessTokenStore)(nil)
	_ core.RefreshTokenStore      = (*RefreshTokenStore)(nil)
	_ core.IDTokenStore           = (*IDTokenStore)(nil)
	_ core.TokenIssueStore        = (*TokenStore)(nil)
	_ core.ExpiredTokenStore      = (*TokenStore)(nil)
)
