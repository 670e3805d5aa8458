package auth

import "github.com/goliatone/go-oauth/core"

var _ core.IDTokenSigner = (*JWTIDTokenSigner)(nil)
