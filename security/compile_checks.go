package security

import "github.com/goliatone/go-oauth/core"

var _ core.SecretHasher = (*BcryptSecretHasher)(nil)
