// Package core contains the OAuth2/OIDC authorization server domain: client
// applications, authorization grants, access/refresh/ID tokens, scope policy,
// the swappable model registry, and the expired-token sweeper. Storage and
// signing adapters depend on this package; core must not depend on them.
package core
