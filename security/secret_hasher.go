package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptSHA256Prefix = "bcrypt_sha256$"

type Option func(*BcryptSecretHasher)

func WithCost(cost int) Option {
	return func(hasher *BcryptSecretHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			hasher.cost = cost
		}
	}
}

// BcryptSecretHasher stores client secrets as bcrypt over a SHA-256 digest,
// since bcrypt ignores input beyond 72 bytes and generated secrets are 128
// characters long.
type BcryptSecretHasher struct {
	cost int
}

func NewBcryptSecretHasher(opts ...Option) *BcryptSecretHasher {
	hasher := &BcryptSecretHasher{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		if opt != nil {
			opt(hasher)
		}
	}
	return hasher
}

func (h *BcryptSecretHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("security: secret is required")
	}
	hashed, err := bcrypt.GenerateFromPassword(prehash(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("security: hash secret: %w", err)
	}
	return bcryptSHA256Prefix + string(hashed), nil
}

func (h *BcryptSecretHasher) Verify(hashed string, secret string) bool {
	encoded, ok := strings.CutPrefix(hashed, bcryptSHA256Prefix)
	if !ok || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), prehash(secret)) == nil
}

// IsHashed reports whether value was produced by Hash.
func IsHashed(value string) bool {
	return strings.HasPrefix(value, bcryptSHA256Prefix)
}

func prehash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum[:])
	return out
}
