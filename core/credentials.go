package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	clientIDLength     = 40
	clientSecretLength = 128
	clientCharset      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenEntropyBytes  = 32
)

// TokenGenerator produces opaque bearer values for codes and tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

type TokenGeneratorFunc func() (string, error)

func (f TokenGeneratorFunc) Generate() (string, error) {
	return f()
}

// RandomTokenGenerator emits base64url encoded random bytes.
type RandomTokenGenerator struct {
	Bytes int
}

func (g RandomTokenGenerator) Generate() (string, error) {
	size := g.Bytes
	if size <= 0 {
		size = tokenEntropyBytes
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("core: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func GenerateClientID() (string, error) {
	return randomString(clientIDLength)
}

func GenerateClientSecret() (string, error) {
	return randomString(clientSecretLength)
}

func randomString(length int) (string, error) {
	out := make([]byte, length)
	limit := big.NewInt(int64(len(clientCharset)))
	for idx := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("core: generate client credential: %w", err)
		}
		out[idx] = clientCharset[n.Int64()]
	}
	return string(out), nil
}
