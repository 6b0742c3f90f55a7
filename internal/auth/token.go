package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Token sizes in bytes before hex encoding
const (
	SessionTokenBytes = 32
	CSRFTokenBytes    = 16
)

// TokenGenerator mints random opaque tokens and their lookup digests
type TokenGenerator struct {
	rand io.Reader
}

// NewTokenGenerator uses r as entropy source, crypto/rand when nil
func NewTokenGenerator(r io.Reader) *TokenGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &TokenGenerator{rand: r}
}

// RandomToken returns n random bytes, hex encoded
func (g *TokenGenerator) RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropySource, err)
	}
	return hex.EncodeToString(b), nil
}

// Digest returns the hex SHA-256 of token. It is a storage key, not a
// password hash.
func (g *TokenGenerator) Digest(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
