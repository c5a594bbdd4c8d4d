package uid

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultTokenBytes is the entropy of a token when NewToken gets a non-positive size.
const DefaultTokenBytes = 32

// Token generates unguessable URL-safe tokens from crypto/rand.
type Token struct {
	size int
}

// NewToken returns a generator of size random bytes per token.
func NewToken(size int) *Token {
	if size < 1 {
		size = DefaultTokenBytes
	}
	return &Token{size: size}
}

// Generate returns a raw URL base64 encoded token.
func (t *Token) Generate() string {
	b := make([]byte, t.size)
	_, _ = rand.Read(b) // never fails on supported platforms
	return base64.RawURLEncoding.EncodeToString(b)
}
