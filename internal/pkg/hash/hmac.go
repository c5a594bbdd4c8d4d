package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
)

// ErrEmptySecret is returned when an HMAC is built without a key.
var ErrEmptySecret = errors.New("hash: hmac secret must not be empty")

// HMAC implements Hash with a keyed digest, hex encoded.
type HMAC struct {
	secret []byte
	newFn  func() hash.Hash
}

// NewHMACSHA256 creates an HMAC-SHA256 hasher keyed with secret.
func NewHMACSHA256(secret string) (*HMAC, error) {
	return NewHMAC(secret, sha256.New)
}

// NewHMAC creates a hasher keyed with secret over the digest built by newFn.
func NewHMAC(secret string, newFn func() hash.Hash) (*HMAC, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &HMAC{secret: []byte(secret), newFn: newFn}, nil
}

// Hash returns the hex-encoded digest of str.
func (s *HMAC) Hash(str string) ([]byte, error) {
	mac := hmac.New(s.newFn, s.secret)
	if _, err := mac.Write([]byte(str)); err != nil {
		return nil, err
	}

	sum := mac.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out, nil
}

// Verify reports whether str digests exactly to hashed.
func (s *HMAC) Verify(hashed, str string) bool {
	expected, err := s.Hash(str)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashed), expected) == 1
}
