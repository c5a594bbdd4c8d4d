package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const codecIssuer = "otpgate/session"

// ErrSecretRequired is returned by NewSignedCodec for an empty secret.
var ErrSecretRequired = errors.New("session: codec secret is required")

type codecClaims struct {
	jwt.RegisteredClaims
	Values map[string]any `json:"vals,omitempty"`
}

// SignedCodec encodes session records as HS512 JWTs. A record changed inside
// the store, or copied from a deployment with another secret, fails to decode
// and the request gets a 503 instead of a forged session.
//
// Values round-trip through JSON, so only strings, bools and numbers keep their
// Go type on the way back. Numbers come back as float64.
type SignedCodec struct {
	key []byte
}

// NewSignedCodec returns a codec keyed by secret.
func NewSignedCodec(secret string) (*SignedCodec, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &SignedCodec{key: []byte(secret)}, nil
}

func (c *SignedCodec) Encode(deadline time.Time, values map[string]any) ([]byte, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, codecClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    codecIssuer,
			ExpiresAt: jwt.NewNumericDate(deadline),
		},
		Values: values,
	}).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("session: sign record: %w", err)
	}
	return []byte(token), nil
}

func (c *SignedCodec) Decode(b []byte) (time.Time, map[string]any, error) {
	var claims codecClaims
	_, err := jwt.ParseWithClaims(string(b), &claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(codecIssuer),
		jwt.WithExpirationRequired(),
		// exp has second precision while the stores expire records on the deadline itself.
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("session: verify record: %w", err)
	}

	values := claims.Values
	if values == nil {
		values = map[string]any{}
	}
	return claims.ExpiresAt.Time, values, nil
}
