package otp

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
)

// ErrInvalidLength is returned when a code of fewer than one digit is requested.
var ErrInvalidLength = errors.New("otp: code length must be at least 1")

const digits = "0123456789"

// Generator produces fixed-length one-time codes.
type Generator interface {
	// Generate returns a code of exactly length characters.
	Generate(length int) (string, error)
}

// Numeric draws every digit independently and uniformly from 0-9.
//
// Repeated digits and leading zeros are allowed.
type Numeric struct {
	random io.Reader
}

// NewNumeric returns a Numeric generator backed by crypto/rand.
func NewNumeric() *Numeric {
	return &Numeric{random: rand.Reader}
}

// Generate returns a code made of length random digits.
func (n *Numeric) Generate(length int) (string, error) {
	if length < 1 {
		return "", ErrInvalidLength
	}

	var sb strings.Builder
	sb.Grow(length)

	maxIdx := big.NewInt(int64(len(digits)))
	for range length {
		idx, err := rand.Int(n.random, maxIdx)
		if err != nil {
			return "", err
		}
		sb.WriteByte(digits[idx.Int64()])
	}

	return sb.String(), nil
}
