package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedCodec(t *testing.T) {
	_, err := NewSignedCodec("")
	require.ErrorIs(t, err, ErrSecretRequired)

	codec := newCodec(t)
	deadline := time.Now().Add(time.Hour).Truncate(time.Second)

	b, err := codec.Encode(deadline, map[string]any{"otp_email": "a@b.co", "logged_in": "true"})
	require.NoError(t, err)

	got, values, err := codec.Decode(b)
	require.NoError(t, err)
	assert.True(t, deadline.Equal(got))
	assert.Equal(t, map[string]any{"otp_email": "a@b.co", "logged_in": "true"}, values)

	t.Run("empty values", func(t *testing.T) {
		b, err := codec.Encode(deadline, nil)
		require.NoError(t, err)
		_, values, err := codec.Decode(b)
		require.NoError(t, err)
		assert.Empty(t, values)
		assert.NotNil(t, values)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := append([]byte(nil), b...)
		tampered[len(tampered)-2] ^= 0x01
		_, _, err := codec.Decode(tampered)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		b, err := codec.Encode(time.Now().Add(-time.Minute), map[string]any{"k": "v"})
		require.NoError(t, err)
		_, _, err = codec.Decode(b)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := codec.Decode([]byte("not-a-jwt"))
		assert.Error(t, err)
	})
}
