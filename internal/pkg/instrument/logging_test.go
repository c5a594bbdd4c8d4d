package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, mask ...string) *bytes.Buffer {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	ins, err := New(context.Background(), &Config{ServiceName: "otpgate", MaskFields: mask, Output: buf})
	require.NoError(t, err)
	require.NoError(t, ins.Shutdown(context.Background()))

	return buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestLogging_MasksConfiguredKeys(t *testing.T) {
	buf := captureLogs(t, "code", " OTP ")

	slog.Info("challenge issued",
		"email", "a@b.co",
		"code", "123456",
		"otp", "654321",
		"payload", map[string]any{"Code": "111111", "nested": map[string]any{"otp": "2"}},
		slog.Group("req", slog.String("code", "9")),
	)

	line := decodeLine(t, buf)
	assert.Equal(t, "a@b.co", line["email"])
	assert.Equal(t, masked, line["code"])
	assert.Equal(t, masked, line["otp"])
	assert.Equal(t, map[string]any{"Code": masked, "nested": map[string]any{"otp": masked}}, line["payload"])
	assert.Equal(t, map[string]any{"code": masked}, line["req"])
	assert.Equal(t, "otpgate", line["service"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Contains(t, line, "ts")
}

func TestLogging_CorrelationID(t *testing.T) {
	buf := captureLogs(t)

	ctx := SetCorrelationID(context.Background(), "cid-1")
	slog.InfoContext(ctx, "hello")

	line := decodeLine(t, buf)
	assert.Equal(t, "cid-1", line["_cID"])
	assert.Contains(t, line["file"], "internal/pkg/instrument/logging_test.go:")
}

func TestLogging_WithAttrsMasked(t *testing.T) {
	buf := captureLogs(t, "secret_key")

	slog.Default().With("secret_key", "x").Info("boot")

	assert.Equal(t, masked, decodeLine(t, buf)["secret_key"])
}

func TestCorrelationID_Empty(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Empty(t, GetCorrelationID(nil)) //nolint:staticcheck // nil context is tolerated
}

func TestNewNoop(t *testing.T) {
	ins := NewNoop()
	_, span := ins.Tracer("t").Start(context.Background(), "op")
	span.End()

	counter, err := ins.Meter("m").Int64Counter("c")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
	assert.NoError(t, ins.Shutdown(context.Background()))
}
