package stacktrace

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/otpgate/internal/otp/usecase.(*Usecase).VerifyChallenge(...)
	/src/app/internal/otp/usecase/verify.go:42 +0x1d
main.main()
	/src/app/main.go:12 +0x25
`)

	assert.Equal(t, []string{"internal/otp/usecase/verify.go:42"}, InternalPaths(stack))
}

func TestInternalPaths_Live(t *testing.T) {
	paths := InternalPaths(debug.Stack())
	if assert.NotEmpty(t, paths) {
		assert.Contains(t, paths[0], "internal/pkg/stacktrace/stacktrace_test.go:")
	}
}

func TestInternalPaths_Empty(t *testing.T) {
	assert.Empty(t, InternalPaths(nil))
}
