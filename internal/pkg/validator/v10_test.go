package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

func TestV10_Validate(t *testing.T) {
	v, err := NewV10()
	require.NoError(t, err)

	require.NoError(t, v.Validate(emailInput{Email: "user@example.com"}))

	err = v.Validate(emailInput{Email: "not-an-email"})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email must be a valid email address", verr.Values()["email"])

	err = v.Validate(emailInput{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email is a required field", verr["email"])
	assert.Contains(t, verr.Error(), "required")
}

func TestV10_ValidateVar_OTPCode(t *testing.T) {
	v, err := NewV10()
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "exact digits", input: "004217", ok: true},
		{name: "too short", input: "12345"},
		{name: "too long", input: "1234567"},
		{name: "empty", input: ""},
		{name: "letters", input: "12a456"},
		{name: "signed", input: "+12345"},
		{name: "padded", input: " 12345"},
		{name: "full width", input: "１２３４５６"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateVar("otp", tt.input, "otpcode=6")
			if tt.ok {
				assert.NoError(t, err)
				return
			}

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "otp must be exactly 6 digits", verr["otp"])
		})
	}
}

func TestValidationError_EmptyMessage(t *testing.T) {
	assert.Equal(t, "validation error", ValidationError{}.Error())
}
