package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// ValidationError maps field names to human readable messages.
type ValidationError map[string]string

// Error implements the error interface.
func (vs ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs ValidationError) Values() map[string]string {
	return vs
}

// V10 implements Validator using go-playground/validator v10.
type V10 struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewV10 constructs a V10 with English translations and custom rules.
func NewV10() (*V10, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerCustom(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10{validate: validate, translator: enTrans}, nil
}

// Validate validates a struct and returns a ValidationError on failure.
func (v *V10) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

// ValidateVar validates a single value. Messages are prefixed with name.
func (v *V10) ValidateVar(name string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fe := fieldErrs[0]
	return ValidationError{name: strings.TrimSpace(name + " " + strings.TrimSpace(fe.Translate(v.translator)))}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

// isOTPCode reports whether the field is exactly param ASCII digits.
// Full-width and other unicode digits are rejected.
func isOTPCode(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	n, err := strconv.Atoi(fl.Param())
	if err != nil || len(s) != n {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func registerCustom(validate *validator.Validate, enTrans ut.Translator) error {
	if err := validate.RegisterValidation("otpcode", isOTPCode); err != nil {
		return err
	}

	return validate.RegisterTranslation("otpcode", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("otpcode", "{0} must be exactly {1} digits", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field(), fe.Param())
			if err != nil {
				slog.Warn("warning: error translating", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return t
		},
	)
}
