package validator

// Validator checks structs by their `validate` tags and single values by an
// explicit tag.
type Validator interface {
	// Validate returns a ValidationError describing every failing field.
	Validate(data any) error
	// ValidateVar validates value against tag and reports failures under name.
	ValidateVar(name string, value any, tag string) error
}
