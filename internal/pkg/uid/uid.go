// Package uid generates identifiers: UUIDs for request correlation and opaque
// random tokens for session ids.
package uid

// StringID produces string identifiers.
type StringID interface {
	Generate() string
}
