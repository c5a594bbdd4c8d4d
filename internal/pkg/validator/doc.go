// Package validator provides a small validation abstraction for request and
// domain values.
//
// Business code depends on the Validator interface; V10 implements it on top of
// go-playground/validator with English messages keyed by JSON field name.
package validator
