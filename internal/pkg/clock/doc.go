// Package clock provides a tiny time abstraction.
//
// Code that checks expirations depends on Clocker instead of calling time.Now()
// directly, so tests can use a Frozen clock and step over an expiry window
// without sleeping.
package clock
