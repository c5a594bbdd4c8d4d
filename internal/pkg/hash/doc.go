// Package hash provides keyed digests for short-lived secrets.
//
// One-time codes are never kept in plain form: callers store the digest and
// verify later input against it.
package hash
