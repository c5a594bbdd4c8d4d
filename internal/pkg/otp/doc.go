// Package otp generates the one-time codes mailed to users during email login.
//
// Codes are plain digit strings drawn from crypto/rand. Nothing here stores or
// validates a code; that is the job of the login state machine.
package otp
