package config

import (
	"io"
	"time"
)

// Config defines the set of lookups the service performs against its configuration.
//
// Keys use dotted paths (for example "otp.length"). Implementations resolve
// environment overrides before falling back to file values and defaults.
type Config interface {
	io.Closer

	// GetInt retrieves the value for key as an int, or zero when missing or invalid.
	GetInt(key string) int

	// GetBool retrieves the value for key as a bool, or false when missing or invalid.
	GetBool(key string) bool

	// GetString retrieves the value for key as a string.
	GetString(key string) string

	// GetSecond retrieves the value for key interpreted as a number of seconds.
	GetSecond(key string) time.Duration

	// GetArray retrieves the value for key split on commas.
	// Configuration value is stored with format <element1>,<element2>,...
	GetArray(key string) []string

	// IsSet reports whether key has a value from any source, defaults included.
	IsSet(key string) bool
}
