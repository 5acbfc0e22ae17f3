// Package env reads the few process-environment knobs that live outside
// the envconfig tree, such as the log output format.
package env

import (
	"os"
	"strings"
)

// Get returns the named variable's value, falling back when the variable
// is unset or blank. Surrounding whitespace is stripped.
func Get(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
