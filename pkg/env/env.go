package env

import (
	"os"
	"strings"
)

// Get reads a TRIPDASH_* or LOG_* variable outside the envconfig struct, for
// settings needed before config loads. Blank and whitespace-only values count
// as unset.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
