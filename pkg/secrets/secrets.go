// Package secrets resolves secret values from the environment. A secret can
// be supplied directly (NAME) or through a file path (NAME_FILE), the usual
// shape for container secret mounts.
package secrets

import (
	"os"
	"strings"
)

// Lookup returns the secret value for name. NAME_FILE takes precedence over
// NAME so a mounted secret wins over a stale inline value. Missing secrets
// resolve to the empty string; callers decide whether that is fatal.
func Lookup(name string) string {
	if path := os.Getenv(name + "_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return os.Getenv(name)
}
