package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether an operational kill switch is on. Flags are read
// from env as FLAG_<NAME>=true/1/yes (case-insensitive); the server checks
// them once at startup (disable_webhooks, disable_sweep).
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
