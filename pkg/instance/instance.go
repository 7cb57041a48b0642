package instance

import (
	"os"

	"github.com/angelmondragon/artvault-backend/pkg/env"
)

// GetID returns the worker instance identifier used for lock ownership and
// log correlation. It prefers ARTVAULT_WORKER_ID, then the host name.
func GetID() string {
	if id := env.Get("ARTVAULT_WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
