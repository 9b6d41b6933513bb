package instance

import "os"

// GetID returns the worker instance identifier recorded on pipeline runs.
func GetID() string {
	if id := os.Getenv("TRIPDASH_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
