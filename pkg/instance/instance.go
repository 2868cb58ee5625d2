package instance

import "os"

// GetID returns the replica identifier used in log fields and lock ownership.
func GetID() string {
	if id := os.Getenv("ZB_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
