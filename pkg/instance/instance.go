package instance

import "os"

// GetID identifies this process in logs: INSTANCE_ID when set, else the
// host name.
func GetID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "api-0"
}
