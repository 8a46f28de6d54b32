package integrations

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request when the caller sets none.
const DefaultTimeout = 10 * time.Second

// maxErrorBody limits how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// NewHTTPClient creates an HTTP client with the given timeout.
// A non-positive timeout uses DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// BearerHeader returns the Authorization header for token, or nil when the
// token is empty.
func BearerHeader(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
