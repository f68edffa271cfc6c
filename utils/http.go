// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns the client used for backend calls. A zero timeout
// falls back to 10 seconds.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
	}
}
