package shared

import (
	"net/http"
	"time"
)

// defaultTransport is a shared transport with pooled connections, reused by
// every provider client
var defaultTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// NewHTTPClient creates a new HTTP client with the shared transport and specified timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport,
	}
}
