// Package httpserver constructs the module's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with a bounded header read and idle keep-alives. No
// global write timeout: a directory sync against a slow registry can
// legitimately run long, so the per-route Timeout middleware bounds handlers
// instead.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
