// Package httptransport builds the HTTP server for the healthstats API.
package httptransport

import (
	"net/http"
	"time"
)

// ServerConfig holds the listener address and timeouts. Export uploads stream
// hundreds of megabytes through the request body, so the read timeout is the
// generous one; writes are bounded by the slowest response, insight
// generation.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer wires the handler and timeouts into an http.Server. Header size is
// capped independently of the upload limit, which is enforced per request body.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.Address,
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
