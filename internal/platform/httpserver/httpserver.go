package httpserver

import (
	"net/http"
	"time"
)

// New builds the serve command's HTTP server. Preview requests may wait on
// several upstream sources, so the write timeout is generous.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
