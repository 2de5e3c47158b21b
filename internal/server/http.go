// Package server assembles the HTTP router, middleware, and health endpoint.
package server

import (
	"net/http"
	"time"

	authhandler "member-auth-service/internal/auth/handler"
	"member-auth-service/internal/event"
)

// Deps holds optional dependencies for the HTTP router.
type Deps struct {
	// Auth serves the auth routes. If nil, only the health endpoint is mounted.
	Auth *authhandler.Handler
	// HealthPinger is used for readiness (e.g. *sql.DB). If nil, the health
	// endpoint skips the DB ping.
	HealthPinger Pinger
	// Events receives an http_request event per handled request. May be nil.
	Events event.Emitter
}

// NewRouter builds the service mux with telemetry middleware applied.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", NewHealthHandler(deps.HealthPinger))
	if deps.Auth != nil {
		deps.Auth.Register(mux)
	}
	skip := map[string]bool{"/healthz": true}
	return Telemetry(deps.Events, skip)(ClientIPMiddleware(mux))
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
