package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Pinger reports backing store connectivity (satisfied by *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthHandler returns the readiness endpoint. With a nil pinger it
// always reports serving.
func NewHealthHandler(pinger Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := healthResponse{Status: "SERVING"}
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				log.Printf("health: db ping failed: %v", err)
				status = http.StatusServiceUnavailable
				body.Status = "NOT_SERVING"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}
