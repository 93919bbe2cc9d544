package httpx

import (
	"net/http"
	"time"
)

// HealthStatus is the payload served by per-service health endpoints.
type HealthStatus struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health returns a liveness handler for the named service.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, HealthStatus{
			Service:   service,
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	}
}
