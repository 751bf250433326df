package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	PM2       string `json:"pm2,omitempty"`
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// ReadyCheck reports ready only when PM2 commands can be issued.
func ReadyCheck(pm2Ready func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pm2Ready(); err != nil {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", PM2: err.Error()})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: "ready", PM2: "connected"})
	}
}

func writeHealth(w http.ResponseWriter, status int, resp HealthResponse) {
	resp.Timestamp = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
