package api

import (
	"net/http"

	"nodedeck/internal/handlers"
	"nodedeck/internal/ipc"
	"nodedeck/internal/middleware"
	"nodedeck/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type Router struct {
	*mux.Router
}

// NewRouter registers every channel of svc on a fresh registry and exposes
// it over HTTP.
func NewRouter(svc *service.ProjectService, logger zerolog.Logger) (*Router, error) {
	reg := ipc.NewRegistry()
	if err := handlers.RegisterChannels(reg, svc); err != nil {
		return nil, err
	}
	return NewRouterWithRegistry(reg, svc.PM2Ready, logger), nil
}

func NewRouterWithRegistry(reg *ipc.Registry, pm2Ready func() error, logger zerolog.Logger) *Router {
	r := mux.NewRouter()
	ipcHandler := handlers.NewIPCHandler(reg, logger)

	// Health check endpoints
	r.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/ready", handlers.ReadyCheck(pm2Ready)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ipc", ipcHandler.ListChannels).Methods(http.MethodGet)
	api.HandleFunc("/ipc/{channel}", ipcHandler.Invoke).Methods(http.MethodPost)

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))

	return &Router{Router: r}
}
