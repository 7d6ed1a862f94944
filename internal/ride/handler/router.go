package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rideflow/pkg/auth"
	"rideflow/pkg/logger"
)

// NewRouter assembles the HTTP surface. Everything under /rides and
// /drivers requires a bearer token; registration, login, health, and
// metrics do not.
func NewRouter(
	rides *RideHandler,
	drivers *DriverHandler,
	users *UserHandler,
	jwt *auth.JWTManager,
	log logger.Logger,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(Recover(log))
	r.Use(RequestID)
	r.Use(Observe(log))

	r.HandleFunc("/health", users.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/users", users.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/token", users.Login).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(jwt.Middleware)

	protected.HandleFunc("/rides/available", rides.Available).Methods(http.MethodGet)
	protected.HandleFunc("/rides/tracking", rides.Tracking).Methods(http.MethodGet)
	protected.HandleFunc("/rides/stats", rides.Stats).Methods(http.MethodGet)
	protected.HandleFunc("/rides", rides.Rides).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch)
	protected.HandleFunc("/drivers/location", drivers.UpdateLocation).Methods(http.MethodPost)
	protected.HandleFunc("/users", users.List).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}", users.Get).Methods(http.MethodGet)

	return r
}
