package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rideflow/pkg/config"
	"rideflow/pkg/logger"
	"rideflow/pkg/rideclient"
)

// The admin service is a thin ops console in front of the ride API. It
// holds no state of its own; every request is answered from the ride
// service through the typed client.
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger("admin-service", cfg.LogLevel)

	apiURL := os.Getenv("RIDE_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:3000"
	}
	apiToken := os.Getenv("RIDE_API_TOKEN")
	if apiToken == "" {
		log.Warn("startup", "RIDE_API_TOKEN not set, upstream calls will be unauthenticated")
	}
	client := rideclient.New(apiURL, apiToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/overview", func(w http.ResponseWriter, r *http.Request) {
		stats, err := client.RideStats(r.Context())
		if err != nil {
			log.Error("overview_failed", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})
	mux.HandleFunc("GET /admin/rides/active", func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = "STARTED"
		}
		rides, err := client.ListRides(r.Context(), rideclient.ListFilter{Status: status})
		if err != nil {
			log.Error("active_rides_failed", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rides":       rides,
			"total_count": len(rides),
		})
	})

	addr := os.Getenv("ADMIN_ADDR")
	if addr == "" {
		addr = ":3004"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http_listening", "admin console listening on "+addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http_server_failed", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http_shutdown_failed", err)
	}
	log.Info("service_stopped", "admin console stopped")
}
