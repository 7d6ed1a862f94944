package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"rideflow/internal/geo"
	"rideflow/internal/ingest"
	"rideflow/internal/payments"
	"rideflow/internal/ride/consumer"
	"rideflow/internal/ride/handler"
	"rideflow/internal/ride/messaging"
	"rideflow/internal/ride/repository"
	"rideflow/internal/ride/service"
	"rideflow/pkg/auth"
	"rideflow/pkg/config"
	"rideflow/pkg/db"
	"rideflow/pkg/logger"
	"rideflow/pkg/rabbitmq"
	ws "rideflow/pkg/websocket"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.NewLogger("ride-service", cfg.LogLevel)
	log.Info("service_starting", "ride service starting on "+cfg.HTTP.Addr)

	dbConn, err := db.NewConnection(cfg, log)
	if err != nil {
		log.Error("db_connect_failed", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	rabbit, err := rabbitmq.NewConnection(cfg, log)
	if err != nil {
		log.Error("rabbitmq_connect_failed", err)
		os.Exit(1)
	}
	defer rabbit.Close()

	if err := rabbit.SetupTopology(); err != nil {
		log.Error("rabbitmq_topology_failed", err)
		os.Exit(1)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	wsManager := ws.NewManager(log)

	// Driver position index: Redis when configured, in-process otherwise.
	var tracker geo.Tracker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		tracker = geo.NewRedisTracker(client, cfg.Redis.GeoKey)
		log.Info("geo_redis_enabled", "driver positions indexed in redis")
	} else {
		tracker = geo.NewMemoryTracker()
		log.Warn("geo_memory_fallback", "REDIS_ADDR not set, using in-process driver index")
	}

	var paymentProvider service.PaymentProvider = payments.NopProvider{}
	if cfg.Stripe.APIKey != "" {
		paymentProvider = payments.NewStripeProvider(cfg.Stripe.APIKey, cfg.Stripe.Currency)
		log.Info("payments_stripe_enabled", "stripe payment provider active")
	}

	var locationProducer *ingest.LocationProducer
	if len(cfg.Kafka.Brokers) > 0 {
		locationProducer = ingest.NewLocationProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer locationProducer.Close()
		log.Info("ingest_kafka_enabled", "driver location stream active")
	}

	repo := repository.NewPostgresRideRepository(dbConn)
	publisher := messaging.NewRabbitPublisher(rabbit)
	svc := service.New(repo, publisher, paymentProvider, tracker, log)

	rideEvents := consumer.NewRideEventConsumer(rabbit, wsManager, log)
	if err := rideEvents.Start(); err != nil {
		log.Error("consumer_start_failed", err)
		os.Exit(1)
	}

	rides := handler.NewRideHandler(svc, log)
	users := handler.NewUserHandler(dbConn, jwtManager, log)
	var drivers *handler.DriverHandler
	if locationProducer != nil {
		drivers = handler.NewDriverHandler(tracker, locationProducer, log)
	} else {
		drivers = handler.NewDriverHandler(tracker, nil, log)
	}

	router := handler.NewRouter(rides, drivers, users, jwtManager, log)
	registerRiderSocket(router, wsManager, jwtManager, log)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("http_listening", "listening on "+cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http_server_failed", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("service_stopping", "shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http_shutdown_failed", err)
	}
	log.Info("service_stopped", "goodbye")
}

// registerRiderSocket mounts the live ride event socket. The first message
// on the socket must carry the rider's bearer token, and the token's user
// must match the rider_id in the path.
func registerRiderSocket(router *mux.Router, wsManager *ws.Manager, jwtManager *auth.JWTManager, log logger.Logger) {
	router.HandleFunc("/ws/riders/{rider_id}", func(w http.ResponseWriter, r *http.Request) {
		riderID := mux.Vars(r)["rider_id"]
		if riderID == "" {
			http.Error(w, "rider_id is required", http.StatusBadRequest)
			return
		}

		wsHandler := ws.NewHandler(
			log,
			jwtManager,
			func(conn *ws.Connection) {
				if conn.Claims.UserID != riderID {
					log.WithFields(logger.LogFields{
						"url_rider_id": riderID,
						"jwt_user_id":  conn.Claims.UserID,
					}).Warn("websocket_rider_mismatch", "token does not match path rider_id")
					conn.Close()
					return
				}

				wsManager.AddConnection(riderID, conn)
				log.WithFields(logger.LogFields{
					"rider_id": riderID,
				}).Info("websocket_rider_connected", "rider connected")

				conn.ReadPump(
					func(msgType int, p []byte) {
						log.WithFields(logger.LogFields{
							"rider_id": riderID,
						}).Debug("rider_ws_message", string(p))
					},
					func() {
						wsManager.RemoveConnection(riderID)
						log.WithFields(logger.LogFields{
							"rider_id": riderID,
						}).Info("websocket_rider_disconnected", "rider disconnected")
					},
				)
			},
			auth.RoleRider,
		)
		wsHandler.ServeHTTP(w, r)
	}).Methods(http.MethodGet)
}
