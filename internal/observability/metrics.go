package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreated    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideflow", Name: "rides_created_total", Help: "Rides created"})
	RidesAccepted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideflow", Name: "rides_accepted_total", Help: "Rides accepted by a driver"})
	RidesCompleted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideflow", Name: "rides_completed_total", Help: "Rides completed"})
	RidesCancelled  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideflow", Name: "rides_cancelled_total", Help: "Rides cancelled"})
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rideflow", Name: "accept_conflicts_total", Help: "Accept attempts that lost the race"})
	DriversOnline   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "rideflow", Name: "drivers_online", Help: "Drivers with a recent location report"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideflow", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rideflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
