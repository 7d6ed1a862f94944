package handler

import (
	"context"
	"net/http"
	"sync"

	"rideflow/internal/geo"
	"rideflow/internal/observability"
	"rideflow/internal/ride/domain"
	"rideflow/pkg/auth"
	"rideflow/pkg/logger"
)

// LocationPublisher streams accepted position updates to the ingest pipeline.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, pos geo.DriverPosition) error
}

// DriverHandler accepts driver position reports, indexes them for proximity
// lookups, and forwards them to the ingest stream.
type DriverHandler struct {
	tracker  geo.Tracker
	producer LocationPublisher
	log      logger.Logger

	mu     sync.Mutex
	online map[string]bool
}

func NewDriverHandler(tracker geo.Tracker, producer LocationPublisher, log logger.Logger) *DriverHandler {
	return &DriverHandler{
		tracker:  tracker,
		producer: producer,
		log:      log,
		online:   make(map[string]bool),
	}
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Online    bool    `json:"online"`
}

// UpdateLocation handles POST /drivers/location.
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok || claims.Role != auth.RoleDriver {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req locationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeError(w, domain.NewValidationError("coordinates out of range"))
		return
	}

	pos := geo.DriverPosition{
		DriverID:  claims.UserID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Online:    req.Online,
	}
	if err := h.tracker.Update(r.Context(), pos); err != nil {
		h.log.Error("driver_location_index_failed", err)
		writeError(w, err)
		return
	}
	h.trackPresence(claims.UserID, req.Online)

	// The stream is best-effort; an ingest outage must not block drivers.
	if h.producer != nil {
		if err := h.producer.PublishLocation(r.Context(), pos); err != nil {
			h.log.WithFields(logger.LogFields{
				"driver_id": claims.UserID,
			}).Error("driver_location_publish_failed", err)
		}
	}

	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DriverHandler) trackPresence(driverID string, online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	was := h.online[driverID]
	if online && !was {
		observability.DriversOnline.Inc()
	}
	if !online && was {
		observability.DriversOnline.Dec()
	}
	h.online[driverID] = online
}
