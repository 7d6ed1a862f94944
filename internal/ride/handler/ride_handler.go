package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rideflow/internal/ride/domain"
	"rideflow/internal/ride/service"
	"rideflow/pkg/auth"
	"rideflow/pkg/logger"
)

// RideHandler exposes the ride lifecycle over HTTP. Mutating requests go to
// the single /rides endpoint and are disambiguated by the action parameter.
type RideHandler struct {
	svc *service.Service
	log logger.Logger
}

func NewRideHandler(svc *service.Service, log logger.Logger) *RideHandler {
	return &RideHandler{svc: svc, log: log}
}

// Rides handles GET, POST, PUT and PATCH on /rides.
func (h *RideHandler) Rides(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.list(w, r)
		return
	}

	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	cmd, err := parseCommand(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ride, status, err := h.execute(r, claims, cmd)
	if err != nil {
		h.log.WithFields(logger.LogFields{
			"user_id": claims.UserID,
			"error":   err.Error(),
		}).Warn("ride_command_failed", fmt.Sprintf("%T rejected", cmd))
		writeError(w, err)
		return
	}

	writeData(w, status, toRideResponse(ride))
}

// execute runs one parsed command. The switch is exhaustive over the
// command variants; parseCommand never returns anything else.
func (h *RideHandler) execute(r *http.Request, claims *auth.AppClaims, cmd rideCommand) (*domain.Ride, int, error) {
	ctx := r.Context()

	switch c := cmd.(type) {
	case createCommand:
		if claims.Role != auth.RoleRider {
			return nil, 0, domain.ErrForbidden
		}
		ride, err := h.svc.CreateRide(ctx, service.CreateRideCommand{
			RiderID:              claims.UserID,
			OriginLatitude:       c.Body.OriginLatitude,
			OriginLongitude:      c.Body.OriginLongitude,
			OriginAddress:        c.Body.OriginAddress,
			DestinationLatitude:  c.Body.DestinationLatitude,
			DestinationLongitude: c.Body.DestinationLongitude,
			DestinationAddress:   c.Body.DestinationAddress,
			Stops:                toStopInputs(c.Body.Stops),
			QuotedPrice:          c.Body.QuotedPrice,
		})
		return ride, http.StatusCreated, err

	case acceptCommand:
		if claims.Role != auth.RoleDriver {
			return nil, 0, domain.ErrForbidden
		}
		ride, err := h.svc.AcceptRide(ctx, c.RideID, claims.UserID)
		return ride, http.StatusOK, err

	case startCommand:
		if claims.Role != auth.RoleDriver {
			return nil, 0, domain.ErrForbidden
		}
		ride, err := h.svc.StartRide(ctx, c.RideID, claims.UserID)
		return ride, http.StatusOK, err

	case completeCommand:
		if claims.Role != auth.RoleDriver {
			return nil, 0, domain.ErrForbidden
		}
		ride, err := h.svc.CompleteRide(ctx, c.RideID, claims.UserID)
		return ride, http.StatusOK, err

	case cancelCommand:
		party, err := partyFromRole(claims.Role)
		if err != nil {
			return nil, 0, err
		}
		ride, err := h.svc.CancelRide(ctx, c.RideID, party, c.Reason)
		return ride, http.StatusOK, err

	case updateCommand:
		if claims.Role != auth.RoleRider {
			return nil, 0, domain.ErrForbidden
		}
		ride, err := h.svc.UpdateRide(ctx, service.UpdateRideCommand{
			RideID:               c.RideID,
			RiderID:              claims.UserID,
			DestinationLatitude:  c.Body.DestinationLatitude,
			DestinationLongitude: c.Body.DestinationLongitude,
			DestinationAddress:   c.Body.DestinationAddress,
			Stops:                toStopInputs(c.Body.Stops),
		})
		return ride, http.StatusOK, err

	case rateCommand:
		if claims.Role != auth.RoleRider {
			return nil, 0, domain.ErrForbidden
		}
		ride, err := h.svc.RateRide(ctx, c.RideID, claims.UserID, c.Rating, c.Feedback)
		return ride, http.StatusOK, err

	case negotiateCommand:
		party, err := partyFromRole(claims.Role)
		if err != nil {
			return nil, 0, err
		}
		ride, err := h.svc.Negotiate(ctx, c.RideID, c.ProposedPrice, party)
		return ride, http.StatusOK, err

	case respondNegotiationCommand:
		party, err := partyFromRole(claims.Role)
		if err != nil {
			return nil, 0, err
		}
		ride, err := h.svc.RespondToNegotiation(ctx, c.RideID, party, c.Accept)
		return ride, http.StatusOK, err

	case updatePaymentCommand:
		ride, err := h.svc.UpdatePaymentStatus(ctx, c.RideID, c.Status)
		return ride, http.StatusOK, err

	default:
		return nil, 0, domain.NewValidationError("unsupported command %T", cmd)
	}
}

// list handles GET /rides, returning a single ride when rideId is given and
// a filtered list otherwise.
func (h *RideHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if rideID := q.Get("rideId"); rideID != "" {
		ride, err := h.svc.GetRide(r.Context(), rideID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, toRideResponse(ride))
		return
	}

	filter := domain.Filter{
		RiderID:  q.Get("riderId"),
		DriverID: q.Get("driverId"),
		Status:   domain.Status(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		writeError(w, domain.NewValidationError("unknown status %q", string(filter.Status)))
		return
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, domain.NewValidationError("invalid limit %q", limit))
			return
		}
		filter.Limit = n
	}

	rides, err := h.svc.ListRides(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toRideResponses(rides))
}

// Available handles GET /rides/available, the driver-facing feed of open
// rides near a location.
func (h *RideHandler) Available(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok || claims.Role != auth.RoleDriver {
		writeError(w, domain.ErrForbidden)
		return
	}

	q := r.URL.Query()
	lat, err := parseFloatParam(q.Get("lat"), "lat")
	if err != nil {
		writeError(w, err)
		return
	}
	lng, err := parseFloatParam(q.Get("lng"), "lng")
	if err != nil {
		writeError(w, err)
		return
	}

	var radiusM float64
	if v := q.Get("radius"); v != "" {
		if radiusM, err = parseFloatParam(v, "radius"); err != nil {
			writeError(w, err)
			return
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, domain.NewValidationError("invalid limit %q", v))
			return
		}
		limit = n
	}

	rides, err := h.svc.AvailableRides(r.Context(), lat, lng, radiusM, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toRideResponses(rides))
}

// Tracking handles GET /rides/tracking?rideId=ID.
func (h *RideHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	rideID := r.URL.Query().Get("rideId")
	if rideID == "" {
		writeError(w, domain.NewValidationError("rideId is required"))
		return
	}

	info, err := h.svc.TrackRide(r.Context(), rideID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, trackingResponse{
		RideID:     info.RideID,
		Status:     string(info.Status),
		DriverID:   info.DriverID,
		DriverLat:  info.DriverLat,
		DriverLng:  info.DriverLng,
		ObservedAt: info.ObservedAt,
	})
}

// Stats handles GET /rides/stats.
func (h *RideHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	writeData(w, http.StatusOK, statsResponse{
		TotalRides:       stats.TotalRides,
		ByStatus:         byStatus,
		CompletedRevenue: stats.CompletedRevenue,
		AverageRating:    stats.AverageRating,
	})
}

func partyFromRole(role auth.Role) (domain.Party, error) {
	switch role {
	case auth.RoleRider:
		return domain.PartyRider, nil
	case auth.RoleDriver:
		return domain.PartyDriver, nil
	default:
		return "", domain.ErrForbidden
	}
}

func parseFloatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, domain.NewValidationError("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.NewValidationError("invalid %s %q", name, raw)
	}
	return v, nil
}

// Wire DTOs.

type coordinateResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type rideResponse struct {
	ID            string               `json:"id"`
	RiderID       string               `json:"rider_id"`
	DriverID      *string              `json:"driver_id"`
	Origin        coordinateResponse   `json:"origin"`
	Destination   coordinateResponse   `json:"destination"`
	Stops         []coordinateResponse `json:"stops,omitempty"`
	QuotedPrice   float64              `json:"quoted_price"`
	ActivePrice   float64              `json:"active_price"`
	ProposedPrice *float64             `json:"proposed_price,omitempty"`
	ProposedBy    string               `json:"proposed_by,omitempty"`
	PaymentStatus string               `json:"payment_status"`
	Status        string               `json:"status"`
	Rating        *int                 `json:"rating,omitempty"`
	Feedback      string               `json:"feedback,omitempty"`
	CancelledBy   string               `json:"cancelled_by,omitempty"`
	CancelReason  string               `json:"cancel_reason,omitempty"`
	RequestedAt   time.Time            `json:"requested_at"`
	AcceptedAt    *time.Time           `json:"accepted_at,omitempty"`
	StartedAt     *time.Time           `json:"started_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
}

type trackingResponse struct {
	RideID     string    `json:"ride_id"`
	Status     string    `json:"status"`
	DriverID   *string   `json:"driver_id"`
	DriverLat  *float64  `json:"driver_latitude,omitempty"`
	DriverLng  *float64  `json:"driver_longitude,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

type statsResponse struct {
	TotalRides       int64            `json:"total_rides"`
	ByStatus         map[string]int64 `json:"by_status"`
	CompletedRevenue float64          `json:"completed_revenue"`
	AverageRating    float64          `json:"average_rating"`
}

func toCoordinateResponse(c domain.Coordinate) coordinateResponse {
	return coordinateResponse{Latitude: c.Latitude(), Longitude: c.Longitude(), Address: c.Address()}
}

func toRideResponse(ride *domain.Ride) rideResponse {
	stops := make([]coordinateResponse, 0, len(ride.Stops()))
	for _, s := range ride.Stops() {
		stops = append(stops, toCoordinateResponse(s))
	}
	return rideResponse{
		ID:            ride.ID(),
		RiderID:       ride.RiderID(),
		DriverID:      ride.DriverID(),
		Origin:        toCoordinateResponse(ride.Origin()),
		Destination:   toCoordinateResponse(ride.Destination()),
		Stops:         stops,
		QuotedPrice:   ride.QuotedPrice(),
		ActivePrice:   ride.ActivePrice(),
		ProposedPrice: ride.ProposedPrice(),
		ProposedBy:    string(ride.ProposedBy()),
		PaymentStatus: string(ride.PaymentState()),
		Status:        string(ride.Status()),
		Rating:        ride.Rating(),
		Feedback:      ride.Feedback(),
		CancelledBy:   string(ride.CancelledBy()),
		CancelReason:  ride.CancelReason(),
		RequestedAt:   ride.RequestedAt(),
		AcceptedAt:    ride.AcceptedAt(),
		StartedAt:     ride.StartedAt(),
		CompletedAt:   ride.CompletedAt(),
		CancelledAt:   ride.CancelledAt(),
	}
}

func toRideResponses(rides []*domain.Ride) []rideResponse {
	out := make([]rideResponse, 0, len(rides))
	for _, ride := range rides {
		out = append(out, toRideResponse(ride))
	}
	return out
}
