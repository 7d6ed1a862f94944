package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rideflow/internal/observability"
	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// StopInput is one intermediate stop in a create or update request.
type StopInput struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// CreateRideCommand is the input for creating a ride.
type CreateRideCommand struct {
	RiderID              string
	OriginLatitude       float64
	OriginLongitude      float64
	OriginAddress        string
	DestinationLatitude  float64
	DestinationLongitude float64
	DestinationAddress   string
	Stops                []StopInput
	QuotedPrice          float64 // 0 means "quote for me"
}

// CreateRide validates the itinerary, quotes a fare when the rider did not
// supply one, and persists the new ride in the REQUESTED state.
func (s *Service) CreateRide(ctx context.Context, cmd CreateRideCommand) (*domain.Ride, error) {
	origin, err := domain.NewCoordinate(cmd.OriginLatitude, cmd.OriginLongitude, cmd.OriginAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}
	destination, err := domain.NewCoordinate(cmd.DestinationLatitude, cmd.DestinationLongitude, cmd.DestinationAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}
	stops, err := buildStops(cmd.Stops)
	if err != nil {
		return nil, err
	}

	price := cmd.QuotedPrice
	if price == 0 {
		price = s.quoter.Quote(origin, destination, stops)
	}

	ride, err := domain.NewRide(uuid.NewString(), cmd.RiderID, origin, destination, stops, price)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(opCtx, ride); err != nil {
		s.log.Error("save_ride_failed", err)
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id":  ride.ID(),
		"rider_id": ride.RiderID(),
		"quoted":   ride.QuotedPrice(),
	}).Info("ride_created", "Ride created")
	observability.RidesCreated.Inc()

	s.publish(ctx, domain.RideRequestedEvent{
		RideID:      ride.ID(),
		RiderID:     ride.RiderID(),
		Origin:      ride.Origin(),
		Destination: ride.Destination(),
		QuotedPrice: ride.QuotedPrice(),
		RequestedAt: ride.RequestedAt(),
	})

	return ride, nil
}

// UpdateRideCommand changes the itinerary of an unassigned ride.
type UpdateRideCommand struct {
	RideID               string
	RiderID              string
	DestinationLatitude  float64
	DestinationLongitude float64
	DestinationAddress   string
	Stops                []StopInput
}

// UpdateRide replaces the destination and stops while the ride is still
// awaiting a driver. Only the owning rider may update.
func (s *Service) UpdateRide(ctx context.Context, cmd UpdateRideCommand) (*domain.Ride, error) {
	ride, err := s.load(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID() != cmd.RiderID {
		return nil, domain.ErrForbidden
	}

	destination, err := domain.NewCoordinate(cmd.DestinationLatitude, cmd.DestinationLongitude, cmd.DestinationAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}
	stops, err := buildStops(cmd.Stops)
	if err != nil {
		return nil, err
	}

	if err := ride.UpdateDetails(destination, stops); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{"ride_id": ride.ID()}).Info("ride_updated", "Ride itinerary updated")
	return ride, nil
}

func buildStops(in []StopInput) ([]domain.Coordinate, error) {
	if len(in) == 0 {
		return nil, nil
	}
	stops := make([]domain.Coordinate, 0, len(in))
	for i, st := range in {
		c, err := domain.NewCoordinate(st.Latitude, st.Longitude, st.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid stop %d: %w", i, err)
		}
		stops = append(stops, c)
	}
	return stops, nil
}
