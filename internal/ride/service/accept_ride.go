package service

import (
	"context"
	"errors"

	"rideflow/internal/observability"
	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// AcceptRide assigns a driver through the repository's atomic conditional
// update. Concurrent acceptance attempts resolve first-committer-wins;
// every loser receives ErrConflict.
func (s *Service) AcceptRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" || driverID == "" {
		return nil, domain.NewValidationError("ride id and driver id are required")
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	ride, err := s.repo.AcceptRide(opCtx, rideID, driverID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.AcceptConflicts.Inc()
		}
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id":   ride.ID(),
		"driver_id": driverID,
	}).Info("ride_accepted", "Driver assigned to ride")
	observability.RidesAccepted.Inc()

	s.publish(ctx, domain.RideAcceptedEvent{
		RideID:     ride.ID(),
		RiderID:    ride.RiderID(),
		DriverID:   driverID,
		AcceptedAt: *ride.AcceptedAt(),
	})

	return ride, nil
}
