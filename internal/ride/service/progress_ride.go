package service

import (
	"context"

	"rideflow/internal/observability"
	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// StartRide moves an accepted ride to STARTED. Only the assigned driver
// may start it.
func (s *Service) StartRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if err := ride.Start(driverID); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{"ride_id": rideID}).Info("ride_started", "Trip started")

	s.publish(ctx, domain.RideStartedEvent{
		RideID:    ride.ID(),
		RiderID:   ride.RiderID(),
		DriverID:  driverID,
		StartedAt: *ride.StartedAt(),
	})

	return ride, nil
}

// CompleteRide finishes a started ride and finalizes the fare at the
// active price.
func (s *Service) CompleteRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if err := ride.Complete(driverID); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id":     rideID,
		"final_price": ride.ActivePrice(),
	}).Info("ride_completed", "Trip completed")
	observability.RidesCompleted.Inc()

	s.publish(ctx, domain.RideCompletedEvent{
		RideID:      ride.ID(),
		RiderID:     ride.RiderID(),
		DriverID:    driverID,
		FinalPrice:  ride.ActivePrice(),
		CompletedAt: *ride.CompletedAt(),
	})

	return ride, nil
}

// CancelRide cancels a ride that has not started yet.
func (s *Service) CancelRide(ctx context.Context, rideID string, by domain.Party, reason string) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if err := ride.Cancel(by, reason); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id": rideID,
		"by":      string(by),
		"reason":  reason,
	}).Info("ride_cancelled", "Ride cancelled")
	observability.RidesCancelled.Inc()

	s.publish(ctx, domain.RideCancelledEvent{
		RideID:      ride.ID(),
		RiderID:     ride.RiderID(),
		DriverID:    ride.DriverID(),
		By:          by,
		Reason:      reason,
		CancelledAt: *ride.CancelledAt(),
	})

	return ride, nil
}
