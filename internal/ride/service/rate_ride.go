package service

import (
	"context"
	"time"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// RateRide attaches a post-completion rating exactly once. The repository
// enforces once-only atomically so two racing rate calls cannot both win.
func (s *Service) RateRide(ctx context.Context, rideID, riderID string, rating int, feedback string) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID() != riderID {
		return nil, domain.ErrForbidden
	}

	// Entity guard first: state and bounds checks give precise errors
	// before we reach for the conditional write.
	if err := ride.Rate(rating, feedback); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rated, err := s.repo.AttachRating(opCtx, rideID, rating, feedback)
	if err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id": rideID,
		"rating":  rating,
	}).Info("ride_rated", "Rating attached")

	s.publish(ctx, domain.RideRatedEvent{
		RideID:  rideID,
		RiderID: riderID,
		Rating:  rating,
		At:      time.Now(),
	})

	return rated, nil
}
