package service

import (
	"context"
	"time"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// Negotiate records a price counter-proposal by one of the parties.
func (s *Service) Negotiate(ctx context.Context, rideID string, proposedPrice float64, by domain.Party) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if err := ride.Negotiate(proposedPrice, by); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id":  rideID,
		"proposed": proposedPrice,
		"by":       string(by),
	}).Info("price_proposed", "Price counter-proposal recorded")

	s.publish(ctx, domain.PriceNegotiatedEvent{
		RideID:      ride.ID(),
		RiderID:     ride.RiderID(),
		ActivePrice: ride.ActivePrice(),
		Proposed:    ride.ProposedPrice(),
		By:          by,
		At:          time.Now(),
	})

	return ride, nil
}

// RespondToNegotiation resolves the open proposal: accepting replaces the
// active price, rejecting keeps it. Either way the ride returns to
// REQUESTED.
func (s *Service) RespondToNegotiation(ctx context.Context, rideID string, by domain.Party, accept bool) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	// The proposer cannot answer its own proposal.
	if ride.ProposedBy() == by {
		return nil, domain.ErrForbidden
	}

	if err := ride.RespondToNegotiation(accept); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id":      rideID,
		"accepted":     accept,
		"active_price": ride.ActivePrice(),
	}).Info("negotiation_resolved", "Negotiation response recorded")

	s.publish(ctx, domain.PriceNegotiatedEvent{
		RideID:      ride.ID(),
		RiderID:     ride.RiderID(),
		ActivePrice: ride.ActivePrice(),
		By:          by,
		At:          time.Now(),
	})

	return ride, nil
}
