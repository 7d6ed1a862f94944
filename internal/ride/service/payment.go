package service

import (
	"context"
	"time"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// UpdatePaymentStatus records billing state. The write to the ride row is
// authoritative; the call out to the payment processor is a best-effort
// side effect that is logged and never blocks the status change.
func (s *Service) UpdatePaymentStatus(ctx context.Context, rideID string, status domain.PaymentStatus) (*domain.Ride, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if err := ride.SetPaymentStatus(status); err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Update(opCtx, ride); err != nil {
		return nil, translateErr(err)
	}

	s.log.WithFields(logger.LogFields{
		"ride_id": rideID,
		"status":  string(status),
	}).Info("payment_status_updated", "Payment status recorded")

	if s.payments != nil {
		s.applyPaymentSideEffect(ctx, ride, status)
	}

	s.publish(ctx, domain.PaymentStatusChangedEvent{
		RideID:  rideID,
		RiderID: ride.RiderID(),
		Status:  status,
		At:      time.Now(),
	})

	return ride, nil
}

func (s *Service) applyPaymentSideEffect(ctx context.Context, ride *domain.Ride, status domain.PaymentStatus) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	switch status {
	case domain.PaymentPending:
		err = s.payments.Hold(opCtx, ride.ID(), ride.ActivePrice())
	case domain.PaymentPaid:
		err = s.payments.Capture(opCtx, ride.ID())
	case domain.PaymentRefunded, domain.PaymentFailed:
		err = s.payments.Release(opCtx, ride.ID())
	}
	if err != nil {
		s.log.WithFields(logger.LogFields{
			"ride_id": ride.ID(),
			"status":  string(status),
		}).Error("payment_provider_call_failed", err)
	}
}
