package service

import (
	"context"
	"errors"
	"time"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

const defaultOpTimeout = 5 * time.Second

// EventPublisher is the port for publishing domain events to the message
// bus. Publishing is best-effort: failures are logged, never surfaced to
// the caller, because the ride state is already persisted.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// PaymentProvider is the port to the external payment processor. Calls
// are side effects of payment-status transitions and are best-effort.
type PaymentProvider interface {
	// Hold places a hold on the active fare.
	Hold(ctx context.Context, rideID string, amount float64) error
	// Capture finalizes a previously held payment.
	Capture(ctx context.Context, rideID string) error
	// Release cancels a hold without capturing.
	Release(ctx context.Context, rideID string) error
}

// DriverLocator resolves a driver's last reported position.
type DriverLocator interface {
	Locate(ctx context.Context, driverID string) (lat, lng float64, ok bool, err error)
}

// Service implements every ride lifecycle operation on top of the
// repository, the event bus, and the external providers.
type Service struct {
	repo      domain.RideRepository
	events    EventPublisher
	payments  PaymentProvider
	locator   DriverLocator
	quoter    *domain.FareQuoter
	log       logger.Logger
	opTimeout time.Duration
}

func New(repo domain.RideRepository, events EventPublisher, payments PaymentProvider, locator DriverLocator, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		events:    events,
		payments:  payments,
		locator:   locator,
		quoter:    domain.NewFareQuoter(),
		log:       log,
		opTimeout: defaultOpTimeout,
	}
}

// withTimeout bounds a repository or provider call. Deadline overruns are
// surfaced to callers as domain.ErrTimeout.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}

// publish sends a domain event without letting bus trouble fail the request.
func (s *Service) publish(ctx context.Context, event domain.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WithFields(logger.LogFields{
			"event_type": event.EventType(),
		}).Error("publish_event_failed", err)
	}
}

// load fetches a ride, translating timeouts.
func (s *Service) load(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, domain.NewValidationError("ride id is required")
	}
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	ride, err := s.repo.FindByID(opCtx, rideID)
	if err != nil {
		return nil, translateErr(err)
	}
	return ride, nil
}
