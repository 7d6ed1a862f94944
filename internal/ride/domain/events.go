package domain

import "time"

// DomainEvent is the interface for all ride lifecycle events. EventType
// doubles as the message bus routing key.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// RideRequestedEvent is raised when a rider creates a ride.
type RideRequestedEvent struct {
	RideID      string
	RiderID     string
	Origin      Coordinate
	Destination Coordinate
	QuotedPrice float64
	RequestedAt time.Time
}

func (e RideRequestedEvent) EventType() string     { return "ride.requested" }
func (e RideRequestedEvent) OccurredAt() time.Time { return e.RequestedAt }

// RideAcceptedEvent is raised when a driver wins the acceptance race.
type RideAcceptedEvent struct {
	RideID     string
	RiderID    string
	DriverID   string
	AcceptedAt time.Time
}

func (e RideAcceptedEvent) EventType() string     { return "ride.accepted" }
func (e RideAcceptedEvent) OccurredAt() time.Time { return e.AcceptedAt }

// RideStartedEvent is raised when the assigned driver starts the trip.
type RideStartedEvent struct {
	RideID    string
	RiderID   string
	DriverID  string
	StartedAt time.Time
}

func (e RideStartedEvent) EventType() string     { return "ride.started" }
func (e RideStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// RideCompletedEvent is raised when the trip finishes and the fare is final.
type RideCompletedEvent struct {
	RideID      string
	RiderID     string
	DriverID    string
	FinalPrice  float64
	CompletedAt time.Time
}

func (e RideCompletedEvent) EventType() string     { return "ride.completed" }
func (e RideCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// RideCancelledEvent is raised when either party cancels the ride.
type RideCancelledEvent struct {
	RideID      string
	RiderID     string
	DriverID    *string
	By          Party
	Reason      string
	CancelledAt time.Time
}

func (e RideCancelledEvent) EventType() string     { return "ride.cancelled" }
func (e RideCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// PriceNegotiatedEvent is raised on a counter-proposal or its resolution.
type PriceNegotiatedEvent struct {
	RideID      string
	RiderID     string
	ActivePrice float64
	Proposed    *float64
	By          Party
	At          time.Time
}

func (e PriceNegotiatedEvent) EventType() string     { return "ride.negotiated" }
func (e PriceNegotiatedEvent) OccurredAt() time.Time { return e.At }

// RideRatedEvent is raised once per ride, after completion.
type RideRatedEvent struct {
	RideID  string
	RiderID string
	Rating  int
	At      time.Time
}

func (e RideRatedEvent) EventType() string     { return "ride.rated" }
func (e RideRatedEvent) OccurredAt() time.Time { return e.At }

// PaymentStatusChangedEvent is raised when billing state moves.
type PaymentStatusChangedEvent struct {
	RideID  string
	RiderID string
	Status  PaymentStatus
	At      time.Time
}

func (e PaymentStatusChangedEvent) EventType() string     { return "payment.status" }
func (e PaymentStatusChangedEvent) OccurredAt() time.Time { return e.At }
