package domain

import (
	"time"
)

// Status is the lifecycle state of a ride.
type Status string

const (
	StatusRequested   Status = "REQUESTED"
	StatusNegotiating Status = "NEGOTIATING"
	StatusAccepted    Status = "ACCEPTED"
	StatusStarted     Status = "STARTED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusNegotiating, StatusAccepted,
		StatusStarted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus tracks billing state independently of the ride lifecycle.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Party identifies which side of the ride performed an action.
type Party string

const (
	PartyRider  Party = "RIDER"
	PartyDriver Party = "DRIVER"
)

func (p Party) IsValid() bool {
	return p == PartyRider || p == PartyDriver
}

// Other returns the opposite party.
func (p Party) Other() Party {
	if p == PartyRider {
		return PartyDriver
	}
	return PartyRider
}

// Rating bounds for post-completion feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// Ride is the core domain entity, tracked from request to completion or
// cancellation. It is never physically deleted.
type Ride struct {
	id          string
	riderID     string
	driverID    *string
	origin      Coordinate
	destination Coordinate
	stops       []Coordinate

	quotedPrice   float64  // original quote, retained for audit
	activePrice   float64  // price in effect for billing
	proposedPrice *float64 // open negotiation proposal, nil when none
	proposedBy    Party
	paymentStatus PaymentStatus

	status Status

	rating   *int
	feedback string

	cancelledBy  Party
	cancelReason string

	requestedAt time.Time
	acceptedAt  *time.Time
	startedAt   *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
}

// NewRide creates a ride in the REQUESTED state. The quoted price becomes
// the initial active price.
func NewRide(id, riderID string, origin, destination Coordinate, stops []Coordinate, quotedPrice float64) (*Ride, error) {
	if riderID == "" {
		return nil, NewValidationError("rider id is required")
	}
	if quotedPrice <= 0 {
		return nil, NewValidationError("quoted price must be positive, got %v", quotedPrice)
	}

	return &Ride{
		id:            id,
		riderID:       riderID,
		origin:        origin,
		destination:   destination,
		stops:         stops,
		quotedPrice:   quotedPrice,
		activePrice:   quotedPrice,
		paymentStatus: PaymentUnpaid,
		status:        StatusRequested,
		requestedAt:   time.Now(),
	}, nil
}

// Business methods. Each one is guarded by the transition allow-list; any
// operation invoked from a state not enumerated there fails with
// InvalidStateError naming the state and the operation.

// Negotiate records a price counter-proposal and moves the ride to
// NEGOTIATING. Allowed from REQUESTED and NEGOTIATING.
func (r *Ride) Negotiate(proposedPrice float64, by Party) error {
	if r.status != StatusRequested && r.status != StatusNegotiating {
		return &InvalidStateError{Op: "negotiate", Status: r.status}
	}
	if proposedPrice <= 0 {
		return NewValidationError("proposed price must be positive, got %v", proposedPrice)
	}
	if !by.IsValid() {
		return NewValidationError("unknown negotiating party %q", by)
	}

	r.status = StatusNegotiating
	r.proposedPrice = &proposedPrice
	r.proposedBy = by
	return nil
}

// RespondToNegotiation resolves the open proposal. Accepting replaces the
// active price; rejecting keeps it. Either way the ride returns to
// REQUESTED and the proposal slate is cleared.
func (r *Ride) RespondToNegotiation(accept bool) error {
	if r.status != StatusNegotiating {
		return &InvalidStateError{Op: "respond-negotiation", Status: r.status}
	}

	if accept && r.proposedPrice != nil {
		r.activePrice = *r.proposedPrice
	}
	r.proposedPrice = nil
	r.proposedBy = ""
	r.status = StatusRequested
	return nil
}

// Accept assigns a driver and moves the ride to ACCEPTED. Allowed only
// from REQUESTED. The repository enforces the same guard atomically so
// that concurrent acceptances resolve with exactly one winner.
func (r *Ride) Accept(driverID string) error {
	if driverID == "" {
		return NewValidationError("driver id is required")
	}
	if r.status != StatusRequested {
		if r.driverID != nil {
			return ErrConflict
		}
		return &InvalidStateError{Op: "accept", Status: r.status}
	}

	r.driverID = &driverID
	r.status = StatusAccepted
	now := time.Now()
	r.acceptedAt = &now
	return nil
}

// Start moves the ride to STARTED. Only the assigned driver may start it.
func (r *Ride) Start(driverID string) error {
	if r.status != StatusAccepted {
		return &InvalidStateError{Op: "start", Status: r.status}
	}
	if r.driverID == nil || *r.driverID != driverID {
		return ErrForbidden
	}

	r.status = StatusStarted
	now := time.Now()
	r.startedAt = &now
	return nil
}

// Complete finalizes the fare and moves the ride to COMPLETED.
func (r *Ride) Complete(driverID string) error {
	if r.status != StatusStarted {
		return &InvalidStateError{Op: "complete", Status: r.status}
	}
	if r.driverID == nil || *r.driverID != driverID {
		return ErrForbidden
	}

	r.status = StatusCompleted
	now := time.Now()
	r.completedAt = &now
	return nil
}

// Cancel moves the ride to CANCELLED. Allowed from REQUESTED, NEGOTIATING,
// and ACCEPTED; a started or completed ride cannot be cancelled.
func (r *Ride) Cancel(by Party, reason string) error {
	switch r.status {
	case StatusRequested, StatusNegotiating, StatusAccepted:
	default:
		return &InvalidStateError{Op: "cancel", Status: r.status}
	}
	if !by.IsValid() {
		return NewValidationError("unknown cancelling party %q", by)
	}

	r.status = StatusCancelled
	r.cancelledBy = by
	r.cancelReason = reason
	r.proposedPrice = nil
	r.proposedBy = ""
	now := time.Now()
	r.cancelledAt = &now
	return nil
}

// UpdateDetails changes the destination and stops of a ride that has no
// driver yet. Once a driver is assigned the itinerary is frozen.
func (r *Ride) UpdateDetails(destination Coordinate, stops []Coordinate) error {
	if r.status != StatusRequested && r.status != StatusNegotiating {
		return &InvalidStateError{Op: "update", Status: r.status}
	}

	r.destination = destination
	r.stops = stops
	return nil
}

// Rate attaches a post-completion rating exactly once.
func (r *Ride) Rate(rating int, feedback string) error {
	if r.status != StatusCompleted {
		return &InvalidStateError{Op: "rate", Status: r.status}
	}
	if r.rating != nil {
		return ErrConflict
	}
	if rating < MinRating || rating > MaxRating {
		return NewValidationError("rating must be between %d and %d, got %d", MinRating, MaxRating, rating)
	}

	r.rating = &rating
	r.feedback = feedback
	return nil
}

// SetPaymentStatus records billing state. Payment moves independently of
// the lifecycle except that a cancelled ride must never become PAID.
func (r *Ride) SetPaymentStatus(status PaymentStatus) error {
	if !status.IsValid() {
		return NewValidationError("unknown payment status %q", status)
	}
	if status == PaymentPaid && r.status == StatusCancelled {
		return NewValidationError("cancelled ride cannot be marked paid")
	}

	r.paymentStatus = status
	return nil
}

// Query methods.

func (r *Ride) HasDriver() bool { return r.driverID != nil }

func (r *Ride) IsActive() bool { return !r.status.IsTerminal() }

// Getters.

func (r *Ride) ID() string               { return r.id }
func (r *Ride) RiderID() string          { return r.riderID }
func (r *Ride) DriverID() *string        { return r.driverID }
func (r *Ride) Origin() Coordinate       { return r.origin }
func (r *Ride) Destination() Coordinate  { return r.destination }
func (r *Ride) Stops() []Coordinate      { return r.stops }
func (r *Ride) QuotedPrice() float64     { return r.quotedPrice }
func (r *Ride) ActivePrice() float64     { return r.activePrice }
func (r *Ride) ProposedPrice() *float64  { return r.proposedPrice }
func (r *Ride) ProposedBy() Party        { return r.proposedBy }
func (r *Ride) PaymentState() PaymentStatus { return r.paymentStatus }
func (r *Ride) Status() Status           { return r.status }
func (r *Ride) Rating() *int             { return r.rating }
func (r *Ride) Feedback() string         { return r.feedback }
func (r *Ride) CancelledBy() Party       { return r.cancelledBy }
func (r *Ride) CancelReason() string     { return r.cancelReason }
func (r *Ride) RequestedAt() time.Time   { return r.requestedAt }
func (r *Ride) AcceptedAt() *time.Time   { return r.acceptedAt }
func (r *Ride) StartedAt() *time.Time    { return r.startedAt }
func (r *Ride) CompletedAt() *time.Time  { return r.completedAt }
func (r *Ride) CancelledAt() *time.Time  { return r.cancelledAt }

// Snapshot is the persistence representation of a ride. The repository
// round-trips through it so the entity's fields stay unexported.
type Snapshot struct {
	ID            string
	RiderID       string
	DriverID      *string
	Origin        Coordinate
	Destination   Coordinate
	Stops         []Coordinate
	QuotedPrice   float64
	ActivePrice   float64
	ProposedPrice *float64
	ProposedBy    Party
	PaymentStatus PaymentStatus
	Status        Status
	Rating        *int
	Feedback      string
	CancelledBy   Party
	CancelReason  string
	RequestedAt   time.Time
	AcceptedAt    *time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

func (r *Ride) Snapshot() Snapshot {
	return Snapshot{
		ID:            r.id,
		RiderID:       r.riderID,
		DriverID:      r.driverID,
		Origin:        r.origin,
		Destination:   r.destination,
		Stops:         r.stops,
		QuotedPrice:   r.quotedPrice,
		ActivePrice:   r.activePrice,
		ProposedPrice: r.proposedPrice,
		ProposedBy:    r.proposedBy,
		PaymentStatus: r.paymentStatus,
		Status:        r.status,
		Rating:        r.rating,
		Feedback:      r.feedback,
		CancelledBy:   r.cancelledBy,
		CancelReason:  r.cancelReason,
		RequestedAt:   r.requestedAt,
		AcceptedAt:    r.acceptedAt,
		StartedAt:     r.startedAt,
		CompletedAt:   r.completedAt,
		CancelledAt:   r.cancelledAt,
	}
}

// FromSnapshot reconstructs a ride from persistence.
func FromSnapshot(s Snapshot) *Ride {
	return &Ride{
		id:            s.ID,
		riderID:       s.RiderID,
		driverID:      s.DriverID,
		origin:        s.Origin,
		destination:   s.Destination,
		stops:         s.Stops,
		quotedPrice:   s.QuotedPrice,
		activePrice:   s.ActivePrice,
		proposedPrice: s.ProposedPrice,
		proposedBy:    s.ProposedBy,
		paymentStatus: s.PaymentStatus,
		status:        s.Status,
		rating:        s.Rating,
		feedback:      s.Feedback,
		cancelledBy:   s.CancelledBy,
		cancelReason:  s.CancelReason,
		requestedAt:   s.RequestedAt,
		acceptedAt:    s.AcceptedAt,
		startedAt:     s.StartedAt,
		completedAt:   s.CompletedAt,
		cancelledAt:   s.CancelledAt,
	}
}
