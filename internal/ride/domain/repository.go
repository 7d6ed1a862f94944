package domain

import "context"

// Filter narrows List queries. Zero values mean "no constraint".
type Filter struct {
	RiderID  string
	DriverID string
	Status   Status
	Limit    int
}

// Stats are the aggregates served by the stats endpoint.
type Stats struct {
	TotalRides       int64
	ByStatus         map[Status]int64
	CompletedRevenue float64
	AverageRating    float64
}

// RideRepository is the persistence port for rides. The implementation
// lives in the infrastructure layer.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *Ride) error

	// Update persists the full mutable state of an existing ride.
	Update(ctx context.Context, ride *Ride) error

	// FindByID retrieves a ride by its ID; ErrNotFound when absent.
	FindByID(ctx context.Context, rideID string) (*Ride, error)

	// AcceptRide atomically assigns a driver iff the ride is still
	// REQUESTED. Concurrent calls resolve with exactly one winner; losers
	// get ErrConflict (driver already assigned) or InvalidStateError.
	AcceptRide(ctx context.Context, rideID, driverID string) (*Ride, error)

	// AttachRating sets the rating iff none exists yet; ErrConflict on a
	// second attempt.
	AttachRating(ctx context.Context, rideID string, rating int, feedback string) (*Ride, error)

	// List returns rides matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*Ride, error)

	// FindOpen returns rides still awaiting a driver (REQUESTED or
	// NEGOTIATING), oldest first.
	FindOpen(ctx context.Context, limit int) ([]*Ride, error)

	// Stats returns lifecycle aggregates.
	Stats(ctx context.Context) (Stats, error)
}
