package rideclient

import (
	"context"
	"errors"
	"sync"
)

// ErrRequestInFlight is returned when a store action starts while another
// one has not resolved yet.
var ErrRequestInFlight = errors.New("ride request already in flight")

// Store is a client-side projection of ride state. Every action calls the
// API and, on success, replaces the held state with the server's response;
// the server is always the source of truth. At most one action runs at a
// time.
type Store struct {
	client *Client

	mu      sync.Mutex
	active  *Ride
	rides   []Ride
	busy    bool
	lastErr string
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

func (s *Store) Create(ctx context.Context, in CreateRideInput) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.CreateRide(ctx, in))
}

func (s *Store) Accept(ctx context.Context, rideID string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.AcceptRide(ctx, rideID))
}

func (s *Store) Start(ctx context.Context, rideID string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.StartRide(ctx, rideID))
}

func (s *Store) Complete(ctx context.Context, rideID string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.CompleteRide(ctx, rideID))
}

func (s *Store) Cancel(ctx context.Context, rideID, reason string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.CancelRide(ctx, rideID, reason))
}

func (s *Store) Update(ctx context.Context, rideID string, in UpdateRideInput) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.UpdateRide(ctx, rideID, in))
}

func (s *Store) Rate(ctx context.Context, rideID string, rating int, feedback string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.RateRide(ctx, rideID, rating, feedback))
}

func (s *Store) Negotiate(ctx context.Context, rideID string, proposedPrice float64) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.Negotiate(ctx, rideID, proposedPrice))
}

func (s *Store) RespondNegotiation(ctx context.Context, rideID string, accept bool) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.RespondNegotiation(ctx, rideID, accept))
}

func (s *Store) UpdatePayment(ctx context.Context, rideID, paymentStatus string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.UpdatePayment(ctx, rideID, paymentStatus))
}

func (s *Store) Refresh(ctx context.Context, rideID string) (*Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.reflect(s.client.GetRide(ctx, rideID))
}

// List fetches rides matching the filter and replaces the held list.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Ride, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	rides, err := s.client.ListRides(ctx, f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		return nil, err
	}
	s.rides = rides
	return rides, nil
}

// ActiveRide returns the last ride reflected from the server, or nil.
func (s *Store) ActiveRide() *Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	active := *s.active
	return &active
}

// Rides returns the result of the last successful List.
func (s *Store) Rides() []Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ride, len(s.rides))
	copy(out, s.rides)
	return out
}

// Loading reports whether an action is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// LastError returns the message of the most recent failed action, cleared
// when the next action starts.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// begin claims the single in-flight slot and clears the previous error.
// The returned func releases the slot and must run regardless of outcome.
func (s *Store) begin() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrRequestInFlight
	}
	s.busy = true
	s.lastErr = ""
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}, nil
}

// reflect stores a successful response as the active ride, or records the
// error and passes it through.
func (s *Store) reflect(ride *Ride, err error) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		return nil, err
	}
	s.active = ride
	return ride, nil
}
