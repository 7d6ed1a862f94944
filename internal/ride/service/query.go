package service

import (
	"context"
	"time"

	"rideflow/internal/ride/domain"
)

// GetRide returns a single ride by id.
func (s *Service) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	return s.load(ctx, rideID)
}

// ListRides returns rides matching the filter, newest first.
func (s *Service) ListRides(ctx context.Context, f domain.Filter) ([]*domain.Ride, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, domain.NewValidationError("unknown status filter %q", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	rides, err := s.repo.List(opCtx, f)
	if err != nil {
		return nil, translateErr(err)
	}
	return rides, nil
}

// AvailableRides returns rides awaiting a driver whose origin lies within
// radiusM meters of the given driver position, nearest first by request
// time (the repository orders oldest first so long-waiting riders surface).
func (s *Service) AvailableRides(ctx context.Context, lat, lng, radiusM float64, limit int) ([]*domain.Ride, error) {
	at, err := domain.NewCoordinate(lat, lng, "")
	if err != nil {
		return nil, err
	}
	if radiusM <= 0 {
		radiusM = 5000
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	open, err := s.repo.FindOpen(opCtx, 500)
	if err != nil {
		return nil, translateErr(err)
	}

	radiusKm := radiusM / 1000
	out := make([]*domain.Ride, 0, limit)
	for _, ride := range open {
		if at.DistanceTo(ride.Origin()) <= radiusKm {
			out = append(out, ride)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// TrackingInfo is the live view of a ride: its lifecycle state plus the
// assigned driver's last reported position, when one is known.
type TrackingInfo struct {
	RideID     string
	Status     domain.Status
	DriverID   *string
	DriverLat  *float64
	DriverLng  *float64
	ObservedAt time.Time
}

// TrackRide reports a ride's current state and the driver's last known
// location from the geo index.
func (s *Service) TrackRide(ctx context.Context, rideID string) (*TrackingInfo, error) {
	ride, err := s.load(ctx, rideID)
	if err != nil {
		return nil, err
	}

	info := &TrackingInfo{
		RideID:     ride.ID(),
		Status:     ride.Status(),
		DriverID:   ride.DriverID(),
		ObservedAt: time.Now(),
	}

	if ride.DriverID() != nil && s.locator != nil {
		opCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		lat, lng, ok, err := s.locator.Locate(opCtx, *ride.DriverID())
		if err != nil {
			return nil, translateErr(err)
		}
		if ok {
			info.DriverLat = &lat
			info.DriverLng = &lng
		}
	}

	return info, nil
}

// Stats returns lifecycle aggregates for the stats endpoint.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats, err := s.repo.Stats(opCtx)
	if err != nil {
		return domain.Stats{}, translateErr(err)
	}
	return stats, nil
}
