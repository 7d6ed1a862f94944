package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/logger"
)

// fakeRepo is an in-memory RideRepository with the same conditional-write
// contract as the Postgres implementation.
type fakeRepo struct {
	mu    sync.Mutex
	rides map[string]domain.Snapshot
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rides: make(map[string]domain.Snapshot)}
}

func (f *fakeRepo) Create(_ context.Context, ride *domain.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rides[ride.ID()] = ride.Snapshot()
	return nil
}

func (f *fakeRepo) Update(_ context.Context, ride *domain.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rides[ride.ID()]; !ok {
		return domain.ErrNotFound
	}
	f.rides[ride.ID()] = ride.Snapshot()
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, rideID string) (*domain.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rides[rideID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return domain.FromSnapshot(s), nil
}

func (f *fakeRepo) AcceptRide(_ context.Context, rideID, driverID string) (*domain.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rides[rideID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.Status != domain.StatusRequested {
		if s.DriverID != nil {
			return nil, domain.ErrConflict
		}
		return nil, &domain.InvalidStateError{Op: "accept", Status: s.Status}
	}
	ride := domain.FromSnapshot(s)
	if err := ride.Accept(driverID); err != nil {
		return nil, err
	}
	f.rides[rideID] = ride.Snapshot()
	return ride, nil
}

func (f *fakeRepo) AttachRating(_ context.Context, rideID string, rating int, feedback string) (*domain.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rides[rideID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.Rating != nil {
		return nil, domain.ErrConflict
	}
	if s.Status != domain.StatusCompleted {
		return nil, &domain.InvalidStateError{Op: "rate", Status: s.Status}
	}
	ride := domain.FromSnapshot(s)
	if err := ride.Rate(rating, feedback); err != nil {
		return nil, err
	}
	f.rides[rideID] = ride.Snapshot()
	return ride, nil
}

func (f *fakeRepo) List(_ context.Context, filter domain.Filter) ([]*domain.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Ride
	for _, s := range f.rides {
		if filter.RiderID != "" && s.RiderID != filter.RiderID {
			continue
		}
		if filter.DriverID != "" && (s.DriverID == nil || *s.DriverID != filter.DriverID) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, domain.FromSnapshot(s))
	}
	return out, nil
}

func (f *fakeRepo) FindOpen(_ context.Context, limit int) ([]*domain.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Ride
	for _, s := range f.rides {
		if s.Status != domain.StatusRequested && s.Status != domain.StatusNegotiating {
			continue
		}
		out = append(out, domain.FromSnapshot(s))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) Stats(_ context.Context) (domain.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := domain.Stats{ByStatus: make(map[domain.Status]int64)}
	var ratingSum, ratingCount int64
	for _, s := range f.rides {
		stats.TotalRides++
		stats.ByStatus[s.Status]++
		if s.Status == domain.StatusCompleted {
			stats.CompletedRevenue += s.ActivePrice
			if s.Rating != nil {
				ratingSum += int64(*s.Rating)
				ratingCount++
			}
		}
	}
	if ratingCount > 0 {
		stats.AverageRating = float64(ratingSum) / float64(ratingCount)
	}
	return stats, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (f *fakeEvents) Publish(_ context.Context, event domain.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakePayments struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakePayments) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePayments) Hold(_ context.Context, rideID string, _ float64) error {
	f.record("hold:" + rideID)
	return nil
}

func (f *fakePayments) Capture(_ context.Context, rideID string) error {
	f.record("capture:" + rideID)
	return nil
}

func (f *fakePayments) Release(_ context.Context, rideID string) error {
	f.record("release:" + rideID)
	return nil
}

type fakeLocator struct {
	lat, lng float64
	ok       bool
}

func (f *fakeLocator) Locate(_ context.Context, _ string) (float64, float64, bool, error) {
	return f.lat, f.lng, f.ok, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeEvents, *fakePayments) {
	t.Helper()
	repo := newFakeRepo()
	events := &fakeEvents{}
	pay := &fakePayments{}
	svc := New(repo, events, pay, &fakeLocator{}, logger.Nop())
	return svc, repo, events, pay
}

func createTestRide(t *testing.T, svc *Service, riderID string) *domain.Ride {
	t.Helper()
	ride, err := svc.CreateRide(context.Background(), CreateRideCommand{
		RiderID:              riderID,
		OriginLatitude:       51.5074,
		OriginLongitude:      -0.1278,
		DestinationLatitude:  51.5155,
		DestinationLongitude: -0.0922,
		QuotedPrice:          20,
	})
	if err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return ride
}

func TestCreateRideQuotesFareWhenUnpriced(t *testing.T) {
	svc, _, events, _ := newTestService(t)

	ride, err := svc.CreateRide(context.Background(), CreateRideCommand{
		RiderID:              "rider-1",
		OriginLatitude:       51.5074,
		OriginLongitude:      -0.1278,
		DestinationLatitude:  51.5155,
		DestinationLongitude: -0.0922,
	})
	if err != nil {
		t.Fatalf("create ride: %v", err)
	}
	if ride.Status() != domain.StatusRequested {
		t.Fatalf("status = %s, want REQUESTED", ride.Status())
	}
	if ride.QuotedPrice() <= 0 {
		t.Fatalf("expected a positive quoted fare, got %v", ride.QuotedPrice())
	}
	if ride.DriverID() != nil {
		t.Fatal("new ride must not have a driver")
	}
	if got := events.types(); len(got) != 1 || got[0] != "ride.requested" {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateRideRejectsBadOrigin(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.CreateRide(context.Background(), CreateRideCommand{
		RiderID:             "rider-1",
		OriginLatitude:      91,
		OriginLongitude:     0,
		DestinationLatitude: 51.5, DestinationLongitude: -0.1,
	})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ride := createTestRide(t, svc, "rider-1")

	const drivers = 16
	var wg sync.WaitGroup
	winners := make(chan string, drivers)
	conflicts := make(chan error, drivers)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			driverID := string(rune('A' + n))
			accepted, err := svc.AcceptRide(context.Background(), ride.ID(), driverID)
			if err != nil {
				conflicts <- err
				return
			}
			winners <- *accepted.DriverID()
		}(i)
	}
	wg.Wait()
	close(winners)
	close(conflicts)

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	winner := <-winners
	for err := range conflicts {
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("loser got %v, want ErrConflict", err)
		}
	}

	got, err := svc.GetRide(context.Background(), ride.ID())
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if got.Status() != domain.StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", got.Status())
	}
	if got.DriverID() == nil || *got.DriverID() != winner {
		t.Fatalf("driver = %v, want %s", got.DriverID(), winner)
	}
}

func TestRateOnceOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")

	if _, err := svc.AcceptRide(ctx, ride.ID(), "driver-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.StartRide(ctx, ride.ID(), "driver-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.CompleteRide(ctx, ride.ID(), "driver-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rated, err := svc.RateRide(ctx, ride.ID(), "rider-1", 4, "good")
	if err != nil {
		t.Fatalf("first rate: %v", err)
	}
	if rated.Rating() == nil || *rated.Rating() != 4 {
		t.Fatalf("rating = %v, want 4", rated.Rating())
	}

	if _, err := svc.RateRide(ctx, ride.ID(), "rider-1", 5, "again"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second rate: %v, want ErrConflict", err)
	}
}

func TestRateByNonOwnerForbidden(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")
	_, _ = svc.AcceptRide(ctx, ride.ID(), "driver-1")
	_, _ = svc.StartRide(ctx, ride.ID(), "driver-1")
	_, _ = svc.CompleteRide(ctx, ride.ID(), "driver-1")

	if _, err := svc.RateRide(ctx, ride.ID(), "other-rider", 3, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestStartByUnassignedDriverForbidden(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")
	if _, err := svc.AcceptRide(ctx, ride.ID(), "driver-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.StartRide(ctx, ride.ID(), "driver-2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestPaymentPaidOnCancelledRejected(t *testing.T) {
	svc, _, _, pay := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")

	if _, err := svc.CancelRide(ctx, ride.ID(), domain.PartyRider, "changed my mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := svc.UpdatePaymentStatus(ctx, ride.ID(), domain.PaymentPaid)
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	got, _ := svc.GetRide(ctx, ride.ID())
	if got.PaymentState() != domain.PaymentUnpaid {
		t.Fatalf("payment status = %s, want UNPAID", got.PaymentState())
	}
	if len(pay.calls) != 0 {
		t.Fatalf("payment provider called: %v", pay.calls)
	}
}

func TestPaymentSideEffects(t *testing.T) {
	svc, _, _, pay := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")

	if _, err := svc.UpdatePaymentStatus(ctx, ride.ID(), domain.PaymentPending); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if _, err := svc.UpdatePaymentStatus(ctx, ride.ID(), domain.PaymentPaid); err != nil {
		t.Fatalf("paid: %v", err)
	}

	want := []string{"hold:" + ride.ID(), "capture:" + ride.ID()}
	if len(pay.calls) != len(want) || pay.calls[0] != want[0] || pay.calls[1] != want[1] {
		t.Fatalf("provider calls = %v, want %v", pay.calls, want)
	}
}

func TestNegotiationResponderMustBeOtherParty(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")

	if _, err := svc.Negotiate(ctx, ride.ID(), 15, domain.PartyRider); err != nil {
		t.Fatalf("negotiate: %v", err)
	}

	if _, err := svc.RespondToNegotiation(ctx, ride.ID(), domain.PartyRider, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("proposer answered own proposal: err = %v, want ErrForbidden", err)
	}

	resolved, err := svc.RespondToNegotiation(ctx, ride.ID(), domain.PartyDriver, true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if resolved.ActivePrice() != 15 {
		t.Fatalf("active price = %v, want 15", resolved.ActivePrice())
	}
	if resolved.Status() != domain.StatusRequested {
		t.Fatalf("status = %s, want REQUESTED", resolved.Status())
	}
}

func TestUpdateRideOwnerOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	ride := createTestRide(t, svc, "rider-1")

	_, err := svc.UpdateRide(ctx, UpdateRideCommand{
		RideID:               ride.ID(),
		RiderID:              "someone-else",
		DestinationLatitude:  51.52,
		DestinationLongitude: -0.10,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAvailableRidesFiltersByRadius(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	near := createTestRide(t, svc, "rider-1")
	_, err := svc.CreateRide(ctx, CreateRideCommand{
		RiderID:              "rider-2",
		OriginLatitude:       48.8566,
		OriginLongitude:      2.3522,
		DestinationLatitude:  48.8606,
		DestinationLongitude: 2.3376,
		QuotedPrice:          30,
	})
	if err != nil {
		t.Fatalf("create far ride: %v", err)
	}

	open, err := svc.AvailableRides(ctx, 51.5074, -0.1278, 5000, 0)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(open) != 1 || open[0].ID() != near.ID() {
		t.Fatalf("expected only the nearby ride, got %d rides", len(open))
	}
}

func TestTrackRideUsesLocator(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeEvents{}, &fakePayments{}, &fakeLocator{lat: 51.51, lng: -0.12, ok: true}, logger.Nop())
	ctx := context.Background()

	ride := createTestRide(t, svc, "rider-1")
	if _, err := svc.AcceptRide(ctx, ride.ID(), "driver-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	info, err := svc.TrackRide(ctx, ride.ID())
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if info.DriverID == nil || *info.DriverID != "driver-1" {
		t.Fatalf("driver = %v", info.DriverID)
	}
	if info.DriverLat == nil || *info.DriverLat != 51.51 {
		t.Fatalf("driver lat = %v, want 51.51", info.DriverLat)
	}
}

func TestStatsAggregates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	ride := createTestRide(t, svc, "rider-1")
	_, _ = svc.AcceptRide(ctx, ride.ID(), "driver-1")
	_, _ = svc.StartRide(ctx, ride.ID(), "driver-1")
	_, _ = svc.CompleteRide(ctx, ride.ID(), "driver-1")
	_, _ = svc.RateRide(ctx, ride.ID(), "rider-1", 5, "")

	createTestRide(t, svc, "rider-2")

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRides != 2 {
		t.Fatalf("total = %d, want 2", stats.TotalRides)
	}
	if stats.ByStatus[domain.StatusCompleted] != 1 || stats.ByStatus[domain.StatusRequested] != 1 {
		t.Fatalf("by status = %v", stats.ByStatus)
	}
	if stats.CompletedRevenue != 20 {
		t.Fatalf("revenue = %v, want 20", stats.CompletedRevenue)
	}
	if stats.AverageRating != 5 {
		t.Fatalf("avg rating = %v, want 5", stats.AverageRating)
	}
}
