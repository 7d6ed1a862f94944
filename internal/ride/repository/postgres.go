package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideflow/internal/ride/domain"
)

// PostgresRideRepository implements domain.RideRepository on pgx.
type PostgresRideRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRideRepository(db *pgxpool.Pool) *PostgresRideRepository {
	return &PostgresRideRepository{db: db}
}

const rideColumns = `
	id, rider_id, driver_id,
	origin_lat, origin_lng, COALESCE(origin_address, ''),
	dest_lat, dest_lng, COALESCE(dest_address, ''),
	stops,
	quoted_price, active_price, proposed_price, COALESCE(proposed_by, ''),
	payment_status, status,
	rating, COALESCE(feedback, ''),
	COALESCE(cancelled_by, ''), COALESCE(cancel_reason, ''),
	requested_at, accepted_at, started_at, completed_at, cancelled_at`

// stopJSON is the jsonb shape of one intermediate stop.
type stopJSON struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Create persists a new ride.
func (r *PostgresRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	s := ride.Snapshot()
	stops, err := stopsToJSON(s.Stops)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO rides (
			id, rider_id, driver_id,
			origin_lat, origin_lng, origin_address,
			dest_lat, dest_lng, dest_address,
			stops,
			quoted_price, active_price, proposed_price, proposed_by,
			payment_status, status,
			rating, feedback,
			cancelled_by, cancel_reason,
			requested_at, accepted_at, started_at, completed_at, cancelled_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, NOW()
		)`,
		s.ID, s.RiderID, s.DriverID,
		s.Origin.Latitude(), s.Origin.Longitude(), s.Origin.Address(),
		s.Destination.Latitude(), s.Destination.Longitude(), s.Destination.Address(),
		stops,
		s.QuotedPrice, s.ActivePrice, s.ProposedPrice, string(s.ProposedBy),
		string(s.PaymentStatus), string(s.Status),
		s.Rating, s.Feedback,
		string(s.CancelledBy), s.CancelReason,
		s.RequestedAt, s.AcceptedAt, s.StartedAt, s.CompletedAt, s.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

// Update persists the full mutable state of an existing ride.
func (r *PostgresRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	s := ride.Snapshot()
	stops, err := stopsToJSON(s.Stops)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE rides SET
			driver_id = $2,
			dest_lat = $3, dest_lng = $4, dest_address = $5,
			stops = $6,
			active_price = $7, proposed_price = $8, proposed_by = $9,
			payment_status = $10, status = $11,
			rating = $12, feedback = $13,
			cancelled_by = $14, cancel_reason = $15,
			accepted_at = $16, started_at = $17, completed_at = $18, cancelled_at = $19,
			updated_at = NOW()
		WHERE id = $1`,
		s.ID,
		s.DriverID,
		s.Destination.Latitude(), s.Destination.Longitude(), s.Destination.Address(),
		stops,
		s.ActivePrice, s.ProposedPrice, string(s.ProposedBy),
		string(s.PaymentStatus), string(s.Status),
		s.Rating, s.Feedback,
		string(s.CancelledBy), s.CancelReason,
		s.AcceptedAt, s.StartedAt, s.CompletedAt, s.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByID retrieves a ride by its ID.
func (r *PostgresRideRepository) FindByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	row := r.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, rideID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query ride: %w", err)
	}
	return ride, nil
}

// AcceptRide performs the first-committer-wins driver assignment: a single
// conditional UPDATE keyed on status = REQUESTED. A losing writer sees no
// rows affected and is told why.
func (r *PostgresRideRepository) AcceptRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE rides
		SET driver_id = $2, status = $3, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		rideID, driverID, string(domain.StatusAccepted), string(domain.StatusRequested),
	)
	if err != nil {
		return nil, fmt.Errorf("accept ride: %w", err)
	}

	if tag.RowsAffected() == 0 {
		ride, err := r.FindByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if ride.HasDriver() {
			return nil, domain.ErrConflict
		}
		return nil, &domain.InvalidStateError{Op: "accept", Status: ride.Status()}
	}

	return r.FindByID(ctx, rideID)
}

// AttachRating sets the rating iff none exists yet.
func (r *PostgresRideRepository) AttachRating(ctx context.Context, rideID string, rating int, feedback string) (*domain.Ride, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE rides
		SET rating = $2, feedback = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4 AND rating IS NULL`,
		rideID, rating, feedback, string(domain.StatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("attach rating: %w", err)
	}

	if tag.RowsAffected() == 0 {
		ride, err := r.FindByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if ride.Rating() != nil {
			return nil, domain.ErrConflict
		}
		return nil, &domain.InvalidStateError{Op: "rate", Status: ride.Status()}
	}

	return r.FindByID(ctx, rideID)
}

// List returns rides matching the filter, newest first.
func (r *PostgresRideRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE 1=1`
	args := []interface{}{}
	n := 0

	if f.RiderID != "" {
		n++
		query += fmt.Sprintf(" AND rider_id = $%d", n)
		args = append(args, f.RiderID)
	}
	if f.DriverID != "" {
		n++
		query += fmt.Sprintf(" AND driver_id = $%d", n)
		args = append(args, f.DriverID)
	}
	if f.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(f.Status))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	n++
	query += fmt.Sprintf(" ORDER BY requested_at DESC LIMIT $%d", n)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	return scanRides(rows)
}

// FindOpen returns rides awaiting a driver, oldest first.
func (r *PostgresRideRepository) FindOpen(ctx context.Context, limit int) ([]*domain.Ride, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE status IN ($1, $2)
		ORDER BY requested_at ASC
		LIMIT $3`,
		string(domain.StatusRequested), string(domain.StatusNegotiating), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find open rides: %w", err)
	}
	defer rows.Close()

	return scanRides(rows)
}

// Stats returns lifecycle aggregates.
func (r *PostgresRideRepository) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{ByStatus: make(map[domain.Status]int64)}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM rides GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("stats by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[domain.Status(status)] = count
		stats.TotalRides += count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(active_price), 0)::float8, COALESCE(AVG(rating), 0)::float8
		FROM rides WHERE status = $1`,
		string(domain.StatusCompleted),
	).Scan(&stats.CompletedRevenue, &stats.AverageRating)
	if err != nil {
		return stats, fmt.Errorf("stats aggregates: %w", err)
	}

	return stats, nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		s          domain.Snapshot
		originLat  float64
		originLng  float64
		originAddr string
		destLat    float64
		destLng    float64
		destAddr   string
		stopsRaw   []byte
		proposedBy string
		payment    string
		status     string
		cancelBy   string
		requested  time.Time
	)

	err := row.Scan(
		&s.ID, &s.RiderID, &s.DriverID,
		&originLat, &originLng, &originAddr,
		&destLat, &destLng, &destAddr,
		&stopsRaw,
		&s.QuotedPrice, &s.ActivePrice, &s.ProposedPrice, &proposedBy,
		&payment, &status,
		&s.Rating, &s.Feedback,
		&cancelBy, &s.CancelReason,
		&requested, &s.AcceptedAt, &s.StartedAt, &s.CompletedAt, &s.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	// Stored coordinates were validated on the way in.
	s.Origin, _ = domain.NewCoordinate(originLat, originLng, originAddr)
	s.Destination, _ = domain.NewCoordinate(destLat, destLng, destAddr)
	s.Stops, err = stopsFromJSON(stopsRaw)
	if err != nil {
		return nil, err
	}
	s.ProposedBy = domain.Party(proposedBy)
	s.PaymentStatus = domain.PaymentStatus(payment)
	s.Status = domain.Status(status)
	s.CancelledBy = domain.Party(cancelBy)
	s.RequestedAt = requested

	return domain.FromSnapshot(s), nil
}

func scanRides(rows pgx.Rows) ([]*domain.Ride, error) {
	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rides, nil
}

func stopsToJSON(stops []domain.Coordinate) ([]byte, error) {
	out := make([]stopJSON, 0, len(stops))
	for _, st := range stops {
		out = append(out, stopJSON{Lat: st.Latitude(), Lng: st.Longitude(), Address: st.Address()})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal stops: %w", err)
	}
	return b, nil
}

func stopsFromJSON(raw []byte) ([]domain.Coordinate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var in []stopJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("unmarshal stops: %w", err)
	}
	if len(in) == 0 {
		return nil, nil
	}
	stops := make([]domain.Coordinate, 0, len(in))
	for _, st := range in {
		c, _ := domain.NewCoordinate(st.Lat, st.Lng, st.Address)
		stops = append(stops, c)
	}
	return stops, nil
}
