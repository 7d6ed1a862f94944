package rideclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Ride is the wire representation served by the ride API.
type Ride struct {
	ID            string       `json:"id"`
	RiderID       string       `json:"rider_id"`
	DriverID      *string      `json:"driver_id"`
	Origin        Coordinate   `json:"origin"`
	Destination   Coordinate   `json:"destination"`
	Stops         []Coordinate `json:"stops,omitempty"`
	QuotedPrice   float64      `json:"quoted_price"`
	ActivePrice   float64      `json:"active_price"`
	ProposedPrice *float64     `json:"proposed_price,omitempty"`
	ProposedBy    string       `json:"proposed_by,omitempty"`
	PaymentStatus string       `json:"payment_status"`
	Status        string       `json:"status"`
	Rating        *int         `json:"rating,omitempty"`
	Feedback      string       `json:"feedback,omitempty"`
	CancelledBy   string       `json:"cancelled_by,omitempty"`
	CancelReason  string       `json:"cancel_reason,omitempty"`
	RequestedAt   time.Time    `json:"requested_at"`
	AcceptedAt    *time.Time   `json:"accepted_at,omitempty"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	CancelledAt   *time.Time   `json:"cancelled_at,omitempty"`
}

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Tracking is the live position view of one ride.
type Tracking struct {
	RideID     string    `json:"ride_id"`
	Status     string    `json:"status"`
	DriverID   *string   `json:"driver_id"`
	DriverLat  *float64  `json:"driver_latitude,omitempty"`
	DriverLng  *float64  `json:"driver_longitude,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Stats is the aggregate ride report.
type Stats struct {
	TotalRides       int64            `json:"total_rides"`
	ByStatus         map[string]int64 `json:"by_status"`
	CompletedRevenue float64          `json:"completed_revenue"`
	AverageRating    float64          `json:"average_rating"`
}

// APIError is a non-2xx response from the ride API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ride api: %s (status %d)", e.Message, e.StatusCode)
}

// Client is a thin typed client for the ride API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the given base URL, authenticating every
// request with the bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateRideInput is the payload for creating a ride. A zero QuotedPrice
// asks the server to quote the fare.
type CreateRideInput struct {
	OriginLatitude       float64      `json:"origin_latitude"`
	OriginLongitude      float64      `json:"origin_longitude"`
	OriginAddress        string       `json:"origin_address,omitempty"`
	DestinationLatitude  float64      `json:"destination_latitude"`
	DestinationLongitude float64      `json:"destination_longitude"`
	DestinationAddress   string       `json:"destination_address,omitempty"`
	Stops                []Coordinate `json:"stops,omitempty"`
	QuotedPrice          float64      `json:"quoted_price,omitempty"`
}

// UpdateRideInput replaces the destination and stops of an open ride.
type UpdateRideInput struct {
	DestinationLatitude  float64      `json:"destination_latitude"`
	DestinationLongitude float64      `json:"destination_longitude"`
	DestinationAddress   string       `json:"destination_address,omitempty"`
	Stops                []Coordinate `json:"stops,omitempty"`
}

// ListFilter narrows List results. Zero values are omitted.
type ListFilter struct {
	RiderID  string
	DriverID string
	Status   string
	Limit    int
}

func (c *Client) CreateRide(ctx context.Context, in CreateRideInput) (*Ride, error) {
	return c.rideRequest(ctx, http.MethodPost, "create", "", in)
}

func (c *Client) AcceptRide(ctx context.Context, rideID string) (*Ride, error) {
	return c.rideRequest(ctx, http.MethodPost, "accept", rideID, nil)
}

func (c *Client) StartRide(ctx context.Context, rideID string) (*Ride, error) {
	return c.rideRequest(ctx, http.MethodPost, "start", rideID, nil)
}

func (c *Client) CompleteRide(ctx context.Context, rideID string) (*Ride, error) {
	return c.rideRequest(ctx, http.MethodPost, "complete", rideID, nil)
}

func (c *Client) CancelRide(ctx context.Context, rideID, reason string) (*Ride, error) {
	return c.rideRequest(ctx, http.MethodPost, "cancel", rideID, map[string]string{"reason": reason})
}

func (c *Client) UpdateRide(ctx context.Context, rideID string, in UpdateRideInput) (*Ride, error) {
	return c.rideRequest(ctx, http.MethodPut, "", rideID, in)
}

func (c *Client) RateRide(ctx context.Context, rideID string, rating int, feedback string) (*Ride, error) {
	body := map[string]interface{}{"rating": rating, "feedback": feedback}
	return c.rideRequest(ctx, http.MethodPatch, "rate", rideID, body)
}

func (c *Client) Negotiate(ctx context.Context, rideID string, proposedPrice float64) (*Ride, error) {
	body := map[string]float64{"proposed_price": proposedPrice}
	return c.rideRequest(ctx, http.MethodPatch, "negotiate", rideID, body)
}

func (c *Client) RespondNegotiation(ctx context.Context, rideID string, accept bool) (*Ride, error) {
	body := map[string]bool{"accept": accept}
	return c.rideRequest(ctx, http.MethodPatch, "respond-negotiation", rideID, body)
}

func (c *Client) UpdatePayment(ctx context.Context, rideID, paymentStatus string) (*Ride, error) {
	body := map[string]string{"payment_status": paymentStatus}
	return c.rideRequest(ctx, http.MethodPatch, "update-payment", rideID, body)
}

func (c *Client) GetRide(ctx context.Context, rideID string) (*Ride, error) {
	q := url.Values{"rideId": {rideID}}
	var out Ride
	if err := c.do(ctx, http.MethodGet, "/rides", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRides(ctx context.Context, f ListFilter) ([]Ride, error) {
	q := url.Values{}
	if f.RiderID != "" {
		q.Set("riderId", f.RiderID)
	}
	if f.DriverID != "" {
		q.Set("driverId", f.DriverID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var out []Ride
	if err := c.do(ctx, http.MethodGet, "/rides", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AvailableRides(ctx context.Context, lat, lng, radiusM float64, limit int) ([]Ride, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
	if radiusM > 0 {
		q.Set("radius", strconv.FormatFloat(radiusM, 'f', -1, 64))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []Ride
	if err := c.do(ctx, http.MethodGet, "/rides/available", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TrackRide(ctx context.Context, rideID string) (*Tracking, error) {
	q := url.Values{"rideId": {rideID}}
	var out Tracking
	if err := c.do(ctx, http.MethodGet, "/rides/tracking", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RideStats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/rides/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) rideRequest(ctx context.Context, method, action, rideID string, body interface{}) (*Ride, error) {
	q := url.Values{}
	if action != "" {
		q.Set("action", action)
	}
	if rideID != "" {
		q.Set("rideId", rideID)
	}
	var out Ride
	if err := c.do(ctx, method, "/rides", q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type dataEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env dataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "unreadable response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
