package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/rabbitmq"
)

// Envelope is the wire form of a domain event on the message bus. RiderID
// is lifted out of the payload so consumers can route without knowing
// every event shape.
type Envelope struct {
	Type       string          `json:"type"`
	RideID     string          `json:"ride_id"`
	RiderID    string          `json:"rider_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// RabbitPublisher publishes ride lifecycle events to the topic exchange,
// using the event type as the routing key.
type RabbitPublisher struct {
	conn *rabbitmq.Connection
}

func NewRabbitPublisher(conn *rabbitmq.Connection) *RabbitPublisher {
	return &RabbitPublisher{conn: conn}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	rideID, riderID := addressOf(event)
	body, err := json.Marshal(Envelope{
		Type:       event.EventType(),
		RideID:     rideID,
		RiderID:    riderID,
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return p.conn.Publish(ctx, rabbitmq.ExchangeRides, event.EventType(), body)
}

func addressOf(event domain.DomainEvent) (rideID, riderID string) {
	switch e := event.(type) {
	case domain.RideRequestedEvent:
		return e.RideID, e.RiderID
	case domain.RideAcceptedEvent:
		return e.RideID, e.RiderID
	case domain.RideStartedEvent:
		return e.RideID, e.RiderID
	case domain.RideCompletedEvent:
		return e.RideID, e.RiderID
	case domain.RideCancelledEvent:
		return e.RideID, e.RiderID
	case domain.PriceNegotiatedEvent:
		return e.RideID, e.RiderID
	case domain.RideRatedEvent:
		return e.RideID, e.RiderID
	case domain.PaymentStatusChangedEvent:
		return e.RideID, e.RiderID
	default:
		return "", ""
	}
}
