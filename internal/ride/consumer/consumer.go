package consumer

import (
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"rideflow/internal/ride/messaging"
	"rideflow/pkg/logger"
	"rideflow/pkg/rabbitmq"
	ws "rideflow/pkg/websocket"
)

// RideEventConsumer drains the ride event queue and pushes each event to the
// affected rider's live WebSocket connection, when one exists.
type RideEventConsumer struct {
	conn    *rabbitmq.Connection
	manager *ws.Manager
	log     logger.Logger
}

func NewRideEventConsumer(conn *rabbitmq.Connection, manager *ws.Manager, log logger.Logger) *RideEventConsumer {
	return &RideEventConsumer{conn: conn, manager: manager, log: log}
}

// Start registers the queue consumer. Delivery handling runs on the
// connection's consumer goroutine.
func (c *RideEventConsumer) Start() error {
	return c.conn.Consume(rabbitmq.QueueRideEvents, c.handle)
}

type pushMessage struct {
	Type    string          `json:"type"`
	RideID  string          `json:"ride_id"`
	Payload json.RawMessage `json:"payload"`
}

func (c *RideEventConsumer) handle(d amqp.Delivery) {
	var env messaging.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		c.log.Error("ride_event_decode_failed", err)
		_ = d.Nack(false, false)
		return
	}
	if env.RiderID == "" {
		_ = d.Ack(false)
		return
	}

	err := c.manager.SendToUser(env.RiderID, pushMessage{
		Type:    env.Type,
		RideID:  env.RideID,
		Payload: env.Payload,
	})
	if err != nil {
		// The connection died mid-write. The rider catches up on next fetch.
		c.log.WithFields(logger.LogFields{
			"rider_id": env.RiderID,
			"type":     env.Type,
		}).Debug("ride_event_not_delivered", err.Error())
	} else {
		c.log.WithFields(logger.LogFields{
			"rider_id": env.RiderID,
			"type":     env.Type,
			"ride_id":  env.RideID,
		}).Debug("ride_event_pushed", "event delivered over websocket")
	}
	_ = d.Ack(false)
}
