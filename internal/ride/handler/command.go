package handler

import (
	"encoding/json"
	"net/http"

	"rideflow/internal/ride/domain"
	"rideflow/internal/ride/service"
)

// rideCommand is the parsed form of one mutating /rides request. The string
// action parameter is turned into a closed set of variants so dispatch is an
// explicit type switch rather than string matching spread across the handler.
type rideCommand interface {
	isRideCommand()
}

type createCommand struct {
	Body createRideRequest
}

type acceptCommand struct {
	RideID string
}

type startCommand struct {
	RideID string
}

type completeCommand struct {
	RideID string
}

type cancelCommand struct {
	RideID string
	Reason string
}

type updateCommand struct {
	RideID string
	Body   updateRideRequest
}

type rateCommand struct {
	RideID   string
	Rating   int
	Feedback string
}

type negotiateCommand struct {
	RideID        string
	ProposedPrice float64
}

type respondNegotiationCommand struct {
	RideID string
	Accept bool
}

type updatePaymentCommand struct {
	RideID string
	Status domain.PaymentStatus
}

func (createCommand) isRideCommand()             {}
func (acceptCommand) isRideCommand()             {}
func (startCommand) isRideCommand()              {}
func (completeCommand) isRideCommand()           {}
func (cancelCommand) isRideCommand()             {}
func (updateCommand) isRideCommand()             {}
func (rateCommand) isRideCommand()               {}
func (negotiateCommand) isRideCommand()          {}
func (respondNegotiationCommand) isRideCommand() {}
func (updatePaymentCommand) isRideCommand()      {}

type stopRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type createRideRequest struct {
	OriginLatitude       float64       `json:"origin_latitude"`
	OriginLongitude      float64       `json:"origin_longitude"`
	OriginAddress        string        `json:"origin_address,omitempty"`
	DestinationLatitude  float64       `json:"destination_latitude"`
	DestinationLongitude float64       `json:"destination_longitude"`
	DestinationAddress   string        `json:"destination_address,omitempty"`
	Stops                []stopRequest `json:"stops,omitempty"`
	QuotedPrice          float64       `json:"quoted_price,omitempty"`
}

type updateRideRequest struct {
	DestinationLatitude  float64       `json:"destination_latitude"`
	DestinationLongitude float64       `json:"destination_longitude"`
	DestinationAddress   string        `json:"destination_address,omitempty"`
	Stops                []stopRequest `json:"stops,omitempty"`
}

type cancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

type rateRideRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

type negotiateRequest struct {
	ProposedPrice float64 `json:"proposed_price"`
}

type respondNegotiationRequest struct {
	Accept bool `json:"accept"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// parseCommand turns a mutating /rides request into its command variant.
func parseCommand(r *http.Request) (rideCommand, error) {
	action := r.URL.Query().Get("action")
	rideID := r.URL.Query().Get("rideId")

	// PUT carries no action parameter. It is always an itinerary update.
	if r.Method == http.MethodPut {
		action = "update"
	}
	if action == "" && r.Method == http.MethodPost {
		action = "create"
	}

	if action != "create" && rideID == "" {
		return nil, domain.NewValidationError("rideId is required for action %q", action)
	}

	switch action {
	case "create":
		var body createRideRequest
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		return createCommand{Body: body}, nil

	case "accept":
		return acceptCommand{RideID: rideID}, nil

	case "start":
		return startCommand{RideID: rideID}, nil

	case "complete":
		return completeCommand{RideID: rideID}, nil

	case "cancel":
		var body cancelRideRequest
		if err := decodeOptionalBody(r, &body); err != nil {
			return nil, err
		}
		return cancelCommand{RideID: rideID, Reason: body.Reason}, nil

	case "update":
		var body updateRideRequest
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		return updateCommand{RideID: rideID, Body: body}, nil

	case "rate":
		var body rateRideRequest
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		return rateCommand{RideID: rideID, Rating: body.Rating, Feedback: body.Feedback}, nil

	case "negotiate":
		var body negotiateRequest
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		return negotiateCommand{RideID: rideID, ProposedPrice: body.ProposedPrice}, nil

	case "respond-negotiation":
		var body respondNegotiationRequest
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		return respondNegotiationCommand{RideID: rideID, Accept: body.Accept}, nil

	case "update-payment":
		var body updatePaymentRequest
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		status := domain.PaymentStatus(body.PaymentStatus)
		if !status.IsValid() {
			return nil, domain.NewValidationError("unknown payment status %q", body.PaymentStatus)
		}
		return updatePaymentCommand{RideID: rideID, Status: status}, nil

	default:
		return nil, domain.NewValidationError("unknown action %q", action)
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("invalid request body: %v", err)
	}
	return nil
}

// decodeOptionalBody tolerates an empty body.
func decodeOptionalBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeBody(r, dst)
}

func toStopInputs(stops []stopRequest) []service.StopInput {
	if len(stops) == 0 {
		return nil
	}
	out := make([]service.StopInput, 0, len(stops))
	for _, s := range stops {
		out = append(out, service.StopInput{Latitude: s.Latitude, Longitude: s.Longitude, Address: s.Address})
	}
	return out
}
