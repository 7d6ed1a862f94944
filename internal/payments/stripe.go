package payments

import (
	"context"
	"fmt"
	"math"
	"sync"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeProvider backs ride payments with Stripe PaymentIntents using the
// hold/capture/cancel flow. Intent IDs are tracked per ride so capture and
// release can find the intent created by the hold.
type StripeProvider struct {
	currency string

	mu      sync.Mutex
	intents map[string]string
}

// NewStripeProvider sets the package-level stripe key and returns a provider.
func NewStripeProvider(apiKey, currency string) *StripeProvider {
	stripe.Key = apiKey
	if currency == "" {
		currency = "usd"
	}
	return &StripeProvider{
		currency: currency,
		intents:  make(map[string]string),
	}
}

// Hold creates a manual-capture PaymentIntent for the fare.
func (p *StripeProvider) Hold(ctx context.Context, rideID string, amount float64) error {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Currency:      stripe.String(p.currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.AddMetadata("ride_id", rideID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return fmt.Errorf("create payment intent for ride %s: %w", rideID, err)
	}

	p.mu.Lock()
	p.intents[rideID] = pi.ID
	p.mu.Unlock()
	return nil
}

// Capture finalizes the held intent for the ride.
func (p *StripeProvider) Capture(ctx context.Context, rideID string) error {
	intentID, ok := p.intent(rideID)
	if !ok {
		return fmt.Errorf("no payment intent held for ride %s", rideID)
	}
	if _, err := paymentintent.Capture(intentID, nil); err != nil {
		return fmt.Errorf("capture payment for ride %s: %w", rideID, err)
	}
	return nil
}

// Release cancels the held intent without capturing.
func (p *StripeProvider) Release(ctx context.Context, rideID string) error {
	intentID, ok := p.intent(rideID)
	if !ok {
		// Nothing held, nothing to release.
		return nil
	}
	if _, err := paymentintent.Cancel(intentID, nil); err != nil {
		return fmt.Errorf("release payment for ride %s: %w", rideID, err)
	}
	p.mu.Lock()
	delete(p.intents, rideID)
	p.mu.Unlock()
	return nil
}

func (p *StripeProvider) intent(rideID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.intents[rideID]
	return id, ok
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
