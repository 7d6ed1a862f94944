package payments

import "context"

// NopProvider satisfies the payment port without talking to a processor.
// Used when no Stripe key is configured and in tests.
type NopProvider struct{}

func (NopProvider) Hold(context.Context, string, float64) error { return nil }
func (NopProvider) Capture(context.Context, string) error       { return nil }
func (NopProvider) Release(context.Context, string) error       { return nil }
