// Package payments models the hosted payment provider consumed by the
// payment-status resolver. The provider is abstracted behind a small Client
// interface so the resolver can be driven by fakes in tests; the production
// implementation is a thin JSON-over-HTTP client.
package payments

import "context"

// IntentStatus is the provider-reported lifecycle status of one checkout
// attempt. The set mirrors the provider's enumeration; any value outside it
// is treated as unknown by the resolver.
type IntentStatus string

const (
	StatusSucceeded            IntentStatus = "succeeded"
	StatusProcessing           IntentStatus = "processing"
	StatusRequiresPayment      IntentStatus = "requires_payment_method"
	StatusRequiresAction       IntentStatus = "requires_action"
	StatusRequiresConfirmation IntentStatus = "requires_confirmation"
	StatusCanceled             IntentStatus = "canceled"
)

// Intent is the provider's representation of one checkout attempt.
// ClientSecret is the opaque confirmation handle used for strong customer
// authentication; OrderID correlates the intent to a local order.
type Intent struct {
	ID           string       `json:"id"`
	Status       IntentStatus `json:"status"`
	ClientSecret string       `json:"client_secret"`
	OrderID      string       `json:"order_id"`
	ErrorCode    string       `json:"error_code,omitempty"`
}

// Client is the capability set the resolver needs from the provider.
// Implementations must honor ctx for cancellation and timeouts.
type Client interface {
	// RetrieveIntent fetches the current state of a payment intent.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)

	// ConfirmIntent completes a strong-customer-authentication challenge
	// using the intent's client secret and returns the resulting intent
	// with its new status.
	ConfirmIntent(ctx context.Context, clientSecret string) (*Intent, error)
}
