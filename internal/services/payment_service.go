// Package services – PaymentService
//
// This file implements the payment-status resolver. Given a payment intent
// id, the resolver fetches the intent from the provider and drives the local
// order through the matching payment transition: succeeded finalizes the
// order, canceled and unknown statuses release it, the authentication
// statuses (requires_action, requires_confirmation) are confirmed in place
// and re-resolved, and the retryable failure status surfaces a user-facing
// message without mutating terminal state.
//
// The resolver is deliberately single-shot and stateless: it holds no
// in-flight bookkeeping between calls, and the order mutations it performs
// are idempotent at the repository level, so replayed confirmations converge
// to the same terminal state.
package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-support-backend/internal/payments"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxConfirmHops bounds the authentication re-resolution chain so a
// misbehaving provider cannot loop the resolver.
const maxConfirmHops = 3

// OrderMutator is the order-side capability set the resolver needs.
type OrderMutator interface {
	MarkPaid(ctx context.Context, orderID, paymentIntentID string) error
	MarkProcessing(ctx context.Context, orderID, paymentIntentID string) error
	CancelPending(ctx context.Context, orderID string) error
	IncrementAttempts(ctx context.Context, orderID string) error
}

// Hook is an optional post-payment side effect keyed by order id.
type Hook func(ctx context.Context, orderID string) error

// Resolution is the outcome of resolving one payment intent.
//
// Paid is true only for a provider-reported succeeded intent. Retryable tells
// the client it may re-attempt payment on the same order; Terminal tells it
// the checkout is over, one way or the other.
type Resolution struct {
	Status    payments.IntentStatus
	Paid      bool
	Retryable bool
	Terminal  bool
	Message   string
}

// PaymentService resolves provider payment-intent statuses into local order
// state and user-facing messages.
type PaymentService struct {
	Provider payments.Client
	Orders   OrderMutator

	// Fulfill and ClearCart run after a successful payment. Failures are
	// logged and do not undo the payment; the money has already moved.
	Fulfill   Hook
	ClearCart Hook
}

// NewPaymentService constructs a PaymentService over a provider client and
// the order mutation surface.
func NewPaymentService(provider payments.Client, orders OrderMutator) *PaymentService {
	return &PaymentService{Provider: provider, Orders: orders}
}

// Resolve fetches the intent and applies the transition for its status.
// Provider transport failures are returned as errors; everything the provider
// does report resolves to a Resolution, including statuses outside the known
// set.
func (s *PaymentService) Resolve(ctx context.Context, intentID string) (*Resolution, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("payment.intent_id", intentID)),
	)
	defer span.End()

	intent, err := s.Provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	res, err := s.apply(ctx, intent, 0)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("payment.status", string(res.Status)),
		attribute.Bool("payment.paid", res.Paid),
	)
	return res, nil
}

// apply performs the state transition for one provider-reported intent.
// hops counts confirm-and-reapply re-resolutions.
func (s *PaymentService) apply(ctx context.Context, intent *payments.Intent, hops int) (*Resolution, error) {
	switch intent.Status {
	case payments.StatusSucceeded:
		if err := s.Orders.MarkPaid(ctx, intent.OrderID, intent.ID); err != nil {
			return nil, err
		}
		s.runHook(ctx, "fulfill", s.Fulfill, intent.OrderID)
		s.runHook(ctx, "clear_cart", s.ClearCart, intent.OrderID)
		return &Resolution{
			Status:   intent.Status,
			Paid:     true,
			Terminal: true,
			Message:  "Payment successful! Your order is confirmed and will be processed shortly.",
		}, nil

	case payments.StatusProcessing:
		if err := s.Orders.MarkProcessing(ctx, intent.OrderID, intent.ID); err != nil {
			return nil, err
		}
		return &Resolution{
			Status:  intent.Status,
			Message: "Your payment is being processed. We'll update your order as soon as it completes.",
		}, nil

	case payments.StatusRequiresPayment:
		if err := s.Orders.IncrementAttempts(ctx, intent.OrderID); err != nil {
			return nil, err
		}
		return &Resolution{
			Status:    intent.Status,
			Retryable: true,
			Message:   payments.ErrorMessage(intent.ErrorCode),
		}, nil

	case payments.StatusRequiresAction, payments.StatusRequiresConfirmation:
		if hops >= maxConfirmHops {
			log.Warn().
				Str("payment_intent_id", intent.ID).
				Int("hops", hops).
				Msg("confirmation loop limit reached")
			if err := s.Orders.CancelPending(ctx, intent.OrderID); err != nil {
				return nil, err
			}
			return &Resolution{
				Status:   intent.Status,
				Terminal: true,
				Message:  "We couldn't complete your payment confirmation. Your order has been released; please try checking out again.",
			}, nil
		}
		confirmed, err := s.Provider.ConfirmIntent(ctx, intent.ClientSecret)
		if err != nil {
			log.Warn().Err(err).
				Str("payment_intent_id", intent.ID).
				Msg("payment confirmation failed")
			if cerr := s.Orders.CancelPending(ctx, intent.OrderID); cerr != nil {
				return nil, cerr
			}
			return &Resolution{
				Status:   intent.Status,
				Terminal: true,
				Message:  payments.ErrorMessage(intent.ErrorCode),
			}, nil
		}
		return s.apply(ctx, confirmed, hops+1)

	case payments.StatusCanceled:
		if err := s.Orders.CancelPending(ctx, intent.OrderID); err != nil {
			return nil, err
		}
		return &Resolution{
			Status:   intent.Status,
			Terminal: true,
			Message:  "This payment was cancelled. Your order has been released; feel free to check out again.",
		}, nil

	default:
		log.Warn().
			Str("payment_intent_id", intent.ID).
			Str("status", string(intent.Status)).
			Msg("unrecognized payment intent status")
		if err := s.Orders.CancelPending(ctx, intent.OrderID); err != nil {
			return nil, err
		}
		return &Resolution{
			Status:   intent.Status,
			Terminal: true,
			Message:  "We received an unexpected status from the payment provider. Your order has been released; please try checking out again.",
		}, nil
	}
}

func (s *PaymentService) runHook(ctx context.Context, name string, h Hook, orderID string) {
	if h == nil {
		return
	}
	if err := h(ctx, orderID); err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Str("hook", name).Msg("post-payment hook failed")
	}
}
