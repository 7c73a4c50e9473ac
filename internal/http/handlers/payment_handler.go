// Payment HTTP handlers.
//
// This file exposes the payment confirmation endpoint:
//   - POST /payments/confirm  (resolve a payment intent after checkout)
//
// The handler is transport-thin: it validates the intent id, delegates to the
// payment resolver, and maps the resolution onto a stable JSON envelope. The
// resolver owns all order mutations; a provider transport failure is the only
// path that yields a 5xx here.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ConfirmPaymentRequest is the JSON payload for resolving a payment intent.
type ConfirmPaymentRequest struct {
	// PaymentIntentID is the provider-issued intent identifier.
	PaymentIntentID string `json:"payment_intent_id" binding:"required,min=1" example:"pi_3OqX8d2eZvKYlo2C"`
}

// ConfirmPaymentResponse reports the outcome of a payment resolution.
type ConfirmPaymentResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Paid      bool   `json:"paid"`
	Retryable bool   `json:"retryable"`
	Terminal  bool   `json:"terminal"`
	Message   string `json:"message"`
}

// ConfirmPayment godoc
// @ID          confirmPayment
// @Summary     Confirm a payment
// @Description Resolves the current provider status of a payment intent and
// @Description applies the matching order transition: succeeded finalizes the
// @Description order, canceled releases it, and retryable failures return a
// @Description user-facing message without changing terminal state.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ConfirmPaymentRequest  true  "Payment intent reference"
//
// @Success     200  {object} handlers.ConfirmPaymentResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     502  {object} handlers.ErrorResponse "Payment provider unavailable"
// @Router      /payments/confirm [post]
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PaymentIntentID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payment_intent_id required")
		return
	}

	res, err := h.paymentSvc.Resolve(c.Request.Context(), strings.TrimSpace(req.PaymentIntentID))
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodePaymentFailed, "payment provider unavailable")
		return
	}

	ok(c, http.StatusOK, ConfirmPaymentResponse{
		Success:   true,
		Status:    string(res.Status),
		Paid:      res.Paid,
		Retryable: res.Retryable,
		Terminal:  res.Terminal,
		Message:   res.Message,
	})
}
