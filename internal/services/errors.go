// Package services defines the business logic for support conversations,
// response patterns, orders, payments, and feedback. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrEmptyPrompt is returned when a chat turn contains an empty message.
	ErrEmptyPrompt = errors.New("message is empty")

	// ErrTooLong is returned when a chat message exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current caller.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrPatternNotFound indicates that the requested response pattern does
	// not exist.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrOrderNotFound indicates that an order does not exist for this
	// caller. Not-owned and non-existent orders are deliberately
	// indistinguishable.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (currently -1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current caller.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbiddenFeedback is returned when a user attempts to leave feedback
	// on a message they are not permitted to rate.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when a user attempts to leave feedback
	// on a message that they have already rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
