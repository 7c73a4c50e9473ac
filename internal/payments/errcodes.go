package payments

// errorMessages maps provider error codes to user-facing sentences. Codes
// not in the table fall back to a generic apology via ErrorMessage.
var errorMessages = map[string]string{
	"card_declined":            "Your card was declined. Please try a different payment method.",
	"insufficient_funds":       "Your card has insufficient funds. Please try a different card.",
	"expired_card":             "Your card has expired. Please use a different card.",
	"incorrect_cvc":            "The security code you entered is incorrect. Please check and try again.",
	"incorrect_number":         "The card number you entered is invalid. Please check and try again.",
	"processing_error":         "An error occurred while processing your card. Please try again in a moment.",
	"authentication_required":  "Your bank requires additional authentication. Please complete the verification step.",
	"payment_intent_expired":   "This payment session has expired. Please start the checkout again.",
}

// GenericErrorMessage is returned for unmapped provider error codes.
const GenericErrorMessage = "We're sorry, something went wrong with your payment. Please try again."

// ErrorMessage translates a provider error code into a user-facing sentence.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return GenericErrorMessage
}
