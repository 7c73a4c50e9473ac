package llm

import "fmt"

// Persona prompts seeded into the completion provider. Product and policy
// facts are injected so the model does not invent shipping rules.

const supportPersona = `You are a friendly customer support assistant for an online shop.
Answer briefly and concretely. If a question needs account or order data you
do not have, ask the customer to provide their order number.

Store facts you may rely on:
- Free shipping on orders above %s.
- Returns accepted within %d days of delivery.
- Support contact: %s.
Never invent order details, discounts, or policies beyond these facts.`

const guestPersona = `You are a friendly customer support assistant for an online shop,
talking to a visitor who is not signed in. Answer general questions briefly.
You cannot look up orders or account data for guests; when asked, suggest
signing in first.

Store facts you may rely on:
- Free shipping on orders above %s.
- Returns accepted within %d days of delivery.
- Support contact: %s.`

// StoreFacts carries the policy facts rendered into persona prompts.
type StoreFacts struct {
	FreeShippingOver string
	ReturnWindowDays int
	SupportContact   string
}

// SupportPrompt renders the persona used for authenticated callers.
func SupportPrompt(f StoreFacts) string {
	return fmt.Sprintf(supportPersona, f.FreeShippingOver, f.ReturnWindowDays, f.SupportContact)
}

// GuestPrompt renders the persona used for guests.
func GuestPrompt(f StoreFacts) string {
	return fmt.Sprintf(guestPersona, f.FreeShippingOver, f.ReturnWindowDays, f.SupportContact)
}
