// Package services – SupportService
//
// This file implements SupportService, the response dispatcher for support
// chat turns. It combines the trigger-phrase scorer and the rule-based intent
// classifier to pick a reply: a trusted pattern match short-circuits
// classification entirely; otherwise the intent decides between templated
// greetings, owner-scoped order/account lookups, and a generative-completion
// fallback with a fixed persona.
//
// Failure policy: collaborator failures (database, completion API) never
// propagate to the caller as errors. Every path produces a Reply; the worst
// case is a generic technical-difficulties message. Persisting the exchange
// is a non-critical side effect: on failure it is logged and the reply is
// returned regardless.
//
// Observability: Respond is OpenTelemetry-instrumented; spans include the
// session identifier and the resolved intent.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/intent"
	"github.com/tbourn/go-support-backend/internal/llm"
	"github.com/tbourn/go-support-backend/internal/match"
	"github.com/tbourn/go-support-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ActionRequestOrderNumber asks the client UI to prompt for an order number.
const ActionRequestOrderNumber = "request_order_number"

const (
	defaultTrustThreshold = 0.7
	defaultMinConfidence  = 0.3
	recentOrdersLimit     = 5
)

// apologyReply is the safe fallback when a collaborator fails.
const apologyReply = "I'm sorry, we're experiencing technical difficulties right now. Please try again in a moment."

// notFoundOrderReply deliberately does not reveal whether the number exists
// for a different customer.
const notFoundOrderReply = "I couldn't find that order in your account. Please double-check the order number, or contact support if you think this is a mistake."

// Identity describes the caller of a chat turn. A zero UserID means guest.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// Guest reports whether the caller is unauthenticated.
func (id Identity) Guest() bool { return id.UserID == "" }

// DisplayName returns the friendliest available form of address.
func (id Identity) DisplayName() string {
	if id.Name != "" {
		return id.Name
	}
	if id.Email != "" {
		return id.Email
	}
	return "there"
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Message       string
	Confidence    *float64
	PatternID     *string
	Intent        string
	Actions       []string
	Authenticated bool
}

// OrderReader is the owner-scoped order lookup surface the dispatcher needs.
type OrderReader interface {
	FindByNumber(ctx context.Context, number, userID string) (*domain.Order, error)
	Recent(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	Addresses(ctx context.Context, userID string) ([]domain.Address, error)
}

// SupportService coordinates pattern matching, intent classification,
// templated lookups, and the generative fallback for support chat.
type SupportService struct {
	DB         *gorm.DB
	Orders     OrderReader
	Completion llm.CompletionClient
	Facts      llm.StoreFacts

	// TrustThreshold is the pattern confidence above which classification is
	// skipped entirely. MinConfidence is the floor below which a pattern
	// match is ignored.
	TrustThreshold float64
	MinConfidence  float64

	// TrackingURLBase prefixes tracking numbers to form a carrier link.
	TrackingURLBase string

	// MaxPromptRunes caps inbound messages by rune length.
	MaxPromptRunes int

	// Intn picks greeting templates; injectable for deterministic tests.
	// Defaults to math/rand.Intn.
	Intn func(n int) int

	// Subject generation config for new conversations.
	SubjectLocale language.Tag
	SubjectMaxLen int
}

// greetingTemplates are filled with the caller's display name.
var greetingTemplates = []string{
	"Hi %s! How can I help you today?",
	"Hello %s! What can I do for you?",
	"Hey %s! Welcome back. How can I assist?",
}

// statusReports map each order status to its fixed reply paragraph.
var statusReports = map[domain.OrderStatus]string{
	domain.OrderPending:    "Your order has been received and is awaiting payment confirmation.",
	domain.OrderProcessing: "Your order is being prepared for shipment.",
	domain.OrderShipped:    "Your order is on its way!",
	domain.OrderDelivered:  "Your order was delivered. We hope you enjoy it!",
	domain.OrderCompleted:  "This order is complete. Thanks for shopping with us!",
	domain.OrderCancelled:  "This order was cancelled. If that's unexpected, please contact support.",
	domain.OrderRefunded:   "This order was refunded. The amount should reach your account within a few business days.",
	domain.OrderOnHold:     "This order is on hold. Our team will reach out if we need anything from you.",
}

// Respond handles one chat turn and always yields a Reply for valid input.
// Only validation problems (empty or oversized message) are returned as
// errors; every collaborator failure is absorbed into the reply text.
func (s *SupportService) Respond(ctx context.Context, caller Identity, sessionID, message string) (*Reply, error) {
	tr := otel.Tracer("services/SupportService")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Bool("caller.guest", caller.Guest()),
		),
	)
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(message) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	reply := s.dispatch(ctx, caller, message)
	span.SetAttributes(attribute.String("intent.type", reply.Intent))

	// Non-critical side effect: log and continue on failure.
	if err := s.persistExchange(ctx, caller, sessionID, message, reply); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("persist chat exchange failed")
	}

	return reply, nil
}

// dispatch picks the reply content. It never returns nil.
func (s *SupportService) dispatch(ctx context.Context, caller Identity, message string) *Reply {
	if caller.Guest() {
		return s.guestReply(ctx, message)
	}

	m := s.scorePatterns(ctx, message)
	if m.Confidence > s.trustThreshold() {
		conf := m.Confidence
		pid := m.PatternID
		return &Reply{
			Message:       m.Content,
			Confidence:    &conf,
			PatternID:     &pid,
			Intent:        "pattern",
			Authenticated: true,
		}
	}

	res := intent.Classify(message)
	reply := &Reply{Intent: string(res.Category), Authenticated: true}

	switch res.Category {
	case intent.Greeting:
		reply.Message = s.greeting(caller)

	case intent.OrderInquiry:
		if res.OrderNumber == "" {
			reply.Message = "I can help with that! Could you share your order number? It looks like AB123456 and is in your confirmation email."
			reply.Actions = []string{ActionRequestOrderNumber}
			break
		}
		reply.Message = s.orderReport(ctx, caller, res.OrderNumber)

	case intent.AccountInfo:
		reply.Message = s.accountReport(ctx, caller, res.InfoSubtype)

	default:
		if m.Confidence > s.minConfidence() {
			conf := m.Confidence
			pid := m.PatternID
			reply.Message = m.Content
			reply.Confidence = &conf
			reply.PatternID = &pid
			reply.Intent = "pattern"
			break
		}
		reply.Message = s.complete(ctx, llm.SupportPrompt(s.Facts), message)
	}

	return reply
}

// guestReply handles unauthenticated callers: no order or account branches,
// always the guest persona, always a sign-in suggestion.
func (s *SupportService) guestReply(ctx context.Context, message string) *Reply {
	text := s.complete(ctx, llm.GuestPrompt(s.Facts), message)
	text += "\n\nTip: sign in and I can look up your orders and account details."
	return &Reply{
		Message:       text,
		Intent:        string(intent.Classify(message).Category),
		Authenticated: false,
	}
}

// scorePatterns loads active patterns and runs the trigger scorer. A storage
// failure degrades to "no match" rather than failing the turn.
func (s *SupportService) scorePatterns(ctx context.Context, message string) match.Match {
	patterns, err := repo.ListActivePatterns(ctx, s.DB)
	if err != nil {
		log.Warn().Err(err).Msg("loading patterns failed; skipping pattern match")
		return match.Match{}
	}
	candidates := make([]match.Candidate, 0, len(patterns))
	for _, p := range patterns {
		phrases := make([]string, 0, len(p.Triggers))
		for _, t := range p.Triggers {
			phrases = append(phrases, t.Phrase)
		}
		candidates = append(candidates, match.Candidate{
			ID:       p.ID,
			Response: p.Response,
			Priority: p.Priority,
			Active:   p.IsActive,
			Triggers: phrases,
		})
	}
	return match.Score(message, candidates)
}

// complete calls the generative collaborator, degrading to the apology text.
func (s *SupportService) complete(ctx context.Context, persona, message string) string {
	if s.Completion == nil {
		return apologyReply
	}
	text, err := s.Completion.Complete(ctx, persona, message)
	if err != nil {
		log.Warn().Err(err).Msg("completion API failed")
		return apologyReply
	}
	return text
}

// greeting renders a random greeting template with the caller's name.
func (s *SupportService) greeting(caller Identity) string {
	intn := s.Intn
	if intn == nil {
		intn = rand.Intn
	}
	tmpl := greetingTemplates[intn(len(greetingTemplates))]
	return fmt.Sprintf(tmpl, caller.DisplayName())
}

// orderReport renders the status report for one owner-scoped order lookup.
func (s *SupportService) orderReport(ctx context.Context, caller Identity, number string) string {
	order, err := s.Orders.FindByNumber(ctx, number, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return notFoundOrderReply
		}
		log.Warn().Err(err).Str("order_number", number).Msg("order lookup failed")
		return apologyReply
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found for order %s:\n\n", order.Number)
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %d x %s\n", it.Quantity, it.Name)
	}
	fmt.Fprintf(&b, "\nPlaced on %s. Total: %.2f %s.\n\n",
		order.PlacedAt.Format("Jan 2, 2006"), order.Total, order.Currency)

	if msg, ok := statusReports[order.Status]; ok {
		b.WriteString(msg)
	} else {
		b.WriteString("We're looking into the current status of this order.")
	}

	if order.Status == domain.OrderShipped && order.TrackingNumber != "" {
		fmt.Fprintf(&b, "\nTracking number: %s\nTrack it here: %s%s",
			order.TrackingNumber, s.TrackingURLBase, order.TrackingNumber)
	}
	return b.String()
}

// accountReport renders the account-info branch for authenticated callers.
func (s *SupportService) accountReport(ctx context.Context, caller Identity, subtype string) string {
	switch subtype {
	case intent.SubtypeRecentOrders:
		orders, err := s.Orders.Recent(ctx, caller.UserID, recentOrdersLimit)
		if err != nil {
			log.Warn().Err(err).Msg("recent orders lookup failed")
			return apologyReply
		}
		if len(orders) == 0 {
			return "You don't have any orders yet. When you place one, I can track it for you here."
		}
		var b strings.Builder
		b.WriteString("Here are your most recent orders:\n\n")
		for _, o := range orders {
			fmt.Fprintf(&b, "- %s | %s | %.2f %s | %s\n",
				o.Number, o.Status, o.Total, o.Currency, o.PlacedAt.Format("Jan 2, 2006"))
		}
		return b.String()

	case intent.SubtypeAddresses:
		addrs, err := s.Orders.Addresses(ctx, caller.UserID)
		if err != nil {
			log.Warn().Err(err).Msg("addresses lookup failed")
			return apologyReply
		}
		if len(addrs) == 0 {
			return "You don't have any saved addresses yet. You can add one in your account settings."
		}
		var b strings.Builder
		b.WriteString("Your saved addresses:\n\n")
		for _, a := range addrs {
			label := a.Label
			if label == "" {
				label = "Address"
			}
			fmt.Fprintf(&b, "- %s: %s, %s %s, %s\n", label, a.Line1, a.PostalCode, a.City, a.Country)
		}
		return b.String()

	default:
		return "Your account is active and in good standing. Is there anything specific you'd like to check?"
	}
}

// persistExchange appends the user and assistant messages (user first) to the
// session's conversation inside one transaction, creating the conversation on
// first contact and bumping the counter by two.
func (s *SupportService) persistExchange(ctx context.Context, caller Identity, sessionID, userMessage string, reply *Reply) error {
	if s.DB == nil || strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := repo.GetConversationBySession(ctx, tx, sessionID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			subject := s.generateSubject(userMessage)
			conv, err = repo.CreateConversation(ctx, tx, sessionID, caller.UserID, subject)
			if err != nil {
				return err
			}
		}
		if _, err := repo.CreateChatMessage(tx, conv.ID, domain.RoleUser, userMessage, nil, nil, reply.Intent); err != nil {
			return err
		}
		if _, err := repo.CreateChatMessage(tx, conv.ID, domain.RoleAssistant, reply.Message, reply.Confidence, reply.PatternID, reply.Intent); err != nil {
			return err
		}
		return repo.IncrementMessageCount(ctx, tx, conv.ID, 2)
	})
}

// generateSubject derives a concise conversation subject from the first message.
func (s *SupportService) generateSubject(message string) string {
	toks := subjectWordRE.FindAllString(strings.ToLower(message), -1)
	if len(toks) == 0 {
		return "New conversation"
	}
	caser := cases.Title(s.subjectLocale())
	out := make([]string, 0, 6)
	for _, w := range toks {
		if _, skip := subjectStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 6 {
			break
		}
	}
	if len(out) == 0 {
		return "New conversation"
	}
	subject := strings.Join(out, " ")
	max := s.SubjectMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(subject) > max {
		subject = string([]rune(subject)[:max])
	}
	return subject
}

func (s *SupportService) subjectLocale() language.Tag {
	if s.SubjectLocale == language.Und {
		return language.English
	}
	return s.SubjectLocale
}

func (s *SupportService) trustThreshold() float64 {
	if s.TrustThreshold > 0 {
		return s.TrustThreshold
	}
	return defaultTrustThreshold
}

func (s *SupportService) minConfidence() float64 {
	if s.MinConfidence > 0 {
		return s.MinConfidence
	}
	return defaultMinConfidence
}

// subjectWordRE extracts Unicode letters with optional trailing digits.
var subjectWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// subjectStopWords is a minimal English stop-word set for compact subjects.
var subjectStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"my": {}, "me": {}, "you": {}, "can": {}, "do": {}, "does": {}, "where": {},
}
