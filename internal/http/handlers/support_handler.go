// Support chat HTTP handlers.
//
// This file exposes the main conversational endpoint:
//   - POST /chat  (send a support message and receive the assistant reply)
//
// Handlers are transport-thin: they validate and normalize inputs (line
// endings, length), resolve the caller identity from upstream auth middleware
// or forwarded identity headers, delegate to the support service, and
// translate results into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, session, key), the handler returns the recorded
// assistant message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/services"
	"github.com/tbourn/go-support-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatResponder produces the assistant reply for one support chat turn.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatResponder interface {
	Respond(ctx context.Context, caller services.Identity, sessionID, message string) (*services.Reply, error)
}

// TranscriptService reads stored conversation history.
type TranscriptService interface {
	ListMessages(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

// PatternAdmin manages the canned-response pattern catalog.
type PatternAdmin interface {
	Create(ctx context.Context, response string, priority int, active bool, phrases []string) (*domain.Pattern, error)
	Get(ctx context.Context, id string) (*domain.Pattern, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Pattern, int64, error)
	Update(ctx context.Context, id, response string, priority int, active bool, phrases []string) error
	Delete(ctx context.Context, id string) error
}

// PaymentResolver resolves a payment intent into local order state and a
// user-facing message.
type PaymentResolver interface {
	Resolve(ctx context.Context, intentID string) (*services.Resolution, error)
}

// FeedbackService defines operations to capture user feedback on messages.
type FeedbackService interface {
	Leave(ctx context.Context, userID, messageID string, value int) error
}

// IdempotencyStore replays and records completed chat turns for safe POST
// /chat retries. A nil store disables replay; retried turns are recomputed.
type IdempotencyStore interface {
	// Replay returns the assistant message previously recorded under
	// (user, session, key), or nil when there is nothing to replay.
	Replay(ctx context.Context, userID, sessionID, key string) (*domain.ChatMessage, error)

	// Record stores the assistant message of a completed turn under the key.
	Record(ctx context.Context, userID, sessionID, key string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for support chat, conversations,
// patterns, payments, and feedback. It depends on abstract service interfaces
// to keep transport concerns separate from business logic.
type Handlers struct {
	chatSvc    ChatResponder
	convSvc    TranscriptService
	patternSvc PatternAdmin
	paymentSvc PaymentResolver
	fbSvc      FeedbackService

	idemStore      IdempotencyStore
	maxPromptRunes int
}

// defaultMaxPromptRunes caps chat messages when no limit is configured.
const defaultMaxPromptRunes = 4000

// New constructs a Handlers instance bound to the given services.
func New(chat ChatResponder, conv TranscriptService, patterns PatternAdmin, payments PaymentResolver, fb FeedbackService) *Handlers {
	return &Handlers{
		chatSvc:        chat,
		convSvc:        conv,
		patternSvc:     patterns,
		paymentSvc:     payments,
		fbSvc:          fb,
		maxPromptRunes: defaultMaxPromptRunes,
	}
}

// WithIdempotency attaches the replay/record store backing the
// Idempotency-Key header on the chat endpoint.
func (h *Handlers) WithIdempotency(store IdempotencyStore) *Handlers {
	h.idemStore = store
	return h
}

// WithMaxPromptRunes sets the inbound chat message length cap. Non-positive
// values keep the default.
func (h *Handlers) WithMaxPromptRunes(n int) *Handlers {
	if n > 0 {
		h.maxPromptRunes = n
	}
	return h
}

// callerIdentity assembles the caller's identity from Gin context values set
// by upstream auth middleware, falling back to forwarded identity headers.
// An empty UserID means the caller is a guest; guests are a legitimate
// audience of the chat endpoint, so there is no default user.
func callerIdentity(c *gin.Context) services.Identity {
	id := services.Identity{}
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			id.UserID = s
		}
	}
	if c != nil && c.Request != nil {
		if id.UserID == "" {
			id.UserID = strings.TrimSpace(c.GetHeader("X-User-ID"))
		}
		id.Name = strings.TrimSpace(c.GetHeader("X-User-Name"))
		id.Email = strings.TrimSpace(c.GetHeader("X-User-Email"))
	}
	return id
}

// userID returns the caller's user id, empty for guests.
func userID(c *gin.Context) string {
	return callerIdentity(c).UserID
}

//
// DTOs
//

// ChatRequest is the JSON payload for one support chat turn.
type ChatRequest struct {
	// Message is the user's utterance. It must be non-empty.
	Message string `json:"message" binding:"required,min=1" example:"Where is my order AB123456?"`
	// SessionID groups turns into one conversation.
	SessionID string `json:"session_id" binding:"required,min=1" example:"web-9f4c1b2a"`
}

// ChatResponse is the JSON envelope for an assistant reply.
type ChatResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Intent        string   `json:"intent,omitempty"`
	Actions       []string `json:"actions,omitempty"`
	Authenticated bool     `json:"user_authenticated"`
	Confidence    *float64 `json:"confidence,omitempty"`
	PatternID     *string  `json:"pattern_matched,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Send a support message
// @Description Sends one chat turn and returns the assistant reply, which may
// @Description come from a matched response pattern, an intent-specific lookup,
// @Description or the generative fallback. Guests receive general answers and a
// @Description sign-in suggestion. Supports idempotency via the Idempotency-Key
// @Description header (same key within a session → same recorded result).
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Authenticated user ID; omit for guests"  example(user123)
// @Param       X-User-Name      header  string  false "Display name for personalized replies"   example(Alice)
// @Param       X-User-Email     header  string  false "Email used as a naming fallback"         example(alice@example.com)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ChatRequest  true  "Chat turn payload"
//
// @Success     200  {object}  handlers.ChatResponse  "Assistant reply"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message and session_id required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	message := sanitizeContent(req.Message)
	maxRunes := h.maxPromptRunes
	if maxRunes > 0 && utf8.RuneCountInString(message) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		return
	}
	if message == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id required")
		return
	}

	caller := callerIdentity(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" && h.idemStore != nil {
		if prev, err := h.idemStore.Replay(ctx, caller.UserID, sessionID, idemKey); err == nil && prev != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, ChatResponse{
				Success:       true,
				Message:       prev.Content,
				Intent:        prev.IntentType,
				Authenticated: !caller.Guest(),
				Confidence:    prev.Confidence,
				PatternID:     prev.PatternID,
			})
			return
		}
	}

	reply, err := h.chatSvc.Respond(ctx, caller, sessionID, message)
	if err != nil {
		switch err {
		case services.ErrEmptyPrompt:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		default:
			fail(c, http.StatusInternalServerError, ErrCodeReplyFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort; a missing record only costs a
	// recompute on retry.
	if idemKey != "" && h.idemStore != nil {
		_ = h.idemStore.Record(ctx, caller.UserID, sessionID, idemKey)
	}

	ok(c, http.StatusOK, ChatResponse{
		Success:       true,
		Message:       reply.Message,
		Intent:        reply.Intent,
		Actions:       reply.Actions,
		Authenticated: reply.Authenticated,
		Confidence:    reply.Confidence,
		PatternID:     reply.PatternID,
	})
}
