// Package services – ConversationService
//
// This file implements ConversationService, the read side of conversation
// history. It verifies conversation existence and ownership and returns
// paginated message pages for the transcript endpoint.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// conversation identifiers and pagination parameters.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationService exposes transcript reads over stored conversations.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewConversationService constructs a ConversationService over the given
// database handle.
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{DB: db}
}

// Get fetches a conversation by ID, enforcing ownership for authenticated
// callers. A conversation owned by a different user yields
// ErrConversationNotFound, identical to one that does not exist.
func (s *ConversationService) Get(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	c, err := repo.GetConversation(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if c.UserID != "" && c.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

// ListMessages returns a paginated transcript page for a conversation the
// caller owns, ordered oldest first. It applies defaults for invalid
// page/pageSize and returns the total message count.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountChatMessages(s.DB.WithContext(ctx), conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}

	items, err := repo.ListChatMessagesPage(s.DB.WithContext(ctx), conversationID, offset, pageSize)
	return items, total, err
}
