// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation and ChatMessage models.
//
// All functions are context-aware where they compose queries and accept a
// *gorm.DB handle, making them safe for use within transactions or
// connection-scoped operations. They follow the "thin repository" approach:
// no business logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - When a conversation is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetConversationBySession fetches the conversation for a session id, or
// ErrNotFound when the session has no conversation yet.
func GetConversationBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation inserts a new conversation row for the given session.
// UserID may be empty for guests. The conversation ID is a randomly generated
// UUID, and CreatedAt is set to UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, sessionID, userID, subject string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by primary key.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementMessageCount bumps a conversation's running message counter by n.
func IncrementMessageCount(ctx context.Context, db *gorm.DB, conversationID string, n int) error {
	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("total_messages", gorm.Expr("total_messages + ?", n)).Error
}

// CreateChatMessage inserts a new message row.
func CreateChatMessage(db *gorm.DB, conversationID, role, content string, confidence *float64, patternID *string, intentType string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Confidence:     confidence,
		PatternID:      patternID,
		IntentType:     intentType,
		CreatedAt:      time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// GetChatMessage fetches a message by ID.
func GetChatMessage(db *gorm.DB, id string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountChatMessages uses a raw COUNT so a missing table surfaces as an error.
func CountChatMessages(db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM chat_messages WHERE conversation_id = ?", conversationID).Scan(&total).Error
	return total, err
}

// ListChatMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListChatMessagesPage(db *gorm.DB, conversationID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
