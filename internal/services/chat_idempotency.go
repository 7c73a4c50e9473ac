// Package services – ChatIdempotency
//
// This file implements the replay/record store behind the Idempotency-Key
// header on the chat endpoint. A recorded turn maps (user, session, key) to
// the assistant message the turn produced, so a retried request can return
// the identical reply without recomputing it.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"
)

// defaultIdempotencyTTL bounds how long a recorded turn stays replayable.
const defaultIdempotencyTTL = 24 * time.Hour

// ChatIdempotency stores completed chat turns keyed by
// (user, session, idempotency key). Records expire after TTL.
type ChatIdempotency struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Replay returns the assistant message recorded under the key, or nil when no
// live record exists. Only a storage failure is an error.
func (s *ChatIdempotency) Replay(ctx context.Context, userID, sessionID, key string) (*domain.ChatMessage, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, sessionID, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	msg, err := repo.GetChatMessage(s.DB, rec.MessageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// Record stores the session's latest assistant message under the key. It is a
// no-op when the session has no conversation or no assistant reply yet, and a
// concurrent duplicate insert is not an error.
func (s *ChatIdempotency) Record(ctx context.Context, userID, sessionID, key string) error {
	conv, err := repo.GetConversationBySession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	msgs, err := repo.ListChatMessagesPage(s.DB, conv.ID, 0, conv.TotalMessages)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	last := msgs[len(msgs)-1]
	if last.Role != domain.RoleAssistant {
		return nil
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	_, err = repo.CreateIdempotency(ctx, s.DB, userID, sessionID, key, last.ID, http.StatusOK, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
