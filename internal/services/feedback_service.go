// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs how customers rate
// automated replies (-1 or +1). It enforces business rules (message
// existence, conversation ownership, automated-reply-only restriction,
// uniqueness) and persists feedback atomically in the database. Service-level
// errors (e.g. ErrInvalidFeedback, ErrMessageNotFound, ErrForbiddenFeedback,
// ErrDuplicateFeedback) are returned for predictable cases so handlers can
// map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charanaquarium/chat-backend/internal/repo"
)

// FeedbackService implements the use-cases around reply feedback.
// It validates the operation (ownership, automated flag, uniqueness) and
// persists the feedback using the provided GORM handle.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// Leave records a feedback value for messageID on behalf of userID.
//
// Semantics and validation:
//   - value must be exactly -1 (negative) or 1 (positive); otherwise
//     ErrInvalidFeedback.
//   - messageID must exist; otherwise ErrMessageNotFound.
//   - The message must belong to the conversation owned by userID; otherwise
//     ErrForbiddenFeedback.
//   - Feedback is allowed only for automated replies; customer and human
//     admin messages are rejected with ErrForbiddenFeedback.
//   - A user may leave at most one feedback per message; attempting to do so
//     again yields ErrDuplicateFeedback.
//
// The existence/ownership checks and the insert run inside one transaction.
func (s *FeedbackService) Leave(ctx context.Context, userID, messageID string, value int) error {
	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := repo.GetMessage(tx, messageID)
		if err != nil {
			if isNotFound(err) {
				return ErrMessageNotFound
			}
			return err
		}

		conv, err := repo.GetConversation(ctx, tx, msg.ConversationID)
		if err != nil {
			return ErrForbiddenFeedback
		}
		if conv.CustomerID != userID {
			return ErrForbiddenFeedback
		}

		if !msg.Automated {
			return ErrForbiddenFeedback
		}

		if err := repo.CreateFeedback(ctx, tx, messageID, userID, value); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
