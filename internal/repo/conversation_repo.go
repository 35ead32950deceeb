// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a conversation is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Conversations are created lazily: EnsureConversation returns the existing
// thread for a customer or inserts a fresh one. The unique index on
// customer_id makes the operation safe against concurrent first messages
// from the same customer (the loser of the race re-reads the winner's row).
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charanaquarium/chat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ConversationSummary is a read model for the admin inbox: one row per
// conversation with a preview of the latest message, regardless of sender.
type ConversationSummary struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// EnsureConversation returns the conversation owned by customerID, creating
// it if none exists yet. The conversation ID is a randomly generated UUID
// and CreatedAt is set to UTC.
//
// A unique-constraint violation on insert means another request created the
// thread concurrently; in that case the existing row is fetched and returned.
func EnsureConversation(ctx context.Context, db *gorm.DB, customerID string) (*domain.Conversation, error) {
	var existing domain.Conversation
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := &domain.Conversation{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC(),
	}
	if cerr := db.WithContext(ctx).Create(c).Error; cerr != nil {
		if isUniqueViolation(cerr) {
			// Lost the race; the winner's row is the conversation.
			if rerr := db.WithContext(ctx).
				Where("customer_id = ?", customerID).
				First(&existing).Error; rerr == nil {
				return &existing, nil
			}
		}
		return nil, cerr
	}
	return c, nil
}

// GetConversation fetches a single conversation by its ID. If the record does
// not exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
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

// GetConversationByCustomer fetches the conversation owned by customerID,
// or ErrNotFound when the customer has never written. It never creates.
func GetConversationByCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountConversations returns the total number of conversations.
// On DB error, it returns the error.
func CountConversations(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Count(&total).Error
	return total, err
}

// ListConversations returns a paginated admin inbox: every conversation with
// its most recent message (any sender) as preview text, ordered so that
// threads with recent activity come first and never-used threads last.
//
// The caller is responsible for computing offset and limit
// (e.g., (page-1)*pageSize).
func ListConversations(ctx context.Context, db *gorm.DB, offset, limit int) ([]ConversationSummary, error) {
	var out []ConversationSummary
	err := db.WithContext(ctx).Raw(`
		SELECT
			c.id          AS id,
			c.customer_id AS customer_id,
			(SELECT m.body FROM messages m
			   WHERE m.conversation_id = c.id AND m.deleted_at IS NULL
			   ORDER BY m.created_at DESC, m.id DESC LIMIT 1) AS last_message,
			(SELECT m.created_at FROM messages m
			   WHERE m.conversation_id = c.id AND m.deleted_at IS NULL
			   ORDER BY m.created_at DESC, m.id DESC LIMIT 1) AS last_message_at
		FROM conversations c
		WHERE c.deleted_at IS NULL
		ORDER BY (last_message_at IS NULL) ASC, last_message_at DESC, c.created_at DESC
		LIMIT ? OFFSET ?`, limit, offset).
		Scan(&out).Error
	return out, err
}

// isUniqueViolation detects unique-constraint failures across the error
// shapes the pure-Go SQLite driver produces.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
