// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charanaquarium/chat-backend/internal/domain"
)

// CreateMessage inserts a new message row. Automated replies must be created
// with senderID = domain.SystemSenderID, senderRole = domain.RoleAdmin, and
// automated = true.
func CreateMessage(db *gorm.DB, conversationID, senderID, senderRole, senderName, body string, automated bool) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderRole:     senderRole,
		SenderName:     senderName,
		Body:           body,
		Automated:      automated,
		CreatedAt:      time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(db *gorm.DB, conversationID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("conversation_id = ?", conversationID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error (as tests expect).
func CountMessages(db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND deleted_at IS NULL", conversationID).Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListRecentMessages returns up to limit most recent messages of any sender,
// newest first. Used to assemble the generative backend's conversational
// context; callers must sort explicitly before use and not rely on the
// returned order.
func ListRecentMessages(ctx context.Context, db *gorm.DB, conversationID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListRecentCustomerMessages returns up to limit most recent customer-authored,
// non-automated messages, newest first. This is the window the routing engine
// scans for escalation and return-to-automation signals.
func ListRecentCustomerMessages(ctx context.Context, db *gorm.DB, conversationID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ? AND sender_role = ? AND is_automated = ?", conversationID, domain.RoleCustomer, false).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// FindRecentDuplicate looks for an identical message from the same sender in
// the same conversation created within the given window before now. It is
// used to absorb rapid double-submits without re-invoking the generative
// backend. Returns (nil, nil) when no duplicate exists.
func FindRecentDuplicate(ctx context.Context, db *gorm.DB, conversationID, senderID, body string, window time.Duration) (*domain.Message, error) {
	var m domain.Message
	cutoff := time.Now().UTC().Add(-window)
	err := db.WithContext(ctx).
		Where("conversation_id = ? AND sender_id = ? AND body = ? AND created_at > ?",
			conversationID, senderID, body, cutoff).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// MarkAdminMessagesRead flips the customer-side read receipt on every
// admin-authored message (human or automated) in the conversation. It returns
// the number of rows updated. Message bodies and ordering keys are never
// touched; read is the only mutable column.
func MarkAdminMessagesRead(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_role = ? AND read = ?", conversationID, domain.RoleAdmin, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// GetMessage fetches a message by ID.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
