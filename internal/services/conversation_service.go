// Package services – ConversationService
//
// This file implements the ConversationService, which exposes the
// conversation views of the chat: the admin inbox (all conversations with a
// last-message preview), a customer's own thread, and per-conversation
// message pages. It also marks human replies as read on behalf of the
// customer. Service-level errors (e.g. ErrConversationNotFound) are returned
// for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/charanaquarium/chat-backend/internal/domain"
	"github.com/charanaquarium/chat-backend/internal/repo"
)

// ConversationService provides read and housekeeping operations over
// conversations.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{DB: db}
}

// ListPage returns a page of conversation summaries for the admin inbox,
// most recently active first, plus the total count. It applies defaults for
// invalid page/pageSize.
func (s *ConversationService) ListPage(ctx context.Context, page, pageSize int) ([]repo.ConversationSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountConversations(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []repo.ConversationSummary{}, 0, nil
	}

	items, err := repo.ListConversations(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Get fetches a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := repo.GetConversation(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// MessagesForCustomer returns the most recent messages of the customer's own
// conversation in chronological order. A customer who has never written gets
// an empty slice, not an error.
func (s *ConversationService) MessagesForCustomer(ctx context.Context, customerID string, limit int) ([]domain.Message, error) {
	conv, err := repo.GetConversationByCustomer(ctx, s.DB, customerID)
	if err != nil {
		if isNotFound(err) {
			return []domain.Message{}, nil
		}
		return nil, err
	}
	return repo.ListMessages(s.DB.WithContext(ctx), conv.ID, limit)
}

// MessagesPage returns paginated messages for a conversation, oldest first.
func (s *ConversationService) MessagesPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := s.Get(ctx, conversationID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), conversationID, offset, pageSize)
	return items, total, err
}

// MarkRead flags all admin-side messages of the conversation as read and
// returns how many rows changed. Marking an already-read conversation again
// is a no-op.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	if _, err := s.Get(ctx, conversationID); err != nil {
		return 0, err
	}
	return repo.MarkAdminMessagesRead(ctx, s.DB, conversationID)
}
