// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of chat messages and automated replies. It validates
// inputs, resolves the target conversation, suppresses rapid duplicate
// submissions, and decides per message whether the assistant answers or the
// conversation is left for a human. When the assistant answers, the reply is
// synthesized from recent conversation context and persisted alongside the
// customer message.
//
// Observability: the send pipeline is OpenTelemetry-instrumented; spans
// include conversation/user identifiers and the routing outcome.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/charanaquarium/chat-backend/internal/assist"
	"github.com/charanaquarium/chat-backend/internal/domain"
	"github.com/charanaquarium/chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// defaultDuplicateWindow suppresses identical re-submissions (double
	// clicks, retries) arriving within this interval.
	defaultDuplicateWindow = 2 * time.Second

	// defaultHistoryFetch bounds how many stored messages are pulled as raw
	// material for the synthesis context.
	defaultHistoryFetch = 10
)

// dbHistory adapts the message repository to the routing engine's history
// interface.
type dbHistory struct {
	db *gorm.DB
}

// NewEngineHistory returns an assist.HistoryReader backed by the messages
// table.
func NewEngineHistory(db *gorm.DB) assist.HistoryReader {
	return dbHistory{db: db}
}

func (h dbHistory) RecentCustomerMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	return repo.ListRecentCustomerMessages(ctx, h.db, conversationID, limit)
}

// SendInput carries one incoming chat message and its sender identity.
type SendInput struct {
	UserID string
	Role   string
	Name   string
	// ConversationID targets an existing conversation. Required for admin
	// senders; customers are always routed to their own conversation and may
	// leave it empty.
	ConversationID string
	Body           string
}

// SendResult is the outcome of a send: the stored message, the conversation
// it landed in, and the automated reply when one was produced. Duplicate is
// set when the message was recognized as a rapid re-submission; Message then
// points at the original row and nothing new was stored.
type SendResult struct {
	Conversation *domain.Conversation
	Message      *domain.Message
	Reply        *domain.Message
	Duplicate    bool
}

// MessageService coordinates message persistence, duplicate suppression,
// routing, and reply synthesis.
type MessageService struct {
	DB     *gorm.DB
	Engine *assist.Engine
	Synth  *assist.Synthesizer

	// MaxBodyRunes caps message length when positive.
	MaxBodyRunes int
	// DuplicateWindow overrides defaultDuplicateWindow when positive.
	DuplicateWindow time.Duration
	// HistoryFetch overrides defaultHistoryFetch when positive.
	HistoryFetch int
}

// Send validates and stores an incoming message, then runs the routing
// decision and, when automated handling wins, synthesizes and stores the
// reply. A failed synthesis persistence is logged and reported as a sent
// message without a reply; the customer message is never lost to a reply
// failure.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("user.role", in.Role),
		),
	)
	defer span.End()

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}
	if in.UserID == "" {
		return nil, ErrMissingUser
	}
	if in.Role != domain.RoleCustomer && in.Role != domain.RoleAdmin {
		return nil, ErrInvalidRole
	}

	conv, err := s.resolveConversation(ctx, in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	window := s.DuplicateWindow
	if window <= 0 {
		window = defaultDuplicateWindow
	}
	if dup, err := repo.FindRecentDuplicate(ctx, s.DB, conv.ID, in.UserID, body, window); err != nil {
		return nil, err
	} else if dup != nil {
		span.SetAttributes(attribute.Bool("message.duplicate", true))
		return &SendResult{Conversation: conv, Message: dup, Duplicate: true}, nil
	}

	msg, err := repo.CreateMessage(s.DB.WithContext(ctx), conv.ID, in.UserID, in.Role, in.Name, body, false)
	if err != nil {
		return nil, err
	}

	res := &SendResult{Conversation: conv, Message: msg}

	automated := s.Engine != nil && s.Engine.Decide(ctx, conv.ID, body, in.Role)
	span.SetAttributes(attribute.Bool("routing.automated", automated))
	if !automated || s.Synth == nil {
		return res, nil
	}

	history, err := s.replyContext(ctx, conv.ID, msg.ID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID).
			Msg("loading reply context failed; synthesizing without history")
		history = nil
	}
	reply := s.Synth.Reply(ctx, body, history)

	replyMsg, err := repo.CreateMessage(s.DB.WithContext(ctx),
		conv.ID, domain.SystemSenderID, domain.RoleAdmin, domain.AutomatedSenderName, reply, true)
	if err != nil {
		// The customer message is already stored; surface the send as
		// successful and let a human pick the conversation up.
		log.Warn().Err(err).Str("conversation_id", conv.ID).
			Msg("storing automated reply failed")
		return res, nil
	}
	res.Reply = replyMsg
	return res, nil
}

// resolveConversation finds the conversation a message belongs to. Customers
// own exactly one conversation, created on first contact; admins must target
// an existing one.
func (s *MessageService) resolveConversation(ctx context.Context, in SendInput) (*domain.Conversation, error) {
	if in.Role == domain.RoleCustomer {
		return repo.EnsureConversation(ctx, s.DB, in.UserID)
	}
	conv, err := repo.GetConversation(ctx, s.DB, in.ConversationID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// replyContext loads the most recent stored messages of the conversation,
// excluding the message currently being answered.
func (s *MessageService) replyContext(ctx context.Context, conversationID, excludeID string) ([]domain.Message, error) {
	fetch := s.HistoryFetch
	if fetch <= 0 {
		fetch = defaultHistoryFetch
	}
	recent, err := repo.ListRecentMessages(ctx, s.DB, conversationID, fetch+1)
	if err != nil {
		return nil, err
	}
	out := recent[:0]
	for _, m := range recent {
		if m.ID == excludeID {
			continue
		}
		out = append(out, m)
	}
	if len(out) > fetch {
		out = out[:fetch]
	}
	return out, nil
}
