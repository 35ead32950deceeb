package assist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/charanaquarium/chat-backend/internal/domain"
)

// DefaultHistoryWindow bounds how many recent customer messages the engine
// scans when the current message carries no routing keyword.
const DefaultHistoryWindow = 20

// HistoryReader supplies the recent non-automated customer messages of a
// conversation, newest first, for the routing scan.
type HistoryReader interface {
	RecentCustomerMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
}

// Engine decides, per incoming message, whether the service should answer
// automatically or stay silent and leave the conversation to a human.
type Engine struct {
	// Enabled is false when no generative backend credential is configured;
	// every decision is then human-handled regardless of content.
	Enabled bool

	// History feeds the keyword scan over prior customer messages. A nil
	// reader skips the scan and defaults to automated handling.
	History HistoryReader

	// HistoryWindow overrides DefaultHistoryWindow when positive.
	HistoryWindow int
}

// Decide reports whether the message identified by body and senderRole, in
// the given conversation, should receive an automated reply.
//
// Precedence, highest first: non-customer senders never trigger automation;
// a disabled engine never automates; a return keyword in the current message
// forces automation; an escalation keyword in the current message forces
// human handling; otherwise the most recent routing keyword across the
// history window wins, and a conversation with no routing keywords at all is
// automated.
func (e *Engine) Decide(ctx context.Context, conversationID, body, senderRole string) bool {
	if senderRole != domain.RoleCustomer {
		return false
	}
	if !e.Enabled {
		return false
	}

	norm := normalize(body)
	if matchesAny(norm, returnKeywords) {
		return true
	}
	if matchesAny(norm, escalationKeywords) {
		return false
	}

	if e.History == nil {
		return true
	}
	window := e.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	msgs, err := e.History.RecentCustomerMessages(ctx, conversationID, window)
	if err != nil {
		// Fail open: an unreadable history must not silence the assistant.
		log.Warn().Err(err).Str("conversation_id", conversationID).
			Msg("routing history scan failed; defaulting to automated handling")
		return true
	}

	var lastEscalate, lastReturn time.Time
	for _, m := range msgs {
		n := normalize(m.Body)
		if matchesAny(n, returnKeywords) && m.CreatedAt.After(lastReturn) {
			lastReturn = m.CreatedAt
		}
		if matchesAny(n, escalationKeywords) && m.CreatedAt.After(lastEscalate) {
			lastEscalate = m.CreatedAt
		}
	}
	if lastEscalate.IsZero() {
		return true
	}
	// Most recent keyword wins; a tie keeps the conversation escalated.
	return lastReturn.After(lastEscalate)
}
