package repo

import (
	"context"
	"testing"

	"github.com/charanaquarium/chat-backend/internal/domain"
)

func TestConversationsStats_EmptyAndPopulated(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	count, maxTS, err := ConversationsStats(ctx, db)
	if err != nil {
		t.Fatalf("ConversationsStats empty: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil) on empty table, got (%d, %v)", count, maxTS)
	}

	if _, err := EnsureConversation(ctx, db, "cust-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	count, maxTS, err = ConversationsStats(ctx, db)
	if err != nil {
		t.Fatalf("ConversationsStats: %v", err)
	}
	if count != 1 || maxTS == nil {
		t.Fatalf("expected (1, non-nil), got (%d, %v)", count, maxTS)
	}
}

func TestMessagesStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	conv, _ := EnsureConversation(ctx, db, "cust-1")

	count, maxTS, err := MessagesStats(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("MessagesStats empty: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxTS)
	}

	if _, err := CreateMessage(db, conv.ID, "cust-1", domain.RoleCustomer, "K", "hi", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	count, maxTS, err = MessagesStats(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("MessagesStats: %v", err)
	}
	if count != 1 || maxTS == nil {
		t.Fatalf("expected (1, non-nil), got (%d, %v)", count, maxTS)
	}
}
