package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/charanaquarium/chat-backend/internal/domain"
	"github.com/charanaquarium/chat-backend/internal/repo"
)

func seedConversation(t *testing.T, s *MessageService, customerID string, bodies ...string) *domain.Conversation {
	t.Helper()
	var conv *domain.Conversation
	for _, b := range bodies {
		res, err := s.Send(context.Background(), SendInput{UserID: customerID, Role: domain.RoleCustomer, Body: b})
		if err != nil {
			t.Fatalf("seed send: %v", err)
		}
		conv = res.Conversation
	}
	return conv
}

func TestConversation_ListPage(t *testing.T) {
	db := newSvcDB(t)
	msgs := &MessageService{DB: db}
	svc := NewConversationService(db)

	items, total, err := svc.ListPage(context.Background(), 0, -1)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty list: items=%v total=%d err=%v", items, total, err)
	}

	seedConversation(t, msgs, "cust-1", "xin chào")
	seedConversation(t, msgs, "cust-2", "cá neon còn không?")

	items, total, err = svc.ListPage(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total=%d len=%d", total, len(items))
	}
	// Most recently active first, with a last-message preview.
	if items[0].CustomerID != "cust-2" || items[0].LastMessage != "cá neon còn không?" {
		t.Fatalf("summary order/preview wrong: %#v", items[0])
	}

	// Page past the end is empty but keeps the total.
	items, total, err = svc.ListPage(context.Background(), 5, 10)
	if err != nil || total != 2 || len(items) != 0 {
		t.Fatalf("far page: items=%v total=%d err=%v", items, total, err)
	}
}

func TestConversation_Get(t *testing.T) {
	db := newSvcDB(t)
	msgs := &MessageService{DB: db}
	svc := NewConversationService(db)

	if _, err := svc.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}

	conv := seedConversation(t, msgs, "cust-1", "xin chào")
	got, err := svc.Get(context.Background(), conv.ID)
	if err != nil || got.CustomerID != "cust-1" {
		t.Fatalf("Get: %#v err=%v", got, err)
	}
}

func TestConversation_MessagesForCustomer(t *testing.T) {
	db := newSvcDB(t)
	msgs := &MessageService{DB: db}
	svc := NewConversationService(db)

	got, err := svc.MessagesForCustomer(context.Background(), "nobody", 50)
	if err != nil || len(got) != 0 {
		t.Fatalf("unknown customer: got=%v err=%v", got, err)
	}

	seedConversation(t, msgs, "cust-1", "một", "hai", "ba")
	got, err = svc.MessagesForCustomer(context.Background(), "cust-1", 50)
	if err != nil {
		t.Fatalf("MessagesForCustomer: %v", err)
	}
	if len(got) != 3 || got[0].Body != "một" || got[2].Body != "ba" {
		t.Fatalf("messages wrong: %#v", got)
	}
}

func TestConversation_MessagesPage(t *testing.T) {
	db := newSvcDB(t)
	msgs := &MessageService{DB: db}
	svc := NewConversationService(db)

	if _, _, err := svc.MessagesPage(context.Background(), uuid.NewString(), 1, 10); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}

	conv := seedConversation(t, msgs, "cust-1", "một", "hai", "ba")
	items, total, err := svc.MessagesPage(context.Background(), conv.ID, 1, 2)
	if err != nil {
		t.Fatalf("MessagesPage: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].Body != "một" {
		t.Fatalf("page wrong: total=%d items=%#v", total, items)
	}

	items, _, err = svc.MessagesPage(context.Background(), conv.ID, 2, 2)
	if err != nil || len(items) != 1 || items[0].Body != "ba" {
		t.Fatalf("second page wrong: %#v err=%v", items, err)
	}
}

func TestConversation_MarkRead(t *testing.T) {
	db := newSvcDB(t)
	msgs := &MessageService{DB: db}
	svc := NewConversationService(db)

	if _, err := svc.MarkRead(context.Background(), uuid.NewString()); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}

	conv := seedConversation(t, msgs, "cust-1", "xin chào")
	if _, err := repo.CreateMessage(db, conv.ID, "admin-1", domain.RoleAdmin, "Shop", "chào bạn", false); err != nil {
		t.Fatalf("seed admin msg: %v", err)
	}

	n, err := svc.MarkRead(context.Background(), conv.ID)
	if err != nil || n != 1 {
		t.Fatalf("MarkRead: n=%d err=%v", n, err)
	}

	// Idempotent.
	n, err = svc.MarkRead(context.Background(), conv.ID)
	if err != nil || n != 0 {
		t.Fatalf("second MarkRead: n=%d err=%v", n, err)
	}
}
