package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestEnsureConversation_CreatesOnce(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	c1, err := EnsureConversation(ctx, db, "cust-1")
	if err != nil {
		t.Fatalf("first EnsureConversation: %v", err)
	}
	if c1.ID == "" || c1.CustomerID != "cust-1" {
		t.Fatalf("unexpected conversation: %+v", c1)
	}

	c2, err := EnsureConversation(ctx, db, "cust-1")
	if err != nil {
		t.Fatalf("second EnsureConversation: %v", err)
	}
	if c2.ID != c1.ID {
		t.Fatalf("expected same conversation id, got %q vs %q", c2.ID, c1.ID)
	}

	total, err := CountConversations(ctx, db)
	if err != nil {
		t.Fatalf("CountConversations: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly one conversation, got %d", total)
	}
}

func TestEnsureConversation_DistinctCustomers(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a, _ := EnsureConversation(ctx, db, "cust-a")
	b, _ := EnsureConversation(ctx, db, "cust-b")
	if a.ID == b.ID {
		t.Fatalf("expected distinct conversations per customer")
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	db := newRepoDB(t)

	if _, err := GetConversation(context.Background(), db, "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := GetConversationByCustomer(context.Background(), db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListConversations_OrderAndPreview(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	older, _ := EnsureConversation(ctx, db, "cust-old")
	newer, _ := EnsureConversation(ctx, db, "cust-new")
	empty, _ := EnsureConversation(ctx, db, "cust-empty")

	mOld, err := CreateMessage(db, older.ID, "cust-old", "customer", "Old", "first question", false)
	if err != nil {
		t.Fatalf("create old msg: %v", err)
	}
	// Force a strictly earlier timestamp so ordering is deterministic.
	if err := db.Model(mOld).Update("created_at", time.Now().UTC().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if _, err := CreateMessage(db, newer.ID, "cust-new", "customer", "New", "latest question", false); err != nil {
		t.Fatalf("create new msg: %v", err)
	}

	rows, err := ListConversations(ctx, db, 0, 10)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ID != newer.ID {
		t.Fatalf("expected most recently active first, got %q", rows[0].ID)
	}
	if rows[0].LastMessage != "latest question" {
		t.Fatalf("expected preview of last message, got %q", rows[0].LastMessage)
	}
	// Never-used threads sort last with no preview.
	if rows[2].ID != empty.ID {
		t.Fatalf("expected empty conversation last, got %q", rows[2].ID)
	}
	if rows[2].LastMessage != "" || rows[2].LastMessageAt != nil {
		t.Fatalf("expected empty preview for unused conversation, got %+v", rows[2])
	}
}

func TestListConversations_Pagination(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3"} {
		if _, err := EnsureConversation(ctx, db, id); err != nil {
			t.Fatalf("ensure %s: %v", id, err)
		}
	}

	page, err := ListConversations(ctx, db, 1, 2)
	if err != nil {
		t.Fatalf("ListConversations offset: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
}
