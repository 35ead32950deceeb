package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotency_CreateGetRoundtrip(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u1", "conv1", "k1", "m1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.MessageID != "m1" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "conv1", "k1", now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("expected stored record back, got %+v", got)
	}
}

func TestIdempotency_DuplicateKey(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "conv1", "k1", "m1", 200, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "conv1", "k1", "m2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_Expired(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "conv1", "k1", "m1", 200, time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Look up well past expiry.
	if _, err := GetIdempotency(ctx, db, "u1", "conv1", "k1", time.Now().UTC().Add(time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired record, got %v", err)
	}
}

// Message sends key their records with an empty conversation id (the thread
// is resolved server-side). Those records must round-trip like any other.
func TestIdempotency_EmptyConversationIDRoundtrip(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u1", "", "k-send", "m1", 200, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := GetIdempotency(ctx, db, "u1", "", "k-send", now)
	if err != nil {
		t.Fatalf("GetIdempotency with empty conversation id: %v", err)
	}
	if got.ID != rec.ID || got.MessageID != "m1" {
		t.Fatalf("expected stored record back, got %+v", got)
	}
}
