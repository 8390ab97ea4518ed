package store

import (
	"context"
	"testing"
)

func TestAdminSetAddContainsRemove(t *testing.T) {
	manager := newTestManager(t)
	admins := NewAdminSet(manager.DB())

	ctx := context.Background()

	ok, err := admins.Contains(ctx, 42)
	if err != nil {
		t.Fatalf("Contains returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected empty set not to contain user 42")
	}

	if err := admins.Add(ctx, 42); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	ok, err = admins.Contains(ctx, 42)
	if err != nil {
		t.Fatalf("Contains returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected set to contain user 42 after Add")
	}

	if err := admins.Remove(ctx, 42); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	ok, err = admins.Contains(ctx, 42)
	if err != nil {
		t.Fatalf("Contains returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected set not to contain user 42 after Remove")
	}
}

func TestAdminSetAddIsIdempotent(t *testing.T) {
	manager := newTestManager(t)
	admins := NewAdminSet(manager.DB())

	ctx := context.Background()

	if err := admins.Add(ctx, 42); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	if err := admins.Add(ctx, 42); err != nil {
		t.Fatalf("second Add should be a no-op, got error: %v", err)
	}

	ok, err := admins.Contains(ctx, 42)
	if err != nil {
		t.Fatalf("Contains returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected set to contain user 42")
	}
}

func TestAdminSetRemoveIsIdempotent(t *testing.T) {
	manager := newTestManager(t)
	admins := NewAdminSet(manager.DB())

	ctx := context.Background()

	if err := admins.Remove(ctx, 42); err != nil {
		t.Fatalf("Remove of unknown admin should be a no-op, got error: %v", err)
	}

	if err := admins.Add(ctx, 42); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := admins.Remove(ctx, 42); err != nil {
		t.Fatalf("first Remove returned error: %v", err)
	}
	if err := admins.Remove(ctx, 42); err != nil {
		t.Fatalf("second Remove should be a no-op, got error: %v", err)
	}
}

func TestAdminSetRejectsZeroUserID(t *testing.T) {
	manager := newTestManager(t)
	admins := NewAdminSet(manager.DB())

	if err := admins.Add(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero user id")
	}
}

func TestAdminSetNilReceiverGuards(t *testing.T) {
	var admins *AdminSet

	if err := admins.Add(context.Background(), 42); err == nil {
		t.Fatalf("expected error from nil admin set")
	}
	if err := admins.Remove(context.Background(), 42); err == nil {
		t.Fatalf("expected error from nil admin set")
	}
	if _, err := admins.Contains(context.Background(), 42); err == nil {
		t.Fatalf("expected error from nil admin set")
	}
}
