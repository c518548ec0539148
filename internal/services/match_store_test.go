package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/referral-backend/internal/testutil"
	"github.com/careloop/referral-backend/internal/types"
)

func newTestSession(clientID uuid.UUID, category types.Category, at time.Time) *types.MatchSession {
	return &types.MatchSession{
		ClientID:     clientID,
		Category:     category,
		CreatedAt:    at,
		LastActivity: at,
	}
}

func TestMemoryMatchStoreRoundTrip(t *testing.T) {
	store := NewMemoryMatchStore(testutil.Logger(t), time.Hour)
	ctx := context.Background()
	clientID := uuid.New()

	if s, err := store.Get(ctx, clientID, types.CategoryFood); err != nil || s != nil {
		t.Fatalf("empty store Get: session=%v err=%v", s, err)
	}

	session := newTestSession(clientID, types.CategoryFood, time.Now().UTC())
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, clientID, types.CategoryFood)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ClientID != clientID {
		t.Fatalf("Get returned %+v", got)
	}

	// Same client, different category is a different session.
	if s, _ := store.Get(ctx, clientID, types.CategoryHousing); s != nil {
		t.Fatal("housing session should not exist")
	}

	if err := store.Delete(ctx, clientID, types.CategoryFood); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s, _ := store.Get(ctx, clientID, types.CategoryFood); s != nil {
		t.Fatal("session should be gone after Delete")
	}
}

func TestMemoryMatchStoreTTLExpiry(t *testing.T) {
	store := NewMemoryMatchStore(testutil.Logger(t), 2*time.Hour)
	current := time.Now().UTC()
	store.now = func() time.Time { return current }

	ctx := context.Background()
	clientID := uuid.New()
	if err := store.Put(ctx, newTestSession(clientID, types.CategoryHousing, current)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Just inside the window.
	current = current.Add(2 * time.Hour)
	if s, _ := store.Get(ctx, clientID, types.CategoryHousing); s == nil {
		t.Fatal("session at exactly the TTL boundary should survive")
	}

	// Past the window: reads as absent.
	current = current.Add(time.Second)
	if s, _ := store.Get(ctx, clientID, types.CategoryHousing); s != nil {
		t.Fatal("expired session should read as absent")
	}
}

func TestMemoryMatchStoreSweep(t *testing.T) {
	store := NewMemoryMatchStore(testutil.Logger(t), time.Minute)
	current := time.Now().UTC()
	store.now = func() time.Time { return current }

	ctx := context.Background()
	if err := store.Put(ctx, newTestSession(uuid.New(), types.CategoryFood, current)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	current = current.Add(2 * time.Minute)
	store.sweep()

	store.mu.Lock()
	n := len(store.sessions)
	store.mu.Unlock()
	if n != 0 {
		t.Fatalf("sweep left %d sessions", n)
	}
}

func TestMemoryMatchStoreCopiesOnPut(t *testing.T) {
	store := NewMemoryMatchStore(testutil.Logger(t), time.Hour)
	ctx := context.Background()
	clientID := uuid.New()

	session := newTestSession(clientID, types.CategoryFood, time.Now().UTC())
	session.Transcript = []types.MatchTurn{{Role: types.TurnRoleUser, Content: "hi"}}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	session.Transcript[0].Content = "mutated"
	got, _ := store.Get(ctx, clientID, types.CategoryFood)
	if got.Transcript[0].Content != "hi" {
		t.Fatal("store should hold its own copy of the session")
	}
}
