package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entry := &Entry{
		Key:       "https://api.coingecko.com/api/v3/search/trending",
		Payload:   json.RawMessage(`{"coins":[]}`),
		FetchedAt: time.Now(),
	}

	if err := store.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got.Payload) != string(entry.Payload) {
		t.Errorf("Payload = %s, want %s", got.Payload, entry.Payload)
	}
	if !got.FetchedAt.Equal(entry.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, entry.FetchedAt)
	}
}

func TestMemoryStore_Load_Miss(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryStore_SaveReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Now()

	_ = store.Save(ctx, &Entry{Key: "k", Payload: json.RawMessage(`"a"`), FetchedAt: t0})
	_ = store.Save(ctx, &Entry{Key: "k", Payload: json.RawMessage(`"b"`), FetchedAt: t0.Add(time.Minute)})

	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got.Payload) != `"b"` || !got.FetchedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("entry not replaced as a unit: %s at %v", got.Payload, got.FetchedAt)
	}

	n, _ := store.Len(ctx)
	if n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Now()

	_ = store.Save(ctx, &Entry{Key: "k", Payload: json.RawMessage(`1`), FetchedAt: t0})

	got, _ := store.Load(ctx, "k")
	got.FetchedAt = t0.Add(time.Hour)

	again, _ := store.Load(ctx, "k")
	if !again.FetchedAt.Equal(t0) {
		t.Error("mutating a loaded entry changed the stored entry")
	}
}

func TestMemoryStore_Save_NilEntry(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save with nil entry should return error")
	}
}
