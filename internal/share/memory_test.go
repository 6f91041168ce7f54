package share

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestHashIsStable(t *testing.T) {
	a := Hash([]byte(`{"code":"x"}`))
	b := Hash([]byte(`{"code":"x"}`))
	c := Hash([]byte(`{"code":"y"}`))

	if a != b {
		t.Errorf("same payload produced different hashes %q and %q", a, b)
	}
	if a == c {
		t.Error("different payloads produced the same hash")
	}
	if len(a) < 10 || len(a) > 20 {
		t.Errorf("unexpected hash length %d for %q", len(a), a)
	}
}

func TestMemoryStoreSaveGet(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	payload := json.RawMessage(`{"syntax":"cameligo","code":"let main = ()"}`)

	hash, err := s.Save(ctx, payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	again, _ := s.Save(ctx, payload)
	if hash != again {
		t.Errorf("expected identical hash on resave, got %q and %q", hash, again)
	}

	snap, err := s.Get(ctx, hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(snap.Payload) != string(payload) {
		t.Errorf("expected payload %s, got %s", payload, snap.Payload)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(0)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	first, _ := s.Save(ctx, json.RawMessage(`{"n":1}`))
	_, _ = s.Save(ctx, json.RawMessage(`{"n":2}`))
	third, _ := s.Save(ctx, json.RawMessage(`{"n":3}`))

	if _, err := s.Get(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected oldest snapshot evicted, got %v", err)
	}
	if _, err := s.Get(ctx, third); err != nil {
		t.Errorf("newest snapshot missing: %v", err)
	}
}
