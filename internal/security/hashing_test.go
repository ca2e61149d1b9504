package security

import (
	"context"
	"errors"
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4, 1)
	ctx := context.Background()
	hash, err := h.Hash(ctx, "Secret@123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if hash == "Secret@123" {
		t.Fatal("Hash returned plaintext")
	}
	if !h.Compare(ctx, "Secret@123", hash) {
		t.Fatal("Compare should match")
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(4, 1)
	hash, _ := h.Hash(context.Background(), "Secret@123")
	if h.Compare(context.Background(), "wrong", hash) {
		t.Fatal("Compare with wrong password should fail")
	}
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	h := NewHasher(4, 1)
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$10$short"} {
		if h.Compare(context.Background(), "Secret@123", hash) {
			t.Errorf("Compare(%q) should be false", hash)
		}
	}
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(4, 2)
	a, _ := h.Hash(context.Background(), "Secret@123")
	b, _ := h.Hash(context.Background(), "Secret@123")
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12, 0)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0, 0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	hHigh := NewHasher(99, 0)
	if hHigh.Cost != 31 {
		t.Errorf("cost above MaxCost should clamp to 31, got %d", hHigh.Cost)
	}
}

func TestHasher_CancelledContext(t *testing.T) {
	h := NewHasher(4, 1)
	hash, _ := h.Hash(context.Background(), "Secret@123")

	// Hold the only slot so the next caller has to wait on its context.
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Hash(ctx, "Secret@123"); !errors.Is(err, context.Canceled) {
		t.Errorf("Hash with cancelled ctx: want context.Canceled, got %v", err)
	}
	if h.Compare(ctx, "Secret@123", hash) {
		t.Error("Compare with cancelled ctx should be false")
	}
}
