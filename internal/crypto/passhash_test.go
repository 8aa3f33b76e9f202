package crypto

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHash_SaltedAndCost(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	h1, err := h.Hash("p@ssw0rd")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash("p@ssw0rd")
	if err != nil {
		t.Fatalf("Hash(2): %v", err)
	}
	if bytes.Equal(h1, h2) {
		t.Fatalf("two hashes of the same password are equal, salt missing")
	}
	cost, err := bcrypt.Cost(h1)
	if err != nil || cost != bcrypt.MinCost {
		t.Fatalf("cost=%d err=%v, want %d", cost, err, bcrypt.MinCost)
	}
}

func TestNewHasher_OutOfRangeCost(t *testing.T) {
	t.Parallel()

	if h := NewHasher(0); h.cost != DefaultCost {
		t.Fatalf("cost=%d, want default", h.cost)
	}
	if h := NewHasher(bcrypt.MaxCost + 1); h.cost != DefaultCost {
		t.Fatalf("cost=%d, want default", h.cost)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if ok, err := h.Verify(hash, "correct horse battery staple"); err != nil || !ok {
		t.Fatalf("Verify: expected true, got ok=%v err=%v", ok, err)
	}
	if ok, err := h.Verify(hash, "wrong"); err != nil || ok {
		t.Fatalf("Verify: expected (false, nil) for wrong password, got ok=%v err=%v", ok, err)
	}
	if ok, err := h.Verify([]byte("not-a-hash"), "x"); err == nil || ok {
		t.Fatalf("Verify: expected error for malformed hash, got ok=%v err=%v", ok, err)
	}
}
