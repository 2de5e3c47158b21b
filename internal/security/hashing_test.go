package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher_CostClamping(t *testing.T) {
	testCases := []struct {
		name string
		in   int
		want int
	}{
		{"zero uses default", 0, bcrypt.DefaultCost},
		{"negative uses default", -1, bcrypt.DefaultCost},
		{"below min clamps", 2, bcrypt.MinCost},
		{"above max clamps", 40, bcrypt.MaxCost},
		{"valid passes through", 10, 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewHasher(tc.in).Cost; got != tc.want {
				t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q does not look like bcrypt", hash)
	}
	if !h.Verify("correct horse battery staple", hash) {
		t.Error("Verify should succeed for matching password")
	}
	if h.Verify("wrong password", hash) {
		t.Error("Verify should fail for wrong password")
	}
	if h.Verify("correct horse battery staple", "not-a-hash") {
		t.Error("Verify should fail for malformed hash")
	}
}

func TestHasher_HashesDiffer(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	h1, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}
