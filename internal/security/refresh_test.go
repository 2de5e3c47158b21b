package security

import (
	"strings"
	"testing"
)

func TestNewRefreshToken_Shape(t *testing.T) {
	token := NewRefreshToken()
	if len(token) != 32 {
		t.Errorf("token length = %d, want 32", len(token))
	}
	if strings.Contains(token, "-") {
		t.Errorf("token %q should not contain dashes", token)
	}
	if token != strings.ToLower(token) {
		t.Errorf("token %q should be lowercase", token)
	}
	for _, r := range token {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			t.Fatalf("token %q contains non-hex character %q", token, r)
		}
	}
}

func TestNewRefreshToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token := NewRefreshToken()
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}
