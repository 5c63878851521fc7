package auth

import (
	"strings"
	"testing"
)

func TestTokenCipherRoundTrip(t *testing.T) {
	c := NewTokenCipher("0123456789abcdef0123456789abcdef", "")
	sealed := c.Seal("user-1", "evo-session-token")
	if sealed == "evo-session-token" {
		t.Fatalf("token must be sealed when a key is configured")
	}
	if !strings.Contains(sealed, "aes-gcm-v1") {
		t.Fatalf("sealed value is not an envelope: %s", sealed)
	}
	if got := c.Open("user-1", sealed); got != "evo-session-token" {
		t.Fatalf("open = %q", got)
	}
}

func TestTokenCipherBindsUser(t *testing.T) {
	c := NewTokenCipher("0123456789abcdef0123456789abcdef", "")
	sealed := c.Seal("user-1", "tok")
	if got := c.Open("user-2", sealed); got == "tok" {
		t.Fatalf("another user's id must not open the token")
	}
}

func TestTokenCipherNoKeyPassthrough(t *testing.T) {
	var c *TokenCipher
	if got := c.Seal("u", "tok"); got != "tok" {
		t.Fatalf("nil cipher seal = %q", got)
	}
	empty := NewTokenCipher("", "")
	if got := empty.Seal("u", "tok"); got != "tok" {
		t.Fatalf("keyless seal = %q", got)
	}
	if got := empty.Open("u", "tok"); got != "tok" {
		t.Fatalf("keyless open = %q", got)
	}
}

func TestTokenCipherKeyRotation(t *testing.T) {
	old := NewTokenCipher("0123456789abcdef0123456789abcdef", "")
	sealed := old.Seal("u", "tok")

	rotated := NewTokenCipher("fedcba9876543210fedcba9876543210", "0123456789abcdef0123456789abcdef")
	if got := rotated.Open("u", sealed); got != "tok" {
		t.Fatalf("previous key must still open: %q", got)
	}
}

func TestTokenCipherLegacyPlaintext(t *testing.T) {
	c := NewTokenCipher("0123456789abcdef0123456789abcdef", "")
	if got := c.Open("u", "plain-old-token"); got != "plain-old-token" {
		t.Fatalf("non-envelope values must pass through, got %q", got)
	}
}

func TestTokenCipherRejectsShortKey(t *testing.T) {
	c := NewTokenCipher("tiny", "")
	if got := c.Seal("u", "tok"); got != "tok" {
		t.Fatalf("a too-short key must disable sealing, got %q", got)
	}
}
