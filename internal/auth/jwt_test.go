package auth

import (
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	j := JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour}
	token, expiresAt, err := j.Sign(Claims{UserID: "user-1", Role: RoleUser})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry %v should be in the future", expiresAt)
	}

	claims, err := j.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("user id = %q", claims.UserID)
	}
	if claims.Role != RoleUser {
		t.Fatalf("role = %q", claims.Role)
	}
	if claims.Issuer != "lobbywatch" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := JWT{Secret: []byte("secret-a"), TokenTTL: time.Hour}.Sign(Claims{UserID: "u", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := (JWT{Secret: []byte("secret-b")}).Verify(token); err == nil {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	j := JWT{Secret: []byte("s"), TokenTTL: time.Hour}
	if _, err := j.Verify("not.a.token"); err == nil {
		t.Fatalf("garbage token must not verify")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("hash must not be the plaintext")
	}
	if !VerifyPassword(hash, "hunter2") {
		t.Fatalf("correct password must verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatalf("wrong password must not verify")
	}
}
