package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"strings"
)

const (
	tokenKeyEnv     = "LW_TOKEN_ENCRYPTION_KEY"
	tokenPrevKeyEnv = "LW_TOKEN_ENCRYPTION_PREV_KEY"
)

type sealedToken struct {
	Enc   string `json:"enc"`
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

// TokenCipher seals upstream session tokens before they reach the database.
// The previous key is tried on open so keys can rotate without locking users
// out. With no key configured, tokens pass through unchanged.
type TokenCipher struct {
	primary cipher.AEAD
	all     []cipher.AEAD
}

// NewTokenCipher builds a cipher from the key material. Keys may be base64
// or raw bytes; anything shorter than 16 bytes is rejected.
func NewTokenCipher(key, prevKey string) *TokenCipher {
	c := &TokenCipher{}
	seen := map[string]struct{}{}
	for i, k := range []string{strings.TrimSpace(key), strings.TrimSpace(prevKey)} {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		gcm := newGCM(parseTokenKey(k))
		if gcm == nil {
			continue
		}
		if i == 0 {
			c.primary = gcm
		}
		c.all = append(c.all, gcm)
	}
	return c
}

func NewTokenCipherFromEnv() *TokenCipher {
	return NewTokenCipher(os.Getenv(tokenKeyEnv), os.Getenv(tokenPrevKeyEnv))
}

// Seal encrypts the token bound to the owning user id. A missing key or any
// crypto failure returns the token as-is so a misconfigured key never loses
// a session.
func (c *TokenCipher) Seal(userID, token string) string {
	if c == nil || c.primary == nil || token == "" {
		return token
	}
	nonce := make([]byte, c.primary.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return token
	}
	ct := c.primary.Seal(nil, nonce, []byte(token), tokenAAD(userID))
	out, err := json.Marshal(sealedToken{
		Enc:   "aes-gcm-v1",
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		Data:  base64.StdEncoding.EncodeToString(ct),
	})
	if err != nil {
		return token
	}
	return string(out)
}

// Open decrypts a sealed token, trying every configured key. Values that are
// not sealed envelopes come back untouched, which covers rows written before
// encryption was enabled.
func (c *TokenCipher) Open(userID, token string) string {
	if c == nil || len(c.all) == 0 || token == "" {
		return token
	}
	var payload sealedToken
	if err := json.Unmarshal([]byte(token), &payload); err != nil {
		return token
	}
	if payload.Enc != "aes-gcm-v1" || payload.Nonce == "" || payload.Data == "" {
		return token
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return token
	}
	ct, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return token
	}
	for _, gcm := range c.all {
		if pt, err := gcm.Open(nil, nonce, ct, tokenAAD(userID)); err == nil {
			return string(pt)
		}
	}
	return token
}

func tokenAAD(userID string) []byte {
	return []byte(strings.TrimSpace(strings.ToLower(userID)))
}

func parseTokenKey(k string) []byte {
	keyBytes, err := base64.StdEncoding.DecodeString(k)
	if err != nil {
		keyBytes = []byte(k)
	}
	switch {
	case len(keyBytes) >= 32:
		return keyBytes[:32]
	case len(keyBytes) >= 24:
		return keyBytes[:24]
	case len(keyBytes) >= 16:
		return keyBytes[:16]
	default:
		return nil
	}
}

func newGCM(keyBytes []byte) cipher.AEAD {
	if len(keyBytes) == 0 {
		return nil
	}
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil
	}
	return gcm
}
