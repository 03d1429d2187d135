package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestStatic(t *testing.T) {
	token, err := Static("  abc  ").Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if token != "abc" {
		t.Fatalf("expected trimmed token, got %q", token)
	}

	if _, err := Static("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken for empty static provider, got %v", err)
	}
}

func TestHolder_StartsEmptyAndRotates(t *testing.T) {
	h := NewHolder()
	if _, err := h.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken before Set, got %v", err)
	}

	h.Set("first")
	if token, _ := h.Token(context.Background()); token != "first" {
		t.Fatalf("expected %q, got %q", "first", token)
	}

	h.Set("second")
	if token, _ := h.Token(context.Background()); token != "second" {
		t.Fatalf("expected rotated token, got %q", token)
	}
}

func TestFileProvider_ReadsOnEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("tok-1\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	p := &FileProvider{Path: path}
	if token, err := p.Token(context.Background()); err != nil || token != "tok-1" {
		t.Fatalf("expected tok-1, got %q err=%v", token, err)
	}

	if err := os.WriteFile(path, []byte("tok-2"), 0o600); err != nil {
		t.Fatalf("rewrite token file: %v", err)
	}
	if token, _ := p.Token(context.Background()); token != "tok-2" {
		t.Fatalf("expected refreshed token, got %q", token)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "CUS-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	got, err := TokenExpiry(signed)
	if err != nil {
		t.Fatalf("TokenExpiry returned error: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, got)
	}
}

func TestTokenExpiry_NoExpClaim(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "CUS-1",
	}).SignedString([]byte("key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	got, err := TokenExpiry(signed)
	if err != nil {
		t.Fatalf("TokenExpiry returned error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero time for tokens without exp, got %v", got)
	}
}

func TestTokenExpiry_Garbage(t *testing.T) {
	if _, err := TokenExpiry("not-a-jwt"); err == nil {
		t.Fatal("expected an error for malformed tokens")
	}
}
