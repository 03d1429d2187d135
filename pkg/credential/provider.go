/**
 * @description
 * This package abstracts the bearer credential the bank-service API calls are
 * made with. In the browser application the token lives in a global storage
 * slot; here it is an injected Provider so the workflow reads the credential
 * at call time and tests can substitute a fake.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: For inspecting token expiry without
 *   verifying the signature (verification is the server's job).
 */

package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when a provider has no credential to hand out.
// Callers treat this as a precondition failure: no request is sent.
var ErrNoToken = errors.New("no bearer token available")

// Provider hands out the bearer token for an outgoing API call. It is
// consulted on every call, so implementations may rotate the token freely.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

type staticProvider string

// Static returns a Provider that always yields the given token.
func Static(token string) Provider {
	return staticProvider(strings.TrimSpace(token))
}

func (p staticProvider) Token(ctx context.Context) (string, error) {
	if p == "" {
		return "", ErrNoToken
	}
	return string(p), nil
}

// FileProvider reads the token from a file on every call, so an external
// refresher can replace the file without restarting the client.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Token(ctx context.Context) (string, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("read token file %s: %w", p.Path, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Holder is a settable in-process token slot, the equivalent of the browser's
// storage entry. It starts empty and is filled after login.
type Holder struct {
	mu    sync.RWMutex
	token string
}

func NewHolder() *Holder { return &Holder{} }

// Set replaces the stored token.
func (h *Holder) Set(token string) {
	h.mu.Lock()
	h.token = strings.TrimSpace(token)
	h.mu.Unlock()
}

func (h *Holder) Token(ctx context.Context) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == "" {
		return "", ErrNoToken
	}
	return h.token, nil
}

// TokenExpiry extracts the exp claim from a JWT without verifying it. The
// zero time is returned when the token carries no expiry.
func TokenExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
