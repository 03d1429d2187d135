/**
 * @description
 * This package provides a typed client for the bank-service REST API. It
 * encapsulates authenticated request construction, JSON encoding/decoding,
 * and the translation of HTTP failures into the client error taxonomy
 * (ErrCardNotFound, *APIError, wrapped transport errors).
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - pkg/credential: Bearer token source, consulted on every call.
 */

package bankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corebank/transfer-workflow/internal/domain"
	"github.com/corebank/transfer-workflow/pkg/credential"
)

// ErrCardNotFound is returned when a card lookup does not resolve to a
// receiver. The user must correct the number and retry; nothing else can
// proceed from this state.
var ErrCardNotFound = errors.New("card not found")

// APIError is a non-2xx response from bank-service that carried a decodable
// error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bank-service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bank-service error (status %d)", e.StatusCode)
}

// Client is a client for the bank-service API.
type Client struct {
	baseURL    string
	creds      credential.Provider
	httpClient *http.Client
}

// NewClient creates a bank-service client. The credential provider is read at
// call time, never cached.
func NewClient(baseURL string, creds credential.Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token. It is the only call that
// does not require an existing credential.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password}, &resp, false); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return resp.Token, nil
}

// LookupCard resolves a card number (or card id) to its card record. A 404
// maps to ErrCardNotFound.
func (c *Client) LookupCard(ctx context.Context, cardNumber string) (*domain.Card, error) {
	var card domain.Card
	path := "/api/cards/" + url.PathEscape(cardNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &card, true); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardNumber)
		}
		return nil, err
	}
	return &card, nil
}

// CreateTransaction submits a transfer request. On success the returned
// transaction is PENDING and an OTP has been dispatched out-of-band.
func (c *Client) CreateTransaction(ctx context.Context, req domain.CreateTransactionRequest) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions/create", req, &tx, true); err != nil {
		return nil, err
	}
	if tx.ID == "" {
		return nil, fmt.Errorf("create response carried no transaction id")
	}
	return &tx, nil
}

type verifyRequest struct {
	VerificationCode string `json:"verificationCode"`
}

// VerifyTransaction submits one OTP guess for a pending transaction and
// returns the server's classification of the outcome.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID, code string) (*domain.VerificationResult, error) {
	var result domain.VerificationResult
	path := "/transactions/" + url.PathEscape(transactionID) + "/verify"
	if err := c.do(ctx, http.MethodPost, path, verifyRequest{VerificationCode: code}, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBalances returns the balances of the authenticated customer's accounts.
func (c *Client) ListBalances(ctx context.Context) ([]domain.AccountBalance, error) {
	var balances []domain.AccountBalance
	if err := c.do(ctx, http.MethodGet, "/api/balances", nil, &balances, true); err != nil {
		return nil, err
	}
	return balances, nil
}

// ListMyCategories returns the authenticated customer's spending categories.
func (c *Client) ListMyCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, http.MethodGet, "/api/category/my", nil, &categories, true); err != nil {
		return nil, err
	}
	return categories, nil
}

type createCategoryRequest struct {
	CategoryName string `json:"categoryName"`
	CategoryType string `json:"categoryType"`
}

// CreateCategory creates a spending category for the authenticated customer.
func (c *Client) CreateCategory(ctx context.Context, name, categoryType string) (*domain.Category, error) {
	var category domain.Category
	req := createCategoryRequest{CategoryName: name, CategoryType: categoryType}
	if err := c.do(ctx, http.MethodPost, "/api/category", req, &category, true); err != nil {
		return nil, err
	}
	return &category, nil
}

// do performs one JSON request/response round trip. Responses with status
// >= 400 are decoded into APIError using the error body's message field.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	if c.baseURL == "" {
		return fmt.Errorf("bank-service base url is empty")
	}

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return fmt.Errorf("obtain credential: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to bank-service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
