package bankclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-workflow/internal/domain"
	"github.com/corebank/transfer-workflow/pkg/credential"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	return NewClient(ts.URL, credential.Static("test-token"), 5*time.Second), ts
}

func TestLookupCard_DecodesCardAndSendsBearer(t *testing.T) {
	var gotAuth, gotPath string
	client, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(domain.Card{
			CardID:       "C2",
			CardNumber:   "4000111122223333",
			AccountID:    "A2",
			CustomerName: "Jane",
		})
	}))
	defer ts.Close()

	card, err := client.LookupCard(context.Background(), "4000111122223333")
	if err != nil {
		t.Fatalf("LookupCard returned error: %v", err)
	}
	if card.AccountID != "A2" || card.CustomerName != "Jane" {
		t.Fatalf("unexpected card: %+v", card)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
	if gotPath != "/api/cards/4000111122223333" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
}

func TestLookupCard_404MapsToErrCardNotFound(t *testing.T) {
	client, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Card not found"})
	}))
	defer ts.Close()

	_, err := client.LookupCard(context.Background(), "0000")
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCreateTransaction_SendsContractPayload(t *testing.T) {
	var got map[string]any
	client, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/create" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(domain.Transaction{ID: "T100", Status: domain.StatusPending})
	}))
	defer ts.Close()

	tx, err := client.CreateTransaction(context.Background(), domain.CreateTransactionRequest{
		FromAccountID: "A1",
		ToAccountID:   "A2",
		Amount:        decimal.NewFromInt(500000),
		CategoryID:    "CAT-1",
		FromCardID:    "C1",
		ToCardID:      "C2",
	})
	if err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}
	if tx.ID != "T100" {
		t.Fatalf("unexpected transaction id %q", tx.ID)
	}

	for _, field := range []string{"fromAccountId", "toAccountId", "amount", "categoryId", "fromCardId", "toCardId"} {
		if _, ok := got[field]; !ok {
			t.Fatalf("request body missing %q: %v", field, got)
		}
	}
}

func TestCreateTransaction_MissingIDIsAnError(t *testing.T) {
	client, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer ts.Close()

	if _, err := client.CreateTransaction(context.Background(), domain.CreateTransactionRequest{}); err == nil {
		t.Fatal("expected an error for a create response without an id")
	}
}

func TestVerifyTransaction_DecodesStatusAndAttempts(t *testing.T) {
	client, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/T100/verify" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["verificationCode"] != "123456" {
			t.Errorf("unexpected verification code %q", body["verificationCode"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "PENDING", "attempts": 2})
	}))
	defer ts.Close()

	result, err := client.VerifyTransaction(context.Background(), "T100", "123456")
	if err != nil {
		t.Fatalf("VerifyTransaction returned error: %v", err)
	}
	if result.Status != domain.StatusPending || result.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAPIError_CarriesServerMessage(t *testing.T) {
	client, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Insufficient balance"})
	}))
	defer ts.Close()

	_, err := client.CreateTransaction(context.Background(), domain.CreateTransactionRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Insufficient balance" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestMissingCredentialSendsNoRequest(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer ts.Close()

	client := NewClient(ts.URL, credential.Static(""), 5*time.Second)
	_, err := client.LookupCard(context.Background(), "4000111122223333")
	if !errors.Is(err, credential.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected no request without a credential, saw %d", requests)
	}
}

func TestLogin_NeedsNoCredential(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "issued-token"})
	}))
	defer ts.Close()

	// Even a client whose provider has no token can log in.
	client := NewClient(ts.URL, credential.Static(""), 5*time.Second)
	token, err := client.Login(context.Background(), "nam", "changeme")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token != "issued-token" {
		t.Fatalf("unexpected token %q", token)
	}
}
