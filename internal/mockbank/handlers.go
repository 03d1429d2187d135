/**
 * @description
 * This file contains the HTTP handlers and router of the mock bank-service.
 * The routes and payload shapes match the endpoints the browser application
 * calls on the real backend, so the transfer workflow client (and the SPA
 * itself, during development) can be pointed at the mock unchanged.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - internal/domain: Wire DTOs shared with the client.
 */

package mockbank

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corebank/transfer-workflow/internal/domain"
)

// Server bundles the ledger with the signing key and exposes the HTTP API.
type Server struct {
	store      *Store
	signingKey []byte
	now        func() time.Time
}

// NewServer creates a mock bank-service.
func NewServer(signingKey string, otpTTL time.Duration, fixedOTP string) *Server {
	return &Server{
		store:      NewStore(otpTTL, strings.TrimSpace(fixedOTP)),
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
}

// Store exposes the ledger, mainly so tests can reach past the HTTP layer.
func (s *Server) Store() *Store { return s.store }

// Router assembles the chi router with the same path layout as bank-service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/api/cards/{cardNumber}", s.handleLookupCard)
		r.Get("/api/balances", s.handleListBalances)
		r.Get("/api/category/my", s.handleListCategories)
		r.Post("/api/category", s.handleCreateCategory)

		r.Post("/transactions/create", s.handleCreateTransaction)
		r.Post("/transactions/{id}/verify", s.handleVerifyTransaction)
		r.Post("/transactions/{id}/approve", s.handleApproveTransaction)
		r.Post("/transactions/{id}/reject", s.handleRejectTransaction)
	})

	return r
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customer, err := s.store.Authenticate(payload.Username, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := s.mintToken(customer)
	if err != nil {
		log.Printf("level=error component=auth msg=\"token mint failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLookupCard(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "cardNumber")
	card, err := s.store.CardByNumberOrID(key)
	if err != nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleListBalances(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	balances := s.store.BalancesFor(customerID)
	if balances == nil {
		balances = []domain.AccountBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	categories := s.store.CategoriesFor(customerID)
	if categories == nil {
		categories = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

type createCategoryPayload struct {
	CategoryName string `json:"categoryName"`
	CategoryType string `json:"categoryType"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload createCategoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.CategoryName) == "" {
		writeError(w, http.StatusBadRequest, "Category name is required")
		return
	}

	customerID := customerIDFromContext(r.Context())
	category := s.store.AddCategory(customerID, strings.TrimSpace(payload.CategoryName), payload.CategoryType)
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customerID := customerIDFromContext(r.Context())
	if !s.store.CustomerOwnsAccount(customerID, req.FromAccountID) {
		writeError(w, http.StatusForbidden, "Source account does not belong to the authenticated customer")
		return
	}

	tx, otp, err := s.store.CreateTransaction(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, errMessage(err))
		return
	}

	// The real backend emails the OTP. The mock logs it so the flow can be
	// completed from a second terminal.
	log.Printf("level=info component=transactions msg=\"otp issued\" transaction_id=%s otp=%s", tx.ID, otp)
	writeJSON(w, http.StatusCreated, tx)
}

type verifyPayload struct {
	VerificationCode string `json:"verificationCode"`
}

func (s *Server) handleVerifyTransaction(w http.ResponseWriter, r *http.Request) {
	var payload verifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := s.store.VerifyTransaction(chi.URLParam(r, "id"), payload.VerificationCode)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrTransactionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleApproveTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.ApproveTransaction(chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrTransactionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRejectTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.RejectTransaction(chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrTransactionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, errMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=http msg=\"response encode failed\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// errMessage formats store errors the way bank-service formats AppException
// messages: capitalized sentence in the error body's message field.
func errMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Unexpected error"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
