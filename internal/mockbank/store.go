/**
 * @description
 * This file contains the in-memory ledger behind the mock bank-service. It
 * reproduces the real backend's transaction lifecycle exactly: creating a
 * transfer moves the amount from available balance into hold, the OTP gives
 * three guesses inside a validity window, a correct guess parks the
 * transaction at AWAITING_APPROVAL, and the admin decision releases the hold
 * to the receiver (approve) or back to the sender (reject).
 *
 * @notes
 * - The store is deliberately not durable. It exists so the workflow client
 *   can be developed and tested without the real backend; restarting it
 *   resets the world to the seed data.
 */

package mockbank

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-workflow/internal/domain"
)

var (
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrCardNotFound          = errors.New("card not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrSameAccount           = errors.New("cannot transfer to the same account")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransactionLocked     = errors.New("transaction is locked due to too many failed attempts")
	ErrTransactionNotPending = errors.New("transaction is not pending and cannot be verified")
	ErrNotAwaitingApproval   = errors.New("transaction is not awaiting approval")
)

// Customer is a seeded user of the mock bank.
type Customer struct {
	ID       string
	Username string
	Password string
	FullName string
}

type balance struct {
	available decimal.Decimal
	hold      decimal.Decimal
}

type transaction struct {
	record       domain.Transaction
	otp          string
	otpExpiresAt time.Time
}

// Store is the in-memory ledger. All access goes through its mutex; handlers
// never hold references into the maps.
type Store struct {
	mu           sync.Mutex
	customers    map[string]*Customer         // by username
	cards        map[string]*domain.Card      // by card number AND card id
	cardOwners   map[string]string            // card id -> customer id
	accountOwner map[string]string            // account id -> customer id
	balances     map[string]*balance          // by account id
	categories   map[string][]domain.Category // by customer id
	transactions map[string]*transaction      // by transaction id

	otpTTL time.Duration
	// fixedOTP, when non-empty, replaces the random OTP so development flows
	// are reproducible without an email channel.
	fixedOTP string

	now func() time.Time
}

// NewStore creates a ledger with the demo customers seeded.
func NewStore(otpTTL time.Duration, fixedOTP string) *Store {
	s := &Store{
		customers:    make(map[string]*Customer),
		cards:        make(map[string]*domain.Card),
		cardOwners:   make(map[string]string),
		accountOwner: make(map[string]string),
		balances:     make(map[string]*balance),
		categories:   make(map[string][]domain.Category),
		transactions: make(map[string]*transaction),
		otpTTL:       otpTTL,
		fixedOTP:     fixedOTP,
		now:          time.Now,
	}
	s.seed()
	return s
}

func (s *Store) seed() {
	s.addCustomer(&Customer{ID: "CUS-1", Username: "nam", Password: "changeme", FullName: "Nam Tran"},
		&domain.Card{CardID: "CARD-1", CardNumber: "4000999988887777", AccountID: "ACC-1", CustomerName: "Nam Tran", CardType: "DEBIT", ExpiryDate: "12/28"},
		decimal.NewFromInt(5_000_000))
	s.addCustomer(&Customer{ID: "CUS-2", Username: "jane", Password: "changeme", FullName: "Jane Pham"},
		&domain.Card{CardID: "CARD-2", CardNumber: "4000111122223333", AccountID: "ACC-2", CustomerName: "Jane Pham", CardType: "VISA", ExpiryDate: "06/27"},
		decimal.NewFromInt(1_250_000))

	s.categories["CUS-1"] = []domain.Category{
		{ID: "CAT-1", Name: "Sinh hoạt", Type: "EXPENSE"},
		{ID: "CAT-2", Name: "Mua sắm", Type: "EXPENSE"},
	}
}

func (s *Store) addCustomer(c *Customer, card *domain.Card, available decimal.Decimal) {
	s.customers[c.Username] = c
	s.cards[card.CardNumber] = card
	s.cards[card.CardID] = card
	s.cardOwners[card.CardID] = c.ID
	s.accountOwner[card.AccountID] = c.ID
	s.balances[card.AccountID] = &balance{available: available, hold: decimal.Zero}
}

// Authenticate checks a username/password pair and returns the customer.
func (s *Store) Authenticate(username, password string) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[username]
	if !ok || c.Password != password {
		return nil, ErrInvalidCredentials
	}
	copied := *c
	return &copied, nil
}

// CardByNumberOrID resolves a card by its number or id, matching the real
// backend's single lookup endpoint.
func (s *Store) CardByNumberOrID(key string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[key]
	if !ok {
		return nil, ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

// BalancesFor returns the balances of every account the customer owns.
func (s *Store) BalancesFor(customerID string) []domain.AccountBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AccountBalance
	for accountID, owner := range s.accountOwner {
		if owner != customerID {
			continue
		}
		b := s.balances[accountID]
		out = append(out, domain.AccountBalance{
			AccountID: accountID,
			Balance:   b.available,
			Hold:      b.hold,
		})
	}
	return out
}

// CategoriesFor returns the customer's spending categories.
func (s *Store) CategoriesFor(customerID string) []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Category(nil), s.categories[customerID]...)
}

// AddCategory creates a spending category for the customer.
func (s *Store) AddCategory(customerID, name, categoryType string) domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	category := domain.Category{
		ID:   uuid.New().String(),
		Name: name,
		Type: categoryType,
	}
	if categoryType == "" {
		category.Type = "EXPENSE"
	}
	s.categories[customerID] = append(s.categories[customerID], category)
	return category
}

// CreateTransaction validates the transfer and creates a PENDING transaction
// with a fresh OTP. The amount moves from the sender's available balance into
// hold, where it stays until the transaction is decided.
func (s *Store) CreateTransaction(req domain.CreateTransactionRequest) (*domain.Transaction, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.FromAccountID == req.ToAccountID {
		return nil, "", ErrSameAccount
	}
	from, ok := s.balances[req.FromAccountID]
	if !ok {
		return nil, "", fmt.Errorf("source %w", ErrAccountNotFound)
	}
	if _, ok := s.balances[req.ToAccountID]; !ok {
		return nil, "", fmt.Errorf("target %w", ErrAccountNotFound)
	}
	if !req.Amount.IsPositive() {
		return nil, "", fmt.Errorf("amount must be positive")
	}
	if from.available.LessThan(req.Amount) {
		return nil, "", ErrInsufficientBalance
	}

	from.available = from.available.Sub(req.Amount)
	from.hold = from.hold.Add(req.Amount)

	otp := s.fixedOTP
	if otp == "" {
		otp = fmt.Sprintf("%06d", rand.Intn(1_000_000))
	}

	tx := &transaction{
		record: domain.Transaction{
			ID:            uuid.New().String(),
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			Amount:        req.Amount,
			CategoryID:    req.CategoryID,
			Status:        domain.StatusPending,
			Attempts:      0,
			CreatedAt:     s.now(),
		},
		otp:          otp,
		otpExpiresAt: s.now().Add(s.otpTTL),
	}
	s.transactions[tx.record.ID] = tx

	record := tx.record
	return &record, otp, nil
}

// VerifyTransaction applies one OTP guess, mirroring the backend's rules:
// locked or non-pending transactions are rejected outright; an expired OTP
// rolls the hold back and marks the transaction EXPIRED; a wrong guess
// consumes one of the three attempts and the third failure kills the
// transaction; a correct guess parks it at AWAITING_APPROVAL.
func (s *Store) VerifyTransaction(transactionID, code string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if tx.record.Status == domain.StatusFailed || tx.record.Attempts >= domain.MaxOTPAttempts {
		return nil, ErrTransactionLocked
	}
	if tx.record.Status != domain.StatusPending {
		return nil, ErrTransactionNotPending
	}

	if s.now().After(tx.otpExpiresAt) {
		tx.record.Status = domain.StatusExpired
		s.rollbackHold(tx)
		record := tx.record
		return &record, nil
	}

	if tx.otp != code {
		tx.record.Attempts++
		if tx.record.Attempts >= domain.MaxOTPAttempts {
			tx.record.Status = domain.StatusFailed
			s.rollbackHold(tx)
		}
		record := tx.record
		return &record, nil
	}

	tx.record.Status = domain.StatusAwaitingApproval
	record := tx.record
	return &record, nil
}

// ApproveTransaction is the admin decision that finalizes a confirmed
// transfer: the held amount leaves the sender and lands in the receiver's
// available balance.
func (s *Store) ApproveTransaction(transactionID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if tx.record.Status != domain.StatusAwaitingApproval {
		return nil, ErrNotAwaitingApproval
	}

	from := s.balances[tx.record.FromAccountID]
	to := s.balances[tx.record.ToAccountID]
	from.hold = from.hold.Sub(tx.record.Amount)
	to.available = to.available.Add(tx.record.Amount)

	tx.record.Status = domain.StatusApproved
	record := tx.record
	return &record, nil
}

// RejectTransaction is the admin decision that cancels a confirmed transfer
// and returns the held amount to the sender.
func (s *Store) RejectTransaction(transactionID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if tx.record.Status != domain.StatusAwaitingApproval {
		return nil, ErrNotAwaitingApproval
	}

	s.rollbackHold(tx)
	tx.record.Status = domain.StatusRejected
	record := tx.record
	return &record, nil
}

// CustomerOwnsAccount reports whether the account belongs to the customer.
func (s *Store) CustomerOwnsAccount(customerID, accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountOwner[accountID] == customerID
}

func (s *Store) rollbackHold(tx *transaction) {
	from := s.balances[tx.record.FromAccountID]
	from.hold = from.hold.Sub(tx.record.Amount)
	from.available = from.available.Add(tx.record.Amount)
}
