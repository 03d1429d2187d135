/**
 * @description
 * This file defines the core domain models for the transfer workflow client.
 * These structs mirror the bank-service REST contract (cards, transactions,
 * balances, categories) and the client-held transfer draft that exists before
 * a transaction is created server-side.
 *
 * @notes
 * - Amounts use shopspring/decimal: the bank-service API exchanges decimal
 *   currency amounts, not minor units, and float64 is not acceptable for money.
 * - The client never computes OTP attempt counts itself; `Attempts` is always
 *   the server-reported value.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle status of a server-tracked transaction.
type TransactionStatus string

const (
	// StatusPending means the transaction exists and is awaiting a correct OTP.
	StatusPending TransactionStatus = "PENDING"
	// StatusAwaitingApproval means the OTP was accepted; an administrator
	// finalizes the transfer.
	StatusAwaitingApproval TransactionStatus = "AWAITING_APPROVAL"
	// StatusFailed means the OTP attempt budget was exhausted and the
	// transaction is dead.
	StatusFailed TransactionStatus = "FAILED"
	// StatusApproved and StatusRejected are admin decisions; they appear in
	// transaction history but never in a verify response.
	StatusApproved TransactionStatus = "APPROVED"
	StatusRejected TransactionStatus = "REJECTED"
	// StatusExpired means the OTP outlived its validity window and the held
	// funds were rolled back. The transfer workflow does not classify it.
	StatusExpired TransactionStatus = "EXPIRED"
)

// MaxOTPAttempts is the fixed number of OTP guesses the backend allows before
// it fails a pending transaction. This is a protocol constant shared with
// bank-service, not a client policy.
const MaxOTPAttempts = 3

// Card is the bank-service representation of a payment card. The lookup
// endpoint accepts either a card number or a card id.
type Card struct {
	CardID       string `json:"cardId"`
	CardNumber   string `json:"cardNumber"`
	AccountID    string `json:"accountId"`
	CustomerName string `json:"customerName"`
	CardType     string `json:"cardType,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
}

// Receiver is the resolved identity of a transfer recipient, extracted from a
// successful card lookup.
type Receiver struct {
	AccountID    string
	CardID       string
	CustomerName string
}

// ReceiverFromCard builds the recipient identity the workflow holds onto.
func ReceiverFromCard(c *Card) *Receiver {
	return &Receiver{
		AccountID:    c.AccountID,
		CardID:       c.CardID,
		CustomerName: c.CustomerName,
	}
}

// TransferDraft is the client-held, not-yet-committed transfer intent. It is
// created when the workflow starts and discarded on reset or on a terminal
// outcome; it never survives the process.
type TransferDraft struct {
	SourceCard         Card
	ReceiverCardNumber string
	Receiver           *Receiver
	Amount             decimal.Decimal
	CategoryID         string
}

// PendingTransaction is the client's reference to a server-created transfer
// record awaiting OTP confirmation.
type PendingTransaction struct {
	ID       string
	Status   TransactionStatus
	Attempts int
}

// CreateTransactionRequest is the payload for POST /transactions/create.
type CreateTransactionRequest struct {
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    string          `json:"categoryId,omitempty"`
	FromCardID    string          `json:"fromCardId"`
	ToCardID      string          `json:"toCardId"`
}

// Transaction is the bank-service transaction record as returned by the
// create endpoint and the history endpoints.
type Transaction struct {
	ID            string            `json:"id"`
	FromAccountID string            `json:"fromAccountId"`
	ToAccountID   string            `json:"toAccountId"`
	Amount        decimal.Decimal   `json:"amount"`
	CategoryID    string            `json:"categoryId,omitempty"`
	Status        TransactionStatus `json:"status"`
	Attempts      int               `json:"attempts"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// VerificationResult carries the fields of a verify response the workflow
// acts on.
type VerificationResult struct {
	Status   TransactionStatus `json:"status"`
	Attempts int               `json:"attempts"`
}

// AccountBalance is one entry of the GET /api/balances response. Balance is
// the available balance; Hold carries funds locked by transfers that have not
// been approved yet.
type AccountBalance struct {
	AccountID     string          `json:"accountId"`
	AccountNumber string          `json:"accountNumber,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	Hold          decimal.Decimal `json:"holdBalance"`
}

// Category is a user spending category attached to outgoing transfers.
type Category struct {
	ID   string `json:"categoryId"`
	Name string `json:"categoryName"`
	Type string `json:"categoryType"`
}
