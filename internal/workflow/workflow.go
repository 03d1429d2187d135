/**
 * @description
 * This file contains the transfer confirmation workflow: receiver lookup,
 * transaction initiation, and the bounded-retry OTP verification loop. The
 * Controller replaces the browser page's scattered booleans and optionals
 * with a single explicit state machine, so impossible combinations (an OTP
 * prompt with no transaction id, a verify call with no receiver) cannot be
 * represented.
 *
 * Key rules:
 * - Steps are strictly sequential: lookup before initiation, initiation
 *   before any verification, one verification at a time.
 * - Only a classified PENDING response consumes the 3-guess OTP budget;
 *   transport failures leave the budget untouched.
 * - A terminal outcome (approved, failed) discards the draft and the pending
 *   transaction together. There is no resumption of a finished transaction.
 *
 * @dependencies
 * - github.com/shopspring/decimal: Transfer amounts.
 * - internal/domain: Wire DTOs and workflow value types.
 * - pkg/bankclient: Error classification for card lookups.
 */

package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-workflow/internal/domain"
	"github.com/corebank/transfer-workflow/pkg/bankclient"
)

// State is the single current position of the workflow.
type State int

const (
	// StateAwaitingReceiver: no receiver resolved yet; lookup may run.
	StateAwaitingReceiver State = iota
	// StateReceiverConfirmed: receiver resolved; initiation may run.
	StateReceiverConfirmed
	// StateAwaitingOTP: a pending transaction exists; an OTP may be submitted.
	StateAwaitingOTP
	// StateVerifying: one verification request is in flight.
	StateVerifying
	// StateApproved: terminal. The transfer was confirmed.
	StateApproved
	// StateFailed: terminal. The attempt budget was exhausted.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingReceiver:
		return "AWAITING_RECEIVER"
	case StateReceiverConfirmed:
		return "RECEIVER_CONFIRMED"
	case StateAwaitingOTP:
		return "AWAITING_OTP"
	case StateVerifying:
		return "VERIFYING"
	case StateApproved:
		return "APPROVED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the workflow has reached an outcome after which
// only a restart from lookup is possible.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateFailed
}

// BankAPI is the subset of the bank-service client the controller drives.
type BankAPI interface {
	LookupCard(ctx context.Context, cardNumber string) (*domain.Card, error)
	CreateTransaction(ctx context.Context, req domain.CreateTransactionRequest) (*domain.Transaction, error)
	VerifyTransaction(ctx context.Context, transactionID, code string) (*domain.VerificationResult, error)
	ListBalances(ctx context.Context) ([]domain.AccountBalance, error)
}

// Controller drives one transfer attempt from receiver lookup to a terminal
// outcome. A controller owns its draft and pending-transaction reference
// exclusively; concurrent transfers need separate controllers.
type Controller struct {
	api     BankAPI
	notices Notifier

	mu         sync.Mutex
	state      State
	draft      domain.TransferDraft
	pending    *domain.PendingTransaction
	initiating bool
	// gen invalidates in-flight completions: Reset and terminal transitions
	// bump it, and a response whose generation no longer matches is discarded
	// without touching state.
	gen uint64
}

// NewController creates a workflow controller for transfers funded by the
// given source card.
func NewController(api BankAPI, notices Notifier, sourceCard domain.Card) *Controller {
	if notices == nil {
		notices = NopNotifier{}
	}
	return &Controller{
		api:     api,
		notices: notices,
		state:   StateAwaitingReceiver,
		draft:   domain.TransferDraft{SourceCard: sourceCard},
	}
}

// LookupReceiver resolves a card number to a recipient identity. It is
// idempotent and safe to invoke repeatedly; each call discards any previously
// resolved receiver first, since an edited number invalidates the resolution.
func (c *Controller) LookupReceiver(ctx context.Context, cardNumber string) (*domain.Receiver, error) {
	cardNumber = strings.TrimSpace(cardNumber)
	if cardNumber == "" {
		c.notices.Failure("Enter the receiver's card number.")
		return nil, ErrEmptyCardNumber
	}

	c.mu.Lock()
	if c.state == StateAwaitingOTP || c.state == StateVerifying {
		c.mu.Unlock()
		return nil, ErrTransferInProgress
	}
	if c.initiating {
		// An initiation request is in flight; its completion expects the
		// receiver it was issued with. The lookup is dropped, not queued.
		c.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	if c.state.Terminal() {
		// Restarting from lookup after a finished transfer begins a new draft.
		c.resetLocked()
	}
	// A re-issued lookup supersedes any earlier one still in flight; the
	// older completion must not overwrite the newer number's resolution.
	c.gen++
	c.draft.Receiver = nil
	c.draft.ReceiverCardNumber = cardNumber
	c.state = StateAwaitingReceiver
	gen := c.gen
	c.mu.Unlock()

	card, err := c.api.LookupCard(ctx, cardNumber)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, bankclient.ErrCardNotFound) {
			c.notices.Failure("No receiver found for card " + cardNumber + ".")
		} else {
			c.notices.Failure("Receiver lookup failed: " + err.Error())
		}
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}

	receiver := domain.ReceiverFromCard(card)
	c.draft.Receiver = receiver
	c.state = StateReceiverConfirmed
	c.notices.Info("Receiver found: " + receiver.CustomerName)
	r := *receiver
	return &r, nil
}

// Initiate submits the transfer request and, on success, moves the workflow
// into the OTP entry phase. On failure the workflow stays at the
// receiver-confirmed state so the amount can be corrected and resubmitted.
func (c *Controller) Initiate(ctx context.Context, amount decimal.Decimal, categoryID string) error {
	c.mu.Lock()
	if c.state == StateAwaitingOTP || c.state == StateVerifying {
		c.mu.Unlock()
		return ErrTransferInProgress
	}
	if c.initiating {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	if c.draft.Receiver == nil {
		c.mu.Unlock()
		c.notices.Failure("Search for the receiver before sending money.")
		return ErrNoReceiver
	}
	if !amount.IsPositive() {
		c.mu.Unlock()
		c.notices.Failure("Enter a positive transfer amount.")
		return ErrAmountNotPositive
	}

	c.draft.Amount = amount
	c.draft.CategoryID = categoryID
	req := domain.CreateTransactionRequest{
		FromAccountID: c.draft.SourceCard.AccountID,
		ToAccountID:   c.draft.Receiver.AccountID,
		Amount:        amount,
		CategoryID:    categoryID,
		FromCardID:    c.draft.SourceCard.CardID,
		ToCardID:      c.draft.Receiver.CardID,
	}
	c.initiating = true
	gen := c.gen
	c.mu.Unlock()

	tx, err := c.api.CreateTransaction(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.initiating = false
	if c.gen != gen {
		return ErrSuperseded
	}
	if err != nil {
		c.notices.Failure("Could not create the transaction: " + err.Error())
		return fmt.Errorf("create transaction: %w", err)
	}

	c.pending = &domain.PendingTransaction{ID: tx.ID, Status: domain.StatusPending}
	c.state = StateAwaitingOTP
	c.notices.Info("Transaction created. An OTP has been sent to your email; enter it to confirm the transfer.")
	return nil
}

// SubmitOTP sends one OTP guess for the pending transaction and returns the
// workflow state after the server's verdict has been applied. While a guess
// is in flight a second submission returns ErrRequestInFlight without
// producing a second request.
func (c *Controller) SubmitOTP(ctx context.Context, code string) (State, error) {
	code = strings.TrimSpace(code)

	c.mu.Lock()
	if c.state == StateVerifying {
		state := c.state
		c.mu.Unlock()
		return state, ErrRequestInFlight
	}
	if c.state != StateAwaitingOTP || c.pending == nil {
		state := c.state
		c.mu.Unlock()
		return state, ErrNoPendingTransaction
	}
	if code == "" {
		state := c.state
		c.mu.Unlock()
		c.notices.Failure("Enter the OTP code.")
		return state, ErrEmptyOTP
	}
	transactionID := c.pending.ID
	c.state = StateVerifying
	gen := c.gen
	c.mu.Unlock()

	result, err := c.api.VerifyTransaction(ctx, transactionID, code)

	c.mu.Lock()
	if c.gen != gen {
		state := c.state
		c.mu.Unlock()
		return state, ErrSuperseded
	}
	if err != nil {
		// Transport failure: the guess never reached a verdict, so it does
		// not consume the attempt budget.
		c.state = StateAwaitingOTP
		state := c.state
		c.mu.Unlock()
		c.notices.Failure("OTP verification failed: " + err.Error())
		return state, fmt.Errorf("verify transaction: %w", err)
	}

	switch result.Status {
	case domain.StatusAwaitingApproval:
		c.finishLocked(StateApproved)
		c.mu.Unlock()
		c.notices.Success("Transfer confirmed. The transaction is now awaiting approval.")
		c.reportBalances(ctx)
		return StateApproved, nil

	case domain.StatusFailed:
		c.finishLocked(StateFailed)
		c.mu.Unlock()
		c.notices.Failure("The OTP was entered incorrectly too many times. The transaction has been cancelled.")
		return StateFailed, nil

	case domain.StatusPending:
		c.pending.Status = result.Status
		c.pending.Attempts = result.Attempts
		c.state = StateAwaitingOTP
		remaining := remainingAttempts(result.Attempts)
		c.mu.Unlock()
		c.notices.Failure(fmt.Sprintf("Incorrect OTP. You have %d attempt(s) left.", remaining))
		return StateAwaitingOTP, nil

	default:
		c.state = StateAwaitingOTP
		c.mu.Unlock()
		c.notices.Failure("The transaction returned an unrecognized status.")
		return StateAwaitingOTP, fmt.Errorf("%w: %q", ErrUnclassifiedOutcome, result.Status)
	}
}

// Reset abandons the current transfer attempt and returns the workflow to the
// initial state. Any in-flight request is orphaned: its completion will be
// discarded rather than applied to the new draft.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// State returns the workflow's current position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Receiver returns the resolved recipient identity, or nil before lookup has
// succeeded (and again after a terminal outcome).
func (c *Controller) Receiver() *domain.Receiver {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.Receiver == nil {
		return nil
	}
	r := *c.draft.Receiver
	return &r
}

// TransactionID returns the pending transaction's id, or "" when none exists.
func (c *Controller) TransactionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return ""
	}
	return c.pending.ID
}

// RemainingAttempts reports how many OTP guesses are left, derived from the
// last server-reported attempt count. The client never counts on its own.
func (c *Controller) RemainingAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return domain.MaxOTPAttempts
	}
	return remainingAttempts(c.pending.Attempts)
}

// Draft returns a copy of the current transfer draft.
func (c *Controller) Draft() domain.TransferDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	draft := c.draft
	if c.draft.Receiver != nil {
		r := *c.draft.Receiver
		draft.Receiver = &r
	}
	return draft
}

func (c *Controller) resetLocked() {
	c.gen++
	c.initiating = false
	c.pending = nil
	c.draft = domain.TransferDraft{SourceCard: c.draft.SourceCard}
	c.state = StateAwaitingReceiver
}

// finishLocked applies a terminal outcome: the draft and the pending
// transaction are discarded together and in-flight completions invalidated.
func (c *Controller) finishLocked(terminal State) {
	c.gen++
	c.initiating = false
	c.pending = nil
	c.draft = domain.TransferDraft{SourceCard: c.draft.SourceCard}
	c.state = terminal
}

// reportBalances refreshes the sender's balance after a confirmed transfer,
// matching the page's immediate balance refresh. Failures are ignored; the
// transfer outcome is already settled.
func (c *Controller) reportBalances(ctx context.Context) {
	balances, err := c.api.ListBalances(ctx)
	if err != nil {
		return
	}
	sourceAccount := c.Draft().SourceCard.AccountID
	for _, b := range balances {
		if b.AccountID == sourceAccount {
			c.notices.Info("Current balance: " + b.Balance.String())
			return
		}
	}
}

func remainingAttempts(attempts int) int {
	remaining := domain.MaxOTPAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
