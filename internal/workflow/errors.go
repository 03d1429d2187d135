package workflow

import "errors"

// Validation failures, caught before any network call is made.
var (
	ErrEmptyCardNumber   = errors.New("receiver card number is empty")
	ErrNoReceiver        = errors.New("no receiver has been resolved")
	ErrAmountNotPositive = errors.New("transfer amount must be positive")
	ErrEmptyOTP          = errors.New("otp code is empty")
)

// Sequencing failures.
var (
	// ErrTransferInProgress means a pending transaction already exists; the
	// workflow must be reset before a new transfer can start.
	ErrTransferInProgress = errors.New("a transfer is already awaiting confirmation")
	// ErrNoPendingTransaction means there is nothing to verify.
	ErrNoPendingTransaction = errors.New("no pending transaction to verify")
	// ErrRequestInFlight means the same step has already been submitted and
	// has not resolved yet; the duplicate is dropped, not queued.
	ErrRequestInFlight = errors.New("a request for this step is already in flight")
	// ErrSuperseded means the workflow was reset or finished while the request
	// was in flight; the late response was discarded.
	ErrSuperseded = errors.New("workflow state changed while the request was in flight")
)

// ErrUnclassifiedOutcome means a verify response carried a status outside the
// known contract. The backend must never produce this; the workflow surfaces
// it and stays put instead of crashing.
var ErrUnclassifiedOutcome = errors.New("unrecognized transaction status")
