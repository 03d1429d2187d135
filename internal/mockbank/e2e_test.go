package mockbank

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-workflow/internal/domain"
	"github.com/corebank/transfer-workflow/internal/workflow"
	"github.com/corebank/transfer-workflow/pkg/bankclient"
	"github.com/corebank/transfer-workflow/pkg/credential"
)

// These tests drive the real client and the real workflow controller against
// the mock service, covering the whole wire round trip.

type silentNotifier struct{}

func (silentNotifier) Info(string)    {}
func (silentNotifier) Success(string) {}
func (silentNotifier) Failure(string) {}

func e2eSetup(t *testing.T) (*bankclient.Client, *workflow.Controller) {
	t.Helper()
	server := NewServer(testSigningKey, 5*time.Minute, testOTP)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	holder := credential.NewHolder()
	client := bankclient.NewClient(ts.URL, holder, 5*time.Second)

	token, err := client.Login(context.Background(), "nam", "changeme")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	holder.Set(token)

	sourceCard, err := client.LookupCard(context.Background(), "4000999988887777")
	if err != nil {
		t.Fatalf("source card lookup failed: %v", err)
	}

	return client, workflow.NewController(client, silentNotifier{}, *sourceCard)
}

func TestEndToEnd_TransferWithOneWrongGuess(t *testing.T) {
	client, c := e2eSetup(t)
	ctx := context.Background()

	receiver, err := c.LookupReceiver(ctx, "4000111122223333")
	if err != nil {
		t.Fatalf("receiver lookup failed: %v", err)
	}
	if receiver.CustomerName != "Jane Pham" {
		t.Fatalf("unexpected receiver: %+v", receiver)
	}

	if err := c.Initiate(ctx, decimal.NewFromInt(500000), "CAT-1"); err != nil {
		t.Fatalf("initiation failed: %v", err)
	}

	state, err := c.SubmitOTP(ctx, "999999")
	if err != nil {
		t.Fatalf("wrong guess returned error: %v", err)
	}
	if state != workflow.StateAwaitingOTP || c.RemainingAttempts() != 2 {
		t.Fatalf("expected AWAITING_OTP with 2 attempts left, got %s/%d", state, c.RemainingAttempts())
	}

	state, err = c.SubmitOTP(ctx, testOTP)
	if err != nil {
		t.Fatalf("correct guess returned error: %v", err)
	}
	if state != workflow.StateApproved {
		t.Fatalf("expected APPROVED, got %s", state)
	}

	// The amount is held pending approval, so the available balance dropped.
	balances, err := client.ListBalances(ctx)
	if err != nil {
		t.Fatalf("balance refresh failed: %v", err)
	}
	if len(balances) != 1 || !balances[0].Balance.Equal(decimal.NewFromInt(4_500_000)) {
		t.Fatalf("unexpected balances after transfer: %+v", balances)
	}
}

func TestEndToEnd_ExhaustedAttemptsCancelTransaction(t *testing.T) {
	_, c := e2eSetup(t)
	ctx := context.Background()

	if _, err := c.LookupReceiver(ctx, "4000111122223333"); err != nil {
		t.Fatalf("receiver lookup failed: %v", err)
	}
	if err := c.Initiate(ctx, decimal.NewFromInt(250000), ""); err != nil {
		t.Fatalf("initiation failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		state, err := c.SubmitOTP(ctx, "999999")
		if err != nil {
			t.Fatalf("guess %d returned error: %v", i+1, err)
		}
		if state != workflow.StateAwaitingOTP {
			t.Fatalf("guess %d: expected AWAITING_OTP, got %s", i+1, state)
		}
	}

	state, err := c.SubmitOTP(ctx, "999999")
	if err != nil {
		t.Fatalf("final guess returned error: %v", err)
	}
	if state != workflow.StateFailed {
		t.Fatalf("expected FAILED, got %s", state)
	}
	if c.TransactionID() != "" || c.Receiver() != nil {
		t.Fatal("terminal failure must clear the draft and pending transaction")
	}
}

func TestEndToEnd_LookupUnknownCard(t *testing.T) {
	_, c := e2eSetup(t)

	_, err := c.LookupReceiver(context.Background(), "1111111111111111")
	if err == nil {
		t.Fatal("expected lookup failure")
	}
	if c.State() != workflow.StateAwaitingReceiver {
		t.Fatalf("expected AWAITING_RECEIVER, got %s", c.State())
	}
	if got := c.RemainingAttempts(); got != domain.MaxOTPAttempts {
		t.Fatalf("expected full attempt budget, got %d", got)
	}
}
