/**
 * @description
 * This is the entry point for transferctl, the terminal front-end for the
 * card-to-card transfer workflow. It loads configuration, picks a credential
 * source, resolves the customer's source card, and then drives the workflow
 * controller through an interactive prompt loop:
 *
 *   receiver card number -> amount (+ optional category) -> OTP challenge
 *
 * Key flows:
 * - Credentials: a pre-issued token (BANK_TOKEN), a token file
 *   (BANK_TOKEN_FILE), or a username/password login, in that order.
 * - The OTP prompt repeats until the transfer reaches a terminal state or the
 *   customer cancels with an empty line.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/transfer-workflow/internal/config"
	"github.com/corebank/transfer-workflow/internal/domain"
	"github.com/corebank/transfer-workflow/internal/workflow"
	"github.com/corebank/transfer-workflow/pkg/bankclient"
	"github.com/corebank/transfer-workflow/pkg/credential"
)

// consoleNotifier writes workflow notices straight to the terminal, taking
// the place of the toast banners a graphical client would show.
type consoleNotifier struct{}

func (consoleNotifier) Info(msg string)    { fmt.Printf("  * %s\n", msg) }
func (consoleNotifier) Success(msg string) { fmt.Printf("  + %s\n", msg) }
func (consoleNotifier) Failure(msg string) { fmt.Printf("  ! %s\n", msg) }

func main() {
	if err := run(); err != nil {
		log.Printf("level=error component=transferctl msg=\"exiting\" err=%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	ctx := context.Background()

	creds, warmup, err := chooseCredentials(cfg)
	if err != nil {
		return err
	}
	client := bankclient.NewClient(cfg.BankServiceURL, creds, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second)
	if warmup != nil {
		if err := warmup(ctx, client); err != nil {
			return err
		}
	}
	warnIfExpiringSoon(ctx, creds)

	if cfg.SourceCardNumber == "" {
		return errors.New("SOURCE_CARD_NUMBER is not set")
	}
	sourceCard, err := client.LookupCard(ctx, cfg.SourceCardNumber)
	if err != nil {
		return fmt.Errorf("could not resolve source card: %w", err)
	}
	fmt.Printf("Transferring from %s's card %s\n", sourceCard.CustomerName, sourceCard.CardNumber)

	controller := workflow.NewController(client, consoleNotifier{}, *sourceCard)
	stdin := bufio.NewScanner(os.Stdin)

	for {
		if err := runTransfer(ctx, client, controller, stdin); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Printf("  ! %v\n", err)
		}
		fmt.Print("\nStart another transfer? [y/N] ")
		if !stdin.Scan() || !strings.EqualFold(strings.TrimSpace(stdin.Text()), "y") {
			return nil
		}
		controller.Reset()
	}
}

// errQuit signals that the customer ended the session at a prompt.
var errQuit = errors.New("session ended")

// chooseCredentials picks a credential provider from the configuration. The
// optional warmup step performs the username/password login once the HTTP
// client exists.
func chooseCredentials(cfg config.Config) (credential.Provider, func(context.Context, *bankclient.Client) error, error) {
	switch {
	case cfg.BearerToken != "":
		return credential.Static(cfg.BearerToken), nil, nil
	case cfg.BearerTokenFile != "":
		return &credential.FileProvider{Path: cfg.BearerTokenFile}, nil, nil
	case cfg.Username != "" && cfg.Password != "":
		holder := credential.NewHolder()
		warmup := func(ctx context.Context, client *bankclient.Client) error {
			token, err := client.Login(ctx, cfg.Username, cfg.Password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			holder.Set(token)
			return nil
		}
		return holder, warmup, nil
	default:
		return nil, nil, errors.New("no credentials configured; set BANK_TOKEN, BANK_TOKEN_FILE, or BANK_USERNAME/BANK_PASSWORD")
	}
}

func warnIfExpiringSoon(ctx context.Context, creds credential.Provider) {
	token, err := creds.Token(ctx)
	if err != nil {
		return
	}
	expiry, err := credential.TokenExpiry(token)
	if err != nil || expiry.IsZero() {
		return
	}
	if remaining := time.Until(expiry); remaining < 5*time.Minute {
		log.Printf("level=warn component=transferctl msg=\"token expires soon\" remaining=%s", remaining.Round(time.Second))
	}
}

// runTransfer walks one transfer from receiver lookup to a terminal state.
func runTransfer(ctx context.Context, client *bankclient.Client, controller *workflow.Controller, stdin *bufio.Scanner) error {
	receiver, err := promptReceiver(ctx, controller, stdin)
	if err != nil {
		return err
	}
	fmt.Printf("Receiver: %s\n", receiver.CustomerName)

	amount, err := promptAmount(stdin)
	if err != nil {
		return err
	}
	categoryID, err := promptCategory(ctx, client, stdin)
	if err != nil {
		return err
	}

	if err := controller.Initiate(ctx, amount, categoryID); err != nil {
		return fmt.Errorf("could not start the transfer: %w", err)
	}

	for {
		fmt.Print("OTP (empty line cancels): ")
		if !stdin.Scan() {
			return errQuit
		}
		code := strings.TrimSpace(stdin.Text())
		if code == "" {
			controller.Reset()
			fmt.Println("Transfer cancelled.")
			return nil
		}

		state, err := controller.SubmitOTP(ctx, code)
		if err != nil {
			fmt.Printf("  ! %v\n", err)
			continue
		}
		if state.Terminal() {
			return nil
		}
	}
}

func promptReceiver(ctx context.Context, controller *workflow.Controller, stdin *bufio.Scanner) (*domain.Receiver, error) {
	for {
		fmt.Print("\nReceiver card number (empty line quits): ")
		if !stdin.Scan() {
			return nil, errQuit
		}
		number := strings.TrimSpace(stdin.Text())
		if number == "" {
			return nil, errQuit
		}

		receiver, err := controller.LookupReceiver(ctx, number)
		if err != nil {
			fmt.Printf("  ! %v\n", err)
			continue
		}
		return receiver, nil
	}
}

func promptAmount(stdin *bufio.Scanner) (decimal.Decimal, error) {
	for {
		fmt.Print("Amount: ")
		if !stdin.Scan() {
			return decimal.Zero, errQuit
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(stdin.Text()))
		if err != nil {
			fmt.Println("  ! Amounts must be numeric.")
			continue
		}
		if !amount.IsPositive() {
			fmt.Println("  ! Amounts must be greater than zero.")
			continue
		}
		return amount, nil
	}
}

// promptCategory lists the customer's categories and reads an optional pick.
// Listing failures are not fatal; the transfer proceeds uncategorised.
func promptCategory(ctx context.Context, client *bankclient.Client, stdin *bufio.Scanner) (string, error) {
	categories, err := client.ListMyCategories(ctx)
	if err != nil || len(categories) == 0 {
		return "", nil
	}

	fmt.Println("Categories:")
	for _, category := range categories {
		fmt.Printf("  %s  %s\n", category.ID, category.Name)
	}
	fmt.Print("Category id (empty for none): ")
	if !stdin.Scan() {
		return "", errQuit
	}
	return strings.TrimSpace(stdin.Text()), nil
}
