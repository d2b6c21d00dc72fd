package recharge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/servis/recharge-bot/internal/domain/ledger"
	"github.com/servis/recharge-bot/internal/pkg/creditapi"
)

const (
	msgWelcome = "Welcome! To recharge, pay with your preferred method and send a screenshot of the payment here. Staff will review it and credit your balance."

	msgProofReceived = "Payment proof received. Staff will review it shortly and you will get a message once it is credited."

	msgStorageFailure = "Something went wrong on our side. Please try again in a few minutes."

	msgUnauthorized = "You are not authorized to use this command."

	msgOkUsage     = "Usage: /ok <@account> <amount>"
	msgRejectUsage = "Usage: /reject <@account> [reason]"

	msgUnknownCommand = "Unknown command. Send /help to see what I can do."

	msgUserHelp = "Send /start to begin, then send a screenshot of your payment. You will be notified when your balance is credited."

	msgAdminHelp = "Admin commands:\n" +
		"/ok <@account> <amount> - credit the account and notify the user\n" +
		"/reject <@account> [reason] - reject the latest pending proof of the account\n" +
		"/help - show this message"
)

func money(symbol string, amount decimal.Decimal) string {
	if symbol == "" {
		return amount.StringFixed(2)
	}
	return symbol + " " + amount.StringFixed(2)
}

func startWithIntentText(method string, amount decimal.Decimal, symbol string) string {
	return fmt.Sprintf("Recharge request noted: %s %s.\nPay that amount with %s and send a screenshot of the payment here. Staff will review it and credit your balance.",
		method, money(symbol, amount), method)
}

func staffCaption(tx *ledger.Transaction, symbol string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New payment proof #%d\n", tx.ID)
	fmt.Fprintf(&b, "Account: %s\n", tx.AccountIdentity)
	fmt.Fprintf(&b, "Method: %s\n", tx.Method)
	fmt.Fprintf(&b, "Amount: %s\n", money(symbol, tx.Amount))
	if tx.ProofReference != nil {
		fmt.Fprintf(&b, "Proof: %s\n", *tx.ProofReference)
	}
	if tx.Amount.IsPositive() {
		fmt.Fprintf(&b, "Approve: /ok @%s %s", tx.AccountIdentity, tx.Amount.String())
	} else {
		fmt.Fprintf(&b, "Approve: /ok @%s <amount>", tx.AccountIdentity)
	}
	return b.String()
}

func adminCreditedText(account string, amount decimal.Decimal, symbol string) string {
	return fmt.Sprintf("Balance credited: %s to @%s.", money(symbol, amount), account)
}

func requesterCreditedText(amount decimal.Decimal, symbol string) string {
	return fmt.Sprintf("Your recharge of %s has been credited to your balance. Thank you!", money(symbol, amount))
}

func gatewayErrorText(err error) string {
	var apiErr *creditapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode != 0 {
			return fmt.Sprintf("Credit failed (HTTP %d): %s", apiErr.StatusCode, apiErr.Detail)
		}
		return fmt.Sprintf("Credit failed (%s): %s", apiErr.Kind, apiErr.Detail)
	}
	return "Credit failed: " + err.Error()
}

func invalidAmountText(raw string) string {
	return fmt.Sprintf("Invalid amount %q. %s", raw, msgOkUsage)
}

func invalidAccountText(raw string) string {
	return fmt.Sprintf("Invalid account %q.", raw)
}

func nothingPendingText(account string) string {
	return fmt.Sprintf("No pending payment proof for @%s.", account)
}

func adminRejectedText(tx *ledger.Transaction) string {
	return fmt.Sprintf("Payment proof #%d of @%s rejected.", tx.ID, tx.AccountIdentity)
}

func requesterRejectedText(tx *ledger.Transaction, reason, symbol string) string {
	text := fmt.Sprintf("Your payment proof for %s was not approved.", money(symbol, tx.Amount))
	if reason != "" {
		text += "\nReason: " + reason
	}
	return text + "\nIf you think this is a mistake, send the proof again or contact support."
}
