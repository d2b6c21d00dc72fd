package recharge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servis/recharge-bot/internal/domain/identity"
	"github.com/servis/recharge-bot/internal/domain/intent"
	"github.com/servis/recharge-bot/internal/domain/ledger"
	"github.com/servis/recharge-bot/internal/pkg/events"
	"github.com/servis/recharge-bot/internal/pkg/keylock"
	"github.com/servis/recharge-bot/internal/pkg/logger"
	"github.com/servis/recharge-bot/internal/pkg/validator"
)

const defaultGatewayTimeout = 10 * time.Second

// Options is process-wide configuration, read-only to the engine.
type Options struct {
	Admins         []string
	StaffChatID    string
	CurrencySymbol string
	GatewayTimeout time.Duration
}

// Deps are the collaborators the engine is built from. Locker and Publisher
// default to an in-process lock and a no-op publisher.
type Deps struct {
	Links     identity.Repository
	Intents   intent.Repository
	Ledger    ledger.Repository
	Notifier  Notifier
	Gateway   CreditGateway
	Locker    keylock.Locker
	Publisher events.Publisher
}

// Engine reconciles payment proofs with admin credits. It is the only writer
// of links, intents and ledger rows.
type Engine struct {
	links     identity.Repository
	intents   intent.Repository
	ledger    ledger.Repository
	notifier  Notifier
	gateway   CreditGateway
	locker    keylock.Locker
	publisher events.Publisher

	admins         map[string]struct{}
	staffChatID    string
	currencySymbol string
	gatewayTimeout time.Duration
}

func NewEngine(deps Deps, opts Options) *Engine {
	e := &Engine{
		links:          deps.Links,
		intents:        deps.Intents,
		ledger:         deps.Ledger,
		notifier:       deps.Notifier,
		gateway:        deps.Gateway,
		locker:         deps.Locker,
		publisher:      deps.Publisher,
		admins:         make(map[string]struct{}, len(opts.Admins)),
		staffChatID:    strings.TrimSpace(opts.StaffChatID),
		currencySymbol: opts.CurrencySymbol,
		gatewayTimeout: opts.GatewayTimeout,
	}
	if e.locker == nil {
		e.locker = keylock.NewLocal()
	}
	if e.publisher == nil {
		e.publisher = events.Noop{}
	}
	if e.gatewayTimeout <= 0 {
		e.gatewayTimeout = defaultGatewayTimeout
	}
	for _, a := range opts.Admins {
		if h := normalizeAdmin(a); h != "" {
			e.admins[h] = struct{}{}
		}
	}
	return e
}

// HandleStart links the session to the sender and records the recharge
// intent carried by the first argument, if it parses.
func (e *Engine) HandleStart(ctx context.Context, ev StartEvent) error {
	unlock, err := e.locker.Lock(ctx, sessionKey(ev.SessionID))
	if err != nil {
		return fmt.Errorf("%w: lock session: %w", ErrStorage, err)
	}
	defer unlock()

	var (
		method    string
		amount    decimal.Decimal
		hasIntent bool
	)
	if len(ev.Args) > 0 {
		method, amount, hasIntent = intent.ParseToken(ev.Args[0])
	}

	if err := e.links.Upsert(ctx, identity.NewLink(ev.SessionID, ev.SenderHandle)); err != nil {
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: link session: %w", ErrStorage, err)
	}

	if !hasIntent {
		if len(ev.Args) > 0 {
			logger.FromContext(ctx).Debug().Str("token", ev.Args[0]).Msg("start token ignored")
		}
		e.sendText(ctx, ev.SessionID, msgWelcome)
		return nil
	}

	if err := e.intents.Set(ctx, ev.SessionID, method, amount); err != nil {
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: set intent: %w", ErrStorage, err)
	}

	logger.FromContext(ctx).Info().
		Str("method", method).
		Str("amount", amount.String()).
		Msg("recharge intent recorded")

	e.sendText(ctx, ev.SessionID, startWithIntentText(method, amount, e.currencySymbol))
	return nil
}

// HandlePhoto records a payment proof and forwards it to staff. The ledger
// row is committed before any notification is attempted.
func (e *Engine) HandlePhoto(ctx context.Context, ev PhotoEvent) error {
	unlock, err := e.locker.Lock(ctx, sessionKey(ev.SessionID))
	if err != nil {
		return fmt.Errorf("%w: lock session: %w", ErrStorage, err)
	}
	defer unlock()

	account := identity.FallbackIdentity(ev.SessionID)
	link, err := e.links.GetBySession(ctx, ev.SessionID)
	switch {
	case err == nil:
		account = link.AccountIdentity()
	case !errors.Is(err, identity.ErrLinkNotFound):
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: lookup link: %w", ErrStorage, err)
	}

	method, amount := intent.MethodUnknown, decimal.Zero
	it, err := e.intents.Get(ctx, ev.SessionID)
	switch {
	case err == nil:
		method, amount = it.Method, it.Amount
	case !errors.Is(err, intent.ErrIntentNotFound):
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: lookup intent: %w", ErrStorage, err)
	}

	tx, err := e.ledger.Append(ctx, ledger.NewTransaction{
		AccountIdentity: account,
		Method:          method,
		Amount:          amount,
		Status:          ledger.StatusProofSubmitted,
		ProofReference:  ev.ImageReference,
		SessionID:       ev.SessionID,
	})
	if err != nil {
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: append transaction: %w", ErrStorage, err)
	}

	logger.FromContext(ctx).Info().
		Int64("transaction_id", tx.ID).
		Str("account", account).
		Str("method", method).
		Str("amount", amount.String()).
		Msg("payment proof recorded")

	e.sendText(ctx, ev.SessionID, msgProofReceived)

	if e.staffChatID != "" {
		e.sendPhoto(ctx, e.staffChatID, ev.ImageReference, staffCaption(tx, e.currencySymbol))
	} else {
		logger.FromContext(ctx).Warn().Int64("transaction_id", tx.ID).Msg("staff chat not configured, proof not forwarded")
	}

	e.publish(ctx, events.SubjectProofSubmitted, tx)
	return nil
}

// HandleCommand dispatches slash commands other than /start.
func (e *Engine) HandleCommand(ctx context.Context, ev CommandEvent) error {
	switch strings.ToLower(strings.TrimPrefix(ev.Command, "/")) {
	case "ok":
		return e.handleCredit(ctx, ev)
	case "reject":
		return e.handleReject(ctx, ev)
	case "help":
		if e.IsAdmin(ev.SenderHandle) {
			e.sendText(ctx, ev.SessionID, msgAdminHelp)
		} else {
			e.sendText(ctx, ev.SessionID, msgUserHelp)
		}
		return nil
	default:
		e.sendText(ctx, ev.SessionID, msgUnknownCommand)
		return nil
	}
}

// IsAdmin reports whether handle is in the configured admin set. Leading "@"
// and letter case are ignored.
func (e *Engine) IsAdmin(handle string) bool {
	h := normalizeAdmin(handle)
	if h == "" {
		return false
	}
	_, ok := e.admins[h]
	return ok
}

// handleCredit runs "/ok <@account> <amount>".
func (e *Engine) handleCredit(ctx context.Context, ev CommandEvent) error {
	if !e.IsAdmin(ev.SenderHandle) {
		e.sendText(ctx, ev.SessionID, msgUnauthorized)
		return ErrUnauthorized
	}
	if len(ev.Args) < 2 {
		e.sendText(ctx, ev.SessionID, msgOkUsage)
		return fmt.Errorf("%w: /ok needs an account and an amount", ErrValidation)
	}

	account, err := parseAccount(ev.Args[0])
	if err != nil {
		e.sendText(ctx, ev.SessionID, invalidAccountText(ev.Args[0]))
		return err
	}
	amount, err := parseAmount(ev.Args[1])
	if err != nil {
		e.sendText(ctx, ev.SessionID, invalidAmountText(ev.Args[1]))
		return err
	}

	log := logger.FromContext(ctx).With().Str("account", account).Str("amount", amount.String()).Logger()

	unlock, err := e.locker.Lock(ctx, accountKey(account))
	if err != nil {
		return fmt.Errorf("%w: lock account: %w", ErrStorage, err)
	}
	defer unlock()

	gwCtx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	_, err = e.gateway.Credit(gwCtx, account, amount)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("credit gateway call failed")
		e.sendText(ctx, ev.SessionID, gatewayErrorText(err))
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}

	log.Info().Str("admin", ev.SenderHandle).Msg("balance credited")
	e.sendText(ctx, ev.SessionID, adminCreditedText(account, amount, e.currencySymbol))

	// The credit already happened; ledger bookkeeping and the requester
	// notice below never turn it into a failure.
	tx := e.resolvePending(ctx, account, ledger.StatusCredited)
	if tx == nil {
		tx = &ledger.Transaction{AccountIdentity: account, Method: "ADMIN", Amount: amount, Status: ledger.StatusCredited}
	}
	e.publish(ctx, events.SubjectCredited, tx)

	target := e.latestSession(ctx, account)
	if target == "" && tx.SessionID != nil {
		target = *tx.SessionID
	}
	if target == "" {
		log.Info().Msg("no linked session to notify")
		return nil
	}
	e.sendText(ctx, target, requesterCreditedText(amount, e.currencySymbol))
	return nil
}

// handleReject runs "/reject <@account> [reason...]" against the newest
// pending proof of the account.
func (e *Engine) handleReject(ctx context.Context, ev CommandEvent) error {
	if !e.IsAdmin(ev.SenderHandle) {
		e.sendText(ctx, ev.SessionID, msgUnauthorized)
		return ErrUnauthorized
	}
	if len(ev.Args) < 1 {
		e.sendText(ctx, ev.SessionID, msgRejectUsage)
		return fmt.Errorf("%w: /reject needs an account", ErrValidation)
	}

	account, err := parseAccount(ev.Args[0])
	if err != nil {
		e.sendText(ctx, ev.SessionID, invalidAccountText(ev.Args[0]))
		return err
	}
	reason := strings.TrimSpace(strings.Join(ev.Args[1:], " "))

	unlock, err := e.locker.Lock(ctx, accountKey(account))
	if err != nil {
		return fmt.Errorf("%w: lock account: %w", ErrStorage, err)
	}
	defer unlock()

	pending, err := e.ledger.LatestPending(ctx, account)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			e.sendText(ctx, ev.SessionID, nothingPendingText(account))
			return nil
		}
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: latest pending: %w", ErrStorage, err)
	}

	tx, err := e.ledger.UpdateStatus(ctx, pending.ID, ledger.StatusRejected)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) || errors.Is(err, ledger.ErrTransactionNotFound) {
			e.sendText(ctx, ev.SessionID, nothingPendingText(account))
			return nil
		}
		e.sendText(ctx, ev.SessionID, msgStorageFailure)
		return fmt.Errorf("%w: reject transaction: %w", ErrStorage, err)
	}

	logger.FromContext(ctx).Info().
		Int64("transaction_id", tx.ID).
		Str("account", account).
		Str("admin", ev.SenderHandle).
		Msg("payment proof rejected")

	e.sendText(ctx, ev.SessionID, adminRejectedText(tx))
	e.publish(ctx, events.SubjectRejected, tx)

	target := ""
	if tx.SessionID != nil {
		target = *tx.SessionID
	}
	if target == "" {
		target = e.latestSession(ctx, account)
	}
	if target != "" {
		e.sendText(ctx, target, requesterRejectedText(tx, reason, e.currencySymbol))
	}
	return nil
}

// resolvePending moves the newest pending proof of account to status and
// returns it, or nil when there is none or the update fails.
func (e *Engine) resolvePending(ctx context.Context, account string, status ledger.Status) *ledger.Transaction {
	log := logger.FromContext(ctx)

	pending, err := e.ledger.LatestPending(ctx, account)
	if err != nil {
		if !errors.Is(err, ledger.ErrTransactionNotFound) {
			log.Error().Err(err).Str("account", account).Msg("failed to read pending transaction")
		}
		return nil
	}

	tx, err := e.ledger.UpdateStatus(ctx, pending.ID, status)
	if err != nil {
		log.Error().Err(err).Int64("transaction_id", pending.ID).Str("status", string(status)).Msg("failed to update transaction status")
		return nil
	}
	return tx
}

// latestSession returns the most recently linked session for account, or ""
// when none is linked. Older sessions for a reused handle are not notified.
func (e *Engine) latestSession(ctx context.Context, account string) string {
	links, err := e.links.ListByAccount(ctx, account)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("account", account).Msg("failed to resolve session for account")
		return ""
	}
	if len(links) == 0 {
		return ""
	}
	return links[0].SessionID
}

func (e *Engine) sendText(ctx context.Context, sessionID, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendText(ctx, sessionID, text); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("target_session", sessionID).Msg("notification failed")
	}
}

func (e *Engine) sendPhoto(ctx context.Context, sessionID, imageRef, caption string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendPhoto(ctx, sessionID, imageRef, caption); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("target_session", sessionID).Msg("staff notification failed")
	}
}

func (e *Engine) publish(ctx context.Context, subject string, tx *ledger.Transaction) {
	ev := events.NewEvent(subject)
	ev.TransactionID = tx.ID
	ev.Account = tx.AccountIdentity
	ev.Method = tx.Method
	ev.Amount = tx.Amount
	ev.Status = string(tx.Status)
	if tx.SessionID != nil {
		ev.SessionID = *tx.SessionID
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}

func parseAccount(raw string) (string, error) {
	account := identity.NormalizeHandle(raw)
	if err := validator.ValidateVar(account, "required,handle"); err != nil {
		return "", fmt.Errorf("%w: invalid account %q", ErrValidation, raw)
	}
	return account, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if err := validator.ValidateVar(raw, "positive_amount"); err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrValidation, raw)
	}
	return decimal.RequireFromString(raw), nil
}

func normalizeAdmin(handle string) string {
	return strings.ToLower(identity.NormalizeHandle(handle))
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func accountKey(account string) string {
	return "account:" + strings.ToLower(account)
}
