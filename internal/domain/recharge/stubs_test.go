package recharge

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servis/recharge-bot/internal/domain/identity"
	"github.com/servis/recharge-bot/internal/domain/intent"
	"github.com/servis/recharge-bot/internal/domain/ledger"
	"github.com/servis/recharge-bot/internal/pkg/creditapi"
	"github.com/servis/recharge-bot/internal/pkg/events"
)

var errStoreDown = errors.New("store down")

/* ---------- identity ---------- */

type linkStoreStub struct {
	mu     sync.Mutex
	links  map[string]*identity.Link
	clock  time.Time
	writes int
	err    error
}

func newLinkStore() *linkStoreStub {
	return &linkStoreStub{
		links: make(map[string]*identity.Link),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *linkStoreStub) Upsert(ctx context.Context, link *identity.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.clock = s.clock.Add(time.Second)
	link.LinkedAt = s.clock
	cp := *link
	s.links[link.SessionID] = &cp
	s.writes++
	return nil
}

func (s *linkStoreStub) GetBySession(ctx context.Context, sessionID string) (*identity.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	l, ok := s.links[sessionID]
	if !ok {
		return nil, identity.ErrLinkNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *linkStoreStub) ListByAccount(ctx context.Context, account string) ([]*identity.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	account = identity.NormalizeHandle(account)
	out := []*identity.Link{}
	for _, l := range s.links {
		handleless := !l.BoundAccount.Valid && !l.ClaimedHandle.Valid
		if strings.EqualFold(l.BoundAccount.String, account) || strings.EqualFold(l.ClaimedHandle.String, account) ||
			(handleless && strings.EqualFold(identity.FallbackIdentity(l.SessionID), account)) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkedAt.After(out[j].LinkedAt) })
	return out, nil
}

/* ---------- intent ---------- */

type intentStoreStub struct {
	mu      sync.Mutex
	intents map[string]*intent.Intent
	writes  int
	err     error
}

func newIntentStore() *intentStoreStub {
	return &intentStoreStub{intents: make(map[string]*intent.Intent)}
}

func (s *intentStoreStub) Set(ctx context.Context, sessionID, method string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if !amount.IsPositive() {
		return intent.ErrInvalidAmount
	}
	s.intents[sessionID] = &intent.Intent{SessionID: sessionID, Method: method, Amount: amount, CreatedAt: time.Now()}
	s.writes++
	return nil
}

func (s *intentStoreStub) Get(ctx context.Context, sessionID string) (*intent.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	it, ok := s.intents[sessionID]
	if !ok {
		return nil, intent.ErrIntentNotFound
	}
	cp := *it
	return &cp, nil
}

/* ---------- ledger ---------- */

type ledgerStub struct {
	mu     sync.Mutex
	rows   []*ledger.Transaction
	writes int
	err    error
}

func (s *ledgerStub) Append(ctx context.Context, in ledger.NewTransaction) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	tx := &ledger.Transaction{
		ID:              int64(len(s.rows) + 1),
		AccountIdentity: in.AccountIdentity,
		Method:          in.Method,
		Amount:          in.Amount,
		Status:          in.Status,
		CreatedAt:       time.Now(),
	}
	if in.ProofReference != "" {
		ref := in.ProofReference
		tx.ProofReference = &ref
	}
	if in.SessionID != "" {
		sid := in.SessionID
		tx.SessionID = &sid
	}
	s.rows = append(s.rows, tx)
	s.writes++
	cp := *tx
	return &cp, nil
}

func (s *ledgerStub) UpdateStatus(ctx context.Context, id int64, status ledger.Status) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, tx := range s.rows {
		if tx.ID != id {
			continue
		}
		if tx.Status != ledger.StatusProofSubmitted || !status.Terminal() {
			return nil, ledger.ErrInvalidTransition
		}
		now := time.Now()
		tx.Status = status
		tx.ResolvedAt = &now
		if status == ledger.StatusCredited {
			tx.CreditedAt = &now
		}
		s.writes++
		cp := *tx
		return &cp, nil
	}
	return nil, ledger.ErrTransactionNotFound
}

func (s *ledgerStub) LatestPending(ctx context.Context, account string) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for i := len(s.rows) - 1; i >= 0; i-- {
		tx := s.rows[i]
		if strings.EqualFold(tx.AccountIdentity, account) && tx.Status == ledger.StatusProofSubmitted {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (s *ledgerStub) GetByID(ctx context.Context, id int64) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.rows {
		if tx.ID == id {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (s *ledgerStub) List(ctx context.Context, filter ledger.Filter) ([]*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ledger.Transaction(nil), s.rows...), nil
}

func (s *ledgerStub) snapshot() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Transaction, len(s.rows))
	for i, tx := range s.rows {
		out[i] = *tx
	}
	return out
}

/* ---------- notifier ---------- */

type sentMessage struct {
	SessionID string
	Text      string
	ImageRef  string
	Photo     bool
}

type notifierStub struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *notifierStub) SendText(ctx context.Context, sessionID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{SessionID: sessionID, Text: text})
	return n.err
}

func (n *notifierStub) SendPhoto(ctx context.Context, sessionID, imageRef, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{SessionID: sessionID, Text: caption, ImageRef: imageRef, Photo: true})
	return n.err
}

func (n *notifierStub) to(sessionID string) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, m := range n.sent {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

func (n *notifierStub) last(sessionID string) string {
	msgs := n.to(sessionID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

/* ---------- gateway ---------- */

type creditCall struct {
	Account string
	Amount  decimal.Decimal
}

type gatewayStub struct {
	mu    sync.Mutex
	calls []creditCall
	err   error
	block chan struct{}
}

func (g *gatewayStub) Credit(ctx context.Context, account string, amount decimal.Decimal) (*creditapi.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, creditCall{Account: account, Amount: amount})
	block, err := g.block, g.err
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &creditapi.Error{Kind: creditapi.KindTimeout, Detail: ctx.Err().Error(), Err: ctx.Err()}
		}
	}
	if err != nil {
		return nil, err
	}
	return &creditapi.Result{OK: true}, nil
}

func (g *gatewayStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

/* ---------- publisher ---------- */

type publisherStub struct {
	mu       sync.Mutex
	subjects []string
}

func (p *publisherStub) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, e.Subject)
	return nil
}

/* ---------- fixture ---------- */

const (
	staffChat = "-100500"
	adminChat = "900"
)

type fixture struct {
	links     *linkStoreStub
	intents   *intentStoreStub
	ledger    *ledgerStub
	notifier  *notifierStub
	gateway   *gatewayStub
	publisher *publisherStub
	engine    *Engine
}

func newFixture() *fixture {
	f := &fixture{
		links:     newLinkStore(),
		intents:   newIntentStore(),
		ledger:    &ledgerStub{},
		notifier:  &notifierStub{},
		gateway:   &gatewayStub{},
		publisher: &publisherStub{},
	}
	f.engine = NewEngine(Deps{
		Links:     f.links,
		Intents:   f.intents,
		Ledger:    f.ledger,
		Notifier:  f.notifier,
		Gateway:   f.gateway,
		Publisher: f.publisher,
	}, Options{
		Admins:         []string{"@Boss", "ops"},
		StaffChatID:    staffChat,
		CurrencySymbol: "S/",
		GatewayTimeout: time.Second,
	})
	return f
}

func (f *fixture) storeWrites() int {
	return f.links.writes + f.intents.writes + f.ledger.writes
}
