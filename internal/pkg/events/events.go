// Package events publishes ledger lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

const (
	SubjectProofSubmitted = "recharge.proof_submitted"
	SubjectCredited       = "recharge.credited"
	SubjectRejected       = "recharge.rejected"
)

// Event is the JSON payload of every subject. TransactionID is zero for
// credits that had no pending ledger row.
type Event struct {
	ID            string          `json:"id"`
	Subject       string          `json:"-"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	Account       string          `json:"account_identity"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	SessionID     string          `json:"session_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(subject string) Event {
	return Event{
		ID:         uuid.New().String(),
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type conn interface {
	Publish(subj string, data []byte) error
}

// NatsPublisher publishes core NATS messages (at most once).
type NatsPublisher struct {
	nc conn
}

// NewPublisher returns a NATS publisher, or Noop when nc is nil.
func NewPublisher(nc *nats.Conn) Publisher {
	if nc == nil {
		return Noop{}
	}
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(ctx context.Context, e Event) error {
	if e.Subject == "" {
		return fmt.Errorf("events: subject is empty")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.Subject, err)
	}
	if err := p.nc.Publish(e.Subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", e.Subject, err)
	}
	return nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(ctx context.Context, e Event) error { return nil }
