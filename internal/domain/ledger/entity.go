package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a ledger row.
type Status string

const (
	StatusRequested      Status = "requested"
	StatusProofSubmitted Status = "proof_submitted"
	StatusCredited       Status = "credited"
	StatusRejected       Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusProofSubmitted, StatusCredited, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCredited || s == StatusRejected
}

// Transaction is an append-only ledger row. Only Status, CreditedAt and
// ResolvedAt change after insert.
type Transaction struct {
	ID              int64           `db:"id"`
	AccountIdentity string          `db:"account_identity"`
	Method          string          `db:"method"`
	Amount          decimal.Decimal `db:"amount"`
	Status          Status          `db:"status"`
	ProofReference  *string         `db:"proof_reference"`
	SessionID       *string         `db:"session_id"`
	CreatedAt       time.Time       `db:"created_at"`
	CreditedAt      *time.Time      `db:"credited_at"`
	ResolvedAt      *time.Time      `db:"resolved_at"`
}

// NewTransaction is the input to Append.
type NewTransaction struct {
	AccountIdentity string
	Method          string
	Amount          decimal.Decimal
	Status          Status
	ProofReference  string
	SessionID       string
}

// Filter narrows ledger listings.
type Filter struct {
	Account string
	Status  Status
	Limit   int
	Offset  int
}
