package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const selectColumns = `id, account_identity, method, amount, status, proof_reference, session_id, created_at, credited_at, resolved_at`

type Repository interface {
	Append(ctx context.Context, in NewTransaction) (*Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Transaction, error)
	LatestPending(ctx context.Context, account string) (*Transaction, error)
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	List(ctx context.Context, filter Filter) ([]*Transaction, error)
}

// TransactionRepository is the Postgres ledger.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts one row in a single statement, so it either fully lands or
// not at all.
func (r *TransactionRepository) Append(ctx context.Context, in NewTransaction) (*Transaction, error) {
	if !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var tx Transaction
	err := r.db.GetContext(ctx2, &tx, `
		INSERT INTO transactions (account_identity, method, amount, status, proof_reference, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+selectColumns,
		in.AccountIdentity, in.Method, in.Amount, string(in.Status), nullable(in.ProofReference), nullable(in.SessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: append transaction: %w", ErrInternal, err)
	}
	return &tx, nil
}

// UpdateStatus moves a proof_submitted row to credited or rejected.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status Status) (*Transaction, error) {
	if !status.Terminal() {
		return nil, ErrInvalidTransition
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var tx Transaction
	err := r.db.GetContext(ctx2, &tx, `
		UPDATE transactions
		SET status = $2,
		    credited_at = CASE WHEN $2 = 'credited' THEN now() ELSE credited_at END,
		    resolved_at = now()
		WHERE id = $1 AND status = 'proof_submitted'
		RETURNING `+selectColumns,
		id, string(status))
	if err == nil {
		return &tx, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: update status: %w", ErrInternal, err)
	}

	// Nothing updated: either the row does not exist or it already left
	// proof_submitted.
	var current string
	err = r.db.GetContext(ctx2, &current, `SELECT status FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read status: %w", ErrInternal, err)
	}
	return nil, ErrInvalidTransition
}

// LatestPending returns the newest proof_submitted row for account.
func (r *TransactionRepository) LatestPending(ctx context.Context, account string) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var tx Transaction
	err := r.db.GetContext(ctx2, &tx, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE lower(account_identity) = lower($1) AND status = 'proof_submitted'
		ORDER BY id DESC
		LIMIT 1
	`, account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: latest pending: %w", ErrInternal, err)
	}
	return &tx, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var tx Transaction
	err := r.db.GetContext(ctx2, &tx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: get transaction: %w", ErrInternal, err)
	}
	return &tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	base := `SELECT ` + selectColumns + ` FROM transactions WHERE 1=1`
	args := make([]interface{}, 0, 4)
	idx := 1

	if filter.Account != "" {
		base += fmt.Sprintf(" AND lower(account_identity) = lower($%d)", idx)
		args = append(args, filter.Account)
		idx++
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, string(filter.Status))
		idx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	base = strings.TrimSpace(base) + fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	txs := make([]*Transaction, 0)
	if err := r.db.SelectContext(ctx2, &txs, base, args...); err != nil {
		return nil, fmt.Errorf("%w: list transactions: %w", ErrInternal, err)
	}
	return txs, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
