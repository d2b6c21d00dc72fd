package intent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const queryTimeout = 3 * time.Second

type Repository interface {
	Set(ctx context.Context, sessionID, method string, amount decimal.Decimal) error
	Get(ctx context.Context, sessionID string) (*Intent, error)
}

// IntentRepository keeps one live intent per session in pending_intents.
type IntentRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// Set overwrites the session's intent. Non-positive amounts are never stored.
func (r *IntentRepository) Set(ctx context.Context, sessionID, method string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO pending_intents (session_id, method, amount, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id) DO UPDATE
		SET method = EXCLUDED.method,
		    amount = EXCLUDED.amount,
		    created_at = EXCLUDED.created_at
	`, sessionID, method, amount)
	if err != nil {
		return fmt.Errorf("%w: set intent: %w", ErrInternal, err)
	}
	return nil
}

// Get reads the session's intent without consuming it; several proofs may be
// sent against one stated intent.
func (r *IntentRepository) Get(ctx context.Context, sessionID string) (*Intent, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var it Intent
	err := r.db.GetContext(ctx2, &it, `
		SELECT session_id, method, amount, created_at
		FROM pending_intents
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("%w: get intent: %w", ErrInternal, err)
	}
	return &it, nil
}
