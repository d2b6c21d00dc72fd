package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository interface {
	Upsert(ctx context.Context, link *Link) error
	GetBySession(ctx context.Context, sessionID string) (*Link, error)
	ListByAccount(ctx context.Context, account string) ([]*Link, error)
}

// LinkRepository stores links in telegram_links.
type LinkRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Upsert inserts or replaces the link for link.SessionID. LinkedAt is
// refreshed on every call.
func (r *LinkRepository) Upsert(ctx context.Context, link *Link) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.GetContext(ctx2, &link.LinkedAt, `
		INSERT INTO telegram_links (session_id, claimed_handle, bound_account, linked_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id) DO UPDATE
		SET claimed_handle = EXCLUDED.claimed_handle,
		    bound_account  = EXCLUDED.bound_account,
		    linked_at      = EXCLUDED.linked_at
		RETURNING linked_at
	`, link.SessionID, link.ClaimedHandle, link.BoundAccount)
	if err != nil {
		return fmt.Errorf("%w: upsert link: %w", ErrInternal, err)
	}
	return nil
}

func (r *LinkRepository) GetBySession(ctx context.Context, sessionID string) (*Link, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var link Link
	err := r.db.GetContext(ctx2, &link, `
		SELECT session_id, claimed_handle, bound_account, linked_at
		FROM telegram_links
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("%w: get link: %w", ErrInternal, err)
	}
	return &link, nil
}

// ListByAccount returns every session whose bound account or claimed handle
// matches account, most recently linked first. Sessions without any handle
// match on their fallback identity.
func (r *LinkRepository) ListByAccount(ctx context.Context, account string) ([]*Link, error) {
	account = NormalizeHandle(account)
	if account == "" {
		return []*Link{}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	links := make([]*Link, 0)
	err := r.db.SelectContext(ctx2, &links, `
		SELECT session_id, claimed_handle, bound_account, linked_at
		FROM telegram_links
		WHERE lower(bound_account) = lower($1)
		   OR lower(claimed_handle) = lower($1)
		   OR (bound_account IS NULL AND claimed_handle IS NULL AND 'user' || session_id = lower($1))
		ORDER BY linked_at DESC, session_id
	`, account)
	if err != nil {
		return nil, fmt.Errorf("%w: list links: %w", ErrInternal, err)
	}
	return links, nil
}
