package identity

import (
	"database/sql"
	"strings"
	"time"
)

// Link binds a chat session to the account identity it acts for.
type Link struct {
	SessionID     string         `db:"session_id"`
	ClaimedHandle sql.NullString `db:"claimed_handle"`
	BoundAccount  sql.NullString `db:"bound_account"`
	LinkedAt      time.Time      `db:"linked_at"`
}

// NewLink builds a link whose bound account defaults to the claimed handle.
func NewLink(sessionID, claimedHandle string) *Link {
	handle := NormalizeHandle(claimedHandle)
	l := &Link{SessionID: sessionID}
	if handle != "" {
		l.ClaimedHandle = sql.NullString{String: handle, Valid: true}
		l.BoundAccount = sql.NullString{String: handle, Valid: true}
	}
	return l
}

// AccountIdentity resolves bound account, then claimed handle, then the
// synthetic per-session placeholder.
func (l *Link) AccountIdentity() string {
	if l == nil {
		return ""
	}
	if l.BoundAccount.Valid && l.BoundAccount.String != "" {
		return l.BoundAccount.String
	}
	if l.ClaimedHandle.Valid && l.ClaimedHandle.String != "" {
		return l.ClaimedHandle.String
	}
	return FallbackIdentity(l.SessionID)
}

// FallbackIdentity is used for sessions that never linked or have no handle.
func FallbackIdentity(sessionID string) string {
	return "user" + sessionID
}

// NormalizeHandle trims whitespace and a leading "@".
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
