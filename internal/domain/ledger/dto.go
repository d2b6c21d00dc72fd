package ledger

import "time"

// TransactionResponse is the ops API view of a ledger row.
type TransactionResponse struct {
	ID              int64   `json:"id"`
	AccountIdentity string  `json:"account_identity"`
	Method          string  `json:"method"`
	Amount          string  `json:"amount"`
	Status          string  `json:"status"`
	ProofReference  *string `json:"proof_reference,omitempty"`
	SessionID       *string `json:"session_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	CreditedAt      *string `json:"credited_at,omitempty"`
	ResolvedAt      *string `json:"resolved_at,omitempty"`
}

// ListQuery holds validated query parameters of GET /transactions.
type ListQuery struct {
	Account string `json:"account" validate:"omitempty,max=64"`
	Status  string `json:"status" validate:"tx_status"`
	Limit   int    `json:"limit" validate:"min=1,max=200"`
	Offset  int    `json:"offset" validate:"min=0"`
}

func TransactionResponseFromEntity(tx *Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              tx.ID,
		AccountIdentity: tx.AccountIdentity,
		Method:          tx.Method,
		Amount:          tx.Amount.StringFixed(2),
		Status:          string(tx.Status),
		ProofReference:  tx.ProofReference,
		SessionID:       tx.SessionID,
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
		CreditedAt:      formatTime(tx.CreditedAt),
		ResolvedAt:      formatTime(tx.ResolvedAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
