package ledger

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidTransition is returned for any status change other than
	// proof_submitted -> credited|rejected, including repeats on terminal rows.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrInvalidStatus = errors.New("invalid transaction status")

	ErrInternal = errors.New("ledger store error")
)
