package intent

import (
	"time"

	"github.com/shopspring/decimal"
)

// MethodUnknown marks proofs submitted without a stated intent.
const MethodUnknown = "UNKNOWN"

// Intent is the last recharge request a session announced via /start.
type Intent struct {
	SessionID string          `db:"session_id"`
	Method    string          `db:"method"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}
