package recharge

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/servis/recharge-bot/internal/pkg/creditapi"
)

// Notifier sends outbound chat messages. Every call is best-effort.
type Notifier interface {
	SendText(ctx context.Context, sessionID, text string) error
	SendPhoto(ctx context.Context, sessionID, imageRef, caption string) error
}

// CreditGateway performs the actual balance mutation.
type CreditGateway interface {
	Credit(ctx context.Context, account string, amount decimal.Decimal) (*creditapi.Result, error)
}
