package intent

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	tokenSeparator = "_"
	amountScale    = 2
)

// maxAmount is the first value a NUMERIC(14,2) column cannot hold.
var maxAmount = decimal.New(1, 12)

// ParseToken reads a METHOD_AMOUNT start argument such as "yape_20".
// ok is false for anything that is not exactly two non-empty parts with an
// alphanumeric method and a positive decimal amount with at most two
// fractional digits, below maxAmount.
func ParseToken(token string) (method string, amount decimal.Decimal, ok bool) {
	token = strings.TrimSpace(token)
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", decimal.Zero, false
	}

	for _, r := range parts[0] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", decimal.Zero, false
		}
	}

	amount, err := decimal.NewFromString(parts[1])
	if err != nil || !amount.IsPositive() {
		return "", decimal.Zero, false
	}
	if !amount.Equal(amount.Round(amountScale)) || amount.GreaterThanOrEqual(maxAmount) {
		return "", decimal.Zero, false
	}

	return strings.ToUpper(parts[0]), amount, true
}
