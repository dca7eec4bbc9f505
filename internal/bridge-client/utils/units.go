package utils

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

// FormatUnits converts a raw token amount to a decimal string using the
// token's own precision. Trailing zeros are dropped.
//
// Examples:
//
//	amount=1234500, decimals=6   -> "1.2345"
//	amount=1e18,    decimals=18  -> "1"
//	amount=1,       decimals=18  -> "0.000000000000000001"
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FormatUnitsTrim is FormatUnits cut to at most maxFrac fractional digits.
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if maxFrac < 0 {
		maxFrac = 0
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Truncate(int32(maxFrac)).String()
}

// ParseAmount accepts a strictly positive decimal such as "1", "0.5" or "1e-3".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errors.Mark(errors.New("amount is empty"), shared.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Mark(errors.Wrapf(err, "amount %q", raw), shared.ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.Mark(errors.Newf("amount %s must be positive", s), shared.ErrInvalidAmount)
	}
	return d, nil
}

// ToUnits scales amount to the token's integer units. Precision beyond the
// token's decimals is rejected rather than rounded.
func ToUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, errors.Mark(errors.Newf("amount %s has more than %d decimal places", amount, decimals), shared.ErrInvalidAmount)
	}
	return scaled.BigInt(), nil
}
