package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

func TestFormatUnits(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)

	require.Equal(t, "0", FormatUnits(nil, 18))
	require.Equal(t, "1.2345", FormatUnits(big.NewInt(1_234_500), 6))
	require.Equal(t, "1", FormatUnits(oneEth, 18))
	require.Equal(t, "0.000000000000000001", FormatUnits(big.NewInt(1), 18))
	require.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
}

func TestFormatUnitsTrim(t *testing.T) {
	require.Equal(t, "1.23", FormatUnitsTrim(big.NewInt(1_239_999), 6, 2))
	require.Equal(t, "1", FormatUnitsTrim(big.NewInt(1_000_001), 6, 4))
	require.Equal(t, "0", FormatUnitsTrim(big.NewInt(0), 6, 4))
}

func TestParseAmount(t *testing.T) {
	for _, raw := range []string{"1", "0.5", " 2.25 ", "1e-3"} {
		d, err := ParseAmount(raw)
		require.NoError(t, err, raw)
		require.True(t, d.IsPositive(), raw)
	}
	for _, raw := range []string{"", "0", "-1", "abc", "0.0", "1.2.3"} {
		_, err := ParseAmount(raw)
		require.ErrorIs(t, err, shared.ErrInvalidAmount, raw)
	}
}

func TestToUnits(t *testing.T) {
	v, err := ToUnits(decimal.RequireFromString("1.5"), 6)
	require.NoError(t, err)
	require.EqualValues(t, 1_500_000, v.Int64())

	_, err = ToUnits(decimal.RequireFromString("0.0000001"), 6)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	require.Equal(t, "1.5", FormatUnits(v, 6))
}
