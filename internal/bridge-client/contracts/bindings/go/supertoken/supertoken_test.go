package supertoken

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestDepositOverloads(t *testing.T) {
	parsed, err := SuperTokenMetaData.GetAbi()
	require.NoError(t, err)

	payable, ok := parsed.Methods["deposit"]
	require.True(t, ok)
	require.True(t, payable.IsPayable())
	require.Empty(t, payable.Inputs)

	erc20, ok := parsed.Methods["deposit0"]
	require.True(t, ok)
	require.False(t, erc20.IsPayable())
	require.Len(t, erc20.Inputs, 1)
	require.Equal(t, "deposit(uint256)", erc20.Sig)
}

func TestParseCrosschainBurned(t *testing.T) {
	parsed, err := SuperTokenMetaData.GetAbi()
	require.NoError(t, err)
	token, err := NewSuperToken(common.HexToAddress("0x13D962B70e8E280c7762557Ef8Bf89Fdc93e3F43"), nil)
	require.NoError(t, err)

	from := common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	data, err := parsed.Events["CrosschainBurned"].Inputs.NonIndexed().Pack(big.NewInt(42))
	require.NoError(t, err)

	ev, err := token.ParseCrosschainBurned(types.Log{
		Topics: []common.Hash{parsed.Events["CrosschainBurned"].ID, common.BytesToHash(from.Bytes())},
		Data:   data,
	})
	require.NoError(t, err)
	require.Equal(t, from, ev.From)
	require.Equal(t, int64(42), ev.Amount.Int64())

	_, err = token.ParseCrosschainBurned(types.Log{
		Topics: []common.Hash{parsed.Events["Deposited"].ID, common.BytesToHash(from.Bytes())},
		Data:   data,
	})
	require.Error(t, err)
}
