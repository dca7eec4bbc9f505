package balances

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

var account = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")

type fakeReader struct {
	cat      *catalog.Catalog
	native   *big.Int
	tokens   map[common.Address]*big.Int
	decimals map[common.Address]uint8
}

func (f *fakeReader) Contracts(chain catalog.ChainID) (catalog.ContractSet, error) {
	set, ok := f.cat.Contracts(chain)
	if !ok {
		return catalog.ContractSet{}, errors.Mark(errors.New("no contracts"), shared.ErrUnsupportedChain)
	}
	return set, nil
}

func (f *fakeReader) NativeBalance(context.Context, catalog.ChainID, common.Address) (*big.Int, error) {
	return f.native, nil
}

func (f *fakeReader) TokenBalance(_ context.Context, _ catalog.ChainID, token, _ common.Address) (*big.Int, error) {
	return f.tokens[token], nil
}

func (f *fakeReader) TokenDecimals(_ context.Context, _ catalog.ChainID, token common.Address) (uint8, error) {
	return f.decimals[token], nil
}

func TestLoadBalancesUsesEachTokensDecimals(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	set, _ := cat.Contracts(84532)

	oneHalfEth, _ := new(big.Int).SetString("1500000000000000000", 10)
	wrapped, _ := new(big.Int).SetString("5000000000000000000", 10)
	r := &fakeReader{
		cat:      cat,
		native:   oneHalfEth,
		tokens:   map[common.Address]*big.Int{set.Wrapped: wrapped, set.Underlying: big.NewInt(2_500_000)},
		decimals: map[common.Address]uint8{set.Wrapped: 18, set.Underlying: 6},
	}

	b, err := NewOracle(r, cat).LoadBalances(context.Background(), account, 84532)
	require.NoError(t, err)
	require.Equal(t, "1.5", b.Native)
	require.Equal(t, "5", b.Wrapped)
	require.Equal(t, "2.5", b.Underlying)
	require.Equal(t, account.Hex(), b.Account)
	require.EqualValues(t, 84532, b.ChainID)
	require.False(t, b.LoadedAt.IsZero())
}

func TestLoadBalancesNativeUnderlying(t *testing.T) {
	cat, err := catalog.Load([]byte(`
networks:
  - name: Local
    chainId: "31337"
    rpc: http://127.0.0.1:8545
    contracts:
      wrapped: "0x13D962B70e8E280c7762557Ef8Bf89Fdc93e3F43"
`))
	require.NoError(t, err)
	set, _ := cat.Contracts(31337)

	r := &fakeReader{
		cat:      cat,
		native:   big.NewInt(250_000_000_000_000_000),
		tokens:   map[common.Address]*big.Int{set.Wrapped: big.NewInt(0)},
		decimals: map[common.Address]uint8{set.Wrapped: 18},
	}
	b, err := NewOracle(r, cat).LoadBalances(context.Background(), account, 31337)
	require.NoError(t, err)
	require.Equal(t, "0.25", b.Underlying)
	require.Equal(t, b.Native, b.Underlying)
	require.Equal(t, "0", b.Wrapped)
}

func TestLoadBalancesUnsupportedChain(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	_, err = NewOracle(&fakeReader{cat: cat}, cat).LoadBalances(context.Background(), account, 1)
	require.ErrorIs(t, err, shared.ErrUnsupportedChain)
}

func TestCache(t *testing.T) {
	c := NewCache()
	c.Put(shared.Balances{Account: account.Hex(), ChainID: 84532, Wrapped: "1"})
	c.Put(shared.Balances{Account: "not-an-address", ChainID: 84532})

	got, ok := c.Get(account, 84532)
	require.True(t, ok)
	require.Equal(t, "1", got.Wrapped)
	_, ok = c.Get(account, 999)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Zero(t, c.Len())
}
