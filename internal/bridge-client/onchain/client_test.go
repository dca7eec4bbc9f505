package onchain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/chains"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/contracts/bindings/go/erc20"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/contracts/bindings/go/supertoken"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/provider"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

const baseSepolia catalog.ChainID = 84532

// fakeChain answers the handful of RPCs the bindings issue. Anything else
// hits the embedded nil Backend and panics.
type fakeChain struct {
	chains.Backend

	erc20ABI *abi.ABI
	superABI *abi.ABI

	mu            sync.Mutex
	native        *big.Int
	tokenBalance  *big.Int
	allowance     *big.Int
	decimals      uint8
	decimalsCalls int
	estimateErr   error
	failReceipts  bool
	emitBurnLog   bool
	sent          []*types.Transaction
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	e, err := erc20.ERC20MetaData.GetAbi()
	require.NoError(t, err)
	s, err := supertoken.SuperTokenMetaData.GetAbi()
	require.NoError(t, err)
	return &fakeChain{
		erc20ABI:     e,
		superABI:     s,
		native:       big.NewInt(3e18),
		tokenBalance: big.NewInt(5_000_000),
		allowance:    big.NewInt(0),
		decimals:     6,
		emitBurnLog:  true,
	}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.erc20ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "balanceOf":
		return m.Outputs.Pack(f.tokenBalance)
	case "allowance":
		return m.Outputs.Pack(f.allowance)
	case "decimals":
		f.decimalsCalls++
		return m.Outputs.Pack(f.decimals)
	case "symbol":
		return m.Outputs.Pack("USDC")
	}
	return nil, errors.New("unexpected call " + m.Name)
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1e9), nil }

func (f *fakeChain) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(1e9), nil }

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, f.estimateErr
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.native, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tx := range f.sent {
		if tx.Hash() != hash {
			continue
		}
		r := &types.Receipt{TxHash: hash, BlockNumber: big.NewInt(1), Status: types.ReceiptStatusSuccessful}
		if f.failReceipts {
			r.Status = types.ReceiptStatusFailed
		}
		if l := f.burnLog(tx); l != nil {
			r.Logs = []*types.Log{l}
		}
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) burnLog(tx *types.Transaction) *types.Log {
	if !f.emitBurnLog || len(tx.Data()) < 4 {
		return nil
	}
	m, err := f.superABI.MethodById(tx.Data()[:4])
	if err != nil || m.Name != "crosschainBurn" {
		return nil
	}
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return nil
	}
	ev := f.superABI.Events["CrosschainBurned"]
	data, err := ev.Inputs.NonIndexed().Pack(args[1])
	if err != nil {
		return nil
	}
	return &types.Log{
		Address: *tx.To(),
		Topics:  []common.Hash{ev.ID, common.BytesToHash(args[0].(common.Address).Bytes())},
		Data:    data,
	}
}

func (f *fakeChain) lastCall(t *testing.T) (string, []interface{}, *types.Transaction) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	tx := f.sent[len(f.sent)-1]

	for _, parsed := range []*abi.ABI{f.superABI, f.erc20ABI} {
		if m, err := parsed.MethodById(tx.Data()[:4]); err == nil {
			args, err := m.Inputs.Unpack(tx.Data()[4:])
			require.NoError(t, err)
			return m.RawName, args, tx
		}
	}
	t.Fatalf("unknown selector %x", tx.Data()[:4])
	return "", nil, nil
}

type fakeClients struct{ backend chains.Backend }

func (f fakeClients) ClientFor(context.Context, catalog.ChainID) (chains.Backend, error) {
	return f.backend, nil
}

type keySigner struct {
	rejected bool
}

func (s keySigner) TransactOpts(ctx context.Context, chain catalog.ChainID, _ string) (*bind.TransactOpts, error) {
	if s.rejected {
		return nil, provider.ErrUserRejected
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(uint64(chain)))
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func newTestClient(t *testing.T, cat *catalog.Catalog, fc *fakeChain, signer Signer) *Client {
	t.Helper()
	if cat == nil {
		var err error
		cat, err = catalog.Default()
		require.NoError(t, err)
	}
	c, err := NewClient(Config{Catalog: cat, Chains: fakeClients{backend: fc}, Signer: signer, ReceiptTimeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestReads(t *testing.T) {
	fc := newFakeChain(t)
	c := newTestClient(t, nil, fc, keySigner{})
	ctx := context.Background()
	account := common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	set, err := c.Contracts(baseSepolia)
	require.NoError(t, err)

	native, err := c.NativeBalance(ctx, baseSepolia, account)
	require.NoError(t, err)
	require.Equal(t, fc.native, native)

	bal, err := c.TokenBalance(ctx, baseSepolia, set.Underlying, account)
	require.NoError(t, err)
	require.EqualValues(t, 5_000_000, bal.Int64())

	for i := 0; i < 3; i++ {
		d, err := c.TokenDecimals(ctx, baseSepolia, set.Underlying)
		require.NoError(t, err)
		require.EqualValues(t, 6, d)
	}
	require.Equal(t, 1, fc.decimalsCalls)
}

func TestContractsUnknownChain(t *testing.T) {
	c := newTestClient(t, nil, newFakeChain(t), keySigner{})
	_, err := c.Contracts(1)
	require.ErrorIs(t, err, shared.ErrUnsupportedChain)
}

func TestApproveTargetsWrappedContract(t *testing.T) {
	fc := newFakeChain(t)
	c := newTestClient(t, nil, fc, keySigner{})
	set, _ := c.Contracts(baseSepolia)

	_, err := c.Approve(context.Background(), baseSepolia, big.NewInt(1_000_000))
	require.NoError(t, err)

	name, args, tx := fc.lastCall(t)
	require.Equal(t, "approve", name)
	require.Equal(t, set.Underlying, *tx.To())
	require.Equal(t, set.Wrapped, args[0].(common.Address))
	require.EqualValues(t, 1_000_000, args[1].(*big.Int).Int64())
}

func TestDepositERC20Underlying(t *testing.T) {
	fc := newFakeChain(t)
	c := newTestClient(t, nil, fc, keySigner{})
	set, _ := c.Contracts(baseSepolia)

	_, err := c.Deposit(context.Background(), baseSepolia, big.NewInt(42))
	require.NoError(t, err)

	name, args, tx := fc.lastCall(t)
	require.Equal(t, "deposit", name)
	require.Len(t, args, 1)
	require.Equal(t, set.Wrapped, *tx.To())
	require.Zero(t, tx.Value().Sign())
}

func TestDepositNativeUnderlyingIsPayable(t *testing.T) {
	cat, err := catalog.Load([]byte(`
networks:
  - name: Local
    chainId: "84532"
    rpc: http://127.0.0.1:8545
    contracts:
      wrapped: "0x13D962B70e8E280c7762557Ef8Bf89Fdc93e3F43"
`))
	require.NoError(t, err)
	fc := newFakeChain(t)
	c := newTestClient(t, cat, fc, keySigner{})

	_, err = c.Deposit(context.Background(), baseSepolia, big.NewInt(7e17))
	require.NoError(t, err)

	name, args, tx := fc.lastCall(t)
	require.Equal(t, "deposit", name)
	require.Empty(t, args)
	require.EqualValues(t, int64(7e17), tx.Value().Int64())
}

func TestWithdraw(t *testing.T) {
	fc := newFakeChain(t)
	c := newTestClient(t, nil, fc, keySigner{})

	_, err := c.Withdraw(context.Background(), baseSepolia, big.NewInt(9))
	require.NoError(t, err)

	name, args, _ := fc.lastCall(t)
	require.Equal(t, "withdraw", name)
	require.EqualValues(t, 9, args[0].(*big.Int).Int64())
}

func TestCrosschainBurnReadsEvent(t *testing.T) {
	fc := newFakeChain(t)
	c := newTestClient(t, nil, fc, keySigner{})
	from := common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")

	receipt, err := c.CrosschainBurn(context.Background(), baseSepolia, from, big.NewInt(1_000_000))
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)

	token, err := supertoken.NewSuperToken(common.Address{}, fc)
	require.NoError(t, err)
	ev, err := token.ParseCrosschainBurned(*receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, from, ev.From)
	require.EqualValues(t, 1_000_000, ev.Amount.Int64())

	name, args, _ := fc.lastCall(t)
	require.Equal(t, "crosschainBurn", name)
	require.Equal(t, from, args[0].(common.Address))
}

func TestRevertDuringEstimate(t *testing.T) {
	fc := newFakeChain(t)
	fc.estimateErr = errors.New("execution reverted: caller not authorized")
	c := newTestClient(t, nil, fc, keySigner{})

	_, err := c.CrosschainBurn(context.Background(), baseSepolia, common.HexToAddress("0x01"), big.NewInt(1))
	require.ErrorIs(t, err, shared.ErrContractCallReverted)
	require.Empty(t, fc.sent)
}

func TestFailedReceiptIsRevert(t *testing.T) {
	fc := newFakeChain(t)
	fc.failReceipts = true
	c := newTestClient(t, nil, fc, keySigner{})

	_, err := c.Withdraw(context.Background(), baseSepolia, big.NewInt(1))
	require.ErrorIs(t, err, shared.ErrContractCallReverted)
	require.Equal(t, "ContractCallReverted", shared.KindOf(err))
}

func TestSignerRejection(t *testing.T) {
	fc := newFakeChain(t)
	c := newTestClient(t, nil, fc, keySigner{rejected: true})

	_, err := c.Deposit(context.Background(), baseSepolia, big.NewInt(1))
	require.ErrorIs(t, err, shared.ErrUserRejected)
	require.Empty(t, fc.sent)
}

func TestWritesWithoutSigner(t *testing.T) {
	c := newTestClient(t, nil, newFakeChain(t), nil)
	_, err := c.Approve(context.Background(), baseSepolia, big.NewInt(1))
	require.ErrorIs(t, err, shared.ErrWalletUnavailable)
}
