package onchain

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/chains"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/constants"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/contracts/bindings/go/erc20"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/contracts/bindings/go/supertoken"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/provider"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

// Signer hands out transaction options once the wallet owner agrees.
type Signer interface {
	TransactOpts(ctx context.Context, chain catalog.ChainID, summary string) (*bind.TransactOpts, error)
}

type ChainClients interface {
	ClientFor(ctx context.Context, id catalog.ChainID) (chains.Backend, error)
}

type Config struct {
	Catalog        *catalog.Catalog
	Chains         ChainClients
	Signer         Signer
	ReceiptTimeout time.Duration
}

// Client reads and writes the wrapped token and its underlying asset.
type Client struct {
	catalog        *catalog.Catalog
	chains         ChainClients
	signer         Signer
	receiptTimeout time.Duration

	mu       sync.Mutex
	decimals map[decimalsKey]uint8
}

type decimalsKey struct {
	chain catalog.ChainID
	token common.Address
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Catalog == nil || cfg.Chains == nil {
		return nil, errors.New("onchain: catalog and chain clients are required")
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = constants.ReceiptTimeout
	}
	return &Client{
		catalog:        cfg.Catalog,
		chains:         cfg.Chains,
		signer:         cfg.Signer,
		receiptTimeout: cfg.ReceiptTimeout,
		decimals:       make(map[decimalsKey]uint8),
	}, nil
}

// Contracts returns the token pair deployed on chain.
func (c *Client) Contracts(chain catalog.ChainID) (catalog.ContractSet, error) {
	set, ok := c.catalog.Contracts(chain)
	if !ok {
		return catalog.ContractSet{}, errors.Mark(errors.Newf("no contracts configured for chain %s", chain), shared.ErrUnsupportedChain)
	}
	return set, nil
}

func (c *Client) NativeBalance(ctx context.Context, chain catalog.ChainID, account common.Address) (*big.Int, error) {
	backend, err := c.chains.ClientFor(ctx, chain)
	if err != nil {
		return nil, err
	}
	bal, err := backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "native balance on %s", chain)
	}
	return bal, nil
}

func (c *Client) TokenBalance(ctx context.Context, chain catalog.ChainID, token, account common.Address) (*big.Int, error) {
	caller, err := c.tokenCaller(ctx, chain, token)
	if err != nil {
		return nil, err
	}
	bal, err := caller.BalanceOf(&bind.CallOpts{Context: ctx}, account)
	if err != nil {
		return nil, errors.Wrapf(err, "balanceOf %s on %s", token.Hex(), chain)
	}
	return bal, nil
}

// TokenDecimals is cached per (chain, token); decimals never change.
func (c *Client) TokenDecimals(ctx context.Context, chain catalog.ChainID, token common.Address) (uint8, error) {
	key := decimalsKey{chain: chain, token: token}
	c.mu.Lock()
	d, ok := c.decimals[key]
	c.mu.Unlock()
	if ok {
		return d, nil
	}

	caller, err := c.tokenCaller(ctx, chain, token)
	if err != nil {
		return 0, err
	}
	d, err = caller.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, errors.Wrapf(err, "decimals %s on %s", token.Hex(), chain)
	}

	c.mu.Lock()
	c.decimals[key] = d
	c.mu.Unlock()
	return d, nil
}

// Allowance is what owner lets the wrapped contract pull from the underlying.
func (c *Client) Allowance(ctx context.Context, chain catalog.ChainID, owner common.Address) (*big.Int, error) {
	set, err := c.Contracts(chain)
	if err != nil {
		return nil, err
	}
	caller, err := c.tokenCaller(ctx, chain, set.Underlying)
	if err != nil {
		return nil, err
	}
	v, err := caller.Allowance(&bind.CallOpts{Context: ctx}, owner, set.Wrapped)
	if err != nil {
		return nil, errors.Wrapf(err, "allowance on %s", chain)
	}
	return v, nil
}

// Approve grants the wrapped contract amount of the underlying and waits for
// the receipt.
func (c *Client) Approve(ctx context.Context, chain catalog.ChainID, amount *big.Int) (*types.Receipt, error) {
	set, err := c.Contracts(chain)
	if err != nil {
		return nil, err
	}
	backend, opts, err := c.prepare(ctx, chain, "approve "+amount.String()+" for "+set.Wrapped.Hex())
	if err != nil {
		return nil, err
	}
	token, err := erc20.NewERC20(set.Underlying, backend)
	if err != nil {
		return nil, err
	}
	tx, err := token.Approve(opts, set.Wrapped, amount)
	if err != nil {
		return nil, classifySendError(err, "approve")
	}
	receipt, err := c.waitMined(ctx, backend, tx, "approve")
	if err != nil {
		return nil, err
	}
	for _, l := range receipt.Logs {
		if l == nil || l.Address != set.Underlying {
			continue
		}
		if ev, perr := token.ParseApproval(*l); perr == nil && ev.Spender == set.Wrapped {
			log.Info("allowance set", "chain_id", chain.String(), "owner", ev.Owner.Hex(), "value", ev.Value.String())
			break
		}
	}
	return receipt, nil
}

// Deposit converts underlying into wrapped 1:1. A native underlying is sent
// as value to the payable deposit.
func (c *Client) Deposit(ctx context.Context, chain catalog.ChainID, amount *big.Int) (*types.Receipt, error) {
	set, err := c.Contracts(chain)
	if err != nil {
		return nil, err
	}
	backend, opts, err := c.prepare(ctx, chain, "deposit "+amount.String())
	if err != nil {
		return nil, err
	}
	token, err := supertoken.NewSuperToken(set.Wrapped, backend)
	if err != nil {
		return nil, err
	}

	var tx *types.Transaction
	if set.UnderlyingIsNative() {
		opts.Value = new(big.Int).Set(amount)
		tx, err = token.Deposit(opts)
	} else {
		tx, err = token.Deposit0(opts, amount)
	}
	if err != nil {
		return nil, classifySendError(err, "deposit")
	}
	receipt, err := c.waitMined(ctx, backend, tx, "deposit")
	if err != nil {
		return nil, err
	}
	for _, l := range receipt.Logs {
		if l == nil || l.Address != set.Wrapped {
			continue
		}
		if ev, perr := token.ParseDeposited(*l); perr == nil {
			log.Info("deposit minted", "chain_id", chain.String(), "user", ev.User.Hex(), "amount", ev.Amount.String())
			break
		}
	}
	return receipt, nil
}

func (c *Client) Withdraw(ctx context.Context, chain catalog.ChainID, amount *big.Int) (*types.Receipt, error) {
	set, err := c.Contracts(chain)
	if err != nil {
		return nil, err
	}
	backend, opts, err := c.prepare(ctx, chain, "withdraw "+amount.String())
	if err != nil {
		return nil, err
	}
	token, err := supertoken.NewSuperToken(set.Wrapped, backend)
	if err != nil {
		return nil, err
	}
	tx, err := token.Withdraw(opts, amount)
	if err != nil {
		return nil, classifySendError(err, "withdraw")
	}
	return c.waitMined(ctx, backend, tx, "withdraw")
}

// CrosschainBurn burns amount from the holder on chain. The receipt must
// carry a matching CrosschainBurned event.
func (c *Client) CrosschainBurn(ctx context.Context, chain catalog.ChainID, from common.Address, amount *big.Int) (*types.Receipt, error) {
	set, err := c.Contracts(chain)
	if err != nil {
		return nil, err
	}
	backend, opts, err := c.prepare(ctx, chain, "burn "+amount.String()+" from "+from.Hex())
	if err != nil {
		return nil, err
	}
	token, err := supertoken.NewSuperToken(set.Wrapped, backend)
	if err != nil {
		return nil, err
	}
	tx, err := token.CrosschainBurn(opts, from, amount)
	if err != nil {
		return nil, classifySendError(err, "crosschainBurn")
	}
	receipt, err := c.waitMined(ctx, backend, tx, "crosschainBurn")
	if err != nil {
		return nil, err
	}

	for _, l := range receipt.Logs {
		if l == nil || l.Address != set.Wrapped {
			continue
		}
		ev, perr := token.ParseCrosschainBurned(*l)
		if perr != nil {
			continue
		}
		if ev.From == from && ev.Amount.Cmp(amount) == 0 {
			return receipt, nil
		}
	}
	log.Warn("burn receipt has no matching CrosschainBurned event", "tx", tx.Hash().Hex(), "chain_id", chain.String())
	return receipt, nil
}

func (c *Client) tokenCaller(ctx context.Context, chain catalog.ChainID, token common.Address) (*erc20.ERC20Caller, error) {
	backend, err := c.chains.ClientFor(ctx, chain)
	if err != nil {
		return nil, err
	}
	return erc20.NewERC20Caller(token, backend)
}

func (c *Client) prepare(ctx context.Context, chain catalog.ChainID, summary string) (chains.Backend, *bind.TransactOpts, error) {
	if c.signer == nil {
		return nil, nil, shared.ErrWalletUnavailable
	}
	backend, err := c.chains.ClientFor(ctx, chain)
	if err != nil {
		return nil, nil, err
	}
	opts, err := c.signer.TransactOpts(ctx, chain, summary)
	if err != nil {
		return nil, nil, classifySendError(err, "authorize "+summary)
	}
	opts.Context = ctx
	return backend, opts, nil
}

// waitMined polls for a receipt with a growing delay, like bind.WaitMined
// but bounded by the receipt timeout.
func (c *Client) waitMined(ctx context.Context, backend chains.Backend, tx *types.Transaction, op string) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	delay := constants.ReceiptInitialDelay
	for {
		receipt, err := backend.TransactionReceipt(ctx, tx.Hash())
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, errors.Mark(errors.Newf("%s reverted in tx %s", op, tx.Hash().Hex()), shared.ErrContractCallReverted)
			}
			log.Info("transaction confirmed", "op", op, "tx", tx.Hash().Hex(), "block", receipt.BlockNumber)
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			log.Warn("receipt query failed", "op", op, "tx", tx.Hash().Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for %s tx %s", op, tx.Hash().Hex())
		case <-time.After(delay):
			if delay < constants.ReceiptMaxDelay {
				delay += 250 * time.Millisecond
			}
		}
	}
}

func classifySendError(err error, op string) error {
	switch {
	case errors.Is(err, provider.ErrUserRejected):
		return shared.Mark(err, shared.ErrUserRejected, op)
	case errors.Is(err, provider.ErrUnauthorized):
		return shared.Mark(err, shared.ErrNotConnected, op)
	case isRevert(err):
		return shared.Mark(err, shared.ErrContractCallReverted, op)
	default:
		return errors.Wrap(err, op)
	}
}

func isRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert")
}
